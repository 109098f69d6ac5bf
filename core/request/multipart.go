package request

import (
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/dmitrymomot/groundwork/core/httperr"
)

// MultipartLimits holds the ceilings enforced while decoding a multipart body.
type MultipartLimits struct {
	MaxFileSize  int64 // per uploaded file
	MaxTotalSize int64 // across all parts
	MaxFiles     int   // number of file parts
	MaxFieldSize int64 // per text field
}

// DefaultMultipartLimits returns the ceilings used when none are configured.
func DefaultMultipartLimits() MultipartLimits {
	return MultipartLimits{
		MaxFileSize:  10 << 20, // 10 MB
		MaxTotalSize: 50 << 20, // 50 MB
		MaxFiles:     10,
		MaxFieldSize: 1 << 20, // 1 MB
	}
}

// File is a fully-read uploaded file from a multipart body.
type File struct {
	Fieldname   string
	Filename    string
	ContentType string
	Size        int64
	Data        []byte
}

// MultipartForm is the decoded result: text fields in the scalar-or-list
// shape and files keyed by field name.
type MultipartForm struct {
	Fields map[string]any
	Files  map[string]*File
}

// MultipartParser decodes a multipart request body under the given limits.
// Violations surface as PayloadTooLarge or UnsupportedMediaType errors.
type MultipartParser interface {
	Parse(r *http.Request, limits MultipartLimits) (*MultipartForm, error)
}

// defaultMultipartParser is the built-in decoder on mime/multipart.
type defaultMultipartParser struct{}

func (defaultMultipartParser) Parse(r *http.Request, limits MultipartLimits) (*MultipartForm, error) {
	if limits == (MultipartLimits{}) {
		limits = DefaultMultipartLimits()
	}

	// Validate the boundary parameter up front to reject malformed
	// multipart requests before touching the body.
	_, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return nil, httperr.NewUnsupportedMediaTypeError("Malformed multipart content type")
	}
	boundary, ok := params["boundary"]
	if !ok || boundary == "" {
		return nil, httperr.NewUnsupportedMediaTypeError("Missing multipart boundary")
	}

	mr := multipart.NewReader(r.Body, boundary)
	values := url.Values{}
	files := make(map[string]*File)
	var total int64
	fileCount := 0

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, httperr.NewValidationError("Malformed multipart body").WithDetails(map[string]any{
				"cause": err.Error(),
			})
		}

		name := part.FormName()
		if name == "" {
			continue
		}

		if part.FileName() == "" {
			data, err := readPart(part, name, limits.MaxFieldSize)
			if err != nil {
				return nil, err
			}
			total += int64(len(data))
			if total > limits.MaxTotalSize {
				return nil, totalTooLarge(limits.MaxTotalSize)
			}
			values.Add(name, string(data))
			continue
		}

		fileCount++
		if fileCount > limits.MaxFiles {
			return nil, httperr.NewPayloadTooLargeError("Too many files in multipart body").WithDetails(map[string]any{
				"maxFiles": limits.MaxFiles,
			})
		}
		data, err := readPart(part, name, limits.MaxFileSize)
		if err != nil {
			return nil, err
		}
		total += int64(len(data))
		if total > limits.MaxTotalSize {
			return nil, totalTooLarge(limits.MaxTotalSize)
		}

		contentType := part.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		files[name] = &File{
			Fieldname:   name,
			Filename:    part.FileName(),
			ContentType: contentType,
			Size:        int64(len(data)),
			Data:        data,
		}
	}

	return &MultipartForm{Fields: collapseValues(values), Files: files}, nil
}

func readPart(part *multipart.Part, name string, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(part, limit+1))
	if err != nil {
		return nil, httperr.NewValidationError("Failed to read multipart part").WithDetails(map[string]any{
			"part":  name,
			"cause": err.Error(),
		})
	}
	if int64(len(data)) > limit {
		return nil, httperr.NewPayloadTooLargeError("").WithDetails(map[string]any{
			"part":  name,
			"limit": limit,
		})
	}
	return data, nil
}

func totalTooLarge(limit int64) *httperr.Error {
	return httperr.NewPayloadTooLargeError("Multipart body exceeds total size limit").WithDetails(map[string]any{
		"maxTotalSize": limit,
	})
}
