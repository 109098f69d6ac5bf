package pipeline

import (
	"github.com/dmitrymomot/groundwork/core/config"
	"github.com/dmitrymomot/groundwork/core/correlation"
	"github.com/dmitrymomot/groundwork/core/request"
	"github.com/dmitrymomot/groundwork/middleware"
)

// Config is the environment-backed pipeline configuration.
type Config struct {
	CorrelationHeader string `env:"CORRELATION_HEADER" envDefault:"X-Correlation-ID"`

	// Per-content-type body ceilings, in bytes.
	MaxJSONBody int64 `env:"MAX_JSON_BODY" envDefault:"1048576"`
	MaxFormBody int64 `env:"MAX_FORM_BODY" envDefault:"1048576"`
	MaxTextBody int64 `env:"MAX_TEXT_BODY" envDefault:"1048576"`
	MaxRawBody  int64 `env:"MAX_RAW_BODY" envDefault:"4194304"`

	// Multipart ceilings.
	MaxFileSize  int64 `env:"MAX_FILE_SIZE" envDefault:"10485760"`
	MaxTotalSize int64 `env:"MAX_TOTAL_SIZE" envDefault:"52428800"`
	MaxFiles     int   `env:"MAX_FILES" envDefault:"10"`
	MaxFieldSize int64 `env:"MAX_FIELD_SIZE" envDefault:"1048576"`

	CORSEnabled bool `env:"CORS_ENABLED" envDefault:"false"`
}

// Limits converts the configured ceilings to request.Limits.
func (cfg Config) Limits() request.Limits {
	return request.Limits{
		JSON: cfg.MaxJSONBody,
		Form: cfg.MaxFormBody,
		Text: cfg.MaxTextBody,
		Raw:  cfg.MaxRawBody,
		Multipart: request.MultipartLimits{
			MaxFileSize:  cfg.MaxFileSize,
			MaxTotalSize: cfg.MaxTotalSize,
			MaxFiles:     cfg.MaxFiles,
			MaxFieldSize: cfg.MaxFieldSize,
		},
	}
}

// NewFromEnv builds a pipeline from environment configuration. It applies
// the correlation header setting process-wide and derives size ceilings
// and CORS enablement before the provided options, which take precedence.
func NewFromEnv(dispatcher RouteDispatcher, opts ...Option) (*Handler, error) {
	var cfg Config
	if err := config.Load(&cfg); err != nil {
		return nil, err
	}

	correlation.Configure(cfg.CorrelationHeader)

	base := []Option{WithLimits(cfg.Limits())}
	if cfg.CORSEnabled {
		base = append(base, WithCORS(middleware.CORSConfig{}))
	}
	return New(dispatcher, append(base, opts...)...), nil
}
