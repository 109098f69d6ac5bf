package request

import (
	"net/url"

	"github.com/dmitrymomot/groundwork/core/httperr"
)

// parseQuery parses the raw query string into the scalar-or-list shape:
// ?tag=a yields {"tag": "a"}, ?tag=a&tag=b yields {"tag": ["a", "b"]}.
func parseQuery(rawQuery string) (map[string]any, error) {
	if rawQuery == "" {
		return make(map[string]any), nil
	}
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return nil, httperr.NewParseURLError("").WithDetails(map[string]any{
			"cause": err.Error(),
		})
	}
	return collapseValues(values), nil
}

// collapseValues keeps single occurrences as scalars and folds repeated
// keys into a list preserving arrival order.
func collapseValues(values url.Values) map[string]any {
	out := make(map[string]any, len(values))
	for key, vals := range values {
		if len(vals) == 1 {
			out[key] = vals[0]
			continue
		}
		list := make([]string, len(vals))
		copy(list, vals)
		out[key] = list
	}
	return out
}
