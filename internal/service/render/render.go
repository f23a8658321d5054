package render

import (
	"fmt"

	"github.com/aymerick/raymond"
)

// Render renders a handlebars template against data. Values are inserted as
// is, without HTML escaping.
func Render(template string, data any) (string, error) {
	tpl, err := raymond.Parse(template)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	out, err := tpl.Exec(safeValue(data))
	if err != nil {
		return "", fmt.Errorf("failed to render template: %w", err)
	}
	return out, nil
}

// safeValue marks every string leaf as a raymond.SafeString so that prompts
// keep quotes, ampersands and angle brackets.
func safeValue(v any) any {
	switch val := v.(type) {
	case string:
		return raymond.SafeString(val)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = safeValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = safeValue(item)
		}
		return out
	case []string:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = raymond.SafeString(item)
		}
		return out
	default:
		return v
	}
}
