package script

import (
	"github.com/zjregee/aip/internal/models"
)

// Binding is one global made visible to a script.
type Binding struct {
	Name  string
	Value any
}

// Scope is an ordered list of bindings. Later bindings shadow earlier ones.
type Scope []Binding

// With returns a new scope with an extra binding.
func (s Scope) With(name string, value any) Scope {
	out := make(Scope, 0, len(s)+1)
	out = append(out, s...)
	return append(out, Binding{Name: name, Value: value})
}

// Lookup returns the last binding named name.
func (s Scope) Lookup(name string) (any, bool) {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i].Name == name {
			return s[i].Value, true
		}
	}
	return nil, false
}

// Map flattens the scope, for template rendering.
func (s Scope) Map() map[string]any {
	out := make(map[string]any, len(s))
	for _, b := range s {
		out[b.Name] = b.Value
	}
	return out
}

// NewTaskScope builds the scope shared by the Data, prompt and Output stages
// of a task.
func NewTaskScope(input, beforeAll any, options models.AgentOptions) Scope {
	return Scope{
		{Name: "input", Value: input},
		{Name: "before_all", Value: beforeAll},
		{Name: "options", Value: options.AsValue()},
	}
}
