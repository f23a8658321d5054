package models

import (
	"encoding/json"
	"fmt"
	"maps"

	"dario.cat/mergo"
)

// ModelAliases maps a short name to a full model name.
type ModelAliases map[string]string

// Merge returns a new alias table with ov applied over a. Later keys win,
// including empty values, which disable an alias.
func (a ModelAliases) Merge(ov ModelAliases) ModelAliases {
	merged := maps.Clone(a)
	if merged == nil {
		merged = ModelAliases{}
	}
	if len(ov) == 0 {
		return merged
	}
	// mergo only fails on a nil or mismatched destination.
	if err := mergo.Merge(&merged, ov, mergo.WithOverride); err != nil {
		panic(fmt.Sprintf("merging model aliases: %v", err))
	}
	return merged
}

// AgentOptions is the resolved configuration of one agent. Every field is
// optional so that layers (config file, # Options section, Data stage
// override) can be merged field by field.
type AgentOptions struct {
	Model            *string      `json:"model,omitempty" yaml:"model,omitempty"`
	Temperature      *float64     `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	TopP             *float64     `json:"top_p,omitempty" yaml:"top_p,omitempty"`
	InputConcurrency *int         `json:"input_concurrency,omitempty" yaml:"input_concurrency,omitempty"`
	ModelAliases     ModelAliases `json:"model_aliases,omitempty" yaml:"model_aliases,omitempty"`
}

// ChatOptions are the request level options sent along a chat call.
type ChatOptions struct {
	Temperature *float64
	TopP        *float64
}

// OptionsFromValue decodes a JSON-like document (typically a script table)
// into AgentOptions.
func OptionsFromValue(value any) (AgentOptions, error) {
	var opts AgentOptions
	if value == nil {
		return opts, nil
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return opts, fmt.Errorf("failed to encode options: %w", err)
	}
	if err := json.Unmarshal(raw, &opts); err != nil {
		return opts, fmt.Errorf("invalid options: %w", err)
	}

	return opts, nil
}

// MergeNew returns a new AgentOptions where every field set on ov wins over
// the receiver. The receiver is left untouched.
func (o AgentOptions) MergeNew(ov AgentOptions) AgentOptions {
	var aliases ModelAliases
	switch {
	case o.ModelAliases != nil:
		aliases = o.ModelAliases.Merge(ov.ModelAliases)
	case ov.ModelAliases != nil:
		aliases = maps.Clone(ov.ModelAliases)
	}

	return AgentOptions{
		Model:            or(ov.Model, o.Model),
		Temperature:      or(ov.Temperature, o.Temperature),
		TopP:             or(ov.TopP, o.TopP),
		InputConcurrency: or(ov.InputConcurrency, o.InputConcurrency),
		ModelAliases:     aliases,
	}
}

// RawModel returns the model name as written, before alias resolution.
func (o AgentOptions) RawModel() string {
	if o.Model == nil {
		return ""
	}
	return *o.Model
}

// ResolveModel returns the model name after alias resolution. Aliases are only
// consulted when an alias table is present; an empty alias is ignored.
func (o AgentOptions) ResolveModel() string {
	model := o.RawModel()
	if model == "" || o.ModelAliases == nil {
		return model
	}
	if resolved := o.ModelAliases[model]; resolved != "" {
		return resolved
	}
	return model
}

// Concurrency returns the input concurrency, at least 1.
func (o AgentOptions) Concurrency() int {
	if o.InputConcurrency == nil || *o.InputConcurrency < 1 {
		return 1
	}
	return *o.InputConcurrency
}

// ChatOptions overlays temperature and top_p on base.
func (o AgentOptions) ChatOptions(base *ChatOptions) ChatOptions {
	var opts ChatOptions
	if base != nil {
		opts = *base
	}
	if o.Temperature != nil {
		opts.Temperature = o.Temperature
	}
	if o.TopP != nil {
		opts.TopP = o.TopP
	}
	return opts
}

// AsValue renders the options the way scripts see them.
func (o AgentOptions) AsValue() map[string]any {
	value := map[string]any{
		"model":          nil,
		"resolved_model": nil,
	}
	if model := o.RawModel(); model != "" {
		value["model"] = model
		value["resolved_model"] = o.ResolveModel()
	}
	if o.Temperature != nil {
		value["temperature"] = *o.Temperature
	}
	if o.TopP != nil {
		value["top_p"] = *o.TopP
	}
	if o.InputConcurrency != nil {
		value["input_concurrency"] = *o.InputConcurrency
	}
	if o.ModelAliases != nil {
		aliases := make(map[string]any, len(o.ModelAliases))
		for k, v := range o.ModelAliases {
			aliases[k] = v
		}
		value["model_aliases"] = aliases
	}
	return value
}

func or[T any](first, second *T) *T {
	if first != nil {
		return first
	}
	return second
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
