package models

import (
	"github.com/cloudwego/eino/schema"
)

type PartKind string

const (
	PartKindSystem    PartKind = "system"
	PartKindUser      PartKind = "user"
	PartKindAssistant PartKind = "assistant"
)

// Role maps the part kind to its chat role.
func (k PartKind) Role() schema.RoleType {
	switch k {
	case PartKindSystem:
		return schema.System
	case PartKindAssistant:
		return schema.Assistant
	default:
		return schema.User
	}
}

// PromptPart is one templated message of an agent. OptionsStr holds the inline
// options written after the section heading, if any.
type PromptPart struct {
	Kind       PartKind
	Content    string
	OptionsStr *string
}

// Agent is a parsed agent file. It is shared read only between the tasks of a
// run; per input changes go through NewMerge.
type Agent struct {
	Name     string
	FilePath string
	FileDir  string

	Options AgentOptions

	BeforeAllScript *string
	DataScript      *string
	OutputScript    *string
	AfterAllScript  *string

	PromptParts []PromptPart
}

// NewMerge returns a copy of the agent using opts. Scripts and prompt parts
// are shared with the receiver.
func (a *Agent) NewMerge(opts AgentOptions) *Agent {
	merged := *a
	merged.Options = opts
	return &merged
}

// ModelResolved returns the model the agent will call.
func (a *Agent) ModelResolved() string {
	return a.Options.ResolveModel()
}
