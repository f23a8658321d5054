package service

import (
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
	"gopkg.in/yaml.v3"

	"github.com/zjregee/aip/internal/models"
	"github.com/zjregee/aip/internal/service/render"
)

// CacheControlKey is the schema.Message extra key carrying a cache hint. The
// eino-ext chat models do not send Extra, so the hint is local: it marks cached
// parts in verbose output, and the providers cache prompt prefixes on their own.
const CacheControlKey = "cache_control"

// PromptPartError reports a prompt part that could not be rendered or whose
// inline options are invalid.
type PromptPartError struct {
	Index int
	Kind  models.PartKind
	Cause error
}

func (e *PromptPartError) Error() string {
	return fmt.Sprintf("prompt part #%d (%s): %v", e.Index+1, e.Kind, e.Cause)
}

func (e *PromptPartError) Unwrap() error {
	return e.Cause
}

type partOptions struct {
	Cache bool `yaml:"cache"`
}

// BuildChatMessages renders the prompt parts against data, in order. Parts
// rendering to blank text produce no message.
func BuildChatMessages(parts []models.PromptPart, data map[string]any) ([]*schema.Message, error) {
	var msgs []*schema.Message

	for i, part := range parts {
		content := part.Content
		hasOptions := part.OptionsStr != nil
		if hasOptions {
			content = *part.OptionsStr + "\n" + content
		}

		rendered, err := render.Render(content, data)
		if err != nil {
			return nil, &PromptPartError{Index: i, Kind: part.Kind, Cause: err}
		}

		var optionsStr string
		if hasOptions {
			optionsStr, rendered = extractFirstLine(rendered)
			optionsStr = strings.TrimSpace(optionsStr)
		}

		if strings.TrimSpace(rendered) == "" {
			continue
		}

		msg := &schema.Message{
			Role:    part.Kind.Role(),
			Content: rendered,
		}

		if optionsStr != "" {
			opts, err := parsePartOptions(optionsStr)
			if err != nil {
				return nil, &PromptPartError{Index: i, Kind: part.Kind, Cause: err}
			}
			if opts.Cache {
				msg.Extra = map[string]any{
					CacheControlKey: map[string]any{"type": "ephemeral"},
				}
			}
		}

		msgs = append(msgs, msg)
	}

	return msgs, nil
}

func extractFirstLine(s string) (string, string) {
	first, rest, _ := strings.Cut(s, "\n")
	return first, rest
}

// parsePartOptions reads an inline options string such as "{cache: true}" or
// "cache: true".
func parsePartOptions(s string) (partOptions, error) {
	var opts partOptions
	if err := yaml.Unmarshal([]byte(s), &opts); err != nil {
		return opts, fmt.Errorf("invalid part options %q: %w", s, err)
	}
	return opts, nil
}

// IsCached reports whether a message carries the ephemeral cache hint.
func IsCached(msg *schema.Message) bool {
	if msg == nil || msg.Extra == nil {
		return false
	}
	_, ok := msg.Extra[CacheControlKey]
	return ok
}
