package models

// ModelIden identifies a model together with the adapter serving it.
type ModelIden struct {
	AdapterKind string `json:"adapter_kind"`
	ModelName   string `json:"model_name"`
}

// Usage is the token usage reported by a chat call. All counts are optional.
// PromptTokens does not include CachedTokens; CompletionTokens does include
// ReasoningTokens.
type Usage struct {
	PromptTokens        *int `json:"prompt_tokens,omitempty"`
	CachedTokens        *int `json:"cached_tokens,omitempty"`
	CacheCreationTokens *int `json:"cache_creation_tokens,omitempty"`
	CompletionTokens    *int `json:"completion_tokens,omitempty"`
	ReasoningTokens     *int `json:"reasoning_tokens,omitempty"`
	TotalTokens         *int `json:"total_tokens,omitempty"`
}

// Add accumulates u into a copy of the receiver.
func (u Usage) Add(o Usage) Usage {
	return Usage{
		PromptTokens:        addCount(u.PromptTokens, o.PromptTokens),
		CachedTokens:        addCount(u.CachedTokens, o.CachedTokens),
		CacheCreationTokens: addCount(u.CacheCreationTokens, o.CacheCreationTokens),
		CompletionTokens:    addCount(u.CompletionTokens, o.CompletionTokens),
		ReasoningTokens:     addCount(u.ReasoningTokens, o.ReasoningTokens),
		TotalTokens:         addCount(u.TotalTokens, o.TotalTokens),
	}
}

func addCount(a, b *int) *int {
	if a == nil && b == nil {
		return nil
	}
	return Ptr(Count(a) + Count(b))
}

// Count dereferences an optional token count.
func Count(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
