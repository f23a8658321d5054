package models

// AiResponse is the normalized result of one chat call.
type AiResponse struct {
	Content          *string  `json:"content"`
	ReasoningContent *string  `json:"reasoning_content"`
	ModelName        string   `json:"model_name"`
	AdapterKind      string   `json:"adapter_kind"`
	DurationSec      float64  `json:"duration_sec"`
	PriceUSD         *float64 `json:"price_usd"`
	Usage            Usage    `json:"usage"`
	Info             string   `json:"info"`
}

// RunAgentInputResponse is the final output of a task: the AI response when
// the agent has no Output script, the Output script value otherwise.
type RunAgentInputResponse struct {
	AiResponse *AiResponse
	Output     any
}

func NewAiResponseOutput(r *AiResponse) *RunAgentInputResponse {
	return &RunAgentInputResponse{AiResponse: r}
}

func NewScriptOutput(v any) *RunAgentInputResponse {
	return &RunAgentInputResponse{Output: v}
}

// AsString returns the content for an AI response, or the output when it is
// a string.
func (r *RunAgentInputResponse) AsString() (string, bool) {
	if r == nil {
		return "", false
	}
	if r.AiResponse != nil {
		if r.AiResponse.Content == nil {
			return "", false
		}
		return *r.AiResponse.Content, true
	}
	s, ok := r.Output.(string)
	return s, ok
}

// IntoValue returns a JSON-like value: the AI content (or nil) or the output.
func (r *RunAgentInputResponse) IntoValue() any {
	if r == nil {
		return nil
	}
	if r.AiResponse != nil {
		if r.AiResponse.Content == nil {
			return nil
		}
		return *r.AiResponse.Content
	}
	return r.Output
}
