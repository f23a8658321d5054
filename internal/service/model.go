package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino-ext/components/model/deepseek"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/zjregee/aip/internal/models"
)

const (
	OpenAIAdapterKind    = "openai"
	AnthropicAdapterKind = "anthropic"
	GeminiAdapterKind    = "gemini"
	DeepSeekAdapterKind  = "deepseek"
	XAIAdapterKind       = "xai"
	GroqAdapterKind      = "groq"
	ArkAdapterKind       = "ark"
)

const (
	OpenAIModelBaseURL    = "https://api.openai.com/v1"
	AnthropicModelBaseURL = "https://api.anthropic.com/v1/"
	GeminiModelBaseURL    = "https://generativelanguage.googleapis.com/v1beta/openai/"
	DeepSeekModelBaseURL  = "https://api.deepseek.com"
	XAIModelBaseURL       = "https://api.x.ai/v1"
	GroqModelBaseURL      = "https://api.groq.com/openai/v1"
	ArkModelBaseURL       = "https://ark.cn-beijing.volces.com/api/v3"
)

const (
	maxChatAttempts   = 3
	rateLimitInterval = 3 * time.Second
)

type AdapterConfig struct {
	Kind      string
	BaseURL   string
	APIKeyEnv string
}

var adapters = map[string]*AdapterConfig{
	OpenAIAdapterKind:    {Kind: OpenAIAdapterKind, BaseURL: OpenAIModelBaseURL, APIKeyEnv: "OPENAI_API_KEY"},
	AnthropicAdapterKind: {Kind: AnthropicAdapterKind, BaseURL: AnthropicModelBaseURL, APIKeyEnv: "ANTHROPIC_API_KEY"},
	GeminiAdapterKind:    {Kind: GeminiAdapterKind, BaseURL: GeminiModelBaseURL, APIKeyEnv: "GEMINI_API_KEY"},
	DeepSeekAdapterKind:  {Kind: DeepSeekAdapterKind, BaseURL: DeepSeekModelBaseURL, APIKeyEnv: "DEEPSEEK_API_KEY"},
	XAIAdapterKind:       {Kind: XAIAdapterKind, BaseURL: XAIModelBaseURL, APIKeyEnv: "XAI_API_KEY"},
	GroqAdapterKind:      {Kind: GroqAdapterKind, BaseURL: GroqModelBaseURL, APIKeyEnv: "GROQ_API_KEY"},
	ArkAdapterKind:       {Kind: ArkAdapterKind, BaseURL: ArkModelBaseURL, APIKeyEnv: "ARK_API_KEY"},
}

var adapterPrefixes = []struct {
	prefix string
	kind   string
}{
	{"openai/gpt-oss", GroqAdapterKind},
	{"meta-llama/", GroqAdapterKind},
	{"qwen/", GroqAdapterKind},
	{"llama", GroqAdapterKind},
	{"mixtral", GroqAdapterKind},
	{"chatgpt", OpenAIAdapterKind},
	{"gpt", OpenAIAdapterKind},
	{"o1", OpenAIAdapterKind},
	{"o3", OpenAIAdapterKind},
	{"o4", OpenAIAdapterKind},
	{"claude", AnthropicAdapterKind},
	{"gemini", GeminiAdapterKind},
	{"gemma", GeminiAdapterKind},
	{"deepseek", DeepSeekAdapterKind},
	{"grok", XAIAdapterKind},
	{"doubao", ArkAdapterKind},
}

// ResolveModelIden maps a model name to the adapter serving it. An explicit
// "adapter::model" namespace wins over name prefixes.
func ResolveModelIden(name string) (models.ModelIden, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.ModelIden{}, fmt.Errorf("model is required")
	}

	if kind, rest, ok := strings.Cut(name, "::"); ok {
		kind = strings.ToLower(kind)
		if _, ok := adapters[kind]; !ok {
			return models.ModelIden{}, fmt.Errorf("unsupported adapter: %s", kind)
		}
		return models.ModelIden{AdapterKind: kind, ModelName: rest}, nil
	}

	lower := strings.ToLower(name)
	for _, p := range adapterPrefixes {
		if strings.HasPrefix(lower, p.prefix) {
			return models.ModelIden{AdapterKind: p.kind, ModelName: name}, nil
		}
	}

	return models.ModelIden{}, fmt.Errorf("cannot resolve adapter for model: %s", name)
}

// EinoChatClient is the production ChatClient. Chat models are built on first
// use and reused per adapter, model and API key.
type EinoChatClient struct {
	// Getenv defaults to os.Getenv.
	Getenv func(string) string

	mu         sync.Mutex
	chatModels map[chatModelKey]model.BaseChatModel
}

type chatModelKey struct {
	iden   models.ModelIden
	apiKey string
}

func NewEinoChatClient() *EinoChatClient {
	return &EinoChatClient{Getenv: os.Getenv}
}

func (c *EinoChatClient) ExecChat(ctx context.Context, modelName string, msgs []*schema.Message, opts models.ChatOptions) (*ChatResponse, error) {
	iden, err := ResolveModelIden(modelName)
	if err != nil {
		return nil, err
	}

	chatModel, err := c.getModel(ctx, iden)
	if err != nil {
		return nil, err
	}

	var callOpts []model.Option
	if opts.Temperature != nil {
		callOpts = append(callOpts, model.WithTemperature(float32(*opts.Temperature)))
	}
	if opts.TopP != nil {
		callOpts = append(callOpts, model.WithTopP(float32(*opts.TopP)))
	}

	var response *schema.Message
	for attempt := 1; ; attempt++ {
		response, err = chatModel.Generate(ctx, msgs, callOpts...)
		if err == nil {
			break
		}
		if attempt >= maxChatAttempts || !strings.Contains(err.Error(), "429") {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(rateLimitInterval):
		}
	}

	return chatResponseFromMessage(iden, response), nil
}

func (c *EinoChatClient) getModel(ctx context.Context, iden models.ModelIden) (model.BaseChatModel, error) {
	config, ok := adapters[iden.AdapterKind]
	if !ok {
		return nil, fmt.Errorf("unsupported adapter: %s", iden.AdapterKind)
	}

	getenv := c.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	apiKey := getenv(config.APIKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("%s is not set", config.APIKeyEnv)
	}

	key := chatModelKey{iden: iden, apiKey: apiKey}

	c.mu.Lock()
	defer c.mu.Unlock()
	if chatModel, ok := c.chatModels[key]; ok {
		return chatModel, nil
	}

	chatModel, err := newChatModel(ctx, config, iden, apiKey)
	if err != nil {
		return nil, err
	}
	if c.chatModels == nil {
		c.chatModels = make(map[chatModelKey]model.BaseChatModel)
	}
	c.chatModels[key] = chatModel
	return chatModel, nil
}

func newChatModel(ctx context.Context, config *AdapterConfig, iden models.ModelIden, apiKey string) (model.BaseChatModel, error) {
	switch config.Kind {
	case DeepSeekAdapterKind:
		return deepseek.NewChatModel(ctx, &deepseek.ChatModelConfig{
			APIKey:  apiKey,
			BaseURL: config.BaseURL,
			Model:   iden.ModelName,
		})
	case ArkAdapterKind:
		return ark.NewChatModel(ctx, &ark.ChatModelConfig{
			APIKey:  apiKey,
			BaseURL: config.BaseURL,
			Model:   iden.ModelName,
		})
	default:
		return openai.NewChatModel(ctx, &openai.ChatModelConfig{
			APIKey:  apiKey,
			BaseURL: config.BaseURL,
			Model:   iden.ModelName,
		})
	}
}

func chatResponseFromMessage(iden models.ModelIden, msg *schema.Message) *ChatResponse {
	res := &ChatResponse{ModelIden: iden}
	if msg == nil {
		return res
	}

	if msg.Content != "" {
		content := msg.Content
		res.Content = &content
	}
	if msg.ReasoningContent != "" {
		reasoning := msg.ReasoningContent
		res.ReasoningContent = &reasoning
	}

	if msg.ResponseMeta != nil && msg.ResponseMeta.Usage != nil {
		u := msg.ResponseMeta.Usage
		cached := u.PromptTokenDetails.CachedTokens
		res.Usage = models.Usage{
			PromptTokens:     models.Ptr(u.PromptTokens - cached),
			CompletionTokens: models.Ptr(u.CompletionTokens),
			TotalTokens:      models.Ptr(u.TotalTokens),
		}
		if cached > 0 {
			res.Usage.CachedTokens = models.Ptr(cached)
		}
		if reasoning := u.CompletionTokensDetails.ReasoningTokens; reasoning > 0 {
			res.Usage.ReasoningTokens = models.Ptr(reasoning)
		}
	}

	return res
}
