package service

import (
	"context"
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"

	"github.com/zjregee/aip/internal/models"
)

func TestResolveModelIden(t *testing.T) {
	t.Parallel()

	cases := map[string]models.ModelIden{
		"gpt-4o-mini":             {AdapterKind: "openai", ModelName: "gpt-4o-mini"},
		"o3-mini":                 {AdapterKind: "openai", ModelName: "o3-mini"},
		"claude-3-5-haiku-latest": {AdapterKind: "anthropic", ModelName: "claude-3-5-haiku-latest"},
		"gemini-2.0-flash":        {AdapterKind: "gemini", ModelName: "gemini-2.0-flash"},
		"deepseek-chat":           {AdapterKind: "deepseek", ModelName: "deepseek-chat"},
		"grok-3":                  {AdapterKind: "xai", ModelName: "grok-3"},
		"llama-3.1-8b-instant":    {AdapterKind: "groq", ModelName: "llama-3.1-8b-instant"},
		"openai/gpt-oss-20b":      {AdapterKind: "groq", ModelName: "openai/gpt-oss-20b"},
		"doubao-seed-1-6":         {AdapterKind: "ark", ModelName: "doubao-seed-1-6"},
		"openai::my-finetune":     {AdapterKind: "openai", ModelName: "my-finetune"},
		" DeepSeek::deepseek-r1 ": {AdapterKind: "deepseek", ModelName: "deepseek-r1"},
	}
	for name, want := range cases {
		got, err := ResolveModelIden(name)
		if err != nil {
			t.Fatalf("ResolveModelIden(%q) failed: %v", name, err)
		}
		if got != want {
			t.Fatalf("ResolveModelIden(%q) = %#v, want %#v", name, got, want)
		}
	}

	for _, name := range []string{"", "mystery-model", "nope::model"} {
		if _, err := ResolveModelIden(name); err == nil {
			t.Fatalf("expected an error for %q", name)
		}
	}
}

func TestFormatUsage(t *testing.T) {
	t.Parallel()

	got := FormatUsage(models.Usage{
		PromptTokens:        models.Ptr(1_000),
		CachedTokens:        models.Ptr(2_500),
		CacheCreationTokens: models.Ptr(10),
		CompletionTokens:    models.Ptr(400),
		ReasoningTokens:     models.Ptr(100),
	})
	want := "Prompt Tokens: 3,500 (cached: 2,500, cache_creation: 10) | Completion Tokens: 400 (reasoning: 100)"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}

	if got := FormatUsage(models.Usage{}); !strings.HasPrefix(got, "Prompt Tokens: 0 (cached: 0") {
		t.Fatalf("unexpected empty usage %q", got)
	}
}

func TestFormatModel(t *testing.T) {
	t.Parallel()

	res := &ChatResponse{
		ModelIden:         models.ModelIden{AdapterKind: "openai", ModelName: "gpt-4o"},
		ProviderModelName: "gpt-4o-2024-08-06",
	}
	opts := models.AgentOptions{Temperature: models.Ptr(0.5), TopP: models.Ptr(0.9)}

	want := "Model: gpt-4o (gpt-4o-2024-08-06) | Adapter: openai | Temperature: 0.5 | top_p: 0.9"
	if got := formatModel(res, opts); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestChatResponseFromMessage(t *testing.T) {
	t.Parallel()

	iden := models.ModelIden{AdapterKind: "openai", ModelName: "gpt-4o-mini"}
	msg := &schema.Message{
		Role:             schema.Assistant,
		Content:          "hi",
		ReasoningContent: "thinking",
		ResponseMeta: &schema.ResponseMeta{
			Usage: &schema.TokenUsage{
				PromptTokens:       120,
				PromptTokenDetails: schema.PromptTokenDetails{CachedTokens: 20},
				CompletionTokens:   30,
				TotalTokens:        150,
			},
		},
	}

	res := chatResponseFromMessage(iden, msg)
	if res.Content == nil || *res.Content != "hi" || res.ReasoningContent == nil || *res.ReasoningContent != "thinking" {
		t.Fatalf("unexpected content %#v", res)
	}
	if models.Count(res.Usage.PromptTokens) != 100 || models.Count(res.Usage.CachedTokens) != 20 {
		t.Fatalf("prompt tokens should exclude cached ones: %#v", res.Usage)
	}
	if models.Count(res.Usage.CompletionTokens) != 30 || models.Count(res.Usage.TotalTokens) != 150 {
		t.Fatalf("unexpected usage %#v", res.Usage)
	}

	if res.Usage.ReasoningTokens != nil {
		t.Fatalf("expected no reasoning tokens, got %d", *res.Usage.ReasoningTokens)
	}

	reasoner := chatResponseFromMessage(models.ModelIden{AdapterKind: "openai", ModelName: "o3-mini"}, &schema.Message{
		Role: schema.Assistant,
		ResponseMeta: &schema.ResponseMeta{
			Usage: &schema.TokenUsage{
				PromptTokens:            100,
				CompletionTokens:        500,
				CompletionTokensDetails: schema.CompletionTokensDetails{ReasoningTokens: 400},
				TotalTokens:             600,
			},
		},
	})
	if models.Count(reasoner.Usage.ReasoningTokens) != 400 || models.Count(reasoner.Usage.CompletionTokens) != 500 {
		t.Fatalf("expected reasoning tokens to be kept, got %#v", reasoner.Usage)
	}
	want := "Prompt Tokens: 100 (cached: 0, cache_creation: 0) | Completion Tokens: 500 (reasoning: 400)"
	if got := FormatUsage(reasoner.Usage); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}

	empty := chatResponseFromMessage(iden, &schema.Message{Role: schema.Assistant})
	if empty.Content != nil || empty.Usage.PromptTokens != nil {
		t.Fatalf("expected an empty response, got %#v", empty)
	}
}

func TestEinoChatClientRequiresAPIKey(t *testing.T) {
	t.Parallel()

	client := &EinoChatClient{Getenv: func(string) string { return "" }}
	_, err := client.ExecChat(context.Background(), "gpt-4o-mini", []*schema.Message{schema.UserMessage("hi")}, models.ChatOptions{})
	if err == nil || err.Error() != "OPENAI_API_KEY is not set" {
		t.Fatalf("expected a missing key error, got %v", err)
	}
}

func TestEinoChatClientReusesChatModels(t *testing.T) {
	t.Parallel()

	keys := map[string]string{"OPENAI_API_KEY": "sk-one", "DEEPSEEK_API_KEY": "sk-two"}
	client := &EinoChatClient{Getenv: func(name string) string { return keys[name] }}
	ctx := context.Background()

	mini := models.ModelIden{AdapterKind: OpenAIAdapterKind, ModelName: "gpt-4o-mini"}
	first, err := client.getModel(ctx, mini)
	if err != nil {
		t.Fatalf("getModel failed: %v", err)
	}
	second, err := client.getModel(ctx, mini)
	if err != nil {
		t.Fatalf("getModel failed: %v", err)
	}
	if first != second {
		t.Fatalf("expected the chat model to be reused")
	}

	other, err := client.getModel(ctx, models.ModelIden{AdapterKind: OpenAIAdapterKind, ModelName: "gpt-4o"})
	if err != nil {
		t.Fatalf("getModel failed: %v", err)
	}
	if other == first {
		t.Fatalf("expected a separate chat model per model name")
	}
	if _, err := client.getModel(ctx, models.ModelIden{AdapterKind: DeepSeekAdapterKind, ModelName: "deepseek-chat"}); err != nil {
		t.Fatalf("getModel failed: %v", err)
	}
	if len(client.chatModels) != 3 {
		t.Fatalf("expected 3 cached chat models, got %d", len(client.chatModels))
	}
}
