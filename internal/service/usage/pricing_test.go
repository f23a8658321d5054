package usage

import (
	"math"
	"testing"

	"github.com/zjregee/aip/internal/models"
)

func assertPrice(t *testing.T, got *float64, want float64) {
	t.Helper()
	if got == nil {
		t.Fatalf("expected price %v, got nil", want)
	}
	if math.Abs(*got-want) > 1e-9 {
		t.Fatalf("expected price %v, got %v", want, *got)
	}
}

func TestPriceItSimple(t *testing.T) {
	t.Parallel()

	price := PriceIt("openai", "gpt-4o", models.Usage{
		PromptTokens:     models.Ptr(1000),
		CompletionTokens: models.Ptr(500),
	})

	// 1000 * 2.5 / 1M + 500 * 10 / 1M
	assertPrice(t, price, 0.0075)
}

func TestPriceItWithCached(t *testing.T) {
	t.Parallel()

	price := PriceIt("openai", "gpt-4o", models.Usage{
		PromptTokens:     models.Ptr(1000),
		CachedTokens:     models.Ptr(400),
		CompletionTokens: models.Ptr(500),
	})

	// 0.0025 prompt + 400 * 1.25 / 1M cached + 0.005 completion
	assertPrice(t, price, 0.008)
}

func TestPriceItCachedFallsBackToNormal(t *testing.T) {
	t.Parallel()

	withCached := PriceIt("groq", "llama3-70b-8k", models.Usage{
		PromptTokens:     models.Ptr(1000),
		CachedTokens:     models.Ptr(400),
		CompletionTokens: models.Ptr(500),
	})
	allNormal := PriceIt("groq", "llama3-70b-8k", models.Usage{
		PromptTokens:     models.Ptr(1400),
		CompletionTokens: models.Ptr(500),
	})

	// (400 * 0.59 + 1000 * 0.59 + 500 * 0.79) / 1M = 0.001221
	assertPrice(t, withCached, 0.0012)
	if allNormal == nil || *allNormal != *withCached {
		t.Fatalf("expected cached tokens to be priced as normal tokens: %v vs %v", withCached, allNormal)
	}
}

func TestPriceItCacheCreation(t *testing.T) {
	t.Parallel()

	price := PriceIt("anthropic", "claude-sonnet-4-5-20250929", models.Usage{
		PromptTokens:        models.Ptr(0),
		CacheCreationTokens: models.Ptr(10_000),
		CompletionTokens:    models.Ptr(0),
	})

	// 10000 * 1.25 * 3.0 / 1M
	assertPrice(t, price, 0.0375)
}

func TestPriceItReasoningFallsBackToOutputNormal(t *testing.T) {
	t.Parallel()

	price := PriceIt("openai", "o3", models.Usage{
		PromptTokens:     models.Ptr(0),
		CompletionTokens: models.Ptr(10_000),
		ReasoningTokens:  models.Ptr(4_000),
	})

	// 6000 * 8 / 1M + 4000 * 8 / 1M
	assertPrice(t, price, 0.08)
}

func TestPriceItLongestPrefix(t *testing.T) {
	t.Parallel()

	cases := []struct {
		provider string
		model    string
		want     float64
	}{
		{provider: "openai", model: "gpt-4o-mini-2024", want: 0.15},
		{provider: "openai", model: "gpt-4o-2024-08-06", want: 2.5},
		{provider: "openai", model: "gpt-4.1-mini-2025-04-14", want: 0.4},
		{provider: "gemini", model: "models/gemini-2.0-flash-lite-001", want: 0.075},
		{provider: "xai", model: "grok-3-mini-fast-beta", want: 0.6},
	}

	for _, tc := range cases {
		t.Run(tc.model, func(t *testing.T) {
			price := PriceIt(tc.provider, tc.model, models.Usage{PromptTokens: models.Ptr(1_000_000)})
			assertPrice(t, price, tc.want)
		})
	}
}

func TestPriceItUnknown(t *testing.T) {
	t.Parallel()

	usage := models.Usage{PromptTokens: models.Ptr(1000)}
	if price := PriceIt("nope", "gpt-4o", usage); price != nil {
		t.Fatalf("expected nil for unknown provider, got %v", *price)
	}
	if price := PriceIt("openai", "davinci", usage); price != nil {
		t.Fatalf("expected nil for unknown model, got %v", *price)
	}
}

func TestPriceItProviderCaseInsensitive(t *testing.T) {
	t.Parallel()

	price := PriceIt("DeepSeek", "deepseek-chat", models.Usage{PromptTokens: models.Ptr(1_000_000)})
	assertPrice(t, price, 0.27)
}
