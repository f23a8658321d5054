package usage

import (
	"math"
	"strings"

	"github.com/zjregee/aip/internal/models"
)

// Prices are USD per million tokens.
type ModelPricing struct {
	Name            string
	InputCached     *float64
	InputNormal     float64
	OutputNormal    float64
	OutputReasoning *float64
}

type ProviderPricing struct {
	Name   string
	Models []ModelPricing
}

// cacheCreationMultiplier applies to input_normal. Only anthropic bills cache
// writes today.
const cacheCreationMultiplier = 1.25

func float64Ptr(f float64) *float64 {
	return &f
}

func findProvider(name string) *ProviderPricing {
	for i := range providers {
		if providers[i].Name == name {
			return &providers[i]
		}
	}
	return nil
}

// findModel returns the model whose name is the longest prefix of model.
func findModel(provider *ProviderPricing, model string) *ModelPricing {
	var found *ModelPricing
	for i, m := range provider.Models {
		if !strings.HasPrefix(model, m.Name) {
			continue
		}
		if found == nil || len(m.Name) > len(found.Name) {
			found = &provider.Models[i]
		}
	}
	return found
}

func normalizeModel(raw string) string {
	trimmed := strings.TrimSpace(raw)
	trimmed = strings.TrimPrefix(trimmed, "models/")
	return trimmed
}

// PriceIt returns the USD price of a chat call, or nil when the provider or
// model is not in the pricing table.
func PriceIt(provider, model string, u models.Usage) *float64 {
	p := findProvider(strings.ToLower(provider))
	if p == nil {
		return nil
	}
	m := findModel(p, normalizeModel(model))
	if m == nil {
		return nil
	}

	promptNormal := float64(models.Count(u.PromptTokens))
	cached := float64(models.Count(u.CachedTokens))
	cacheCreation := float64(models.Count(u.CacheCreationTokens))

	priceInputCached := m.InputNormal
	if m.InputCached != nil {
		priceInputCached = *m.InputCached
	}

	completion := float64(models.Count(u.CompletionTokens))
	completionNormal, completionReasoning := completion, 0.0
	if u.ReasoningTokens != nil {
		completionReasoning = float64(*u.ReasoningTokens)
		completionNormal = completion - completionReasoning
	}

	priceOutputReasoning := m.OutputNormal
	if m.OutputReasoning != nil {
		priceOutputReasoning = *m.OutputReasoning
	}

	price := cached*priceInputCached/1_000_000 +
		cacheCreation*cacheCreationMultiplier*m.InputNormal/1_000_000 +
		promptNormal*m.InputNormal/1_000_000 +
		completionNormal*m.OutputNormal/1_000_000 +
		completionReasoning*priceOutputReasoning/1_000_000

	price = math.Round(price*10_000) / 10_000
	return &price
}
