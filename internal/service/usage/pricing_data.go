package usage

var providers = []ProviderPricing{
	{Name: "openai", Models: openaiModels},
	{Name: "groq", Models: groqModels},
	{Name: "gemini", Models: geminiModels},
	{Name: "deepseek", Models: deepseekModels},
	{Name: "anthropic", Models: anthropicModels},
	{Name: "xai", Models: xaiModels},
}

var openaiModels = []ModelPricing{
	{Name: "gpt-5", InputCached: float64Ptr(0.125), InputNormal: 1.25, OutputNormal: 10.0},
	{Name: "gpt-5-mini", InputCached: float64Ptr(0.025), InputNormal: 0.25, OutputNormal: 2.0},
	{Name: "gpt-5-nano", InputCached: float64Ptr(0.005), InputNormal: 0.05, OutputNormal: 0.4},
	{Name: "gpt-4.1", InputCached: float64Ptr(0.5), InputNormal: 2.0, OutputNormal: 8.0},
	{Name: "gpt-4.1-mini", InputCached: float64Ptr(0.1), InputNormal: 0.4, OutputNormal: 1.6},
	{Name: "gpt-4.1-nano", InputCached: float64Ptr(0.025), InputNormal: 0.1, OutputNormal: 0.4},
	{Name: "gpt-4o", InputCached: float64Ptr(1.25), InputNormal: 2.5, OutputNormal: 10.0},
	{Name: "gpt-4o-mini", InputCached: float64Ptr(0.075), InputNormal: 0.15, OutputNormal: 0.6},
	{Name: "o1", InputCached: float64Ptr(7.5), InputNormal: 15.0, OutputNormal: 60.0},
	{Name: "o3", InputCached: float64Ptr(0.5), InputNormal: 2.0, OutputNormal: 8.0},
	{Name: "o3-mini", InputCached: float64Ptr(0.55), InputNormal: 1.1, OutputNormal: 4.4},
	{Name: "o4-mini", InputCached: float64Ptr(0.275), InputNormal: 1.1, OutputNormal: 4.4},
}

var anthropicModels = []ModelPricing{
	{Name: "claude-3-7-sonnet", InputCached: float64Ptr(0.3), InputNormal: 3.0, OutputNormal: 15.0},
	{Name: "claude-3-5-sonnet", InputCached: float64Ptr(0.3), InputNormal: 3.0, OutputNormal: 15.0},
	{Name: "claude-opus-4-6", InputCached: float64Ptr(0.5), InputNormal: 5.0, OutputNormal: 25.0},
	{Name: "claude-opus-4-5", InputCached: float64Ptr(0.5), InputNormal: 5.0, OutputNormal: 25.0},
	{Name: "claude-opus-4-1", InputCached: float64Ptr(1.5), InputNormal: 15.0, OutputNormal: 75.0},
	{Name: "claude-opus-4", InputCached: float64Ptr(1.5), InputNormal: 15.0, OutputNormal: 75.0},
	{Name: "claude-sonnet-4-5", InputCached: float64Ptr(0.3), InputNormal: 3.0, OutputNormal: 15.0},
	{Name: "claude-sonnet-4", InputCached: float64Ptr(0.3), InputNormal: 3.0, OutputNormal: 15.0},
	{Name: "claude-haiku-4-5", InputCached: float64Ptr(0.1), InputNormal: 1.0, OutputNormal: 5.0},
	{Name: "claude-3-5-haiku", InputCached: float64Ptr(0.08), InputNormal: 0.8, OutputNormal: 4.0},
	{Name: "claude-haiku-3", InputCached: float64Ptr(0.03), InputNormal: 0.25, OutputNormal: 1.25},
}

var deepseekModels = []ModelPricing{
	{Name: "deepseek-chat", InputCached: float64Ptr(0.07), InputNormal: 0.27, OutputNormal: 1.1},
	{Name: "deepseek-reasoner", InputCached: float64Ptr(0.14), InputNormal: 0.55, OutputNormal: 2.19},
}

var geminiModels = []ModelPricing{
	{Name: "gemini-3-pro", InputCached: float64Ptr(0.2), InputNormal: 2.0, OutputNormal: 12.0},
	{Name: "gemini-3-flash", InputCached: float64Ptr(0.05), InputNormal: 0.5, OutputNormal: 3.0},
	{Name: "gemini-2.5-pro", InputCached: float64Ptr(0.125), InputNormal: 1.25, OutputNormal: 10.0},
	{Name: "gemini-2.5-flash", InputCached: float64Ptr(0.03), InputNormal: 0.3, OutputNormal: 2.5},
	{Name: "gemini-2.5-flash-lite", InputCached: float64Ptr(0.01), InputNormal: 0.1, OutputNormal: 0.4},
	{Name: "gemini-2.0-flash", InputCached: float64Ptr(0.025), InputNormal: 0.1, OutputNormal: 0.4},
	{Name: "gemini-2.0-flash-lite", InputNormal: 0.075, OutputNormal: 0.3},
	{Name: "gemini-flash-latest", InputCached: float64Ptr(0.03), InputNormal: 0.3, OutputNormal: 2.5},
	{Name: "gemini-pro-latest", InputCached: float64Ptr(0.125), InputNormal: 1.25, OutputNormal: 10.0},
	{Name: "gemini-embedding-001", InputNormal: 0.15, OutputNormal: 0.0},
	{Name: "gemini-robotics-er-1.5", InputNormal: 0.3, OutputNormal: 2.5},
	{Name: "gemini-2.5-computer-use", InputNormal: 1.25, OutputNormal: 10.0},
	{Name: "gemma-3", InputCached: float64Ptr(0.0), InputNormal: 0.0, OutputNormal: 0.0},
	{Name: "gemma-3n", InputCached: float64Ptr(0.0), InputNormal: 0.0, OutputNormal: 0.0},
}

var groqModels = []ModelPricing{
	{Name: "openai/gpt-oss-20b", InputNormal: 0.1, OutputNormal: 0.5},
	{Name: "openai/gpt-oss-120b", InputNormal: 0.15, OutputNormal: 0.75},
	{Name: "moonshotai/kimi-k2-instruct", InputNormal: 1.0, OutputNormal: 3.0},
	{Name: "meta-llama/llama-4-scout-17b-16e-instruct", InputNormal: 0.11, OutputNormal: 0.34},
	{Name: "meta-llama/llama-4-maverick-17b-128e-instruct", InputNormal: 0.2, OutputNormal: 0.6},
	{Name: "meta-llama/llama-guard-4-12b", InputNormal: 0.2, OutputNormal: 0.2},
	{Name: "deepseek-r1-distill-llama-70b", InputNormal: 0.75, OutputNormal: 0.99},
	{Name: "qwen/qwen3-32b", InputNormal: 0.29, OutputNormal: 0.59},
	{Name: "mistral-saba-24b-32k", InputNormal: 0.79, OutputNormal: 0.79},
	{Name: "llama-3.3-70b-versatile", InputNormal: 0.59, OutputNormal: 0.79},
	{Name: "llama-3.1-8b-instant", InputNormal: 0.05, OutputNormal: 0.08},
	{Name: "llama3-70b-8k", InputNormal: 0.59, OutputNormal: 0.79},
	{Name: "llama3-8b-8k", InputNormal: 0.05, OutputNormal: 0.08},
	{Name: "gemma2-9b-it", InputNormal: 0.2, OutputNormal: 0.2},
	{Name: "llama-guard-3-8b-8k", InputNormal: 0.2, OutputNormal: 0.2},
}

var xaiModels = []ModelPricing{
	{Name: "grok-4", InputCached: float64Ptr(0.75), InputNormal: 3.0, OutputNormal: 15.0},
	{Name: "grok-3", InputCached: float64Ptr(0.75), InputNormal: 3.0, OutputNormal: 15.0},
	{Name: "grok-3-mini", InputCached: float64Ptr(0.075), InputNormal: 0.3, OutputNormal: 0.5},
	{Name: "grok-3-fast", InputCached: float64Ptr(1.25), InputNormal: 5.0, OutputNormal: 25.0},
	{Name: "grok-3-mini-fast", InputCached: float64Ptr(0.15), InputNormal: 0.6, OutputNormal: 4.0},
	{Name: "grok-beta", InputNormal: 5.0, OutputNormal: 15.0},
	{Name: "grok-2-image-gen", InputNormal: 0.0, OutputNormal: 0.0},
	{Name: "grok-2-vision-1212", InputNormal: 2.0, OutputNormal: 10.0},
	{Name: "grok-2-1212", InputNormal: 2.0, OutputNormal: 10.0},
	{Name: "grok-vision-beta", InputNormal: 5.0, OutputNormal: 15.0},
	{Name: "grok-2-image-1212", InputNormal: 0.0, OutputNormal: 0.07},
}
