package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/zjregee/aip/internal/models"
	"github.com/zjregee/aip/internal/service/usage"
	"github.com/zjregee/aip/internal/utils"
)

// ChatClient sends one chat request. Retries, when any, belong to the client.
type ChatClient interface {
	ExecChat(ctx context.Context, model string, msgs []*schema.Message, opts models.ChatOptions) (*ChatResponse, error)
}

type ChatResponse struct {
	Content          *string
	ReasoningContent *string
	ModelIden        models.ModelIden
	// ProviderModelName is the model name reported by the provider, when it
	// differs from the requested one.
	ProviderModelName string
	Usage             models.Usage
}

// invokeChat sends msgs with the agent's model and options and builds the
// AiResponse. An empty message list is not sent and yields a nil response.
func (rt *Runtime) invokeChat(ctx context.Context, rc models.RuntimeCtx, agent *models.Agent, msgs []*schema.Message) (*models.AiResponse, error) {
	rt.Recorder.StepStart(ctx, rc.RunID, rc.TaskID, models.StageAi)

	if len(msgs) == 0 {
		rt.publish("-! No instruction, skipping chat.")
		rt.Recorder.StepEnd(ctx, rc.RunID, rc.TaskID, models.StageAi)
		return nil, nil
	}

	modelName := agent.ModelResolved()
	chatOpts := agent.Options.ChatOptions(rt.Options.BaseChatOptions)

	rt.publish(fmt.Sprintf("-> Sending rendered instruction to %s ...", modelName))

	start := time.Now()
	res, err := rt.Client.ExecChat(ctx, modelName, msgs, chatOpts)
	elapsed := time.Since(start)
	if err != nil {
		rt.Metrics.ObserveChat(adapterOf(modelName), modelName, "error", elapsed)
		rt.Recorder.StepEnd(ctx, rc.RunID, rc.TaskID, models.StageAi)
		return nil, err
	}

	iden := res.ModelIden
	rt.Metrics.ObserveChat(iden.AdapterKind, iden.ModelName, "ok", elapsed)

	durationSec := utils.RoundTo(elapsed.Seconds(), 3)
	info := "Duration: " + utils.FormatDuration(elapsed)

	price := usage.PriceIt(iden.AdapterKind, iden.ModelName, res.Usage)
	if price != nil {
		rt.Recorder.UpdateCost(ctx, rc.RunID, rc.TaskID, *price)
		rt.Metrics.AddCost(iden.AdapterKind, iden.ModelName, *price)
		info += " | ~" + utils.FormatUSD(*price)
	}
	info += " | " + FormatUsage(res.Usage)

	rt.publish(fmt.Sprintf("<- ai_response content received - %s | %s", providerModelName(res), info))

	rt.Recorder.StepEnd(ctx, rc.RunID, rc.TaskID, models.StageAi)

	rt.Recorder.UpdateUsage(ctx, rc.RunID, rc.TaskID, res.Usage)
	rt.Metrics.AddTokens(iden.AdapterKind, iden.ModelName, "prompt", models.Count(res.Usage.PromptTokens))
	rt.Metrics.AddTokens(iden.AdapterKind, iden.ModelName, "cached", models.Count(res.Usage.CachedTokens))
	rt.Metrics.AddTokens(iden.AdapterKind, iden.ModelName, "completion", models.Count(res.Usage.CompletionTokens))
	rt.Metrics.AddTokens(iden.AdapterKind, iden.ModelName, "reasoning", models.Count(res.Usage.ReasoningTokens))

	var content *string
	if res.Content != nil && *res.Content != "" {
		content = res.Content
	}

	modelInfo := formatModel(res, agent.Options)
	if rt.Options.Verbose {
		text := ""
		if content != nil {
			text = *content
		}
		rt.publish(fmt.Sprintf("\n-- AI Output (%s)\n\n%s\n", modelInfo, text))
	}

	return &models.AiResponse{
		Content:          content,
		ReasoningContent: res.ReasoningContent,
		ModelName:        iden.ModelName,
		AdapterKind:      iden.AdapterKind,
		DurationSec:      durationSec,
		PriceUSD:         price,
		Usage:            res.Usage,
		Info:             info + " | " + modelInfo,
	}, nil
}

func adapterOf(model string) string {
	iden, err := ResolveModelIden(model)
	if err != nil {
		return "unknown"
	}
	return iden.AdapterKind
}

func providerModelName(res *ChatResponse) string {
	if res.ProviderModelName != "" {
		return res.ProviderModelName
	}
	return res.ModelIden.ModelName
}

// FormatUsage renders the token breakdown of a chat call. Prompt tokens
// include the cached ones.
func FormatUsage(u models.Usage) string {
	prompt := models.Count(u.PromptTokens) + models.Count(u.CachedTokens)
	return fmt.Sprintf("Prompt Tokens: %s (cached: %s, cache_creation: %s) | Completion Tokens: %s (reasoning: %s)",
		utils.FormatNum(prompt),
		utils.FormatNum(models.Count(u.CachedTokens)),
		utils.FormatNum(models.Count(u.CacheCreationTokens)),
		utils.FormatNum(models.Count(u.CompletionTokens)),
		utils.FormatNum(models.Count(u.ReasoningTokens)),
	)
}

// formatModel renders "Model: m (provider-m) | Adapter: a | Temperature: t".
func formatModel(res *ChatResponse, opts models.AgentOptions) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Model: %s ", res.ModelIden.ModelName)
	if res.ProviderModelName != "" && res.ProviderModelName != res.ModelIden.ModelName {
		fmt.Fprintf(&b, "(%s) ", res.ProviderModelName)
	}
	fmt.Fprintf(&b, "| Adapter: %s", res.ModelIden.AdapterKind)
	if opts.Temperature != nil {
		b.WriteString(" | Temperature: " + strconv.FormatFloat(*opts.Temperature, 'f', -1, 64))
	}
	if opts.TopP != nil {
		b.WriteString(" | top_p: " + strconv.FormatFloat(*opts.TopP, 'f', -1, 64))
	}

	return b.String()
}
