package service

import (
	"context"
	"fmt"
	"time"

	"github.com/zjregee/aip/internal/models"
	"github.com/zjregee/aip/internal/service/script"
)

// RunAgentTask drives one input through the Data, prompt, AI and Output
// stages. A nil response with a nil error means the input produced no output:
// it was skipped or a dry mode stopped it.
func RunAgentTask(ctx context.Context, rt *Runtime, rc models.RuntimeCtx, agent *models.Agent, beforeAll any, label string, input any) (*models.RunAgentInputResponse, error) {
	res, _, err := runAgentTask(ctx, rt, rc, agent, beforeAll, label, input)
	return res, err
}

func runAgentTask(ctx context.Context, rt *Runtime, rc models.RuntimeCtx, agent *models.Agent, beforeAll any, label string, input any) (*models.RunAgentInputResponse, bool, error) {
	runModel := agent.ModelResolved()

	// -- Data
	var (
		data      any
		optionsOv any
	)
	if agent.DataScript != nil {
		scope := script.NewTaskScope(input, beforeAll, agent.Options)
		value, err := rt.evalStage(ctx, rc.WithStage(models.StageData), agent, *agent.DataScript, scope)
		if err != nil {
			return nil, false, err
		}

		res, err := script.Classify(value)
		if err != nil {
			return nil, false, &script.Error{Stage: models.StageData, Script: *agent.DataScript, Cause: err}
		}

		switch r := res.(type) {
		case script.OriginalValue:
			data = r.Value
		case script.Skip:
			rt.recordSkip(ctx, rc, label, r.Reason)
			return nil, true, nil
		case script.DataResponse:
			if r.Input != nil {
				input = r.Input
			}
			data = r.Data
			optionsOv = r.Options
		default:
			return nil, false, &script.UnsupportedSignalError{Stage: models.StageData, Kind: res.Kind()}
		}
	}

	// -- Options override, for this input only
	if optionsOv != nil {
		ov, err := models.OptionsFromValue(optionsOv)
		if err != nil {
			return nil, false, fmt.Errorf("invalid Data stage options: %w", err)
		}
		agent = agent.NewMerge(agent.Options.MergeNew(ov))
	}

	// -- Prompt
	msgs, err := BuildChatMessages(agent.PromptParts, map[string]any{
		"data":  data,
		"input": input,
	})
	if err != nil {
		return nil, false, err
	}

	if rt.Options.Verbose {
		rt.publish("\n")
		for _, msg := range msgs {
			role := string(msg.Role)
			if IsCached(msg) {
				role += " (cached)"
			}
			rt.publish(fmt.Sprintf("-- %s:\n%s", role, msg.Content))
		}
	}

	if rt.Options.DryMode == DryModeReq {
		return nil, false, nil
	}

	// -- AI
	if model := agent.ModelResolved(); model != runModel {
		rt.Recorder.UpdateModelOverride(ctx, rc.RunID, rc.TaskID, model)
	}

	aiResponse, err := rt.invokeChat(ctx, rc.WithStage(models.StageAi), agent, msgs)
	if err != nil {
		return nil, false, err
	}

	if rt.Options.DryMode == DryModeRes {
		return nil, false, nil
	}

	// -- Output
	if agent.OutputScript == nil {
		if aiResponse == nil {
			return nil, false, nil
		}
		return models.NewAiResponseOutput(aiResponse), false, nil
	}

	var aiValue any
	if aiResponse != nil {
		aiValue = aiResponse
	}
	scope := script.NewTaskScope(input, beforeAll, agent.Options).
		With("data", data).
		With("ai_response", aiValue)

	value, err := rt.evalStage(ctx, rc.WithStage(models.StageOutput), agent, *agent.OutputScript, scope)
	if err != nil {
		return nil, false, err
	}

	res, err := script.Classify(value)
	if err != nil {
		return nil, false, &script.Error{Stage: models.StageOutput, Script: *agent.OutputScript, Cause: err}
	}
	original, ok := res.(script.OriginalValue)
	if !ok {
		return nil, false, &script.UnsupportedSignalError{Stage: models.StageOutput, Kind: res.Kind()}
	}

	return models.NewScriptOutput(original.Value), false, nil
}

func (rt *Runtime) recordSkip(ctx context.Context, rc models.RuntimeCtx, label string, reason *string) {
	msg := "Aipack Skip input at Data stage: " + label
	if reason != nil {
		msg += fmt.Sprintf(" (Reason: %s)", *reason)
	}

	rt.Recorder.Log(ctx, rc.RunID, rc.TaskID, models.StageData, msg, models.LogKindAgentSkip)
	rt.Recorder.UpdateTask(ctx, rc.RunID, rc.TaskID, func(task *models.Task) {
		if reason != nil {
			task.SkipReason = reason
		} else {
			task.SkipReason = models.Ptr("")
		}
	})
	rt.publish("-! " + msg)
}

// evalStage runs one stage script in a fresh engine, bracketed by stage
// telemetry. A zero task id in rc brackets the run stage instead.
func (rt *Runtime) evalStage(ctx context.Context, rc models.RuntimeCtx, agent *models.Agent, src string, scope script.Scope) (any, error) {
	engine, err := script.New(script.Options{
		Host: rt,
		Ctx:  rc,
		Literals: script.Literals{
			AgentName:     agent.Name,
			AgentFilePath: agent.FilePath,
			AgentFileDir:  agent.FileDir,
			WorkspaceDir:  rt.WorkspaceDir,
		},
	})
	if err != nil {
		return nil, &script.Error{Stage: rc.Stage, Script: src, Cause: err}
	}
	defer engine.Close()

	rt.Recorder.StepStart(ctx, rc.RunID, rc.TaskID, rc.Stage)
	start := time.Now()

	value, err := engine.Eval(ctx, src, scope, []string{agent.FileDir})

	rt.Metrics.ObserveStage(string(rc.Stage), time.Since(start))
	rt.Recorder.StepEnd(ctx, rc.RunID, rc.TaskID, rc.Stage)

	return value, err
}
