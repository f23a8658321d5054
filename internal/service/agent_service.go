package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zjregee/aip/internal/models"
	"github.com/zjregee/aip/internal/service/agentfile"
	"github.com/zjregee/aip/internal/service/hub"
	"github.com/zjregee/aip/internal/service/metrics"
	"github.com/zjregee/aip/internal/service/recorder"
	"github.com/zjregee/aip/internal/service/script"
	"github.com/zjregee/aip/internal/service/storage"
	"github.com/zjregee/aip/internal/service/usage"
	"github.com/zjregee/aip/internal/utils"
)

const previewMaxLen = 256

// AgentService wires the workspace store, recorder, hub and chat client
// together for the command line.
type AgentService struct {
	workspace *Workspace
	store     *storage.Store
	recorder  *recorder.Recorder
	hub       *hub.Hub
	metrics   *metrics.Metrics
	client    ChatClient
}

func NewAgentService(ws *Workspace, client ChatClient) (*AgentService, error) {
	storePath := ws.StorePath()
	if err := os.MkdirAll(filepath.Dir(storePath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	store, err := storage.Open(storePath)
	if err != nil {
		return nil, err
	}

	h := hub.New()
	return &AgentService{
		workspace: ws,
		store:     store,
		recorder: recorder.New(store, func() {
			h.Publish(models.HubRtModelChange{})
		}),
		hub:     h,
		metrics: metrics.New(),
		client:  client,
	}, nil
}

func (s *AgentService) Workspace() *Workspace {
	return s.workspace
}

func (s *AgentService) Hub() *hub.Hub {
	return s.hub
}

func (s *AgentService) Metrics() *metrics.Metrics {
	return s.metrics
}

// LoadAgent parses an agent file over the workspace options.
func (s *AgentService) LoadAgent(path string) (*models.Agent, error) {
	return agentfile.Load(path, s.workspace.Config.Options)
}

// RunAgent runs agent over inputs and waits for every record to be written.
func (s *AgentService) RunAgent(ctx context.Context, agent *models.Agent, inputs []any, opts RunOptions) (*RunAgentResponse, error) {
	rt := &Runtime{
		Client:       s.client,
		Recorder:     s.recorder,
		Hub:          s.hub,
		Metrics:      s.metrics,
		Options:      opts,
		WorkspaceDir: s.workspace.Dir,
	}

	res, err := RunAgent(ctx, rt, agent, inputs)
	s.recorder.Flush(context.WithoutCancel(ctx))
	return res, err
}

func (s *AgentService) ListRuns() ([]*models.Run, error) {
	return s.store.ListRuns()
}

func (s *AgentService) GetRun(id int64) (*models.Run, error) {
	return s.store.GetRun(id)
}

func (s *AgentService) DeleteRun(id int64) error {
	return s.store.DeleteRun(id)
}

func (s *AgentService) ListTasks(runID int64) ([]*models.Task, error) {
	return s.store.ListTasks(runID)
}

func (s *AgentService) ListLogs(runID, taskID int64) ([]*models.Log, error) {
	return s.store.ListLogs(runID, taskID)
}

func (s *AgentService) ListPins(runID int64) ([]*models.Pin, error) {
	return s.store.ListPins(runID)
}

// UsageReport aggregates recorded task usage per day and model.
func (s *AgentService) UsageReport(since, until time.Time) (*usage.DailyReport, error) {
	return usage.LoadDailyReport(s.store, since, until)
}

func (s *AgentService) Close() error {
	s.recorder.Close()
	return s.store.Close()
}

type RunAgentResponse struct {
	RunID     int64
	RunUID    string
	Outputs   []any
	BeforeAll any
	AfterAll  any
	Skipped   bool
}

// RunAgent runs Before All, one task per input bounded by the agent's input
// concurrency, then After All. The first task error fails the run; the other
// tasks still run to completion.
func RunAgent(ctx context.Context, rt *Runtime, agent *models.Agent, inputs []any) (*RunAgentResponse, error) {
	run := &models.Run{
		UID:       utils.GenerateUID(),
		AgentName: agent.Name,
		AgentPath: agent.FilePath,
		Model:     agent.ModelResolved(),
		Status:    models.RunStatusRunning,
		StartedAt: time.Now(),
	}
	if err := rt.Recorder.CreateRun(run); err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	rt.publish(fmt.Sprintf("Running agent %s (model: %s)", agent.Name, run.Model))

	res := &RunAgentResponse{RunID: run.ID, RunUID: run.UID}
	rc := models.RuntimeCtx{RunID: run.ID, RunUID: run.UID}

	runErr := rt.runStages(ctx, rc, agent, inputs, res)

	status := models.RunStatusDone
	switch {
	case runErr != nil:
		status = models.RunStatusFailed
	case res.Skipped:
		status = models.RunStatusSkipped
	}

	ended := time.Now()
	rt.Recorder.UpdateRun(context.WithoutCancel(ctx), run.ID, func(r *models.Run) {
		r.Status = status
		r.EndedAt = &ended
		if runErr != nil {
			r.Error = runErr.Error()
		}
	})
	rt.Metrics.IncRun(agent.Name, string(status))

	if runErr != nil {
		rt.publish(fmt.Sprintf("-! Run failed: %v", runErr))
		return res, runErr
	}
	rt.publish(fmt.Sprintf("Run done in %s", utils.FormatDuration(ended.Sub(run.StartedAt))))

	return res, nil
}

func (rt *Runtime) runStages(ctx context.Context, rc models.RuntimeCtx, agent *models.Agent, inputs []any, res *RunAgentResponse) error {
	// -- Before All
	var beforeAll any
	if agent.BeforeAllScript != nil {
		scope := script.Scope{
			{Name: "inputs", Value: inputs},
			{Name: "options", Value: agent.Options.AsValue()},
		}
		value, err := rt.evalStage(ctx, rc.WithStage(models.StageBeforeAll), agent, *agent.BeforeAllScript, scope)
		if err != nil {
			return err
		}

		signal, err := script.Classify(value)
		if err != nil {
			return &script.Error{Stage: models.StageBeforeAll, Script: *agent.BeforeAllScript, Cause: err}
		}

		switch r := signal.(type) {
		case script.OriginalValue:
			beforeAll = r.Value
		case script.BeforeAllResponse:
			if r.HasInputs {
				inputs = r.Inputs
				if inputs == nil {
					inputs = []any{}
				}
			}
			beforeAll = r.BeforeAll
			if r.Options != nil {
				ov, err := models.OptionsFromValue(r.Options)
				if err != nil {
					return fmt.Errorf("invalid Before All options: %w", err)
				}
				agent = agent.NewMerge(agent.Options.MergeNew(ov))
			}
		case script.Skip:
			msg := "Aipack Skip run at Before All stage"
			if r.Reason != nil {
				msg += fmt.Sprintf(" (Reason: %s)", *r.Reason)
			}
			rt.Recorder.Log(ctx, rc.RunID, 0, models.StageBeforeAll, msg, models.LogKindAgentSkip)
			rt.publish("-! " + msg)
			res.Skipped = true
			return nil
		default:
			return &script.UnsupportedSignalError{Stage: models.StageBeforeAll, Kind: signal.Kind()}
		}
	}
	res.BeforeAll = beforeAll

	if inputs == nil {
		inputs = []any{nil}
	}
	count := len(inputs)
	rt.Recorder.UpdateRun(ctx, rc.RunID, func(r *models.Run) {
		r.TaskCount = count
	})

	// -- Tasks
	outputs := make([]any, len(inputs))
	var g errgroup.Group
	g.SetLimit(agent.Options.Concurrency())
	for i, input := range inputs {
		g.Go(func() error {
			out, err := rt.runTask(ctx, rc, agent, beforeAll, i, input)
			outputs[i] = out
			return err
		})
	}
	err := g.Wait()
	res.Outputs = outputs
	if err != nil {
		return err
	}

	// -- After All
	if agent.AfterAllScript != nil {
		scope := script.Scope{
			{Name: "inputs", Value: inputs},
			{Name: "outputs", Value: outputs},
			{Name: "before_all", Value: beforeAll},
			{Name: "options", Value: agent.Options.AsValue()},
		}
		value, err := rt.evalStage(ctx, rc.WithStage(models.StageAfterAll), agent, *agent.AfterAllScript, scope)
		if err != nil {
			return err
		}

		signal, err := script.Classify(value)
		if err != nil {
			return &script.Error{Stage: models.StageAfterAll, Script: *agent.AfterAllScript, Cause: err}
		}
		original, ok := signal.(script.OriginalValue)
		if !ok {
			return &script.UnsupportedSignalError{Stage: models.StageAfterAll, Kind: signal.Kind()}
		}
		res.AfterAll = original.Value
	}

	return nil
}

func (rt *Runtime) runTask(ctx context.Context, rc models.RuntimeCtx, agent *models.Agent, beforeAll any, idx int, input any) (any, error) {
	label := InputLabel(input)
	task := &models.Task{
		RunID:        rc.RunID,
		UID:          utils.GenerateUID(),
		Num:          idx + 1,
		Label:        label,
		InputPreview: preview(input),
		Status:       models.RunStatusRunning,
		StartedAt:    time.Now(),
	}
	if err := rt.Recorder.CreateTask(task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	done := rt.Metrics.TaskStarted()
	defer done()

	trc := rc
	trc.TaskID = task.ID
	trc.TaskUID = task.UID

	resp, skipped, err := runAgentTask(ctx, rt, trc, agent, beforeAll, label, input)
	ended := time.Now()
	recCtx := context.WithoutCancel(ctx)

	if err != nil {
		stage := models.StageAi
		var scriptErr *script.Error
		var signalErr *script.UnsupportedSignalError
		switch {
		case errors.As(err, &scriptErr):
			stage = scriptErr.Stage
		case errors.As(err, &signalErr):
			stage = signalErr.Stage
		}

		rt.Recorder.Log(recCtx, rc.RunID, task.ID, stage, err.Error(), models.LogKindSysError)
		rt.Recorder.UpdateTask(recCtx, rc.RunID, task.ID, func(t *models.Task) {
			t.Status = models.RunStatusFailed
			t.Error = err.Error()
			t.EndedAt = &ended
		})
		if rt.Hub != nil {
			rt.Hub.Publish(models.HubError{Error: fmt.Sprintf("Task #%d (%s) failed: %v", task.Num, label, err)})
		}
		rt.Metrics.IncTask(agent.Name, string(models.RunStatusFailed))

		return nil, fmt.Errorf("task #%d (%s): %w", task.Num, label, err)
	}

	status := models.RunStatusDone
	if skipped {
		status = models.RunStatusSkipped
	}
	output := resp.IntoValue()
	rt.Recorder.UpdateTask(recCtx, rc.RunID, task.ID, func(t *models.Task) {
		t.Status = status
		t.EndedAt = &ended
		if output != nil {
			t.OutputPreview = preview(output)
		}
	})
	rt.Metrics.IncTask(agent.Name, string(status))

	return output, nil
}

func preview(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return utils.Truncate(val, previewMaxLen)
	default:
		return utils.Truncate(jsonString(v), previewMaxLen)
	}
}
