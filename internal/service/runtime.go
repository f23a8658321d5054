package service

import (
	"context"
	"fmt"

	"github.com/zjregee/aip/internal/models"
	"github.com/zjregee/aip/internal/service/hub"
	"github.com/zjregee/aip/internal/service/metrics"
)

type DryMode string

const (
	DryModeNone DryMode = ""
	DryModeReq  DryMode = "req"
	DryModeRes  DryMode = "res"
)

func ParseDryMode(s string) (DryMode, error) {
	switch DryMode(s) {
	case DryModeNone, DryModeReq, DryModeRes:
		return DryMode(s), nil
	default:
		return DryModeNone, fmt.Errorf("invalid dry mode %q (expected req or res)", s)
	}
}

// RunOptions are the caller level options of a run.
type RunOptions struct {
	Verbose         bool
	DryMode         DryMode
	BaseChatOptions *models.ChatOptions
}

// Recorder receives the fire-and-forget telemetry of tasks. Implementations
// must be safe for concurrent use and never fail the caller.
type Recorder interface {
	StepStart(ctx context.Context, runID, taskID int64, stage models.Stage)
	StepEnd(ctx context.Context, runID, taskID int64, stage models.Stage)
	UpdateModelOverride(ctx context.Context, runID, taskID int64, model string)
	UpdateCost(ctx context.Context, runID, taskID int64, usd float64)
	UpdateUsage(ctx context.Context, runID, taskID int64, usage models.Usage)
	Log(ctx context.Context, runID, taskID int64, stage models.Stage, msg string, kind models.LogKind)
	Pin(ctx context.Context, pin models.Pin)
}

// RunRecorder adds the run and task lifecycle to Recorder.
type RunRecorder interface {
	Recorder
	CreateRun(run *models.Run) error
	CreateTask(task *models.Task) error
	UpdateRun(ctx context.Context, runID int64, fn func(*models.Run))
	UpdateTask(ctx context.Context, runID, taskID int64, fn func(*models.Task))
}

// Runtime holds the collaborators shared by every task of a run.
type Runtime struct {
	Client       ChatClient
	Recorder     RunRecorder
	Hub          *hub.Hub
	Metrics      *metrics.Metrics
	Options      RunOptions
	WorkspaceDir string
}

func (rt *Runtime) publish(msg string) {
	if rt.Hub == nil {
		return
	}
	rt.Hub.PublishMessage(msg)
}

// Print implements script.Host.
func (rt *Runtime) Print(rc models.RuntimeCtx, msg string) {
	if rt.Hub != nil {
		rt.Hub.Publish(models.HubLuaPrint{Content: msg, Ctx: rc})
	}
	rt.Recorder.Log(context.Background(), rc.RunID, rc.TaskID, rc.Stage, msg, models.LogKindAgentPrint)
}

// Pin implements script.Host.
func (rt *Runtime) Pin(_ models.RuntimeCtx, pin models.Pin) {
	rt.Recorder.Pin(context.Background(), pin)
}
