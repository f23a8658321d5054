package models

import (
	"time"
)

type Stage string

const (
	StageBeforeAll Stage = "before_all"
	StageData      Stage = "data"
	StageAi        Stage = "ai"
	StageOutput    Stage = "output"
	StageAfterAll  Stage = "after_all"
)

type LogKind string

const (
	LogKindRunStep    LogKind = "run_step"
	LogKindSysInfo    LogKind = "sys_info"
	LogKindSysWarn    LogKind = "sys_warn"
	LogKindSysError   LogKind = "sys_error"
	LogKindSysDebug   LogKind = "sys_debug"
	LogKindAgentPrint LogKind = "agent_print"
	LogKindAgentSkip  LogKind = "agent_skip"
)

type RunStatus string

const (
	RunStatusRunning RunStatus = "running"
	RunStatusDone    RunStatus = "done"
	RunStatusSkipped RunStatus = "skipped"
	RunStatusFailed  RunStatus = "failed"
)

// StageSpan records when a stage started and ended.
type StageSpan struct {
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
}

// Duration returns the span length, zero when it is not closed.
func (s StageSpan) Duration() time.Duration {
	if s.Start == nil || s.End == nil {
		return 0
	}
	return s.End.Sub(*s.Start)
}

type Run struct {
	ID        int64                `json:"id"`
	UID       string               `json:"uid"`
	AgentName string               `json:"agent_name"`
	AgentPath string               `json:"agent_path"`
	Model     string               `json:"model"`
	Status    RunStatus            `json:"status"`
	Stages    map[Stage]*StageSpan `json:"stages,omitempty"`
	TotalCost *float64             `json:"total_cost,omitempty"`
	TaskCount int                  `json:"task_count"`
	Error     string               `json:"error,omitempty"`
	StartedAt time.Time            `json:"started_at"`
	EndedAt   *time.Time           `json:"ended_at,omitempty"`
}

type Task struct {
	ID            int64                `json:"id"`
	RunID         int64                `json:"run_id"`
	UID           string               `json:"uid"`
	Num           int                  `json:"num"`
	Label         string               `json:"label"`
	Status        RunStatus            `json:"status"`
	InputPreview  string               `json:"input_preview,omitempty"`
	ModelOverride string               `json:"model_override,omitempty"`
	Stages        map[Stage]*StageSpan `json:"stages,omitempty"`
	Usage         *Usage               `json:"usage,omitempty"`
	Cost          *float64             `json:"cost,omitempty"`
	SkipReason    *string              `json:"skip_reason,omitempty"`
	OutputPreview string               `json:"output_preview,omitempty"`
	Error         string               `json:"error,omitempty"`
	StartedAt     time.Time            `json:"started_at"`
	EndedAt       *time.Time           `json:"ended_at,omitempty"`
}

// Model returns the model the task ran with.
func (t *Task) Model(run *Run) string {
	if t.ModelOverride != "" {
		return t.ModelOverride
	}
	if run != nil {
		return run.Model
	}
	return ""
}

type Log struct {
	ID      int64     `json:"id"`
	RunID   int64     `json:"run_id"`
	TaskID  int64     `json:"task_id,omitempty"`
	Stage   Stage     `json:"stage,omitempty"`
	Kind    LogKind   `json:"kind"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

type Pin struct {
	ID       int64    `json:"id"`
	RunID    int64    `json:"run_id"`
	TaskID   int64    `json:"task_id,omitempty"`
	Iden     string   `json:"iden"`
	Priority *float64 `json:"priority,omitempty"`
	Content  string   `json:"content"`
}

// RuntimeCtx locates a script evaluation inside a run.
type RuntimeCtx struct {
	RunID   int64
	TaskID  int64
	RunUID  string
	TaskUID string
	Stage   Stage
}

// WithStage returns a copy of the context for another stage.
func (c RuntimeCtx) WithStage(stage Stage) RuntimeCtx {
	c.Stage = stage
	return c
}
