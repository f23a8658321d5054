package recorder

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/zjregee/aip/internal/models"
)

const defaultQueueSize = 1024

// Store is the write side of the run store.
type Store interface {
	CreateRun(run *models.Run) error
	UpdateRun(id int64, fn func(*models.Run)) error
	CreateTask(task *models.Task) error
	UpdateTask(runID, id int64, fn func(*models.Task)) error
	AppendLog(log *models.Log) error
	SavePin(pin *models.Pin) error
}

type op struct {
	name  string
	apply func(Store) error
	done  chan struct{}
}

// Recorder queues store writes and applies them from a single goroutine.
// Every write except record creation is fire and forget: failures are logged
// and never reach the caller. It is safe for concurrent use.
type Recorder struct {
	store    Store
	queue    chan op
	onChange func()
	now      func() time.Time

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// New starts a recorder over store. onChange, when set, is called after each
// applied write.
func New(store Store, onChange func()) *Recorder {
	r := &Recorder{
		store:    store,
		queue:    make(chan op, defaultQueueSize),
		onChange: onChange,
		now:      time.Now,
	}
	r.wg.Add(1)
	go r.loop()
	return r
}

func (r *Recorder) loop() {
	defer r.wg.Done()
	for o := range r.queue {
		if o.apply != nil {
			if err := o.apply(r.store); err != nil {
				slog.Warn("failed to record", "op", o.name, "error", err)
			} else if r.onChange != nil {
				r.onChange()
			}
		}
		if o.done != nil {
			close(o.done)
		}
	}
}

func (r *Recorder) enqueue(ctx context.Context, o op) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		slog.Warn("recorder is closed, dropping write", "op", o.name)
		return false
	}
	select {
	case r.queue <- o:
		return true
	case <-ctx.Done():
		slog.Warn("context done, dropping write", "op", o.name, "error", ctx.Err())
		return false
	}
}

// Flush blocks until every write queued before the call is applied.
func (r *Recorder) Flush(ctx context.Context) {
	done := make(chan struct{})
	if !r.enqueue(ctx, op{name: "flush", done: done}) {
		return
	}
	select {
	case <-done:
	case <-ctx.Done():
	}
}

// Close drains the queue and stops the writer goroutine.
func (r *Recorder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()
	r.wg.Wait()
}

// CreateRun stores the run synchronously so that it gets its id.
func (r *Recorder) CreateRun(run *models.Run) error {
	return r.store.CreateRun(run)
}

// CreateTask stores the task synchronously so that it gets its id.
func (r *Recorder) CreateTask(task *models.Task) error {
	return r.store.CreateTask(task)
}

func (r *Recorder) UpdateRun(ctx context.Context, runID int64, fn func(*models.Run)) {
	r.enqueue(ctx, op{name: "update_run", apply: func(s Store) error {
		return s.UpdateRun(runID, fn)
	}})
}

func (r *Recorder) UpdateTask(ctx context.Context, runID, taskID int64, fn func(*models.Task)) {
	r.enqueue(ctx, op{name: "update_task", apply: func(s Store) error {
		return s.UpdateTask(runID, taskID, fn)
	}})
}

// StepStart marks the start of a stage. A zero taskID targets the run.
func (r *Recorder) StepStart(ctx context.Context, runID, taskID int64, stage models.Stage) {
	at := r.now()
	r.updateSpan(ctx, "step_start", runID, taskID, stage, func(span *models.StageSpan) {
		span.Start = &at
	})
}

func (r *Recorder) StepEnd(ctx context.Context, runID, taskID int64, stage models.Stage) {
	at := r.now()
	r.updateSpan(ctx, "step_end", runID, taskID, stage, func(span *models.StageSpan) {
		span.End = &at
	})
}

func (r *Recorder) updateSpan(ctx context.Context, name string, runID, taskID int64, stage models.Stage, fn func(*models.StageSpan)) {
	apply := func(stages map[models.Stage]*models.StageSpan) map[models.Stage]*models.StageSpan {
		if stages == nil {
			stages = make(map[models.Stage]*models.StageSpan)
		}
		span := stages[stage]
		if span == nil {
			span = &models.StageSpan{}
			stages[stage] = span
		}
		fn(span)
		return stages
	}

	if taskID == 0 {
		r.enqueue(ctx, op{name: name, apply: func(s Store) error {
			return s.UpdateRun(runID, func(run *models.Run) {
				run.Stages = apply(run.Stages)
			})
		}})
		return
	}
	r.enqueue(ctx, op{name: name, apply: func(s Store) error {
		return s.UpdateTask(runID, taskID, func(task *models.Task) {
			task.Stages = apply(task.Stages)
		})
	}})
}

func (r *Recorder) UpdateModelOverride(ctx context.Context, runID, taskID int64, model string) {
	r.UpdateTask(ctx, runID, taskID, func(task *models.Task) {
		task.ModelOverride = model
	})
}

// UpdateCost adds usd to the task and to the run total.
func (r *Recorder) UpdateCost(ctx context.Context, runID, taskID int64, usd float64) {
	r.enqueue(ctx, op{name: "update_cost", apply: func(s Store) error {
		if err := s.UpdateTask(runID, taskID, func(task *models.Task) {
			task.Cost = models.Ptr(addCost(task.Cost, usd))
		}); err != nil {
			return err
		}
		return s.UpdateRun(runID, func(run *models.Run) {
			run.TotalCost = models.Ptr(addCost(run.TotalCost, usd))
		})
	}})
}

func addCost(current *float64, usd float64) float64 {
	if current == nil {
		return usd
	}
	return *current + usd
}

func (r *Recorder) UpdateUsage(ctx context.Context, runID, taskID int64, usage models.Usage) {
	r.UpdateTask(ctx, runID, taskID, func(task *models.Task) {
		if task.Usage == nil {
			task.Usage = &usage
			return
		}
		sum := task.Usage.Add(usage)
		task.Usage = &sum
	})
}

func (r *Recorder) Log(ctx context.Context, runID, taskID int64, stage models.Stage, msg string, kind models.LogKind) {
	entry := &models.Log{
		RunID:   runID,
		TaskID:  taskID,
		Stage:   stage,
		Kind:    kind,
		Message: msg,
		Time:    r.now(),
	}
	r.enqueue(ctx, op{name: "log", apply: func(s Store) error {
		return s.AppendLog(entry)
	}})
}

func (r *Recorder) Pin(ctx context.Context, pin models.Pin) {
	r.enqueue(ctx, op{name: "pin", apply: func(s Store) error {
		return s.SavePin(&pin)
	}})
}
