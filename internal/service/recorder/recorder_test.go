package recorder

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/zjregee/aip/internal/models"
	"github.com/zjregee/aip/internal/service/storage"
)

func openStore(t *testing.T) *storage.Store {
	t.Helper()
	s, err := storage.Open(filepath.Join(t.TempDir(), storage.DefaultFileName))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

func TestRecorderAppliesWritesInOrder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := openStore(t)

	var changes atomic.Int64
	rec := New(store, func() { changes.Add(1) })
	defer rec.Close()

	run := &models.Run{UID: "r", Model: "gpt-4o-mini", StartedAt: time.Now()}
	if err := rec.CreateRun(run); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}
	task := &models.Task{RunID: run.ID, Num: 1}
	if err := rec.CreateTask(task); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	rec.StepStart(ctx, run.ID, task.ID, models.StageData)
	rec.StepEnd(ctx, run.ID, task.ID, models.StageData)
	rec.StepStart(ctx, run.ID, 0, models.StageBeforeAll)
	rec.UpdateModelOverride(ctx, run.ID, task.ID, "another-model")
	rec.UpdateCost(ctx, run.ID, task.ID, 0.25)
	rec.UpdateCost(ctx, run.ID, task.ID, 0.5)
	rec.UpdateUsage(ctx, run.ID, task.ID, models.Usage{PromptTokens: models.Ptr(10)})
	rec.UpdateUsage(ctx, run.ID, task.ID, models.Usage{PromptTokens: models.Ptr(5), CompletionTokens: models.Ptr(3)})
	rec.Log(ctx, run.ID, task.ID, models.StageData, "hello", models.LogKindAgentPrint)
	rec.Pin(ctx, models.Pin{RunID: run.ID, Iden: "summary", Content: "\"x\""})
	rec.Flush(ctx)

	got, err := store.GetTask(run.ID, task.ID)
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	span := got.Stages[models.StageData]
	if span == nil || span.Start == nil || span.End == nil || span.End.Before(*span.Start) {
		t.Fatalf("unexpected data span: %+v", span)
	}
	if got.ModelOverride != "another-model" {
		t.Fatalf("unexpected model override %q", got.ModelOverride)
	}
	if got.Cost == nil || *got.Cost != 0.75 {
		t.Fatalf("unexpected task cost %v", got.Cost)
	}
	if got.Usage == nil || models.Count(got.Usage.PromptTokens) != 15 || models.Count(got.Usage.CompletionTokens) != 3 {
		t.Fatalf("unexpected usage %+v", got.Usage)
	}

	gotRun, err := store.GetRun(run.ID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if gotRun.TotalCost == nil || *gotRun.TotalCost != 0.75 {
		t.Fatalf("unexpected run cost %v", gotRun.TotalCost)
	}
	if gotRun.Stages[models.StageBeforeAll] == nil {
		t.Fatalf("expected run level stage span")
	}

	logs, _ := store.ListLogs(run.ID, task.ID)
	if len(logs) != 1 || logs[0].Message != "hello" {
		t.Fatalf("unexpected logs %+v", logs)
	}
	pins, _ := store.ListPins(run.ID)
	if len(pins) != 1 {
		t.Fatalf("unexpected pins %+v", pins)
	}
	if changes.Load() == 0 {
		t.Fatalf("expected change notifications")
	}
}

type failingStore struct {
	mu    sync.Mutex
	calls int
}

func (f *failingStore) CreateRun(*models.Run) error { return nil }
func (f *failingStore) UpdateRun(int64, func(*models.Run)) error { return f.fail() }
func (f *failingStore) CreateTask(*models.Task) error { return nil }
func (f *failingStore) UpdateTask(int64, int64, func(*models.Task)) error { return f.fail() }
func (f *failingStore) AppendLog(*models.Log) error { return f.fail() }
func (f *failingStore) SavePin(*models.Pin) error { return f.fail() }

func (f *failingStore) fail() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return errors.New("disk full")
}

func TestRecorderSwallowsStoreErrors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := &failingStore{}

	rec := New(store, nil)
	rec.StepStart(ctx, 1, 1, models.StageAi)
	rec.UpdateCost(ctx, 1, 1, 1)
	rec.Log(ctx, 1, 1, models.StageAi, "x", models.LogKindSysInfo)
	rec.Close()

	store.mu.Lock()
	defer store.mu.Unlock()
	if store.calls != 3 {
		t.Fatalf("expected 3 store calls, got %d", store.calls)
	}

	// Writes after Close are dropped without panicking.
	rec.Log(ctx, 1, 1, models.StageAi, "late", models.LogKindSysInfo)
	rec.Close()
}
