package service

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/zjregee/aip/internal/models"
	"github.com/zjregee/aip/internal/service/hub"
	"github.com/zjregee/aip/internal/service/recorder"
	"github.com/zjregee/aip/internal/service/storage"
)

type chatCall struct {
	model string
	msgs  []*schema.Message
	opts  models.ChatOptions
}

// mockChatClient answers every request with "echo: " followed by the last
// message content.
type mockChatClient struct {
	mu    sync.Mutex
	calls []chatCall
	usage models.Usage
	err   error
}

func (m *mockChatClient) ExecChat(_ context.Context, model string, msgs []*schema.Message, opts models.ChatOptions) (*ChatResponse, error) {
	m.mu.Lock()
	m.calls = append(m.calls, chatCall{model: model, msgs: msgs, opts: opts})
	m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}

	iden, err := ResolveModelIden(model)
	if err != nil {
		return nil, err
	}
	content := "echo: " + msgs[len(msgs)-1].Content
	return &ChatResponse{
		Content:   &content,
		ModelIden: iden,
		Usage:     m.usage,
	}, nil
}

func (m *mockChatClient) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *mockChatClient) modelFor(substr string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.calls {
		for _, msg := range c.msgs {
			if strings.Contains(msg.Content, substr) {
				return c.model
			}
		}
	}
	return ""
}

type testEnv struct {
	rt    *Runtime
	store *storage.Store
	rec   *recorder.Recorder
}

func newTestEnv(t *testing.T, client ChatClient, opts RunOptions) *testEnv {
	t.Helper()

	store, err := storage.Open(filepath.Join(t.TempDir(), storage.DefaultFileName))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	rec := recorder.New(store, nil)
	t.Cleanup(rec.Close)

	return &testEnv{
		rt: &Runtime{
			Client:       client,
			Recorder:     rec,
			Hub:          hub.New(),
			Options:      opts,
			WorkspaceDir: t.TempDir(),
		},
		store: store,
		rec:   rec,
	}
}

// newTask creates a run and one task, as RunAgent would.
func (e *testEnv) newTask(t *testing.T, agent *models.Agent) models.RuntimeCtx {
	t.Helper()

	run := &models.Run{UID: "run-uid", AgentName: agent.Name, Model: agent.ModelResolved(), StartedAt: time.Now()}
	if err := e.rec.CreateRun(run); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}
	task := &models.Task{RunID: run.ID, UID: "task-uid", Num: 1, StartedAt: time.Now()}
	if err := e.rec.CreateTask(task); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	return models.RuntimeCtx{RunID: run.ID, TaskID: task.ID, RunUID: run.UID, TaskUID: task.UID}
}

func (e *testEnv) task(t *testing.T, rc models.RuntimeCtx) *models.Task {
	t.Helper()
	e.rec.Flush(context.Background())
	task, err := e.store.GetTask(rc.RunID, rc.TaskID)
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	return task
}

func newTestAgent(model string) *models.Agent {
	return &models.Agent{
		Name:     "test",
		FilePath: "/tmp/test.aip",
		FileDir:  "/tmp",
		Options:  models.AgentOptions{Model: models.Ptr(model)},
	}
}

func strPtr(s string) *string {
	return &s
}

func instruction(content string) models.PromptPart {
	return models.PromptPart{Kind: models.PartKindUser, Content: content}
}
