package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/zjregee/aip/internal/models"
	"github.com/zjregee/aip/internal/service/script"
)

func (e *testEnv) run(t *testing.T, id int64) (*models.Run, map[int]*models.Task) {
	t.Helper()
	e.rec.Flush(context.Background())

	run, err := e.store.GetRun(id)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	tasks, err := e.store.ListTasks(id)
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	byNum := make(map[int]*models.Task, len(tasks))
	for _, task := range tasks {
		byNum[task.Num] = task
	}
	return run, byNum
}

func TestRunAgentBeforeAllAndAfterAll(t *testing.T) {
	t.Parallel()
	client := &mockChatClient{}
	env := newTestEnv(t, client, RunOptions{})

	agent := newTestAgent("gpt-4o-mini")
	agent.Options.InputConcurrency = models.Ptr(2)
	agent.BeforeAllScript = strPtr(`return aip.flow.before_all_response({inputs = {"x", "y"}, before_all = "ctx"})`)
	agent.OutputScript = strPtr(`return before_all .. ":" .. input`)
	agent.AfterAllScript = strPtr(`return #outputs`)

	res, err := RunAgent(context.Background(), env.rt, agent, []any{"ignored"})
	if err != nil {
		t.Fatalf("RunAgent failed: %v", err)
	}
	if client.callCount() != 0 {
		t.Fatalf("expected no chat call, got %d", client.callCount())
	}
	if want := []any{"ctx:x", "ctx:y"}; !reflect.DeepEqual(res.Outputs, want) {
		t.Fatalf("expected outputs %#v, got %#v", want, res.Outputs)
	}
	if res.BeforeAll != "ctx" {
		t.Fatalf("unexpected before_all %#v", res.BeforeAll)
	}
	if res.AfterAll != int64(2) {
		t.Fatalf("unexpected after_all %#v", res.AfterAll)
	}

	run, tasks := env.run(t, res.RunID)
	if run.Status != models.RunStatusDone || run.TaskCount != 2 || run.EndedAt == nil {
		t.Fatalf("unexpected run %#v", run)
	}
	if span := run.Stages[models.StageAfterAll]; span == nil || span.End == nil {
		t.Fatalf("expected closed after all span, got %#v", span)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(tasks))
	}
	for num, label := range map[int]string{1: "x", 2: "y"} {
		task := tasks[num]
		if task == nil || task.Label != label || task.Status != models.RunStatusDone {
			t.Fatalf("unexpected task #%d: %#v", num, task)
		}
		if task.OutputPreview != "ctx:"+label {
			t.Fatalf("unexpected output preview %q", task.OutputPreview)
		}
	}
}

func TestRunAgentBeforeAllSkip(t *testing.T) {
	t.Parallel()
	client := &mockChatClient{}
	env := newTestEnv(t, client, RunOptions{})

	agent := newTestAgent("gpt-4o-mini")
	agent.BeforeAllScript = strPtr(`return aip.flow.skip("nothing to do")`)
	agent.PromptParts = []models.PromptPart{instruction("Hello {{input}}")}

	res, err := RunAgent(context.Background(), env.rt, agent, []any{"a", "b"})
	if err != nil {
		t.Fatalf("RunAgent failed: %v", err)
	}
	if !res.Skipped || res.Outputs != nil {
		t.Fatalf("expected a skipped run, got %#v", res)
	}
	if client.callCount() != 0 {
		t.Fatalf("expected no chat call, got %d", client.callCount())
	}

	run, tasks := env.run(t, res.RunID)
	if run.Status != models.RunStatusSkipped || len(tasks) != 0 {
		t.Fatalf("unexpected run %#v with %d tasks", run, len(tasks))
	}
}

func TestRunAgentWithoutInputsRunsOnce(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, &mockChatClient{}, RunOptions{})

	agent := newTestAgent("gpt-4o-mini")
	agent.OutputScript = strPtr(`return input == nil`)

	res, err := RunAgent(context.Background(), env.rt, agent, nil)
	if err != nil {
		t.Fatalf("RunAgent failed: %v", err)
	}
	if want := []any{true}; !reflect.DeepEqual(res.Outputs, want) {
		t.Fatalf("expected outputs %#v, got %#v", want, res.Outputs)
	}

	_, tasks := env.run(t, res.RunID)
	if task := tasks[1]; task == nil || task.Label != "(no input)" {
		t.Fatalf("unexpected task %#v", task)
	}
}

func TestRunAgentTaskErrorFailsRun(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, &mockChatClient{}, RunOptions{})

	agent := newTestAgent("gpt-4o-mini")
	agent.OutputScript = strPtr(`
if input == "bad" then
  error("boom")
end
return input`)
	agent.AfterAllScript = strPtr(`return "after"`)

	res, err := RunAgent(context.Background(), env.rt, agent, []any{"ok", "bad", "fine"})
	if err == nil {
		t.Fatalf("expected an error")
	}
	if !strings.HasPrefix(err.Error(), "task #2 (bad): Output stage script failed") {
		t.Fatalf("unexpected error %q", err.Error())
	}
	var scriptErr *script.Error
	if !errors.As(err, &scriptErr) || scriptErr.Stage != models.StageOutput {
		t.Fatalf("expected an Output script error, got %v", err)
	}
	if res.AfterAll != nil {
		t.Fatalf("after all should not run, got %#v", res.AfterAll)
	}
	if want := []any{"ok", nil, "fine"}; !reflect.DeepEqual(res.Outputs, want) {
		t.Fatalf("expected outputs %#v, got %#v", want, res.Outputs)
	}

	run, tasks := env.run(t, res.RunID)
	if run.Status != models.RunStatusFailed || !strings.Contains(run.Error, "boom") {
		t.Fatalf("unexpected run %#v", run)
	}
	if tasks[1].Status != models.RunStatusDone || tasks[3].Status != models.RunStatusDone {
		t.Fatalf("other tasks should complete: %s %s", tasks[1].Status, tasks[3].Status)
	}
	if tasks[2].Status != models.RunStatusFailed || tasks[2].Error == "" {
		t.Fatalf("unexpected failed task %#v", tasks[2])
	}

	logs, err := env.store.ListLogs(res.RunID, tasks[2].ID)
	if err != nil {
		t.Fatalf("ListLogs failed: %v", err)
	}
	if len(logs) != 1 || logs[0].Kind != models.LogKindSysError || logs[0].Stage != models.StageOutput {
		t.Fatalf("expected one Output error log, got %#v", logs)
	}
}

func TestRunAgentSkippedTaskStatus(t *testing.T) {
	t.Parallel()
	client := &mockChatClient{}
	env := newTestEnv(t, client, RunOptions{})

	agent := newTestAgent("gpt-4o-mini")
	agent.DataScript = strPtr(`
if input == "skip" then
  return aip.flow.skip()
end
return input`)
	agent.PromptParts = []models.PromptPart{instruction("Hello {{data}}")}

	res, err := RunAgent(context.Background(), env.rt, agent, []any{"skip", "go"})
	if err != nil {
		t.Fatalf("RunAgent failed: %v", err)
	}
	if client.callCount() != 1 {
		t.Fatalf("expected one chat call, got %d", client.callCount())
	}
	if want := []any{nil, "echo: Hello go"}; !reflect.DeepEqual(res.Outputs, want) {
		t.Fatalf("expected outputs %#v, got %#v", want, res.Outputs)
	}

	run, tasks := env.run(t, res.RunID)
	if run.Status != models.RunStatusDone {
		t.Fatalf("unexpected run status %s", run.Status)
	}
	if tasks[1].Status != models.RunStatusSkipped || tasks[1].SkipReason == nil {
		t.Fatalf("unexpected skipped task %#v", tasks[1])
	}
	if tasks[2].Status != models.RunStatusDone {
		t.Fatalf("unexpected task %#v", tasks[2])
	}
}

func TestAgentServiceRunsInitAgent(t *testing.T) {
	dir := t.TempDir()
	if _, err := InitWorkspace(dir); err != nil {
		t.Fatalf("InitWorkspace failed: %v", err)
	}
	ws, err := LoadWorkspace(dir)
	if err != nil {
		t.Fatalf("LoadWorkspace failed: %v", err)
	}

	client := &mockChatClient{}
	svc, err := NewAgentService(ws, client)
	if err != nil {
		t.Fatalf("NewAgentService failed: %v", err)
	}
	defer func() {
		_ = svc.Close()
	}()

	agent, err := svc.LoadAgent(filepath.Join(ws.AipDir(), "agents", "hello.aip"))
	if err != nil {
		t.Fatalf("LoadAgent failed: %v", err)
	}

	res, err := svc.RunAgent(context.Background(), agent, []any{"World", ""}, RunOptions{})
	if err != nil {
		t.Fatalf("RunAgent failed: %v", err)
	}
	if want := []any{"echo: Say hello to World.", nil}; !reflect.DeepEqual(res.Outputs, want) {
		t.Fatalf("expected outputs %#v, got %#v", want, res.Outputs)
	}

	if client.callCount() != 1 {
		t.Fatalf("expected one chat call, got %d", client.callCount())
	}
	call := client.calls[0]
	if call.model != "gemini-2.0-flash" {
		t.Fatalf("expected the alias to resolve, got %q", call.model)
	}
	if len(call.msgs) != 2 || !IsCached(call.msgs[0]) || IsCached(call.msgs[1]) {
		t.Fatalf("expected a cached system message then the instruction, got %#v", call.msgs)
	}

	runs, err := svc.ListRuns()
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 1 || runs[0].Status != models.RunStatusDone || runs[0].AgentName != "hello" {
		t.Fatalf("unexpected runs %#v", runs)
	}

	if _, err := os.Stat(ws.StorePath()); err != nil {
		t.Fatalf("expected the store file: %v", err)
	}
}
