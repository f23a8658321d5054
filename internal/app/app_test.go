package app

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/zjregee/aip/internal/models"
	"github.com/zjregee/aip/internal/service/usage"
)

func TestFormatDisplay(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"":                  "",
		"hello":             "hello",
		"使用Go语言":            "使用 Go 语言",
		"版本v2发布":            "版本 v2 发布",
		"plain ascii, text": "plain ascii, text",
	}
	for in, want := range cases {
		if got := formatDisplay(in); got != want {
			t.Fatalf("formatDisplay(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatHelpers(t *testing.T) {
	t.Parallel()

	if got := formatCost(nil); got != "-" {
		t.Fatalf("unexpected nil cost %q", got)
	}
	if got := formatCount(models.Ptr(12345)); got != "12,345" {
		t.Fatalf("unexpected count %q", got)
	}
	start := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	if got := formatElapsed(start, nil); got != "running" {
		t.Fatalf("unexpected elapsed %q", got)
	}
	if got := oneLine("a\n  b\tc", 10); got != "a b c" {
		t.Fatalf("unexpected one line %q", got)
	}
}

func TestRenderEvent(t *testing.T) {
	t.Parallel()

	if line, ok := renderEvent(models.HubMessage{Content: "-> Sending"}); !ok || line != "-> Sending" {
		t.Fatalf("unexpected message line %q", line)
	}
	if line, ok := renderEvent(models.HubError{Error: "boom"}); !ok || !strings.Contains(line, "Error: boom") {
		t.Fatalf("unexpected error line %q", line)
	}
	if _, ok := renderEvent(models.HubRtModelChange{}); ok {
		t.Fatalf("store changes should not be printed")
	}
}

func TestParseRunID(t *testing.T) {
	t.Parallel()

	if id, err := parseRunID("42"); err != nil || id != 42 {
		t.Fatalf("parseRunID(42) = %d, %v", id, err)
	}
	for _, s := range []string{"", "0", "-1", "abc"} {
		if _, err := parseRunID(s); err == nil {
			t.Fatalf("expected an error for %q", s)
		}
	}
}

func TestWriteUsageReport(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	writeUsageReport(&b, &usage.DailyReport{})
	if !strings.Contains(b.String(), "No usage recorded") {
		t.Fatalf("unexpected empty report %q", b.String())
	}

	b.Reset()
	writeUsageReport(&b, &usage.DailyReport{
		Data: []usage.DailyReportEntry{{
			Date: "2025-01-02",
			ModelBreakdowns: []usage.ModelBreakdown{
				{ModelName: "gpt-4o-mini", Tasks: 3, InputTokens: 12000, OutputTokens: 800, CostUSD: models.Ptr(0.0023)},
			},
		}},
		Summary: &usage.DailyReportSummary{TotalTasks: 3, TotalCostUSD: models.Ptr(0.0023)},
	})
	for _, part := range []string{"2025-01-02", "gpt-4o-mini", "12,000", "$0.0023", "Total"} {
		if !strings.Contains(b.String(), part) {
			t.Fatalf("report %q does not contain %q", b.String(), part)
		}
	}
}

type fakeSource struct {
	runs  []*models.Run
	tasks []*models.Task
	logs  []*models.Log
	pins  []*models.Pin
}

func (f *fakeSource) ListRuns() ([]*models.Run, error) {
	return append([]*models.Run(nil), f.runs...), nil
}

func (f *fakeSource) ListTasks(runID int64) ([]*models.Task, error) {
	var out []*models.Task
	for _, task := range f.tasks {
		if task.RunID == runID {
			out = append(out, task)
		}
	}
	return out, nil
}

func (f *fakeSource) ListLogs(runID, taskID int64) ([]*models.Log, error) {
	var out []*models.Log
	for _, log := range f.logs {
		if log.RunID == runID && (taskID == 0 || log.TaskID == taskID) {
			out = append(out, log)
		}
	}
	return out, nil
}

func (f *fakeSource) ListPins(runID int64) ([]*models.Pin, error) {
	var out []*models.Pin
	for _, pin := range f.pins {
		if pin.RunID == runID {
			out = append(out, pin)
		}
	}
	return out, nil
}

func newFakeSource() *fakeSource {
	started := time.Date(2025, 1, 2, 9, 0, 0, 0, time.UTC)
	ended := started.Add(3 * time.Second)
	return &fakeSource{
		runs: []*models.Run{
			{ID: 1, AgentName: "old", Model: "gpt-4o-mini", Status: models.RunStatusDone, StartedAt: started, EndedAt: &ended},
			{ID: 2, AgentName: "hello", Model: "gpt-4o-mini", Status: models.RunStatusDone, TaskCount: 2, StartedAt: started, EndedAt: &ended},
		},
		tasks: []*models.Task{
			{ID: 4, RunID: 2, Num: 2, Label: "b", Status: models.RunStatusSkipped, SkipReason: models.Ptr("empty"), StartedAt: started},
			{ID: 3, RunID: 2, Num: 1, Label: "a", Status: models.RunStatusDone, ModelOverride: "gpt-4.1", OutputPreview: "hi a",
				Usage: &models.Usage{PromptTokens: models.Ptr(1200), CompletionTokens: models.Ptr(30)}, Cost: models.Ptr(0.0012),
				StartedAt: started, EndedAt: &ended},
		},
		logs: []*models.Log{
			{RunID: 2, TaskID: 3, Stage: models.StageData, Kind: models.LogKindAgentPrint, Message: "data ready", Time: started},
		},
		pins: []*models.Pin{
			{RunID: 2, TaskID: 3, Iden: "summary", Content: `"done"`},
		},
	}
}

// drive feeds msg to the model and, like the bubbletea runtime, feeds back the
// message of a returned command when it is a store snapshot.
func drive(t *testing.T, m tuiModel, msg tea.Msg) tuiModel {
	t.Helper()
	next, cmd := m.Update(msg)
	m = next.(tuiModel)
	if cmd == nil {
		return m
	}
	if loaded, ok := cmd().(loadedMsg); ok {
		next, _ = m.Update(loaded)
		m = next.(tuiModel)
	}
	return m
}

func TestTUINavigation(t *testing.T) {
	t.Parallel()
	src := newFakeSource()

	m := newTUIModel(src, nil)
	m = drive(t, m, m.load()())
	if m.view != viewRuns || len(m.runs) != 2 || m.runs[0].ID != 2 {
		t.Fatalf("expected runs newest first, got %#v", m.runs)
	}
	if !strings.Contains(m.View(), "hello") {
		t.Fatalf("runs view does not list the run: %q", m.View())
	}

	m = drive(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.view != viewTasks || m.runID != 2 {
		t.Fatalf("expected the tasks of run 2, got view %d run %d", m.view, m.runID)
	}
	if len(m.tasks) != 2 || m.tasks[0].Num != 1 {
		t.Fatalf("expected tasks ordered by number, got %#v", m.tasks)
	}
	if view := m.View(); !strings.Contains(view, "gpt-4.1") || !strings.Contains(view, "skipped: empty") {
		t.Fatalf("tasks view is missing fields: %q", view)
	}

	m = drive(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.view != viewTask || m.taskID != 3 {
		t.Fatalf("expected task 3 detail, got view %d task %d", m.view, m.taskID)
	}
	detail := renderTaskDetail(m.currentRun(), m.currentTask(), m.logs, m.pins)
	for _, part := range []string{"gpt-4.1", "$0.0012", "1,200", "hi a", "summary", "data ready"} {
		if !strings.Contains(detail, part) {
			t.Fatalf("detail %q does not contain %q", detail, part)
		}
	}

	m = drive(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.view != viewTasks {
		t.Fatalf("expected to go back to tasks, got %d", m.view)
	}
	m = drive(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.view != viewRuns {
		t.Fatalf("expected to go back to runs, got %d", m.view)
	}

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatalf("expected a quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected tea.QuitMsg")
	}
}

func TestTUIFollowsRun(t *testing.T) {
	t.Parallel()
	events := make(chan models.HubEvent, 1)

	m := newTUIModel(newFakeSource(), events)
	if !strings.Contains(m.title(), "(running)") {
		t.Fatalf("unexpected title %q", m.title())
	}

	next, _ := m.Update(hubMsg{event: models.HubMessage{Content: "-> Sending rendered instruction"}})
	m = next.(tuiModel)
	if m.status != "-> Sending rendered instruction" {
		t.Fatalf("unexpected status %q", m.status)
	}

	next, _ = m.Update(runDoneMsg{})
	m = next.(tuiModel)
	if m.running || !strings.Contains(m.status, "Run done") {
		t.Fatalf("unexpected state after run: running=%v status=%q", m.running, m.status)
	}
}
