package app

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/zjregee/aip/internal/models"
	"github.com/zjregee/aip/internal/service/script"
)

const (
	refreshInterval = 500 * time.Millisecond
	defaultTableRow = 12
	cellMaxLen      = 40
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1)
	statusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("5")).Bold(true)
	tuiErrStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	sectionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Browse recorded runs, tasks, logs and pins",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer func() {
			_ = a.Close()
		}()

		program := tea.NewProgram(newTUIModel(a.agentService, nil), tea.WithContext(cmd.Context()), tea.WithAltScreen())
		_, err = program.Run()
		return err
	},
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

// runSource is the read side of the run store.
type runSource interface {
	ListRuns() ([]*models.Run, error)
	ListTasks(runID int64) ([]*models.Task, error)
	ListLogs(runID, taskID int64) ([]*models.Log, error)
	ListPins(runID int64) ([]*models.Pin, error)
}

type tuiView int

const (
	viewRuns tuiView = iota
	viewTasks
	viewTask
)

type keyMap struct {
	Open key.Binding
	Back key.Binding
	Up   key.Binding
	Down key.Binding
	Quit key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Open, k.Back, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var keys = keyMap{
	Open: key.NewBinding(key.WithKeys("enter", "right", "l"), key.WithHelp("enter", "open")),
	Back: key.NewBinding(key.WithKeys("esc", "backspace", "left", "h"), key.WithHelp("esc", "back")),
	Up:   key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down: key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Quit: key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

type tickMsg time.Time

type hubMsg struct {
	event models.HubEvent
}

type runDoneMsg struct {
	err error
}

// loadedMsg carries a snapshot of the store for the current view.
type loadedMsg struct {
	runs  []*models.Run
	tasks []*models.Task
	logs  []*models.Log
	pins  []*models.Pin
	err   error
}

type tuiModel struct {
	src    runSource
	events <-chan models.HubEvent

	view   tuiView
	runs   []*models.Run
	tasks  []*models.Task
	logs   []*models.Log
	pins   []*models.Pin
	runID  int64
	taskID int64

	table  table.Model
	detail viewport.Model
	help   help.Model

	status  string
	err     error
	running bool
	width   int
	height  int
}

// newTUIModel builds the run browser. events, when set, is the hub feed of a
// run executing in this process.
func newTUIModel(src runSource, events <-chan models.HubEvent) tuiModel {
	t := table.New(
		table.WithColumns(runColumns()),
		table.WithFocused(true),
		table.WithHeight(defaultTableRow),
	)
	return tuiModel{
		src:     src,
		events:  events,
		table:   t,
		detail:  viewport.New(80, defaultTableRow),
		help:    help.New(),
		running: events != nil,
	}
}

func (m tuiModel) Init() tea.Cmd {
	cmds := []tea.Cmd{m.load(), tick()}
	if m.events != nil {
		cmds = append(cmds, waitForEvent(m.events))
	}
	return tea.Batch(cmds...)
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func waitForEvent(events <-chan models.HubEvent) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return hubMsg{event: ev}
	}
}

// load reads what the current view shows.
func (m tuiModel) load() tea.Cmd {
	src, view, runID, taskID := m.src, m.view, m.runID, m.taskID
	return func() tea.Msg {
		var msg loadedMsg
		switch view {
		case viewRuns:
			msg.runs, msg.err = src.ListRuns()
		case viewTasks:
			msg.tasks, msg.err = src.ListTasks(runID)
		case viewTask:
			msg.tasks, msg.err = src.ListTasks(runID)
			if msg.err == nil {
				msg.logs, msg.err = src.ListLogs(runID, taskID)
			}
			if msg.err == nil {
				msg.pins, msg.err = src.ListPins(runID)
			}
		}
		return msg
	}
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		body := max(msg.Height-6, 3)
		m.table.SetHeight(body)
		m.table.SetWidth(msg.Width)
		m.detail.Width = msg.Width
		m.detail.Height = body
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.load(), tick())

	case hubMsg:
		if line, ok := renderEvent(msg.event); ok {
			m.status = oneLine(line, 200)
		}
		return m, waitForEvent(m.events)

	case runDoneMsg:
		m.running = false
		if msg.err != nil {
			m.status = tuiErrStyle.Render("Run failed: " + msg.err.Error())
		} else {
			m.status = "Run done. Press q to quit."
		}
		return m, m.load()

	case loadedMsg:
		m.err = msg.err
		if msg.err == nil {
			m.apply(msg)
		}
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Open):
			return m.open()
		case key.Matches(msg, keys.Back):
			return m.back()
		}
	}

	var cmd tea.Cmd
	if m.view == viewTask {
		m.detail, cmd = m.detail.Update(msg)
	} else {
		m.table, cmd = m.table.Update(msg)
	}
	return m, cmd
}

func (m *tuiModel) apply(msg loadedMsg) {
	switch m.view {
	case viewRuns:
		m.runs = msg.runs
		sort.Slice(m.runs, func(i, j int) bool { return m.runs[i].ID > m.runs[j].ID })
		m.setRows(runRows(m.runs))
	case viewTasks:
		m.tasks = sortTasks(msg.tasks)
		m.setRows(taskRows(m.tasks, m.currentRun()))
	case viewTask:
		m.tasks = sortTasks(msg.tasks)
		m.logs = msg.logs
		m.pins = msg.pins
		m.detail.SetContent(renderTaskDetail(m.currentRun(), m.currentTask(), m.logs, m.pins))
	}
}

// setRows replaces the table rows, keeping the cursor on a valid row.
func (m *tuiModel) setRows(rows []table.Row) {
	m.table.SetRows(rows)
	if cursor := m.table.Cursor(); cursor < 0 || cursor >= len(rows) {
		m.table.SetCursor(0)
	}
}

func sortTasks(tasks []*models.Task) []*models.Task {
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].Num < tasks[j].Num })
	return tasks
}

func (m tuiModel) open() (tea.Model, tea.Cmd) {
	cursor := m.table.Cursor()
	switch m.view {
	case viewRuns:
		if cursor < 0 || cursor >= len(m.runs) {
			return m, nil
		}
		m.runID = m.runs[cursor].ID
		m.view = viewTasks
		m.tasks = nil
		m.table.SetRows(nil)
		m.table.SetColumns(taskColumns())
		return m, m.load()
	case viewTasks:
		if cursor < 0 || cursor >= len(m.tasks) {
			return m, nil
		}
		m.taskID = m.tasks[cursor].ID
		m.view = viewTask
		m.detail.SetContent(renderTaskDetail(m.currentRun(), m.tasks[cursor], nil, nil))
		m.detail.GotoTop()
		return m, m.load()
	}
	return m, nil
}

func (m tuiModel) back() (tea.Model, tea.Cmd) {
	switch m.view {
	case viewTask:
		m.view = viewTasks
		m.table.SetRows(taskRows(m.tasks, m.currentRun()))
		return m, m.load()
	case viewTasks:
		m.view = viewRuns
		m.table.SetRows(nil)
		m.table.SetColumns(runColumns())
		m.table.SetRows(runRows(m.runs))
		for i, run := range m.runs {
			if run.ID == m.runID {
				m.table.SetCursor(i)
			}
		}
		return m, m.load()
	}
	return m, nil
}

func (m tuiModel) currentRun() *models.Run {
	for _, run := range m.runs {
		if run.ID == m.runID {
			return run
		}
	}
	return nil
}

func (m tuiModel) currentTask() *models.Task {
	for _, task := range m.tasks {
		if task.ID == m.taskID {
			return task
		}
	}
	return nil
}

func (m tuiModel) View() string {
	var body string
	switch m.view {
	case viewTask:
		body = m.detail.View()
	default:
		body = m.table.View()
	}

	footer := m.help.View(keys)
	if m.err != nil {
		footer = tuiErrStyle.Render("Error: "+m.err.Error()) + "\n" + footer
	}
	if m.status != "" {
		footer = statusStyle.Render(m.status) + "\n" + footer
	}

	return lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(m.title()), "", body, "", footer)
}

func (m tuiModel) title() string {
	title := "aip runs"
	if m.running {
		title += " (running)"
	}
	switch m.view {
	case viewTasks:
		title = fmt.Sprintf("Run #%d tasks", m.runID)
	case viewTask:
		title = fmt.Sprintf("Run #%d", m.runID)
		if task := m.currentTask(); task != nil {
			title += fmt.Sprintf(" task #%d", task.Num)
		}
	}
	return title
}

func runColumns() []table.Column {
	return []table.Column{
		{Title: "ID", Width: 5},
		{Title: "Agent", Width: 16},
		{Title: "Model", Width: 18},
		{Title: "Status", Width: 8},
		{Title: "Tasks", Width: 5},
		{Title: "Cost", Width: 9},
		{Title: "Started", Width: 19},
		{Title: "Duration", Width: 9},
	}
}

func runRows(runs []*models.Run) []table.Row {
	rows := make([]table.Row, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, table.Row{
			strconv.FormatInt(run.ID, 10),
			run.AgentName,
			run.Model,
			string(run.Status),
			strconv.Itoa(run.TaskCount),
			formatCost(run.TotalCost),
			formatTime(run.StartedAt),
			formatElapsed(run.StartedAt, run.EndedAt),
		})
	}
	return rows
}

func taskColumns() []table.Column {
	return []table.Column{
		{Title: "#", Width: 4},
		{Title: "Input", Width: 24},
		{Title: "Status", Width: 8},
		{Title: "Model", Width: 18},
		{Title: "Cost", Width: 9},
		{Title: "Prompt", Width: 9},
		{Title: "Compl.", Width: 9},
		{Title: "Duration", Width: 9},
		{Title: "Output", Width: cellMaxLen},
	}
}

func taskRows(tasks []*models.Task, run *models.Run) []table.Row {
	rows := make([]table.Row, 0, len(tasks))
	for _, task := range tasks {
		var prompt, completion *int
		if task.Usage != nil {
			prompt = task.Usage.PromptTokens
			completion = task.Usage.CompletionTokens
		}
		rows = append(rows, table.Row{
			strconv.Itoa(task.Num),
			oneLine(task.Label, cellMaxLen),
			string(task.Status),
			task.Model(run),
			formatCost(task.Cost),
			formatCount(prompt),
			formatCount(completion),
			formatElapsed(task.StartedAt, task.EndedAt),
			oneLine(taskOutcome(task), cellMaxLen),
		})
	}
	return rows
}

func taskOutcome(task *models.Task) string {
	switch {
	case task.Error != "":
		return task.Error
	case task.SkipReason != nil:
		if *task.SkipReason == "" {
			return "skipped"
		}
		return "skipped: " + *task.SkipReason
	default:
		return task.OutputPreview
	}
}

var stageOrder = []models.Stage{
	models.StageData,
	models.StageAi,
	models.StageOutput,
}

func renderTaskDetail(run *models.Run, task *models.Task, logs []*models.Log, pins []*models.Pin) string {
	if task == nil {
		return "Loading..."
	}

	var b strings.Builder
	field := func(name, value string) {
		fmt.Fprintf(&b, "%s %s\n", labelStyle.Render(name+":"), value)
	}

	field("Input", task.Label)
	field("Status", string(task.Status))
	field("Model", task.Model(run))
	field("Cost", formatCost(task.Cost))
	field("Duration", formatElapsed(task.StartedAt, task.EndedAt))
	if task.Usage != nil {
		field("Prompt tokens", formatCount(task.Usage.PromptTokens)+" (cached: "+formatCount(task.Usage.CachedTokens)+")")
		field("Completion tokens", formatCount(task.Usage.CompletionTokens)+" (reasoning: "+formatCount(task.Usage.ReasoningTokens)+")")
	}
	for _, stage := range stageOrder {
		if span := task.Stages[stage]; span != nil {
			field(script.StageTitle(stage)+" stage", formatSpan(span))
		}
	}
	if task.SkipReason != nil {
		field("Skipped", *task.SkipReason)
	}
	if task.Error != "" {
		field("Error", task.Error)
	}
	if task.OutputPreview != "" {
		b.WriteString("\n" + sectionStyle.Render("Output") + "\n")
		b.WriteString(formatDisplay(task.OutputPreview) + "\n")
	}

	var taskPins []*models.Pin
	for _, pin := range pins {
		if pin.TaskID == task.ID {
			taskPins = append(taskPins, pin)
		}
	}
	if len(taskPins) > 0 {
		b.WriteString("\n" + sectionStyle.Render("Pins") + "\n")
		for _, pin := range taskPins {
			fmt.Fprintf(&b, "- %s: %s\n", pin.Iden, pin.Content)
		}
	}

	if len(logs) > 0 {
		b.WriteString("\n" + sectionStyle.Render("Logs") + "\n")
		for _, log := range logs {
			fmt.Fprintf(&b, "%s [%s] %s: %s\n", log.Time.Local().Format("15:04:05"), log.Stage, log.Kind, formatDisplay(log.Message))
		}
	}

	return b.String()
}
