package app

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/zjregee/aip/internal/models"
	"github.com/zjregee/aip/internal/service/usage"
	"github.com/zjregee/aip/internal/utils"
)

var (
	runsLimit int
	taskLogs  bool
	usageDays int
)

var (
	headerCell = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	bodyCell   = lipgloss.NewStyle().Padding(0, 1)
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded runs, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer func() {
			_ = a.Close()
		}()
		return a.ListRuns(runsLimit)
	},
}

var runsDeleteCmd = &cobra.Command{
	Use:   "delete <run-id>",
	Short: "Delete a run with its tasks, logs and pins",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseRunID(args[0])
		if err != nil {
			return err
		}
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer func() {
			_ = a.Close()
		}()
		if err := a.agentService.DeleteRun(id); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Deleted run #%d\n", id)
		return nil
	},
}

var tasksCmd = &cobra.Command{
	Use:   "tasks <run-id>",
	Short: "List the tasks of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseRunID(args[0])
		if err != nil {
			return err
		}
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer func() {
			_ = a.Close()
		}()
		return a.ListTasks(id, taskLogs)
	},
}

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Report token usage and cost per day and model",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer func() {
			_ = a.Close()
		}()
		return a.UsageReport(usageDays, time.Now())
	},
}

func init() {
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "number of runs to show, 0 for all")
	tasksCmd.Flags().BoolVar(&taskLogs, "logs", false, "also print the logs and pins of the run")
	usageCmd.Flags().IntVar(&usageDays, "days", 7, "number of days to report, today included")

	runsCmd.AddCommand(runsDeleteCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(tasksCmd)
	rootCmd.AddCommand(usageCmd)
}

func parseRunID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid run id %q", s)
	}
	return id, nil
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerCell
			}
			return bodyCell
		})
}

func (a *App) ListRuns(limit int) error {
	if a.agentService == nil {
		return fmt.Errorf("agent service not initialized")
	}

	runs, err := a.agentService.ListRuns()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(a.out, "No runs recorded yet.")
		return nil
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].ID > runs[j].ID })
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}

	t := newTable("ID", "Agent", "Model", "Status", "Tasks", "Cost", "Started", "Duration")
	for _, row := range runRows(runs) {
		t.Row(row...)
	}
	fmt.Fprintln(a.out, t.Render())
	return nil
}

func (a *App) ListTasks(runID int64, withLogs bool) error {
	if a.agentService == nil {
		return fmt.Errorf("agent service not initialized")
	}

	run, err := a.agentService.GetRun(runID)
	if err != nil {
		return err
	}
	tasks, err := a.agentService.ListTasks(runID)
	if err != nil {
		return err
	}
	tasks = sortTasks(tasks)

	fmt.Fprintf(a.out, "Run #%d %s (%s) %s, %d tasks, cost %s\n",
		run.ID, run.AgentName, run.Model, run.Status, run.TaskCount, formatCost(run.TotalCost))
	if run.Error != "" {
		fmt.Fprintf(a.out, "Error: %s\n", run.Error)
	}

	t := newTable("#", "Input", "Status", "Model", "Cost", "Prompt", "Compl.", "Duration", "Output")
	for _, row := range taskRows(tasks, run) {
		t.Row(row...)
	}
	fmt.Fprintln(a.out, t.Render())

	if !withLogs {
		return nil
	}
	return a.printLogsAndPins(run, tasks)
}

func (a *App) printLogsAndPins(run *models.Run, tasks []*models.Task) error {
	nums := make(map[int64]int, len(tasks))
	for _, task := range tasks {
		nums[task.ID] = task.Num
	}

	logs, err := a.agentService.ListLogs(run.ID, 0)
	if err != nil {
		return err
	}
	if len(logs) > 0 {
		fmt.Fprintln(a.out, sectionStyle.Render("Logs"))
		for _, log := range logs {
			fmt.Fprintf(a.out, "%s %s [%s] %s: %s\n",
				formatTime(log.Time), taskRef(nums, log.TaskID), log.Stage, log.Kind, formatDisplay(log.Message))
		}
	}

	pins, err := a.agentService.ListPins(run.ID)
	if err != nil {
		return err
	}
	if len(pins) > 0 {
		fmt.Fprintln(a.out, sectionStyle.Render("Pins"))
		for _, pin := range pins {
			priority := ""
			if pin.Priority != nil {
				priority = " (" + strconv.FormatFloat(*pin.Priority, 'f', -1, 64) + ")"
			}
			fmt.Fprintf(a.out, "%s %s%s: %s\n", taskRef(nums, pin.TaskID), pin.Iden, priority, pin.Content)
		}
	}
	return nil
}

func taskRef(nums map[int64]int, taskID int64) string {
	if taskID == 0 {
		return "run"
	}
	if num, ok := nums[taskID]; ok {
		return "task #" + strconv.Itoa(num)
	}
	return "task ?"
}

// UsageReport prints the usage of the last days days, ending with now.
func (a *App) UsageReport(days int, now time.Time) error {
	if a.agentService == nil {
		return fmt.Errorf("agent service not initialized")
	}
	if days < 1 {
		days = 1
	}

	until := now
	since := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, -(days - 1))

	report, err := a.agentService.UsageReport(since, until)
	if err != nil {
		return err
	}
	writeUsageReport(a.out, report)
	return nil
}

func writeUsageReport(w io.Writer, report *usage.DailyReport) {
	if len(report.Data) == 0 {
		fmt.Fprintln(w, "No usage recorded in this period.")
		return
	}

	t := newTable("Date", "Model", "Tasks", "Input", "Output", "Cost")
	for _, day := range report.Data {
		for _, m := range day.ModelBreakdowns {
			t.Row(
				day.Date,
				m.ModelName,
				strconv.Itoa(m.Tasks),
				utils.FormatNum(m.InputTokens),
				utils.FormatNum(m.OutputTokens),
				formatCost(m.CostUSD),
			)
		}
	}
	if s := report.Summary; s != nil {
		t.Row("Total", "", strconv.Itoa(s.TotalTasks), formatCount(s.TotalInputTokens), formatCount(s.TotalOutputTokens), formatCost(s.TotalCostUSD))
	}
	fmt.Fprintln(w, t.Render())
}
