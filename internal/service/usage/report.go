package usage

import (
	"fmt"
	"sort"
	"time"

	"github.com/zjregee/aip/internal/models"
)

// RunSource is the read side of the run store.
type RunSource interface {
	ListRuns() ([]*models.Run, error)
	ListTasks(runID int64) ([]*models.Task, error)
}

type DayRange struct {
	SinceKey string
	UntilKey string
}

func NewDayRange(since, until time.Time) DayRange {
	return DayRange{
		SinceKey: dayKey(since),
		UntilKey: dayKey(until),
	}
}

func dayKey(t time.Time) string {
	return t.Local().Format("2006-01-02")
}

func (r DayRange) contains(key string) bool {
	return key >= r.SinceKey && key <= r.UntilKey
}

type modelTotals struct {
	tasks   int
	input   int
	cached  int
	output  int
	cost    float64
	costSet bool
}

// LoadDailyReport aggregates the tokens and cost of every stored task started
// within [since, until], per day and per model.
func LoadDailyReport(src RunSource, since, until time.Time) (*DailyReport, error) {
	rng := NewDayRange(since, until)

	runs, err := src.ListRuns()
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	days := make(map[string]map[string]*modelTotals)
	for _, run := range runs {
		if run.StartedAt.After(until) {
			continue
		}
		tasks, err := src.ListTasks(run.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list tasks of run %d: %w", run.ID, err)
		}
		for _, task := range tasks {
			day := dayKey(task.StartedAt)
			if !rng.contains(day) || (task.Usage == nil && task.Cost == nil) {
				continue
			}
			model := task.Model(run)
			if model == "" {
				model = "unknown"
			}
			if days[day] == nil {
				days[day] = make(map[string]*modelTotals)
			}
			totals := days[day][model]
			if totals == nil {
				totals = &modelTotals{}
				days[day][model] = totals
			}
			totals.tasks++
			if task.Usage != nil {
				totals.input += models.Count(task.Usage.PromptTokens) + models.Count(task.Usage.CachedTokens)
				totals.cached += models.Count(task.Usage.CachedTokens)
				totals.output += models.Count(task.Usage.CompletionTokens)
			}
			if task.Cost != nil {
				totals.cost += *task.Cost
				totals.costSet = true
			}
		}
	}

	return buildReport(days), nil
}

func buildReport(days map[string]map[string]*modelTotals) *DailyReport {
	var entries []DailyReportEntry
	var totalTasks, totalInput, totalOutput, totalTokens int
	var totalCost float64
	var costSeen bool

	dayKeys := make([]string, 0, len(days))
	for k := range days {
		dayKeys = append(dayKeys, k)
	}
	sort.Strings(dayKeys)

	for _, day := range dayKeys {
		byModel := days[day]
		modelNames := make([]string, 0, len(byModel))
		for k := range byModel {
			modelNames = append(modelNames, k)
		}
		sort.Strings(modelNames)

		var dayTasks, dayInput, dayCached, dayOutput int
		var dayCost float64
		var dayCostSeen bool
		breakdowns := make([]ModelBreakdown, 0, len(modelNames))

		for _, model := range modelNames {
			t := byModel[model]
			dayTasks += t.tasks
			dayInput += t.input
			dayCached += t.cached
			dayOutput += t.output

			var cost *float64
			if t.costSet {
				cost = models.Ptr(t.cost)
				dayCost += t.cost
				dayCostSeen = true
			}
			breakdowns = append(breakdowns, ModelBreakdown{
				ModelName:    model,
				Tasks:        t.tasks,
				InputTokens:  t.input,
				OutputTokens: t.output,
				CostUSD:      cost,
			})
		}
		sort.SliceStable(breakdowns, func(i, j int) bool {
			if breakdowns[i].CostUSD == nil {
				return false
			}
			if breakdowns[j].CostUSD == nil {
				return true
			}
			return *breakdowns[i].CostUSD > *breakdowns[j].CostUSD
		})

		dayTotal := dayInput + dayOutput
		var entryCost *float64
		if dayCostSeen {
			entryCost = models.Ptr(dayCost)
		}

		entries = append(entries, DailyReportEntry{
			Date:            day,
			Tasks:           dayTasks,
			InputTokens:     models.Ptr(dayInput),
			CachedTokens:    models.Ptr(dayCached),
			OutputTokens:    models.Ptr(dayOutput),
			TotalTokens:     models.Ptr(dayTotal),
			CostUSD:         entryCost,
			ModelsUsed:      modelNames,
			ModelBreakdowns: breakdowns,
		})

		totalTasks += dayTasks
		totalInput += dayInput
		totalOutput += dayOutput
		totalTokens += dayTotal
		if entryCost != nil {
			totalCost += *entryCost
			costSeen = true
		}
	}

	var summary *DailyReportSummary
	if len(entries) > 0 {
		summary = &DailyReportSummary{
			TotalTasks:        totalTasks,
			TotalInputTokens:  models.Ptr(totalInput),
			TotalOutputTokens: models.Ptr(totalOutput),
			TotalTokens:       models.Ptr(totalTokens),
		}
		if costSeen {
			summary.TotalCostUSD = models.Ptr(totalCost)
		}
	}

	if entries == nil {
		entries = []DailyReportEntry{}
	}
	return &DailyReport{Data: entries, Summary: summary}
}

// TokenSnapshotFromDaily summarizes a report for the day of now.
func TokenSnapshotFromDaily(daily *DailyReport, now time.Time) *TokenSnapshot {
	snapshot := &TokenSnapshot{
		Daily:     daily.Data,
		UpdatedAt: now,
	}

	if daily.Summary != nil {
		snapshot.PeriodCostUSD = daily.Summary.TotalCostUSD
	}

	today := dayKey(now)
	for i := range daily.Data {
		if daily.Data[i].Date == today {
			snapshot.TodayTokens = daily.Data[i].TotalTokens
			snapshot.TodayCostUSD = daily.Data[i].CostUSD
			break
		}
	}

	return snapshot
}
