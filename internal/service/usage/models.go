package usage

import "time"

type TokenSnapshot struct {
	TodayTokens   *int               `json:"today_tokens"`
	TodayCostUSD  *float64           `json:"today_cost_usd"`
	PeriodCostUSD *float64           `json:"period_cost_usd"`
	Daily         []DailyReportEntry `json:"daily"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

type DailyReport struct {
	Data    []DailyReportEntry  `json:"data"`
	Summary *DailyReportSummary `json:"summary"`
}

type DailyReportEntry struct {
	Date            string           `json:"date"`
	Tasks           int              `json:"tasks"`
	InputTokens     *int             `json:"input_tokens"`
	CachedTokens    *int             `json:"cached_tokens"`
	OutputTokens    *int             `json:"output_tokens"`
	TotalTokens     *int             `json:"total_tokens"`
	CostUSD         *float64         `json:"cost_usd"`
	ModelsUsed      []string         `json:"models_used"`
	ModelBreakdowns []ModelBreakdown `json:"model_breakdowns"`
}

type ModelBreakdown struct {
	ModelName    string   `json:"model_name"`
	Tasks        int      `json:"tasks"`
	InputTokens  int      `json:"input_tokens"`
	OutputTokens int      `json:"output_tokens"`
	CostUSD      *float64 `json:"cost_usd"`
}

type DailyReportSummary struct {
	TotalTasks        int      `json:"total_tasks"`
	TotalInputTokens  *int     `json:"total_input_tokens"`
	TotalOutputTokens *int     `json:"total_output_tokens"`
	TotalTokens       *int     `json:"total_tokens"`
	TotalCostUSD      *float64 `json:"total_cost_usd"`
}
