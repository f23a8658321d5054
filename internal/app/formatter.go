package app

import (
	"regexp"
	"strings"
	"time"

	"github.com/zjregee/aip/internal/models"
	"github.com/zjregee/aip/internal/utils"
)

var (
	hanToLatin          = regexp.MustCompile(`([\p{Han}])([A-Za-z0-9])`)
	latinToHan          = regexp.MustCompile(`([A-Za-z0-9])([\p{Han}])`)
	hanToLatinMidPunct  = regexp.MustCompile(`([\p{Han}])([-/]+)([A-Za-z0-9])`)
	latinToHanMidPunct  = regexp.MustCompile(`([A-Za-z0-9])([-/]+)([\p{Han}])`)
	hanToLatinOpenPunct = regexp.MustCompile(`([\p{Han}])([\(\[\{'""]+)([A-Za-z0-9])`)
	latinToHanOpenPunct = regexp.MustCompile(`([A-Za-z0-9])([\(\[\{'""]+)([\p{Han}])`)
	hanToLatinPunct     = regexp.MustCompile(`([\p{Han}])([,.;:!?\)\]\}]+)([A-Za-z0-9])`)
	latinToHanPunct     = regexp.MustCompile(`([A-Za-z0-9])([,.;:!?\)\]\}]+)([\p{Han}])`)
)

// formatDisplay spaces out mixed CJK and latin text for the terminal. It is
// only applied to text shown to the user, never to recorded values.
func formatDisplay(content string) string {
	if content == "" {
		return content
	}

	content = hanToLatinMidPunct.ReplaceAllString(content, "$1 $2 $3")
	content = latinToHanMidPunct.ReplaceAllString(content, "$1 $2 $3")
	content = hanToLatinOpenPunct.ReplaceAllString(content, "$1 $2$3")
	content = latinToHanOpenPunct.ReplaceAllString(content, "$1 $2$3")
	content = hanToLatinPunct.ReplaceAllString(content, "$1$2 $3")
	content = latinToHanPunct.ReplaceAllString(content, "$1$2 $3")
	content = hanToLatin.ReplaceAllString(content, "$1 $2")
	content = latinToHan.ReplaceAllString(content, "$1 $2")

	return content
}

func formatCost(cost *float64) string {
	if cost == nil {
		return "-"
	}
	return utils.FormatUSD(*cost)
}

func formatCount(v *int) string {
	if v == nil {
		return "-"
	}
	return utils.FormatNum(*v)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

// formatElapsed renders the time between start and end, or "running" when the
// record has not ended.
func formatElapsed(start time.Time, end *time.Time) string {
	if end == nil {
		return "running"
	}
	return utils.FormatDuration(end.Sub(start))
}

func formatSpan(span *models.StageSpan) string {
	if span == nil || span.Start == nil {
		return "-"
	}
	if span.End == nil {
		return "running"
	}
	return utils.FormatDuration(span.Duration())
}

// oneLine collapses whitespace so that a value fits a table cell.
func oneLine(s string, max int) string {
	return utils.Truncate(strings.Join(strings.Fields(s), " "), max)
}
