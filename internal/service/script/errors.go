package script

import (
	"fmt"

	"github.com/zjregee/aip/internal/models"
)

// Error is a script failure at a given stage. Script holds the offending
// source for diagnostics.
type Error struct {
	Stage  models.Stage
	Script string
	Cause  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s stage script failed: %v", StageTitle(e.Stage), e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// UnsupportedSignalError is returned when a stage produces a control signal
// it does not accept.
type UnsupportedSignalError struct {
	Stage models.Stage
	Kind  string
}

func (e *UnsupportedSignalError) Error() string {
	return fmt.Sprintf("Aipack Custom '%s' is not supported at the %s stage", e.Kind, StageTitle(e.Stage))
}

func StageTitle(stage models.Stage) string {
	switch stage {
	case models.StageBeforeAll:
		return "Before All"
	case models.StageData:
		return "Data"
	case models.StageAi:
		return "AI"
	case models.StageOutput:
		return "Output"
	case models.StageAfterAll:
		return "After All"
	default:
		return string(stage)
	}
}
