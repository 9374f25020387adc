package monitor

import (
	"errors"
	"fmt"
)

var (
	// ErrSourceNotReady is returned when the scheduler has not produced a health snapshot yet.
	ErrSourceNotReady = errors.New("metrics source is not ready")

	ErrAlertNotFound       = errors.New("alert not found")
	ErrInvalidReportType   = errors.New("invalid report type")
	ErrInvalidReportWindow = errors.New("invalid report window")
)

// HandlerError reports a failing alert handler. It is logged, never returned
// to the code that raised the alert.
type HandlerError struct {
	Index   int
	AlertID string
	Err     error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("alert handler %d failed for alert %s: %v", e.Index, e.AlertID, e.Err)
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}
