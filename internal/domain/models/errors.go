package models

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition is returned when a trade transition would reverse or
// skip a lifecycle state.
var ErrInvalidTransition = errors.New("invalid trade transition")

// DataIntegrityError reports non-monotonic or malformed bars in a series.
// It is recovered locally: detection for the affected window is skipped and
// the error surfaces as a warning only.
type DataIntegrityError struct {
	Series SeriesKey
	Reason string
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("data integrity: %s: %s", e.Series, e.Reason)
}

// ExecutionError reports a gateway rejection or timeout for a pending trade.
type ExecutionError struct {
	TradeID string
	Reason  string
	Err     error
}

func (e *ExecutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("execution: trade %s: %s: %v", e.TradeID, e.Reason, e.Err)
	}
	return fmt.Sprintf("execution: trade %s: %s", e.TradeID, e.Reason)
}

func (e *ExecutionError) Unwrap() error { return e.Err }
