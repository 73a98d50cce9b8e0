package planner

import (
	"errors"
	"fmt"
)

var (
	// ErrStationNotSupported means the station has no sub-route membership and cannot enter the graph
	ErrStationNotSupported = errors.New("station not supported")
	// ErrNotReachable means the search finished without labeling the destination
	ErrNotReachable = errors.New("station not reachable")
	// ErrSearchBudgetExceeded means the expansion limit or the planner timeout was hit
	ErrSearchBudgetExceeded = errors.New("search budget exceeded")
	// ErrInvalidQuery means the query itself is malformed
	ErrInvalidQuery = errors.New("invalid query")
)

// StationError ties an error kind to the station that caused it
type StationError struct {
	StationID string
	Err       error
}

func (e *StationError) Error() string {
	return fmt.Sprintf("%v: %s", e.Err, e.StationID)
}

func (e *StationError) Unwrap() error {
	return e.Err
}
