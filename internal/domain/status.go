package domain

import "strings"

// Status is the lifecycle state of a live action.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// statusTransitions is the full transition table. Terminal variants added
// later (canceled, timeout) are one entry under "running" plus a
// terminalStatuses entry; the commit path does not change.
var statusTransitions = map[Status]map[Status]bool{
	StatusScheduled: {
		StatusRunning: true,
	},
	StatusRunning: {
		StatusSucceeded: true,
		StatusFailed:    true,
	},
}

var terminalStatuses = map[Status]bool{
	StatusSucceeded: true,
	StatusFailed:    true,
}

// NormalizeStatus maps free-form status values to canonical statuses.
func NormalizeStatus(value string) Status {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case string(StatusScheduled):
		return StatusScheduled
	case string(StatusRunning):
		return StatusRunning
	case string(StatusSucceeded):
		return StatusSucceeded
	case string(StatusFailed):
		return StatusFailed
	default:
		return ""
	}
}

// CanTransitionStatus reports whether current -> next is a defined transition.
// Transitions are strictly forward; nothing leaves a terminal status.
func CanTransitionStatus(current, next Status) bool {
	if current == "" || next == "" {
		return false
	}
	return statusTransitions[current][next]
}

func (s Status) IsTerminal() bool {
	return terminalStatuses[s]
}
