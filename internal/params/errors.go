package params

import "strings"

// Issue is one violated constraint for one parameter.
type Issue struct {
	Parameter  string
	Constraint string
	Reason     string
}

func (i Issue) String() string {
	parts := make([]string, 0, 3)
	if i.Parameter != "" {
		parts = append(parts, i.Parameter)
	}
	if i.Constraint != "" {
		parts = append(parts, "("+i.Constraint+")")
	}
	if i.Reason != "" {
		parts = append(parts, i.Reason)
	}
	return strings.Join(parts, " ")
}

// ValidationError aggregates parameter validation issues.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "parameter validation failed"
	}
	msgs := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		msgs[i] = issue.String()
	}
	return "parameter validation failed: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) Add(issue Issue) {
	e.Issues = append(e.Issues, issue)
}

func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Issues) == 0 {
		return nil
	}
	return e
}
