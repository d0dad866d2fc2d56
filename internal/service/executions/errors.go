package executions

import "fmt"

// ActionNotFoundError means the requested action reference matched no
// registered action. Always an admission error, never retried.
type ActionNotFoundError struct {
	Ref string
}

func (e *ActionNotFoundError) Error() string {
	return fmt.Sprintf("action %q not found", e.Ref)
}

// ActionDisabledError means the action exists but is disabled; scheduling
// a disabled action is refused outright.
type ActionDisabledError struct {
	Ref string
}

func (e *ActionDisabledError) Error() string {
	return fmt.Sprintf("action %q is disabled", e.Ref)
}

// RunnerTypeNotFoundError means an action's runner type is not registered.
// Registration guarantees the reference resolves, so hitting this is a
// registry consistency defect, not a caller mistake.
type RunnerTypeNotFoundError struct {
	Name string
}

func (e *RunnerTypeNotFoundError) Error() string {
	return fmt.Sprintf("runner type %q not found", e.Name)
}

// NoResultError means the runner completed without producing a result
// payload. A runner that returns nothing is itself defective; the live
// action is committed failed and the defect surfaces through this error.
type NoResultError struct {
	RunnerModule string
}

func (e *NoResultError) Error() string {
	return fmt.Sprintf("runner %q completed without a result", e.RunnerModule)
}
