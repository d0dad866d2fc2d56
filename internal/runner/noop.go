package runner

import (
	"context"

	"github.com/runforge-labs/actiond/internal/domain"
)

// ModuleNoop is the module locator of the built-in echo runner.
const ModuleNoop = "actiond.runners.noop"

// NoopRunner succeeds immediately and echoes the validated parameters back
// as its result. Useful for wiring tests and as the smallest possible
// runner implementation.
type NoopRunner struct{}

func NewNoopRunner() (Runner, error) {
	return &NoopRunner{}, nil
}

func (r *NoopRunner) Dispatch(ctx context.Context, la domain.LiveAction) (domain.Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return domain.Metadata{
		"action":     la.Action,
		"parameters": la.Parameters.Clone(),
	}, nil
}
