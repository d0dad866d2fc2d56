package repo

import (
	"context"
	"errors"
	"time"

	"github.com/runforge-labs/actiond/internal/domain"
)

// ErrNotFound is returned when a lookup matches no entity.
var ErrNotFound = errors.New("not found")

// ErrStatusConflict is returned when a conditional status update finds the
// record in a different state than expected. It means a commit would have
// moved the status backwards or raced another writer.
var ErrStatusConflict = errors.New("status conflict")

type ActionFilter struct {
	Pack  string
	Limit int
}

type RunnerTypeFilter struct {
	Limit int
}

// ActionRepository manages registered actions. The execution core only
// reads; Upsert exists for the registration step.
type ActionRepository interface {
	Upsert(ctx context.Context, action domain.Action) error
	Get(ctx context.Context, ref domain.ActionReference) (domain.Action, error)
	List(ctx context.Context, filter ActionFilter) ([]domain.Action, error)
}

// RunnerTypeRepository manages registered runner types.
type RunnerTypeRepository interface {
	Upsert(ctx context.Context, rt domain.RunnerType) error
	Get(ctx context.Context, name string) (domain.RunnerType, error)
	List(ctx context.Context, filter RunnerTypeFilter) ([]domain.RunnerType, error)
}

// LiveActionRepository manages execution records with immutable identity.
// UpdateStatus must apply as one conditional write keyed by id: the row
// moves from exactly `from` to `to`, or the call fails with
// ErrStatusConflict and the record is untouched.
type LiveActionRepository interface {
	Create(ctx context.Context, la domain.LiveAction) error
	Get(ctx context.Context, id string) (domain.LiveAction, error)
	UpdateStatus(ctx context.Context, id string, from, to domain.Status, result domain.Metadata, endedAt *time.Time) error
}
