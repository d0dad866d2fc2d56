// Package registry provides read-only lookup of registered actions and
// runner types. Lookups are pure: absence surfaces as repo.ErrNotFound and
// is never conflated with "found but disabled"; enabled checks belong to
// the admission pipeline.
package registry

import (
	"context"
	"fmt"

	"github.com/runforge-labs/actiond/internal/domain"
	"github.com/runforge-labs/actiond/internal/repo"
)

type Registry struct {
	actions repo.ActionRepository
	runners repo.RunnerTypeRepository
}

func New(actionRepo repo.ActionRepository, runnerRepo repo.RunnerTypeRepository) *Registry {
	if actionRepo == nil || runnerRepo == nil {
		return nil
	}
	return &Registry{actions: actionRepo, runners: runnerRepo}
}

func (r *Registry) ResolveAction(ctx context.Context, ref domain.ActionReference) (domain.Action, error) {
	if r == nil || r.actions == nil {
		return domain.Action{}, fmt.Errorf("registry not initialized")
	}
	if err := ref.Validate(); err != nil {
		return domain.Action{}, err
	}
	return r.actions.Get(ctx, ref)
}

func (r *Registry) ResolveRunnerType(ctx context.Context, name string) (domain.RunnerType, error) {
	if r == nil || r.runners == nil {
		return domain.RunnerType{}, fmt.Errorf("registry not initialized")
	}
	if name == "" {
		return domain.RunnerType{}, fmt.Errorf("runner type name is required")
	}
	return r.runners.Get(ctx, name)
}

func (r *Registry) ListActions(ctx context.Context, filter repo.ActionFilter) ([]domain.Action, error) {
	if r == nil || r.actions == nil {
		return nil, fmt.Errorf("registry not initialized")
	}
	return r.actions.List(ctx, filter)
}

func (r *Registry) ListRunnerTypes(ctx context.Context, filter repo.RunnerTypeFilter) ([]domain.RunnerType, error) {
	if r == nil || r.runners == nil {
		return nil, fmt.Errorf("registry not initialized")
	}
	return r.runners.List(ctx, filter)
}
