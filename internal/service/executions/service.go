// Package executions is the orchestrator of the execution core: Schedule
// admits a run request into a persisted live action, Execute drives the
// admitted record through dispatch to exactly one terminal state.
package executions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/runforge-labs/actiond/internal/domain"
	"github.com/runforge-labs/actiond/internal/events"
	"github.com/runforge-labs/actiond/internal/params"
	"github.com/runforge-labs/actiond/internal/registry"
	"github.com/runforge-labs/actiond/internal/repo"
	"github.com/runforge-labs/actiond/internal/runner"
	"github.com/runforge-labs/actiond/internal/storage/results"
)

const (
	failureKindFault    = "fault"
	failureKindNoResult = "no_result"
)

type Service struct {
	registry    *registry.Registry
	liveActions repo.LiveActionRepository
	publisher   events.Publisher
	results     *results.Store
	logger      *slog.Logger
	now         func() time.Time
	newID       func() string
}

// New wires the orchestrator. resultStore may be nil; results then stay
// inline on the record.
func New(reg *registry.Registry, liveActionRepo repo.LiveActionRepository, publisher events.Publisher, resultStore *results.Store, logger *slog.Logger) *Service {
	if reg == nil || liveActionRepo == nil || publisher == nil {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		registry:    reg,
		liveActions: liveActionRepo,
		publisher:   publisher,
		results:     resultStore,
		logger:      logger,
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

// ScheduleRequest is the live-action-shaped admission input.
type ScheduleRequest struct {
	Action     string
	Context    domain.Metadata
	Parameters domain.Metadata
}

// Schedule validates a run request and persists the admitted live action in
// the scheduled state. Any admission failure aborts before the persistence
// write; no partial entity is ever created.
func (s *Service) Schedule(ctx context.Context, req ScheduleRequest) (domain.LiveAction, error) {
	ref, err := domain.ParseActionReference(req.Action)
	if err != nil {
		return domain.LiveAction{}, err
	}

	action, err := s.registry.ResolveAction(ctx, ref)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return domain.LiveAction{}, &ActionNotFoundError{Ref: ref.String()}
		}
		return domain.LiveAction{}, fmt.Errorf("resolve action %s: %w", ref, err)
	}
	if !action.Enabled {
		return domain.LiveAction{}, &ActionDisabledError{Ref: ref.String()}
	}

	rt, err := s.registry.ResolveRunnerType(ctx, action.RunnerType)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return domain.LiveAction{}, &RunnerTypeNotFoundError{Name: action.RunnerType}
		}
		return domain.LiveAction{}, fmt.Errorf("resolve runner type %q: %w", action.RunnerType, err)
	}

	normalized, err := params.Validate(action, rt, req.Parameters)
	if err != nil {
		return domain.LiveAction{}, err
	}

	la := domain.LiveAction{
		ID:             s.newID(),
		Action:         ref.String(),
		Context:        req.Context.Clone(),
		Parameters:     normalized,
		Status:         domain.StatusScheduled,
		StartTimestamp: s.now().UTC(),
		Notify:         action.Notify.Clone(),
	}
	if err := s.liveActions.Create(ctx, la); err != nil {
		return domain.LiveAction{}, fmt.Errorf("persist live action: %w", err)
	}
	s.publish(ctx, la.ID, "", domain.StatusScheduled)
	return la, nil
}

// Execute drives one admitted live action to a terminal state: it commits
// scheduled -> running, hands the record to the container, and commits
// exactly one of running -> succeeded / running -> failed before returning.
// Execution faults are committed to the record and re-surfaced to the
// caller; the dual signal is intentional.
func (s *Service) Execute(ctx context.Context, la domain.LiveAction, container *runner.Container) (domain.Metadata, error) {
	if container == nil {
		return nil, fmt.Errorf("runner container is required")
	}
	if !domain.CanTransitionStatus(la.Status, domain.StatusRunning) {
		return nil, fmt.Errorf("live action %s is %s, not schedulable for execution", la.ID, la.Status)
	}
	if err := s.commit(ctx, la.ID, la.Status, domain.StatusRunning, nil); err != nil {
		return nil, err
	}

	ref, err := la.Ref()
	if err != nil {
		return nil, s.commitFailure(ctx, la.ID, failureKindFault, err)
	}
	action, err := s.registry.ResolveAction(ctx, ref)
	if err != nil {
		return nil, s.commitFailure(ctx, la.ID, failureKindFault, fmt.Errorf("resolve action %s: %w", ref, err))
	}
	rt, err := s.registry.ResolveRunnerType(ctx, action.RunnerType)
	if err != nil {
		return nil, s.commitFailure(ctx, la.ID, failureKindFault, fmt.Errorf("resolve runner type %q: %w", action.RunnerType, err))
	}

	result, dispatchErr := container.Dispatch(ctx, rt, la)
	if dispatchErr != nil {
		return nil, s.commitFailure(ctx, la.ID, failureKindFault, dispatchErr)
	}
	if result == nil {
		noResult := &NoResultError{RunnerModule: rt.RunnerModule}
		return nil, s.commitFailure(ctx, la.ID, failureKindNoResult, noResult)
	}

	persisted, err := s.results.Save(ctx, la.ID, result)
	if err != nil {
		return nil, s.commitFailure(ctx, la.ID, failureKindFault, fmt.Errorf("store result: %w", err))
	}
	if err := s.commit(ctx, la.ID, domain.StatusRunning, domain.StatusSucceeded, persisted); err != nil {
		return nil, err
	}
	return result, nil
}

// GetByID re-fetches a live action, resolving any offloaded result back to
// the full payload.
func (s *Service) GetByID(ctx context.Context, id string) (domain.LiveAction, error) {
	la, err := s.liveActions.Get(ctx, id)
	if err != nil {
		return domain.LiveAction{}, err
	}
	if results.IsOffloaded(la.Result) {
		full, err := s.results.Load(ctx, la.Result)
		if err != nil {
			return domain.LiveAction{}, err
		}
		la.Result = full
	}
	return la, nil
}

// commitFailure commits running -> failed with an error envelope, then
// returns cause so callers propagate the original fault unchanged. If even
// the terminal commit fails, that commit error takes precedence: the caller
// must know the record could not be moved out of running.
func (s *Service) commitFailure(ctx context.Context, id string, kind string, cause error) error {
	envelope := domain.Metadata{
		"error":        cause.Error(),
		"failure_kind": kind,
	}
	if err := s.commit(ctx, id, domain.StatusRunning, domain.StatusFailed, envelope); err != nil {
		return fmt.Errorf("commit failed state after %q (%v): %w", kind, cause, err)
	}
	return cause
}

// commit applies one status transition as a single conditional write, then
// announces it. The publisher runs strictly after the write returns; a lost
// notification never implies an inconsistent record.
func (s *Service) commit(ctx context.Context, id string, from, to domain.Status, result domain.Metadata) error {
	var endedAt *time.Time
	if to.IsTerminal() {
		t := s.now().UTC()
		endedAt = &t
	}
	if err := s.liveActions.UpdateStatus(ctx, id, from, to, result, endedAt); err != nil {
		return fmt.Errorf("commit %s -> %s for %s: %w", from, to, id, err)
	}
	s.publish(ctx, id, from, to)
	return nil
}

func (s *Service) publish(ctx context.Context, id string, from, to domain.Status) {
	event := events.TransitionEvent{
		LiveActionID: id,
		OldStatus:    from,
		NewStatus:    to,
		Timestamp:    s.now().UTC(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("transition publish failed",
			"liveaction_id", id,
			"old_status", string(from),
			"new_status", string(to),
			"error", err,
		)
	}
}
