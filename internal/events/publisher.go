// Package events carries status-transition announcements out of the
// execution core. Publishing is fire-and-forget from the orchestrator's
// perspective: delivery is at-most-once and a failed publish never unwinds
// the committed transition it describes.
package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/runforge-labs/actiond/internal/domain"
)

// TransitionEvent describes one committed status transition. OldStatus is
// empty for the admission commit that creates the record.
type TransitionEvent struct {
	LiveActionID string
	OldStatus    domain.Status
	NewStatus    domain.Status
	Timestamp    time.Time
}

type Publisher interface {
	Publish(ctx context.Context, event TransitionEvent) error
}

// LogPublisher announces transitions on the service log.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	if logger == nil {
		return nil
	}
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, event TransitionEvent) error {
	p.logger.Info("liveaction transition",
		"liveaction_id", event.LiveActionID,
		"old_status", string(event.OldStatus),
		"new_status", string(event.NewStatus),
		"timestamp", event.Timestamp.UTC().Format(time.RFC3339Nano),
	)
	return nil
}

// MultiPublisher fans one event out to several publishers. Every publisher
// sees the event; the first error is reported after the fan-out completes.
type MultiPublisher []Publisher

func (m MultiPublisher) Publish(ctx context.Context, event TransitionEvent) error {
	var firstErr error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
