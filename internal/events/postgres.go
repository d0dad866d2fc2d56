package events

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// PostgresPublisher appends each transition to an append-only table keyed by
// liveaction id. It doubles as the durable event feed for asynchronous
// observers.
type PostgresPublisher struct {
	db Execer
}

func NewPostgresPublisher(db Execer) *PostgresPublisher {
	if db == nil {
		return nil
	}
	return &PostgresPublisher{db: db}
}

func (p *PostgresPublisher) Publish(ctx context.Context, event TransitionEvent) error {
	if p == nil || p.db == nil {
		return errors.New("postgres publisher not initialized")
	}
	if strings.TrimSpace(event.LiveActionID) == "" {
		return errors.New("liveaction id is required")
	}
	if event.NewStatus == "" {
		return errors.New("new status is required")
	}
	ts := event.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	var oldStatus sql.NullString
	if event.OldStatus != "" {
		oldStatus = sql.NullString{String: string(event.OldStatus), Valid: true}
	}
	_, err := p.db.ExecContext(
		ctx,
		`INSERT INTO liveaction_transitions (
			liveaction_id,
			old_status,
			new_status,
			occurred_at
		) VALUES ($1,$2,$3,$4)`,
		strings.TrimSpace(event.LiveActionID),
		oldStatus,
		string(event.NewStatus),
		ts.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert transition event: %w", err)
	}
	return nil
}
