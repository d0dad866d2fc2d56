package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/runforge-labs/actiond/internal/domain"
	"github.com/runforge-labs/actiond/internal/repo"
)

type LiveActionStore struct {
	db DB
}

func NewLiveActionStore(db DB) *LiveActionStore {
	if db == nil {
		return nil
	}
	return &LiveActionStore{db: db}
}

func (s *LiveActionStore) Create(ctx context.Context, la domain.LiveAction) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("live action store not initialized")
	}
	if err := la.Validate(); err != nil {
		return err
	}
	contextJSON, err := encodeMetadata(la.Context)
	if err != nil {
		return fmt.Errorf("encode context: %w", err)
	}
	paramsJSON, err := encodeMetadata(la.Parameters)
	if err != nil {
		return fmt.Errorf("encode parameters: %w", err)
	}
	notifyJSON, err := encodeNotify(la.Notify)
	if err != nil {
		return fmt.Errorf("encode notify: %w", err)
	}
	var endedAt sql.NullTime
	if la.EndTimestamp != nil {
		endedAt = sql.NullTime{Time: la.EndTimestamp.UTC(), Valid: true}
	}
	var resultJSON []byte
	if la.Result != nil {
		resultJSON, err = encodeMetadata(la.Result)
		if err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
	}
	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO live_actions (
			liveaction_id,
			action,
			context,
			parameters,
			status,
			start_timestamp,
			end_timestamp,
			result,
			notify
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		strings.TrimSpace(la.ID),
		strings.TrimSpace(la.Action),
		contextJSON,
		paramsJSON,
		string(la.Status),
		normalizeTime(la.StartTimestamp),
		endedAt,
		resultJSON,
		notifyJSON,
	)
	if err != nil {
		return fmt.Errorf("insert live action: %w", err)
	}
	return nil
}

func (s *LiveActionStore) Get(ctx context.Context, id string) (domain.LiveAction, error) {
	if s == nil || s.db == nil {
		return domain.LiveAction{}, fmt.Errorf("live action store not initialized")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.LiveAction{}, fmt.Errorf("live action id is required")
	}
	var la domain.LiveAction
	var contextJSON []byte
	var paramsJSON []byte
	var resultJSON []byte
	var notifyJSON []byte
	var status string
	var endedAt sql.NullTime
	row := s.db.QueryRowContext(
		ctx,
		`SELECT liveaction_id, action, context, parameters, status, start_timestamp, end_timestamp, result, notify
		 FROM live_actions
		 WHERE liveaction_id = $1`,
		id,
	)
	if err := row.Scan(&la.ID, &la.Action, &contextJSON, &paramsJSON, &status,
		&la.StartTimestamp, &endedAt, &resultJSON, &notifyJSON); err != nil {
		return domain.LiveAction{}, handleNotFound(err)
	}
	la.Status = domain.NormalizeStatus(status)
	if endedAt.Valid {
		t := endedAt.Time.UTC()
		la.EndTimestamp = &t
	}
	laContext, err := decodeMetadata(contextJSON)
	if err != nil {
		return domain.LiveAction{}, fmt.Errorf("decode context: %w", err)
	}
	la.Context = laContext
	params, err := decodeMetadata(paramsJSON)
	if err != nil {
		return domain.LiveAction{}, fmt.Errorf("decode parameters: %w", err)
	}
	la.Parameters = params
	if len(resultJSON) > 0 {
		result, err := decodeMetadata(resultJSON)
		if err != nil {
			return domain.LiveAction{}, fmt.Errorf("decode result: %w", err)
		}
		la.Result = result
	}
	notify, err := decodeNotify(notifyJSON)
	if err != nil {
		return domain.LiveAction{}, fmt.Errorf("decode notify: %w", err)
	}
	la.Notify = notify
	return la, nil
}

// UpdateStatus moves a record from exactly `from` to `to` in one conditional
// write. Zero rows affected means the record either does not exist or is no
// longer in `from`; the two cases are disambiguated with a follow-up read.
func (s *LiveActionStore) UpdateStatus(ctx context.Context, id string, from, to domain.Status, result domain.Metadata, endedAt *time.Time) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("live action store not initialized")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("live action id is required")
	}
	if !domain.CanTransitionStatus(from, to) {
		return fmt.Errorf("undefined status transition %s -> %s", from, to)
	}
	var resultJSON []byte
	if result != nil {
		var err error
		resultJSON, err = encodeMetadata(result)
		if err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
	}
	var ended sql.NullTime
	if endedAt != nil {
		ended = sql.NullTime{Time: endedAt.UTC(), Valid: true}
	}
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE live_actions
		 SET status = $1,
			 result = COALESCE($2, result),
			 end_timestamp = COALESCE($3, end_timestamp)
		 WHERE liveaction_id = $4 AND status = $5`,
		string(to),
		resultJSON,
		ended,
		id,
		string(from),
	)
	if err != nil {
		return fmt.Errorf("update live action status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update live action status: %w", err)
	}
	if affected == 0 {
		if _, err := s.Get(ctx, id); err != nil {
			return err
		}
		return repo.ErrStatusConflict
	}
	return nil
}
