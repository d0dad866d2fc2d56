package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/runforge-labs/actiond/internal/domain"
	"github.com/runforge-labs/actiond/internal/repo"
)

type ActionStore struct {
	db DB
}

func NewActionStore(db DB) *ActionStore {
	if db == nil {
		return nil
	}
	return &ActionStore{db: db}
}

func (s *ActionStore) Upsert(ctx context.Context, action domain.Action) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("action store not initialized")
	}
	if err := action.Validate(); err != nil {
		return err
	}
	paramsJSON, err := encodeParameterSchema(action.Parameters)
	if err != nil {
		return fmt.Errorf("encode parameters: %w", err)
	}
	notifyJSON, err := encodeNotify(action.Notify)
	if err != nil {
		return fmt.Errorf("encode notify: %w", err)
	}
	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO actions (
			pack,
			name,
			description,
			enabled,
			entry_point,
			runner_type,
			parameters,
			notify
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (pack, name) DO UPDATE SET
			description = EXCLUDED.description,
			enabled = EXCLUDED.enabled,
			entry_point = EXCLUDED.entry_point,
			runner_type = EXCLUDED.runner_type,
			parameters = EXCLUDED.parameters,
			notify = EXCLUDED.notify`,
		strings.TrimSpace(action.Pack),
		strings.TrimSpace(action.Name),
		nullIfEmpty(action.Description),
		action.Enabled,
		nullIfEmpty(action.EntryPoint),
		strings.TrimSpace(action.RunnerType),
		paramsJSON,
		notifyJSON,
	)
	if err != nil {
		return fmt.Errorf("upsert action: %w", err)
	}
	return nil
}

func (s *ActionStore) Get(ctx context.Context, ref domain.ActionReference) (domain.Action, error) {
	if s == nil || s.db == nil {
		return domain.Action{}, fmt.Errorf("action store not initialized")
	}
	if err := ref.Validate(); err != nil {
		return domain.Action{}, err
	}
	row := s.db.QueryRowContext(
		ctx,
		`SELECT pack, name, description, enabled, entry_point, runner_type, parameters, notify
		 FROM actions
		 WHERE pack = $1 AND name = $2`,
		ref.Pack,
		ref.Name,
	)
	action, err := scanAction(row)
	if err != nil {
		return domain.Action{}, handleNotFound(err)
	}
	return action, nil
}

func (s *ActionStore) List(ctx context.Context, filter repo.ActionFilter) ([]domain.Action, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("action store not initialized")
	}
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query := `SELECT pack, name, description, enabled, entry_point, runner_type, parameters, notify
		 FROM actions`
	args := []any{}
	if pack := strings.TrimSpace(filter.Pack); pack != "" {
		query += ` WHERE pack = $1`
		args = append(args, pack)
	}
	query += fmt.Sprintf(` ORDER BY pack, name LIMIT %d`, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list actions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	actions := make([]domain.Action, 0)
	for rows.Next() {
		action, err := scanAction(rows)
		if err != nil {
			return nil, err
		}
		actions = append(actions, action)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list actions: %w", err)
	}
	return actions, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAction(row rowScanner) (domain.Action, error) {
	var action domain.Action
	var description sql.NullString
	var entryPoint sql.NullString
	var paramsJSON []byte
	var notifyJSON []byte
	if err := row.Scan(&action.Pack, &action.Name, &description, &action.Enabled,
		&entryPoint, &action.RunnerType, &paramsJSON, &notifyJSON); err != nil {
		return domain.Action{}, err
	}
	action.Description = description.String
	action.EntryPoint = entryPoint.String
	params, err := decodeParameterSchema(paramsJSON)
	if err != nil {
		return domain.Action{}, fmt.Errorf("decode parameters: %w", err)
	}
	action.Parameters = params
	notify, err := decodeNotify(notifyJSON)
	if err != nil {
		return domain.Action{}, fmt.Errorf("decode notify: %w", err)
	}
	action.Notify = notify
	return action, nil
}
