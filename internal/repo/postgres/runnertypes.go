package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/runforge-labs/actiond/internal/domain"
	"github.com/runforge-labs/actiond/internal/repo"
)

type RunnerTypeStore struct {
	db DB
}

func NewRunnerTypeStore(db DB) *RunnerTypeStore {
	if db == nil {
		return nil
	}
	return &RunnerTypeStore{db: db}
}

func (s *RunnerTypeStore) Upsert(ctx context.Context, rt domain.RunnerType) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("runner type store not initialized")
	}
	if err := rt.Validate(); err != nil {
		return err
	}
	paramsJSON, err := encodeParameterSchema(rt.RunnerParameters)
	if err != nil {
		return fmt.Errorf("encode runner parameters: %w", err)
	}
	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO runner_types (
			name,
			description,
			enabled,
			runner_parameters,
			runner_module
		) VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (name) DO UPDATE SET
			description = EXCLUDED.description,
			enabled = EXCLUDED.enabled,
			runner_parameters = EXCLUDED.runner_parameters,
			runner_module = EXCLUDED.runner_module`,
		strings.TrimSpace(rt.Name),
		nullIfEmpty(rt.Description),
		rt.Enabled,
		paramsJSON,
		strings.TrimSpace(rt.RunnerModule),
	)
	if err != nil {
		return fmt.Errorf("upsert runner type: %w", err)
	}
	return nil
}

func (s *RunnerTypeStore) Get(ctx context.Context, name string) (domain.RunnerType, error) {
	if s == nil || s.db == nil {
		return domain.RunnerType{}, fmt.Errorf("runner type store not initialized")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.RunnerType{}, fmt.Errorf("runner type name is required")
	}
	row := s.db.QueryRowContext(
		ctx,
		`SELECT name, description, enabled, runner_parameters, runner_module
		 FROM runner_types
		 WHERE name = $1`,
		name,
	)
	rt, err := scanRunnerType(row)
	if err != nil {
		return domain.RunnerType{}, handleNotFound(err)
	}
	return rt, nil
}

func (s *RunnerTypeStore) List(ctx context.Context, filter repo.RunnerTypeFilter) ([]domain.RunnerType, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("runner type store not initialized")
	}
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := s.db.QueryContext(
		ctx,
		fmt.Sprintf(`SELECT name, description, enabled, runner_parameters, runner_module
		 FROM runner_types
		 ORDER BY name LIMIT %d`, limit),
	)
	if err != nil {
		return nil, fmt.Errorf("list runner types: %w", err)
	}
	defer func() { _ = rows.Close() }()

	types := make([]domain.RunnerType, 0)
	for rows.Next() {
		rt, err := scanRunnerType(rows)
		if err != nil {
			return nil, err
		}
		types = append(types, rt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runner types: %w", err)
	}
	return types, nil
}

func scanRunnerType(row rowScanner) (domain.RunnerType, error) {
	var rt domain.RunnerType
	var description sql.NullString
	var paramsJSON []byte
	if err := row.Scan(&rt.Name, &description, &rt.Enabled, &paramsJSON, &rt.RunnerModule); err != nil {
		return domain.RunnerType{}, err
	}
	rt.Description = description.String
	params, err := decodeParameterSchema(paramsJSON)
	if err != nil {
		return domain.RunnerType{}, fmt.Errorf("decode runner parameters: %w", err)
	}
	rt.RunnerParameters = params
	return rt, nil
}
