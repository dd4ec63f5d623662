package analysis

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"loanlens/internal/pipeline"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

// Upsert writes the analysis for an application, replacing any previous
// verdict. One analysis per application; re-running analysis overwrites
// in place.
func (r *PostgresRepo) Upsert(ctx context.Context, a *Analysis) error {
	result, err := json.Marshal(a.Result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	query := `INSERT INTO loan_analyses (application_id, result, status)
		VALUES ($1, $2, $3)
		ON CONFLICT (application_id) DO UPDATE SET result = $2, status = $3, created_at = NOW()
		RETURNING id, created_at`
	return r.db.QueryRowContext(ctx, query, a.ApplicationID, result, a.Status).
		Scan(&a.ID, &a.CreatedAt)
}

func (r *PostgresRepo) FindByApplicationID(ctx context.Context, applicationID string) (*Analysis, error) {
	query := `SELECT id, application_id, result, status, created_at FROM loan_analyses WHERE application_id = $1`

	var a Analysis
	var result []byte
	err := r.db.QueryRowContext(ctx, query, applicationID).
		Scan(&a.ID, &a.ApplicationID, &result, &a.Status, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: analysis for application %s", pipeline.ErrNotFound, applicationID)
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(result, &a.Result); err != nil {
		return nil, fmt.Errorf("unmarshal result: %w", err)
	}
	return &a, nil
}

func (r *PostgresRepo) DeleteByApplicationID(ctx context.Context, applicationID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM loan_analyses WHERE application_id = $1`, applicationID)
	return err
}

func (r *PostgresRepo) DeleteAll(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM loan_analyses`)
	return err
}

func (r *PostgresRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM loan_analyses`).Scan(&count)
	return count, err
}
