package application

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

func (r *PostgresRepo) Save(ctx context.Context, app *Application) error {
	docs, err := json.Marshal(app.Documents)
	if err != nil {
		return fmt.Errorf("marshal documents: %w", err)
	}

	query := `INSERT INTO loan_applications (name, age, credit_score, email, photo_url, status, documents)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id, created_at`
	return r.db.QueryRowContext(ctx, query,
		app.Name, app.Age, app.CreditScore, app.Email, app.PhotoURL, app.Status, docs,
	).Scan(&app.ID, &app.CreatedAt)
}

func (r *PostgresRepo) FindByID(ctx context.Context, id string) (*Application, error) {
	query := `SELECT id, name, age, credit_score, email, photo_url, status, documents, created_at
		FROM loan_applications WHERE id = $1`

	var app Application
	var docs []byte
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&app.ID, &app.Name, &app.Age, &app.CreditScore, &app.Email,
		&app.PhotoURL, &app.Status, &docs, &app.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: application %s", pipeline.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(docs, &app.Documents); err != nil {
		return nil, fmt.Errorf("unmarshal documents: %w", err)
	}
	return &app, nil
}

func (r *PostgresRepo) List(ctx context.Context) ([]Application, error) {
	query := `SELECT id, name, age, credit_score, email, photo_url, status, documents, created_at
		FROM loan_applications ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var apps []Application
	for rows.Next() {
		var app Application
		var docs []byte
		if err := rows.Scan(
			&app.ID, &app.Name, &app.Age, &app.CreditScore, &app.Email,
			&app.PhotoURL, &app.Status, &docs, &app.CreatedAt,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(docs, &app.Documents); err != nil {
			return nil, fmt.Errorf("unmarshal documents: %w", err)
		}
		apps = append(apps, app)
	}
	return apps, rows.Err()
}

func (r *PostgresRepo) UpdateStatus(ctx context.Context, id, status string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE loan_applications SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: application %s", pipeline.ErrNotFound, id)
	}
	return nil
}

func (r *PostgresRepo) DeleteByID(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM loan_applications WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: application %s", pipeline.ErrNotFound, id)
	}
	return nil
}

func (r *PostgresRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM loan_applications`).Scan(&count)
	return count, err
}
