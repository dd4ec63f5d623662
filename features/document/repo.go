package document

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Save(ctx context.Context, chunk *Chunk) error {
	query := `INSERT INTO document_chunks (file_name, chunk_index, chunk_text) VALUES ($1, $2, $3) RETURNING id`
	return r.db.QueryRowContext(ctx, query, chunk.FileName, chunk.ChunkIndex, chunk.Text).Scan(&chunk.ID)
}

func (r *PostgresRepo) FindByIDs(ctx context.Context, ids []string) ([]Chunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `SELECT id, file_name, chunk_index, chunk_text FROM document_chunks WHERE id = ANY($1)`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []Chunk
	for rows.Next() {
		var c Chunk
		if err := rows.Scan(&c.ID, &c.FileName, &c.ChunkIndex, &c.Text); err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

func (r *PostgresRepo) List(ctx context.Context) ([]Chunk, error) {
	query := `SELECT id, file_name, chunk_index, chunk_text, created_at FROM document_chunks ORDER BY file_name, chunk_index`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []Chunk
	for rows.Next() {
		var c Chunk
		if err := rows.Scan(&c.ID, &c.FileName, &c.ChunkIndex, &c.Text, &c.CreatedAt); err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

func (r *PostgresRepo) DeleteByID(ctx context.Context, id string) error {
	query := `DELETE FROM document_chunks WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

func (r *PostgresRepo) DeleteAll(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM document_chunks`)
	return err
}

func (r *PostgresRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM document_chunks`).Scan(&count)
	return count, err
}
