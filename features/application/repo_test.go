package application

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loanlens/internal/pipeline"
)

func TestPostgresRepo_SaveRoundTripsDocuments(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO loan_applications`).
		WithArgs("Asha", 31, 720, "asha@example.com", "/uploads/x.png", StatusPending, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("app-1", "2026-09-01T10:00:00Z"))

	repo := NewPostgresRepo(db)
	app := &Application{
		Name:        "Asha",
		Age:         31,
		CreditScore: 720,
		Email:       "asha@example.com",
		PhotoURL:    "/uploads/x.png",
		Status:      StatusPending,
		Documents: Documents{
			Payslips: []DocumentRef{{FileName: "p.pdf", ChunkIDs: []string{"c1"}}},
		},
	}
	require.NoError(t, repo.Save(context.Background(), app))
	assert.Equal(t, "app-1", app.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_FindByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	docs := `{"payslips":[{"file_name":"p.pdf","chunk_ids":["c1","c2"]}],"bank_statements":null}`
	rows := sqlmock.NewRows([]string{"id", "name", "age", "credit_score", "email", "photo_url", "status", "documents", "created_at"}).
		AddRow("app-1", "Asha", 31, 720, "asha@example.com", "", StatusPending, []byte(docs), "2026-09-01T10:00:00Z")
	mock.ExpectQuery(`SELECT .+ FROM loan_applications WHERE id`).WithArgs("app-1").WillReturnRows(rows)

	repo := NewPostgresRepo(db)
	app, err := repo.FindByID(context.Background(), "app-1")
	require.NoError(t, err)
	require.Len(t, app.Documents.Payslips, 1)
	assert.Equal(t, []string{"c1", "c2"}, app.Documents.Payslips[0].ChunkIDs)
}

func TestPostgresRepo_FindByID_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT .+ FROM loan_applications WHERE id`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	repo := NewPostgresRepo(db)
	_, err = repo.FindByID(context.Background(), "missing")
	assert.True(t, errors.Is(err, pipeline.ErrNotFound))
}

func TestPostgresRepo_DeleteByID_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`DELETE FROM loan_applications WHERE id`).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewPostgresRepo(db)
	err = repo.DeleteByID(context.Background(), "missing")
	assert.True(t, errors.Is(err, pipeline.ErrNotFound))
}

func TestPostgresRepo_UpdateStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`UPDATE loan_applications SET status`).
		WithArgs(StatusAnalyzed, "app-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewPostgresRepo(db)
	assert.NoError(t, repo.UpdateStatus(context.Background(), "app-1", StatusAnalyzed))
	assert.NoError(t, mock.ExpectationsWereMet())
}
