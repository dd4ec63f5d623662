package analysis

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loanlens/internal/pipeline"
)

func TestPostgresRepo_UpsertReplacesInPlace(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO loan_analyses .+ ON CONFLICT \(application_id\) DO UPDATE`).
		WithArgs("app-1", sqlmock.AnyArg(), StatusCompleted).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("an-1", "2026-09-01T10:00:00Z"))

	repo := NewPostgresRepo(db)
	a := &Analysis{ApplicationID: "app-1", Result: *consistentResult(), Status: StatusCompleted}
	require.NoError(t, repo.Upsert(context.Background(), a))
	assert.Equal(t, "an-1", a.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_FindByApplicationID_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT .+ FROM loan_analyses WHERE application_id`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	repo := NewPostgresRepo(db)
	_, err = repo.FindByApplicationID(context.Background(), "missing")
	assert.True(t, errors.Is(err, pipeline.ErrNotFound))
}

func TestPostgresRepo_FindByApplicationID_RoundTripsResult(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	result := `{"incomeAnalysis":{"monthlyIncome":50000,"annualIncome":600000,"incomeStability":"stable","averageMonthlyIncome":48000}}`
	rows := sqlmock.NewRows([]string{"id", "application_id", "result", "status", "created_at"}).
		AddRow("an-1", "app-1", []byte(result), StatusCompleted, "2026-09-01T10:00:00Z")
	mock.ExpectQuery(`SELECT .+ FROM loan_analyses WHERE application_id`).
		WithArgs("app-1").WillReturnRows(rows)

	repo := NewPostgresRepo(db)
	a, err := repo.FindByApplicationID(context.Background(), "app-1")
	require.NoError(t, err)
	require.NotNil(t, a.Result.IncomeAnalysis)
	assert.Equal(t, 50000.0, *a.Result.IncomeAnalysis.MonthlyIncome)
}
