package repository

import (
	"context"
	"database/sql"
	"testing"

	"campus-audit/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupMockRotationDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *RotationRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	repo := NewRotationRepository(db, zap.NewNop())
	return db, mock, repo
}

func TestGetPeriod_Success(t *testing.T) {
	db, mock, repo := setupMockRotationDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT period`).
		WithArgs("campus-1", "cleanliness").
		WillReturnRows(sqlmock.NewRows([]string{"period"}).AddRow(7))

	period, err := repo.GetPeriod(context.Background(), "campus-1", models.FamilyCleanliness)

	require.NoError(t, err)
	assert.Equal(t, 7, period)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetPeriod_NoRowDefaultsToFirstPeriod(t *testing.T) {
	db, mock, repo := setupMockRotationDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT period`).
		WithArgs("campus-1", "cleanliness").
		WillReturnError(sql.ErrNoRows)

	period, err := repo.GetPeriod(context.Background(), "campus-1", models.FamilyCleanliness)

	require.NoError(t, err)
	assert.Equal(t, 1, period)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetPeriod_MissingCampusID(t *testing.T) {
	db, mock, repo := setupMockRotationDB(t)
	defer db.Close()

	_, err := repo.GetPeriod(context.Background(), "", models.FamilyCleanliness)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "campus_id is required")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIncrementPeriod_Success(t *testing.T) {
	db, mock, repo := setupMockRotationDB(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO rotation_periods`).
		WithArgs("campus-1", "cleanliness").
		WillReturnRows(sqlmock.NewRows([]string{"period"}).AddRow(8))

	period, err := repo.IncrementPeriod(context.Background(), "campus-1", models.FamilyCleanliness)

	require.NoError(t, err)
	assert.Equal(t, 8, period)
	require.NoError(t, mock.ExpectationsWereMet())
}
