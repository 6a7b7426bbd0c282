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

func setupMockRoomsDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *RoomsRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	repo := NewRoomsRepository(db, zap.NewNop())
	return db, mock, repo
}

func TestListRooms_Success(t *testing.T) {
	db, mock, repo := setupMockRoomsDB(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"campus_id", "room_name", "room_type", "sort_order"}).
		AddRow("campus-1", "Room 101", "learning", 0).
		AddRow("campus-1", "Restroom A", "restroom", 1).
		AddRow("campus-1", "Staff Office", "office", 2)

	mock.ExpectQuery(`SELECT`).
		WithArgs("campus-1").
		WillReturnRows(rows)

	rooms, err := repo.ListRooms(context.Background(), "campus-1")

	require.NoError(t, err)
	require.Len(t, rooms, 3)
	assert.Equal(t, "Room 101", rooms[0].RoomName)
	assert.Equal(t, models.RoomRestroom, rooms[1].RoomType)
	assert.Equal(t, 2, rooms[2].SortOrder)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListRooms_MissingCampusID(t *testing.T) {
	db, mock, repo := setupMockRoomsDB(t)
	defer db.Close()

	rooms, err := repo.ListRooms(context.Background(), "")

	assert.Error(t, err)
	assert.Nil(t, rooms)
	assert.Contains(t, err.Error(), "campus_id is required")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceRooms_Success(t *testing.T) {
	db, mock, repo := setupMockRoomsDB(t)
	defer db.Close()

	rooms := []models.Room{
		{RoomName: "Room 101", RoomType: models.RoomLearning},
		{RoomName: "Restroom A", RoomType: models.RoomRestroom},
	}

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM rooms`).
		WithArgs("campus-1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(`INSERT INTO rooms`).
		WithArgs("campus-1", "Room 101", "learning", 0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO rooms`).
		WithArgs("campus-1", "Restroom A", "restroom", 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.ReplaceRooms(context.Background(), "campus-1", rooms)

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceRooms_InvalidRoomType(t *testing.T) {
	db, mock, repo := setupMockRoomsDB(t)
	defer db.Close()

	rooms := []models.Room{
		{RoomName: "Room 101", RoomType: "garage"},
	}

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM rooms`).
		WithArgs("campus-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.ReplaceRooms(context.Background(), "campus-1", rooms)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid room_type")

	require.NoError(t, mock.ExpectationsWereMet())
}
