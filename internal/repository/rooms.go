package repository

import (
	"context"
	"database/sql"
	"fmt"

	"campus-audit/internal/models"

	"go.uber.org/zap"
)

// RoomsRepository 房间清单仓库（对应 rooms 表）
// 清单按 sort_order 稳定排序，是轮转分桶的基准顺序
type RoomsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRoomsRepository 创建房间清单仓库
func NewRoomsRepository(db *sql.DB, logger *zap.Logger) *RoomsRepository {
	return &RoomsRepository{
		db:     db,
		logger: logger,
	}
}

// ListRooms 按稳定顺序返回园区全部房间
func (r *RoomsRepository) ListRooms(ctx context.Context, campusID string) ([]models.Room, error) {
	if campusID == "" {
		return nil, fmt.Errorf("campus_id is required")
	}

	query := `
		SELECT campus_id, room_name, room_type, sort_order
		FROM rooms
		WHERE campus_id = $1
		ORDER BY sort_order, room_name
	`

	rows, err := r.db.QueryContext(ctx, query, campusID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rooms: %w", err)
	}
	defer rows.Close()

	var rooms []models.Room
	for rows.Next() {
		var room models.Room
		if err := rows.Scan(&room.CampusID, &room.RoomName, &room.RoomType, &room.SortOrder); err != nil {
			return nil, fmt.Errorf("failed to scan room: %w", err)
		}
		rooms = append(rooms, room)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rooms: %w", err)
	}

	return rooms, nil
}

// ReplaceRooms 整体替换园区房间清单（Excel 导入用，事务内删旧插新）
// 导入顺序即 sort_order，保持轮转分桶的稳定性
func (r *RoomsRepository) ReplaceRooms(ctx context.Context, campusID string, rooms []models.Room) error {
	if campusID == "" {
		return fmt.Errorf("campus_id is required")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM rooms WHERE campus_id = $1`, campusID); err != nil {
		return fmt.Errorf("failed to delete rooms: %w", err)
	}

	insert := `
		INSERT INTO rooms (campus_id, room_name, room_type, sort_order)
		VALUES ($1, $2, $3, $4)
	`
	for i, room := range rooms {
		if room.RoomName == "" {
			return fmt.Errorf("room_name is required (row %d)", i+1)
		}
		if !models.ValidRoomType(string(room.RoomType)) {
			return fmt.Errorf("invalid room_type for room %s: %s", room.RoomName, room.RoomType)
		}
		if _, err := tx.ExecContext(ctx, insert, campusID, room.RoomName, room.RoomType, i); err != nil {
			return fmt.Errorf("failed to insert room %s: %w", room.RoomName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rooms: %w", err)
	}

	r.logger.Info("Rooms replaced",
		zap.String("campus_id", campusID),
		zap.Int("count", len(rooms)),
	)
	return nil
}
