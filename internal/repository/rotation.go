package repository

import (
	"context"
	"database/sql"
	"fmt"

	"campus-audit/internal/models"

	"go.uber.org/zap"
)

// RotationRepository 轮转期计数器仓库（对应 rotation_periods 表）
// 计数器按（园区, 巡检家族）单调递增：会话开始时读取，
// 提交成功后 +1；不用日历周，漏检/补检不会造成偏移
type RotationRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRotationRepository 创建轮转期仓库
func NewRotationRepository(db *sql.DB, logger *zap.Logger) *RotationRepository {
	return &RotationRepository{
		db:     db,
		logger: logger,
	}
}

// GetPeriod 读取当前期号；无记录时返回 1（首期）
func (r *RotationRepository) GetPeriod(ctx context.Context, campusID string, family models.AuditFamily) (int, error) {
	if campusID == "" {
		return 0, fmt.Errorf("campus_id is required")
	}

	query := `
		SELECT period
		FROM rotation_periods
		WHERE campus_id = $1 AND audit_family = $2
	`

	var period int
	err := r.db.QueryRowContext(ctx, query, campusID, string(family)).Scan(&period)
	if err != nil {
		if err == sql.ErrNoRows {
			return 1, nil
		}
		return 0, fmt.Errorf("failed to query rotation period: %w", err)
	}
	return period, nil
}

// IncrementPeriod 期号 +1 并返回新值
// 单条 upsert 原子完成：同园区并发开始的会话不会拿到同一个新期号
func (r *RotationRepository) IncrementPeriod(ctx context.Context, campusID string, family models.AuditFamily) (int, error) {
	if campusID == "" {
		return 0, fmt.Errorf("campus_id is required")
	}

	// 无记录时当前期为 1，完成后计数器落到 2
	query := `
		INSERT INTO rotation_periods (campus_id, audit_family, period)
		VALUES ($1, $2, 2)
		ON CONFLICT (campus_id, audit_family)
		DO UPDATE SET period = rotation_periods.period + 1, updated_at = NOW()
		RETURNING period
	`

	var period int
	if err := r.db.QueryRowContext(ctx, query, campusID, string(family)).Scan(&period); err != nil {
		return 0, fmt.Errorf("failed to increment rotation period: %w", err)
	}

	r.logger.Info("Rotation period advanced",
		zap.String("campus_id", campusID),
		zap.String("audit_family", string(family)),
		zap.Int("period", period),
	)
	return period, nil
}
