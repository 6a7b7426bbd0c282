package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"campus-audit/internal/models"

	"go.uber.org/zap"
)

// SubmissionsRepository 提交记录仓库（对应 audit_submissions / audit_issues 表）
type SubmissionsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSubmissionsRepository 创建提交记录仓库
func NewSubmissionsRepository(db *sql.DB, logger *zap.Logger) *SubmissionsRepository {
	return &SubmissionsRepository{
		db:     db,
		logger: logger,
	}
}

// CreateSubmission 写入提交记录及其问题明细（事务内）
// session_id 唯一约束 + ON CONFLICT DO NOTHING：外部环节失败后
// 重试落库不会产生重复提交
func (r *SubmissionsRepository) CreateSubmission(ctx context.Context, record *models.SubmissionRecord) error {
	if record.CampusID == "" {
		return fmt.Errorf("campus_id is required")
	}
	if record.SubmissionID == "" {
		return fmt.Errorf("submission_id is required")
	}

	resultsJSON, err := json.Marshal(record.Results)
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	roomsJSON, err := json.Marshal(record.AssignedRooms)
	if err != nil {
		return fmt.Errorf("failed to marshal assigned rooms: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	insertSubmission := `
		INSERT INTO audit_submissions (
			submission_id, session_id, campus_id, auditor_id, audit_family,
			started_at, completed_at, rating, results, assigned_rooms, period
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (session_id) DO NOTHING
	`
	if _, err := tx.ExecContext(ctx, insertSubmission,
		record.SubmissionID,
		record.SessionID,
		record.CampusID,
		record.AuditorID,
		string(record.Family),
		record.StartedAt,
		record.CompletedAt,
		string(record.Rating),
		resultsJSON,
		roomsJSON,
		record.Period,
	); err != nil {
		return fmt.Errorf("failed to insert submission: %w", err)
	}

	insertIssue := `
		INSERT INTO audit_issues (
			issue_id, submission_id, check_id, zone_id, section_name,
			explanation, photos, status, instant_red, photo_required, sla_tier,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (issue_id) DO NOTHING
	`
	for _, issue := range record.Issues {
		photosJSON, err := json.Marshal(issue.Photos)
		if err != nil {
			return fmt.Errorf("failed to marshal photos: %w", err)
		}
		if _, err := tx.ExecContext(ctx, insertIssue,
			issue.IssueID,
			record.SubmissionID,
			issue.CheckID,
			issue.ZoneID,
			issue.SectionName,
			issue.Explanation,
			photosJSON,
			string(issue.Status),
			issue.InstantRed,
			issue.PhotoRequired,
			issue.SLATier,
			issue.CreatedAt,
			issue.UpdatedAt,
		); err != nil {
			return fmt.Errorf("failed to insert issue %s: %w", issue.IssueID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit submission: %w", err)
	}

	r.logger.Info("Submission stored",
		zap.String("submission_id", record.SubmissionID),
		zap.String("campus_id", record.CampusID),
		zap.String("rating", string(record.Rating)),
		zap.Int("issue_count", len(record.Issues)),
	)
	return nil
}

// SubmissionSummary 提交记录摘要（列表查询）
type SubmissionSummary struct {
	SubmissionID string `json:"submissionId"`
	CampusID     string `json:"campusId"`
	AuditorID    string `json:"auditorId"`
	AuditFamily  string `json:"auditFamily"`
	Rating       string `json:"rating"`
	CompletedAt  string `json:"completedAt"`
	IssueCount   int    `json:"issueCount"`
}

// ListSubmissions 按完成时间倒序返回园区提交记录摘要
func (r *SubmissionsRepository) ListSubmissions(ctx context.Context, campusID string, limit int) ([]SubmissionSummary, error) {
	if campusID == "" {
		return nil, fmt.Errorf("campus_id is required")
	}
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT
			s.submission_id,
			s.campus_id,
			s.auditor_id,
			s.audit_family,
			s.rating,
			s.completed_at,
			(SELECT COUNT(*) FROM audit_issues i WHERE i.submission_id = s.submission_id) AS issue_count
		FROM audit_submissions s
		WHERE s.campus_id = $1
		ORDER BY s.completed_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, campusID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query submissions: %w", err)
	}
	defer rows.Close()

	var items []SubmissionSummary
	for rows.Next() {
		var item SubmissionSummary
		var completedAt sql.NullTime
		if err := rows.Scan(
			&item.SubmissionID,
			&item.CampusID,
			&item.AuditorID,
			&item.AuditFamily,
			&item.Rating,
			&completedAt,
			&item.IssueCount,
		); err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		if completedAt.Valid {
			item.CompletedAt = completedAt.Time.UTC().Format("2006-01-02T15:04:05Z")
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate submissions: %w", err)
	}

	return items, nil
}
