package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"campus-audit/internal/catalog"
	"campus-audit/internal/models"
	"campus-audit/internal/rating"
	"campus-audit/internal/repository"
	"campus-audit/internal/rotation"
	"campus-audit/internal/session"
	"campus-audit/internal/store"
	"campus-audit/internal/ticketing"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ============================================
// 模板 ID（目录文件 configs/catalog.yaml 中定义）
// ============================================

const (
	templateRestroom      = "restroom"
	templateAssignedRoom  = "assigned_room"
	templateFurnitureRoom = "furniture_room"
)

var (
	// ErrSessionNotFound 会话不存在（内存和快照存储都没有）
	ErrSessionNotFound = errors.New("session not found")
	// ErrZoneNotFound 区域引用无法解析
	ErrZoneNotFound = errors.New("zone not found")
)

// BeginParams 开始巡检的参数
type BeginParams struct {
	CampusID        string
	AuditorID       string
	Family          models.AuditFamily
	OptionalZoneIDs []string // 审计员勾选的可选区域
	RestroomCount   int      // 动态洗手间实例数（走查巡检）
}

// AuditService 巡检服务编排层
// 多审计员并发：每个会话独立持有，map 本身由互斥锁保护，
// 会话内部状态不跨会话共享
type AuditService struct {
	catalog         *catalog.Catalog
	planner         *rotation.Planner
	roomsRepo       *repository.RoomsRepository
	rotationRepo    *repository.RotationRepository
	submissionsRepo *repository.SubmissionsRepository
	sessionStore    *store.SessionStore
	redisClient     *redis.Client
	stream          string
	submitter       ticketing.Submitter
	amberThreshold  int
	limits          session.Limits
	logger          *zap.Logger

	mu       sync.Mutex
	sessions map[string]*session.Session
}

// NewAuditService 创建巡检服务
func NewAuditService(
	cat *catalog.Catalog,
	planner *rotation.Planner,
	roomsRepo *repository.RoomsRepository,
	rotationRepo *repository.RotationRepository,
	submissionsRepo *repository.SubmissionsRepository,
	sessionStore *store.SessionStore,
	redisClient *redis.Client,
	stream string,
	submitter ticketing.Submitter,
	amberThreshold int,
	limits session.Limits,
	logger *zap.Logger,
) *AuditService {
	return &AuditService{
		catalog:         cat,
		planner:         planner,
		roomsRepo:       roomsRepo,
		rotationRepo:    rotationRepo,
		submissionsRepo: submissionsRepo,
		sessionStore:    sessionStore,
		redisClient:     redisClient,
		stream:          stream,
		submitter:       submitter,
		amberThreshold:  amberThreshold,
		limits:          limits,
		logger:          logger,
		sessions:        make(map[string]*session.Session),
	}
}

// roomTemplateFor 轮转巡检家族对应的房间区域模板
func roomTemplateFor(family models.AuditFamily) (string, bool) {
	switch family {
	case models.FamilyCleanliness:
		return templateAssignedRoom, true
	case models.FamilyFurniture:
		return templateFurnitureRoom, true
	}
	return "", false
}

// BeginAudit 开始一次巡检：解析区域集并创建会话
// 必选区域总是包含；可选区域按勾选加入；轮转家族在此处折入本期分配房间
func (s *AuditService) BeginAudit(ctx context.Context, p BeginParams) (*session.Session, error) {
	if p.CampusID == "" {
		return nil, fmt.Errorf("campus_id is required")
	}
	if p.AuditorID == "" {
		return nil, fmt.Errorf("auditor_id is required")
	}
	switch p.Family {
	case models.FamilyWalkthrough, models.FamilyCleanliness, models.FamilyFurniture:
	default:
		return nil, fmt.Errorf("invalid audit family: %s", p.Family)
	}

	zones := s.catalog.MandatoryZones()

	for _, zoneID := range p.OptionalZoneIDs {
		zone, ok := s.catalog.ResolveZone(models.StaticZoneRef(zoneID))
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrZoneNotFound, zoneID)
		}
		if zone.Category != models.ZoneOptional {
			return nil, fmt.Errorf("zone %s is not optional", zoneID)
		}
		zones = append(zones, zone)
	}

	for i := 1; i <= p.RestroomCount; i++ {
		zone, ok := s.catalog.ResolveZone(models.TemplatedZoneRef(templateRestroom, i))
		if !ok {
			return nil, fmt.Errorf("%w: template %s", ErrZoneNotFound, templateRestroom)
		}
		zones = append(zones, zone)
	}

	var assignedRooms []string
	var period int
	if template, rotates := roomTemplateFor(p.Family); rotates {
		var err error
		period, err = s.rotationRepo.GetPeriod(ctx, p.CampusID, p.Family)
		if err != nil {
			return nil, fmt.Errorf("failed to load rotation period: %w", err)
		}

		rooms, err := s.roomsRepo.ListRooms(ctx, p.CampusID)
		if err != nil {
			return nil, fmt.Errorf("failed to load rooms: %w", err)
		}

		for _, room := range s.planner.Assign(rooms, period) {
			zone, ok := s.catalog.ResolveZone(models.RoomZoneRef(template, room))
			if !ok {
				return nil, fmt.Errorf("%w: template %s", ErrZoneNotFound, template)
			}
			zones = append(zones, zone)
			assignedRooms = append(assignedRooms, room.RoomName)
		}
	}

	sess, err := session.New(session.Params{
		CampusID:      p.CampusID,
		AuditorID:     p.AuditorID,
		Family:        p.Family,
		Zones:         zones,
		AssignedRooms: assignedRooms,
		Period:        period,
		Limits:        s.limits,
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.sessions[sess.SessionID] = sess
	s.mu.Unlock()

	if err := s.persist(ctx, sess); err != nil {
		s.logger.Warn("Failed to persist session snapshot",
			zap.String("session_id", sess.SessionID),
			zap.Error(err),
		)
	}

	s.logger.Info("Audit session started",
		zap.String("session_id", sess.SessionID),
		zap.String("campus_id", p.CampusID),
		zap.String("auditor_id", p.AuditorID),
		zap.String("family", string(p.Family)),
		zap.Int("zone_count", len(zones)),
		zap.Int("period", period),
	)
	return sess, nil
}

// getSession 取会话：内存优先，其次从快照存储恢复（进程重启后续跑）
func (s *AuditService) getSession(ctx context.Context, sessionID string) (*session.Session, error) {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	s.mu.Unlock()
	if ok {
		return sess, nil
	}

	snap, err := s.sessionStore.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrSnapshotNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	sess = session.FromSnapshot(*snap, s.limits)
	s.mu.Lock()
	s.sessions[sessionID] = sess
	s.mu.Unlock()

	s.logger.Info("Session restored from snapshot",
		zap.String("session_id", sessionID),
		zap.String("state", string(sess.State)),
	)
	return sess, nil
}

// persist 写入会话快照
func (s *AuditService) persist(ctx context.Context, sess *session.Session) error {
	return s.sessionStore.Save(ctx, sess.ToSnapshot())
}

// GetSession 查询会话快照（展示用）
func (s *AuditService) GetSession(ctx context.Context, sessionID string) (*session.Snapshot, error) {
	sess, err := s.getSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	snap := sess.ToSnapshot()
	return &snap, nil
}

// RecordAnswer 记录检查结果
func (s *AuditService) RecordAnswer(ctx context.Context, sessionID, checkID string, pass bool) (*session.Session, error) {
	sess, err := s.getSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := sess.RecordAnswer(checkID, pass); err != nil {
		return nil, err
	}
	if err := s.persist(ctx, sess); err != nil {
		s.logger.Warn("Failed to persist session snapshot",
			zap.String("session_id", sessionID), zap.Error(err))
	}
	return sess, nil
}

// SetExplanation 填写问题说明
func (s *AuditService) SetExplanation(ctx context.Context, sessionID, issueID, text string) error {
	sess, err := s.getSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := sess.SetExplanation(issueID, text); err != nil {
		return err
	}
	if err := s.persist(ctx, sess); err != nil {
		s.logger.Warn("Failed to persist session snapshot",
			zap.String("session_id", sessionID), zap.Error(err))
	}
	return nil
}

// AddPhoto 追加问题照片引用
func (s *AuditService) AddPhoto(ctx context.Context, sessionID, issueID string, photo models.PhotoRef) error {
	sess, err := s.getSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := sess.AddPhoto(issueID, photo); err != nil {
		return err
	}
	if err := s.persist(ctx, sess); err != nil {
		s.logger.Warn("Failed to persist session snapshot",
			zap.String("session_id", sessionID), zap.Error(err))
	}
	return nil
}

// RemovePhoto 移除问题照片引用
func (s *AuditService) RemovePhoto(ctx context.Context, sessionID, issueID string, index int) error {
	sess, err := s.getSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := sess.RemovePhoto(issueID, index); err != nil {
		return err
	}
	if err := s.persist(ctx, sess); err != nil {
		s.logger.Warn("Failed to persist session snapshot",
			zap.String("session_id", sessionID), zap.Error(err))
	}
	return nil
}

// AdvanceZone 推进当前区域指针
func (s *AuditService) AdvanceZone(ctx context.Context, sessionID string) (*session.Session, error) {
	sess, err := s.getSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	sess.AdvanceZone()
	if err := s.persist(ctx, sess); err != nil {
		s.logger.Warn("Failed to persist session snapshot",
			zap.String("session_id", sessionID), zap.Error(err))
	}
	return sess, nil
}

// AnswerTerminal 回答终审 "tour ready" 问题
func (s *AuditService) AnswerTerminal(ctx context.Context, sessionID string, ready bool) error {
	sess, err := s.getSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := sess.AnswerTerminal(ready); err != nil {
		return err
	}
	if err := s.persist(ctx, sess); err != nil {
		s.logger.Warn("Failed to persist session snapshot",
			zap.String("session_id", sessionID), zap.Error(err))
	}
	return nil
}

// CompleteAudit 完成巡检：评级 → 落库 → 发流 → 推工单 → 递增轮转期 → 冻结会话
// 任一外部环节失败则会话留在 AwaitingTerminalQuestion，轮转期不递增，重试安全
func (s *AuditService) CompleteAudit(ctx context.Context, sessionID string) (*models.SubmissionRecord, error) {
	sess, err := s.getSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	policy := rating.PolicyFor(sess.Family, s.amberThreshold)
	result, err := sess.EvaluateForSubmission(policy)
	if err != nil {
		return nil, err
	}

	// 提交 ID 在首次尝试时生成并固定在会话上：重试时落库行、
	// 流消息和工单记录引用同一个 ID
	if sess.SubmissionID == "" {
		sess.SubmissionID = uuid.New().String()
		if err := s.persist(ctx, sess); err != nil {
			s.logger.Warn("Failed to persist session snapshot",
				zap.String("session_id", sessionID), zap.Error(err))
		}
	}

	record := &models.SubmissionRecord{
		SubmissionID:  sess.SubmissionID,
		SessionID:     sess.SessionID,
		CampusID:      sess.CampusID,
		AuditorID:     sess.AuditorID,
		Family:        sess.Family,
		StartedAt:     sess.StartedAt,
		CompletedAt:   time.Now(),
		Rating:        result,
		Results:       sess.Results,
		Issues:        sess.Ledger.Issues(),
		AssignedRooms: sess.AssignedRooms,
		Period:        sess.Period,
	}

	if err := s.submissionsRepo.CreateSubmission(ctx, record); err != nil {
		return nil, fmt.Errorf("submission persistence failed: %w", err)
	}

	// 发布成功后置位，重试不会给下游重复发消息
	if !sess.StreamPublished {
		if _, err := store.PublishJSONToStream(ctx, s.redisClient, s.stream, record); err != nil {
			return nil, fmt.Errorf("submission publish failed: %w", err)
		}
		sess.StreamPublished = true
		if err := s.persist(ctx, sess); err != nil {
			s.logger.Warn("Failed to persist session snapshot",
				zap.String("session_id", sessionID), zap.Error(err))
		}
	}

	if err := s.submitter.Submit(ctx, record); err != nil {
		return nil, fmt.Errorf("ticketing hand-off failed: %w", err)
	}

	if _, rotates := roomTemplateFor(sess.Family); rotates {
		newPeriod, err := s.rotationRepo.IncrementPeriod(ctx, sess.CampusID, sess.Family)
		if err != nil {
			return nil, fmt.Errorf("rotation period increment failed: %w", err)
		}
		s.logger.Info("Rotation period advanced",
			zap.String("campus_id", sess.CampusID),
			zap.String("family", string(sess.Family)),
			zap.Int("period", newPeriod),
		)
	}

	if err := sess.MarkCompleted(result); err != nil {
		return nil, err
	}

	if err := s.sessionStore.Delete(ctx, sessionID); err != nil {
		s.logger.Warn("Failed to delete session snapshot",
			zap.String("session_id", sessionID), zap.Error(err))
	}
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	s.logger.Info("Audit completed",
		zap.String("session_id", sessionID),
		zap.String("campus_id", record.CampusID),
		zap.String("rating", string(result)),
		zap.Int("issue_count", len(record.Issues)),
	)
	return record, nil
}

// DiscardAudit 放弃巡检，释放全部会话状态，不产生任何提交
func (s *AuditService) DiscardAudit(ctx context.Context, sessionID string) error {
	sess, err := s.getSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := sess.Discard(); err != nil {
		return err
	}

	if err := s.sessionStore.Delete(ctx, sessionID); err != nil {
		s.logger.Warn("Failed to delete session snapshot",
			zap.String("session_id", sessionID), zap.Error(err))
	}
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	s.logger.Info("Audit discarded", zap.String("session_id", sessionID))
	return nil
}

// RotationPreview 本期轮转分配预览
type RotationPreview struct {
	Period        int           `json:"period"`
	CycleLength   int           `json:"cycleLength"`
	AssignedRooms []models.Room `json:"assignedRooms"`
}

// PreviewRotation 查询某园区某巡检家族当前轮转期的分配房间（只读，不递增）
func (s *AuditService) PreviewRotation(ctx context.Context, campusID string, family models.AuditFamily) (*RotationPreview, error) {
	if _, rotates := roomTemplateFor(family); !rotates {
		return nil, fmt.Errorf("audit family %s does not rotate rooms", family)
	}

	period, err := s.rotationRepo.GetPeriod(ctx, campusID, family)
	if err != nil {
		return nil, fmt.Errorf("failed to load rotation period: %w", err)
	}
	rooms, err := s.roomsRepo.ListRooms(ctx, campusID)
	if err != nil {
		return nil, fmt.Errorf("failed to load rooms: %w", err)
	}

	return &RotationPreview{
		Period:        period,
		CycleLength:   s.planner.CycleLength(),
		AssignedRooms: s.planner.Assign(rooms, period),
	}, nil
}

// RecoverSessions 启动时扫描快照存储，恢复进行中的会话
func (s *AuditService) RecoverSessions(ctx context.Context) (int, error) {
	keys, err := s.sessionStore.ListKeys(ctx)
	if err != nil {
		return 0, err
	}

	recovered := 0
	for _, key := range keys {
		sessionID := key[len(s.sessionStore.Key("")):]
		snap, err := s.sessionStore.Get(ctx, sessionID)
		if err != nil {
			s.logger.Warn("Failed to load session snapshot during recovery",
				zap.String("key", key), zap.Error(err))
			continue
		}
		if snap.State == session.StateCompleted || snap.State == session.StateDiscarded {
			continue
		}

		sess := session.FromSnapshot(*snap, s.limits)
		s.mu.Lock()
		s.sessions[sess.SessionID] = sess
		s.mu.Unlock()
		recovered++
	}

	if recovered > 0 {
		s.logger.Info("Recovered in-progress sessions", zap.Int("count", recovered))
	}
	return recovered, nil
}
