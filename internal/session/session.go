package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"campus-audit/internal/ledger"
	"campus-audit/internal/models"
	"campus-audit/internal/rating"

	"github.com/google/uuid"
)

// State 会话状态机状态
type State string

const (
	StateNotStarted       State = "not_started"
	StateInProgress       State = "in_progress"
	StateAwaitingTerminal State = "awaiting_terminal_question"
	StateCompleted        State = "completed"
	StateDiscarded        State = "discarded"
)

// Reason 完成校验失败的原因码（展示由 UI 协作方负责）
type Reason string

const (
	ReasonZonesIncomplete    Reason = "zones-incomplete"
	ReasonIssuesIncomplete   Reason = "issues-incomplete"
	ReasonTerminalUnanswered Reason = "terminal-question-unanswered"
)

var (
	// ErrCheckNotFound check_id 不在会话的活动区域集内
	ErrCheckNotFound = errors.New("check not found in active zones")
	// ErrSessionFinished 会话已结束（Completed/Discarded），不再接受变更
	ErrSessionFinished = errors.New("session already finished")
	// ErrNoTerminalQuestion 该巡检家族没有终审问题
	ErrNoTerminalQuestion = errors.New("audit family has no terminal question")
)

// Limits 问题记录约束（从配置传入）
type Limits struct {
	MaxExplanationLen int
	MaxPhotos         int
}

// Params 创建会话的参数
type Params struct {
	SessionID     string // 为空时自动生成
	CampusID      string
	AuditorID     string
	Family        models.AuditFamily
	Zones         []*models.Zone // 本次巡检的区域集（必选 + 所选可选 + 动态实例）
	AssignedRooms []string       // 保洁巡检的分配房间（展示/提交用）
	Period        int            // 轮转期号（保洁/家具巡检）
	Limits        Limits
}

// Session 巡检会话（单写者：一个审计员一个会话，无跨会话共享状态）
// 状态机：NotStarted → InProgress → AwaitingTerminalQuestion → Completed，
// 任一未完成状态可显式 Discard
type Session struct {
	SessionID     string
	CampusID      string
	AuditorID     string
	Family        models.AuditFamily
	StartedAt     time.Time
	CompletedAt   *time.Time
	State         State
	Zones         []*models.Zone
	Results       map[string]bool // check_id -> 是否通过
	Ledger        *ledger.Ledger
	TerminalReady *bool
	AssignedRooms []string
	Period        int
	Rating        models.Rating // 完成时写入

	// 首次完成尝试时生成并固定，外部环节失败后重试复用同一 ID，
	// 落库行 / 流消息 / 工单记录三方才不会各自漂移
	SubmissionID    string
	StreamPublished bool

	zoneIdx int
	limits  Limits
}

// New 创建会话并进入 InProgress
func New(p Params) (*Session, error) {
	if p.CampusID == "" {
		return nil, fmt.Errorf("campus_id is required")
	}
	if p.AuditorID == "" {
		return nil, fmt.Errorf("auditor_id is required")
	}
	if len(p.Zones) == 0 {
		return nil, fmt.Errorf("at least one zone is required")
	}

	sessionID := p.SessionID
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	return &Session{
		SessionID:     sessionID,
		CampusID:      p.CampusID,
		AuditorID:     p.AuditorID,
		Family:        p.Family,
		StartedAt:     time.Now(),
		State:         StateInProgress,
		Zones:         p.Zones,
		Results:       make(map[string]bool),
		Ledger:        ledger.New(p.Limits.MaxExplanationLen, p.Limits.MaxPhotos),
		AssignedRooms: p.AssignedRooms,
		Period:        p.Period,
		limits:        p.Limits,
	}, nil
}

// findCheck 在活动区域集内定位检查项
func (s *Session) findCheck(checkID string) (*models.Zone, *models.CheckDefinition, bool) {
	for _, zone := range s.Zones {
		if chk, ok := zone.FindCheck(checkID); ok {
			return zone, chk, true
		}
	}
	return nil, nil, false
}

// RecordAnswer 记录一条检查结果（可重复作答覆盖）
// "不通过"开问题记录（幂等）；改回"通过"移除对应记录。
// 所有区域答完且问题记录补齐后自动进入 AwaitingTerminalQuestion
func (s *Session) RecordAnswer(checkID string, pass bool) error {
	if s.State != StateInProgress && s.State != StateAwaitingTerminal {
		return ErrSessionFinished
	}

	zone, chk, ok := s.findCheck(checkID)
	if !ok {
		return ErrCheckNotFound
	}

	s.Results[checkID] = pass

	if pass {
		s.Ledger.RemoveByCheckID(checkID)
	} else {
		sectionName, _ := zone.SectionOf(checkID)
		s.Ledger.Open(checkID, ledger.IssueMeta{
			ZoneID:        zone.ZoneID,
			SectionName:   sectionName,
			InstantRed:    chk.InstantRed,
			PhotoRequired: chk.PhotoRequired,
			SLATier:       chk.SLATier,
		})
	}

	s.maybeAwaitTerminal()
	return nil
}

// maybeAwaitTerminal 区域全部完成（答完 + 问题记录补齐）后进入终审态。
// 单向：进入终审态后又开出新问题不回退，完成仍由 CanComplete 把关
func (s *Session) maybeAwaitTerminal() {
	if s.State == StateInProgress && s.allZonesAnswered() && s.Ledger.AllComplete() {
		s.State = StateAwaitingTerminal
	}
}

// SetExplanation 填写问题说明
func (s *Session) SetExplanation(issueID, text string) error {
	if s.State != StateInProgress && s.State != StateAwaitingTerminal {
		return ErrSessionFinished
	}
	if err := s.Ledger.SetExplanation(issueID, text); err != nil {
		return err
	}
	s.maybeAwaitTerminal()
	return nil
}

// AddPhoto 追加问题照片引用
func (s *Session) AddPhoto(issueID string, photo models.PhotoRef) error {
	if s.State != StateInProgress && s.State != StateAwaitingTerminal {
		return ErrSessionFinished
	}
	if err := s.Ledger.AddPhoto(issueID, photo); err != nil {
		return err
	}
	s.maybeAwaitTerminal()
	return nil
}

// RemovePhoto 移除问题照片引用
func (s *Session) RemovePhoto(issueID string, index int) error {
	if s.State != StateInProgress && s.State != StateAwaitingTerminal {
		return ErrSessionFinished
	}
	return s.Ledger.RemovePhoto(issueID, index)
}

// CurrentZone 当前区域指针
func (s *Session) CurrentZone() *models.Zone {
	if s.zoneIdx < 0 || s.zoneIdx >= len(s.Zones) {
		return nil
	}
	return s.Zones[s.zoneIdx]
}

// AdvanceZone 推进当前区域指针（到最后一个区域后不再前进）
func (s *Session) AdvanceZone() {
	if s.zoneIdx < len(s.Zones)-1 {
		s.zoneIdx++
	}
}

// ZoneComplete 区域是否完成：所有检查已作答，且该区域的问题记录已补齐
func (s *Session) ZoneComplete(zoneID string) bool {
	for _, zone := range s.Zones {
		if zone.ZoneID != zoneID {
			continue
		}
		for _, chk := range zone.Checks() {
			if _, answered := s.Results[chk.CheckID]; !answered {
				return false
			}
		}
		for _, issue := range s.Ledger.Issues() {
			if issue.ZoneID == zoneID && !s.Ledger.IsComplete(issue.IssueID) {
				return false
			}
		}
		return true
	}
	return false
}

// allZonesAnswered 所有区域的所有检查是否已作答
func (s *Session) allZonesAnswered() bool {
	for _, zone := range s.Zones {
		for _, chk := range zone.Checks() {
			if _, answered := s.Results[chk.CheckID]; !answered {
				return false
			}
		}
	}
	return true
}

// HasTerminalQuestion 该家族是否有终审 "tour ready" 问题
func (s *Session) HasTerminalQuestion() bool {
	return s.Family != models.FamilyFurniture
}

// AnswerTerminal 回答终审问题（可改答）
func (s *Session) AnswerTerminal(ready bool) error {
	if s.State != StateAwaitingTerminal {
		if s.State == StateInProgress {
			return fmt.Errorf("zones are not complete yet")
		}
		return ErrSessionFinished
	}
	if !s.HasTerminalQuestion() {
		return ErrNoTerminalQuestion
	}
	s.TerminalReady = &ready
	return nil
}

// CanComplete 完成前的校验，返回全部未满足的原因码（空表示可以完成）
func (s *Session) CanComplete() []Reason {
	var reasons []Reason
	if !s.allZonesAnswered() {
		reasons = append(reasons, ReasonZonesIncomplete)
	}
	if !s.Ledger.AllComplete() {
		reasons = append(reasons, ReasonIssuesIncomplete)
	}
	if s.HasTerminalQuestion() && s.TerminalReady == nil {
		reasons = append(reasons, ReasonTerminalUnanswered)
	}
	return reasons
}

// EvaluateForSubmission 完成校验 + 计算评级（不改状态）
// 外部提交失败时会话留在 AwaitingTerminalQuestion，重试安全
func (s *Session) EvaluateForSubmission(policy rating.Policy) (models.Rating, error) {
	if s.State != StateAwaitingTerminal {
		if s.State == StateInProgress {
			return "", fmt.Errorf("invalid transition: %s", ReasonZonesIncomplete)
		}
		return "", ErrSessionFinished
	}
	if reasons := s.CanComplete(); len(reasons) > 0 {
		parts := make([]string, len(reasons))
		for i, r := range reasons {
			parts[i] = string(r)
		}
		return "", fmt.Errorf("invalid transition: %s", strings.Join(parts, ", "))
	}

	failed := rating.CollectFailed(s.Results, s.Zones)
	return policy.Evaluate(rating.Input{
		Failed:        failed,
		TerminalReady: s.TerminalReady,
	}), nil
}

// MarkCompleted 外部提交成功后冻结会话
func (s *Session) MarkCompleted(r models.Rating) error {
	if s.State != StateAwaitingTerminal {
		return ErrSessionFinished
	}
	now := time.Now()
	s.Rating = r
	s.CompletedAt = &now
	s.State = StateCompleted
	return nil
}

// Discard 显式放弃会话（吸收态；已完成的会话不可放弃）
func (s *Session) Discard() error {
	if s.State == StateCompleted {
		return fmt.Errorf("cannot discard a completed session")
	}
	s.State = StateDiscarded
	return nil
}
