package session

import (
	"time"

	"campus-audit/internal/ledger"
	"campus-audit/internal/models"
)

// Snapshot 会话快照（可 JSON 序列化，用于崩溃恢复）
// 区域集整体入快照：恢复后不依赖目录当前版本，和问题记录
// 创建时拷贝检查项标志的语义保持一致
type Snapshot struct {
	SessionID     string             `json:"sessionId"`
	CampusID      string             `json:"campusId"`
	AuditorID     string             `json:"auditorId"`
	Family        models.AuditFamily `json:"family"`
	StartedAt     time.Time          `json:"startedAt"`
	CompletedAt   *time.Time         `json:"completedAt,omitempty"`
	State         State              `json:"state"`
	Zones         []*models.Zone     `json:"zones"`
	ZoneIndex     int                `json:"zoneIndex"`
	Results       map[string]bool    `json:"results"`
	Issues        []models.Issue     `json:"issues"`
	TerminalReady *bool              `json:"terminalReady,omitempty"`
	AssignedRooms []string           `json:"assignedRooms,omitempty"`
	Period        int                `json:"period,omitempty"`
	Rating        models.Rating      `json:"rating,omitempty"`

	SubmissionID    string `json:"submissionId,omitempty"`
	StreamPublished bool   `json:"streamPublished,omitempty"`
}

// ToSnapshot 导出快照
func (s *Session) ToSnapshot() Snapshot {
	return Snapshot{
		SessionID:     s.SessionID,
		CampusID:      s.CampusID,
		AuditorID:     s.AuditorID,
		Family:        s.Family,
		StartedAt:     s.StartedAt,
		CompletedAt:   s.CompletedAt,
		State:         s.State,
		Zones:         s.Zones,
		ZoneIndex:     s.zoneIdx,
		Results:       s.Results,
		Issues:        s.Ledger.Issues(),
		TerminalReady: s.TerminalReady,
		AssignedRooms: s.AssignedRooms,
		Period:        s.Period,
		Rating:        s.Rating,

		SubmissionID:    s.SubmissionID,
		StreamPublished: s.StreamPublished,
	}
}

// FromSnapshot 从快照恢复会话
func FromSnapshot(snap Snapshot, limits Limits) *Session {
	results := snap.Results
	if results == nil {
		results = make(map[string]bool)
	}
	return &Session{
		SessionID:     snap.SessionID,
		CampusID:      snap.CampusID,
		AuditorID:     snap.AuditorID,
		Family:        snap.Family,
		StartedAt:     snap.StartedAt,
		CompletedAt:   snap.CompletedAt,
		State:         snap.State,
		Zones:         snap.Zones,
		Results:       results,
		Ledger:        restoreLedger(limits, snap.Issues),
		TerminalReady: snap.TerminalReady,
		AssignedRooms: snap.AssignedRooms,
		Period:        snap.Period,
		Rating:        snap.Rating,

		SubmissionID:    snap.SubmissionID,
		StreamPublished: snap.StreamPublished,

		zoneIdx: snap.ZoneIndex,
		limits:  limits,
	}
}

func restoreLedger(limits Limits, issues []models.Issue) *ledger.Ledger {
	return ledger.Restore(limits.MaxExplanationLen, limits.MaxPhotos, issues)
}
