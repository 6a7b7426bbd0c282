package models

import "time"

// SubmissionRecord 巡检完成后产出的结构化提交记录
// 交给外部持久化/工单协作方；核心只定义记录的形状
type SubmissionRecord struct {
	SubmissionID  string          `json:"submissionId"`
	SessionID     string          `json:"sessionId"`
	CampusID      string          `json:"campusId"`
	AuditorID     string          `json:"auditorId"`
	Family        AuditFamily     `json:"family"`
	StartedAt     time.Time       `json:"startedAt"`
	CompletedAt   time.Time       `json:"completedAt"`
	Rating        Rating          `json:"rating"`
	Results       map[string]bool `json:"results"`
	Issues        []Issue         `json:"issues"`
	AssignedRooms []string        `json:"assignedRooms,omitempty"`
	Period        int             `json:"period,omitempty"`
}
