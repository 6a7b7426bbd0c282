package models

import "time"

// IssueStatus 问题记录状态
type IssueStatus string

const (
	IssueOpen       IssueStatus = "open"
	IssueDocumented IssueStatus = "documented"
)

// PhotoRef 照片引用（不透明存储键/URL，核心不做采集和上传）
type PhotoRef string

// Issue 巡检问题记录
// 检查项回答"不通过"时创建；InstantRed/PhotoRequired 在创建时从
// CheckDefinition 拷贝，目录后续修改不影响进行中的巡检
type Issue struct {
	IssueID       string      `json:"issueId"`
	CheckID       string      `json:"checkId"`
	ZoneID        string      `json:"zoneId"`
	SectionName   string      `json:"sectionName"`
	Explanation   string      `json:"explanation"`
	Photos        []PhotoRef  `json:"photos"`
	Status        IssueStatus `json:"status"`
	InstantRed    bool        `json:"instantRed"`
	PhotoRequired bool        `json:"photoRequired"`
	SLATier       *int        `json:"slaTier,omitempty"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}
