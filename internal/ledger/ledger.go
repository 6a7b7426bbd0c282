package ledger

import (
	"errors"
	"fmt"
	"time"

	"campus-audit/internal/models"

	"github.com/google/uuid"
)

var (
	// ErrIssueNotFound 未知 issue_id
	ErrIssueNotFound = errors.New("issue not found")
	// ErrPhotoNotFound 照片下标越界
	ErrPhotoNotFound = errors.New("photo not found")
)

// IssueMeta 创建问题记录时从 CheckDefinition 拷贝的元数据
// 拷贝而不是引用：目录后续修改不回溯影响进行中的巡检
type IssueMeta struct {
	ZoneID        string
	SectionName   string
	InstantRed    bool
	PhotoRequired bool
	SLATier       *int
}

// Ledger 问题台账（单会话内，纯内存，无 I/O）
// 每个失败的检查项对应一条问题记录，提交前必须补齐说明和（按需）照片
type Ledger struct {
	maxExplanationLen int
	maxPhotos         int

	issues  map[string]*models.Issue // issue_id -> issue
	byCheck map[string]string        // check_id -> issue_id
	order   []string                 // issue_id，创建顺序
}

// New 创建台账
// maxExplanationLen <= 0 时取 500；maxPhotos <= 0 表示不限
func New(maxExplanationLen, maxPhotos int) *Ledger {
	if maxExplanationLen <= 0 {
		maxExplanationLen = 500
	}
	return &Ledger{
		maxExplanationLen: maxExplanationLen,
		maxPhotos:         maxPhotos,
		issues:            make(map[string]*models.Issue),
		byCheck:           make(map[string]string),
	}
}

// Restore 从快照的记录列表重建台账（列表顺序即创建顺序）
func Restore(maxExplanationLen, maxPhotos int, issues []models.Issue) *Ledger {
	l := New(maxExplanationLen, maxPhotos)
	for i := range issues {
		issue := issues[i]
		l.issues[issue.IssueID] = &issue
		l.byCheck[issue.CheckID] = issue.IssueID
		l.order = append(l.order, issue.IssueID)
	}
	return l
}

// Open 为失败的检查项开一条问题记录（幂等）
// 同一 check_id 已有记录时返回既有 issue_id，不重复创建
func (l *Ledger) Open(checkID string, meta IssueMeta) string {
	if existing, ok := l.byCheck[checkID]; ok {
		return existing
	}

	now := time.Now()
	issue := &models.Issue{
		IssueID:       uuid.New().String(),
		CheckID:       checkID,
		ZoneID:        meta.ZoneID,
		SectionName:   meta.SectionName,
		Status:        models.IssueOpen,
		InstantRed:    meta.InstantRed,
		PhotoRequired: meta.PhotoRequired,
		SLATier:       meta.SLATier,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	l.issues[issue.IssueID] = issue
	l.byCheck[checkID] = issue.IssueID
	l.order = append(l.order, issue.IssueID)
	return issue.IssueID
}

// SetExplanation 填写/修改说明文字
func (l *Ledger) SetExplanation(issueID, text string) error {
	issue, ok := l.issues[issueID]
	if !ok {
		return ErrIssueNotFound
	}
	if len([]rune(text)) > l.maxExplanationLen {
		return fmt.Errorf("explanation exceeds %d characters", l.maxExplanationLen)
	}
	issue.Explanation = text
	l.touch(issue)
	return nil
}

// AddPhoto 追加照片引用
func (l *Ledger) AddPhoto(issueID string, photo models.PhotoRef) error {
	issue, ok := l.issues[issueID]
	if !ok {
		return ErrIssueNotFound
	}
	if l.maxPhotos > 0 && len(issue.Photos) >= l.maxPhotos {
		return fmt.Errorf("issue already has %d photos (max %d)", len(issue.Photos), l.maxPhotos)
	}
	issue.Photos = append(issue.Photos, photo)
	l.touch(issue)
	return nil
}

// RemovePhoto 按下标移除照片引用
func (l *Ledger) RemovePhoto(issueID string, index int) error {
	issue, ok := l.issues[issueID]
	if !ok {
		return ErrIssueNotFound
	}
	if index < 0 || index >= len(issue.Photos) {
		return ErrPhotoNotFound
	}
	issue.Photos = append(issue.Photos[:index], issue.Photos[index+1:]...)
	l.touch(issue)
	return nil
}

// Close 按 issue_id 移除记录
func (l *Ledger) Close(issueID string) error {
	issue, ok := l.issues[issueID]
	if !ok {
		return ErrIssueNotFound
	}
	l.remove(issue)
	return nil
}

// RemoveByCheckID 按 check_id 移除记录（回答由"不通过"改回"通过"时使用）
// 无对应记录时是 no-op
func (l *Ledger) RemoveByCheckID(checkID string) {
	issueID, ok := l.byCheck[checkID]
	if !ok {
		return
	}
	l.remove(l.issues[issueID])
}

// Get 按 issue_id 查询
func (l *Ledger) Get(issueID string) (*models.Issue, bool) {
	issue, ok := l.issues[issueID]
	return issue, ok
}

// GetByCheckID 按 check_id 查询
func (l *Ledger) GetByCheckID(checkID string) (*models.Issue, bool) {
	issueID, ok := l.byCheck[checkID]
	if !ok {
		return nil, false
	}
	return l.issues[issueID], true
}

// IsComplete 记录是否补齐：说明非空 且（不要求照片 或 至少一张照片）
func (l *Ledger) IsComplete(issueID string) bool {
	issue, ok := l.issues[issueID]
	if !ok {
		return false
	}
	return issueComplete(issue)
}

// AllComplete 全部记录是否补齐（空台账视为补齐）
func (l *Ledger) AllComplete() bool {
	for _, issue := range l.issues {
		if !issueComplete(issue) {
			return false
		}
	}
	return true
}

// Issues 按创建顺序返回全部记录（拷贝）
func (l *Ledger) Issues() []models.Issue {
	out := make([]models.Issue, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, *l.issues[id])
	}
	return out
}

// Count 记录数
func (l *Ledger) Count() int {
	return len(l.issues)
}

func issueComplete(issue *models.Issue) bool {
	if issue.Explanation == "" {
		return false
	}
	if issue.PhotoRequired && len(issue.Photos) == 0 {
		return false
	}
	return true
}

// touch 更新时间戳并刷新 open/documented 状态
func (l *Ledger) touch(issue *models.Issue) {
	issue.UpdatedAt = time.Now()
	if issueComplete(issue) {
		issue.Status = models.IssueDocumented
	} else {
		issue.Status = models.IssueOpen
	}
}

func (l *Ledger) remove(issue *models.Issue) {
	delete(l.issues, issue.IssueID)
	delete(l.byCheck, issue.CheckID)
	for i, id := range l.order {
		if id == issue.IssueID {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
}
