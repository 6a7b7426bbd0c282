package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"campus-audit/internal/ledger"
	"campus-audit/internal/models"
	"campus-audit/internal/service"
	"campus-audit/internal/session"

	"go.uber.org/zap"
)

// AuditHandler 巡检会话相关接口
type AuditHandler struct {
	svc    *service.AuditService
	logger *zap.Logger
}

func NewAuditHandler(svc *service.AuditService, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{svc: svc, logger: logger}
}

// beginRequest 开始巡检请求体
type beginRequest struct {
	CampusID        string   `json:"campusId"`
	AuditorID       string   `json:"auditorId"`
	Family          string   `json:"family"`
	OptionalZoneIDs []string `json:"optionalZoneIds"`
	RestroomCount   int      `json:"restroomCount"`
}

// BeginSession POST /audit/api/v1/sessions
func (h *AuditHandler) BeginSession(w http.ResponseWriter, r *http.Request) {
	var req beginRequest
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeJSON(w, http.StatusOK, Fail(fmt.Sprintf("invalid request body: %v", err)))
		return
	}

	sess, err := h.svc.BeginAudit(r.Context(), service.BeginParams{
		CampusID:        req.CampusID,
		AuditorID:       req.AuditorID,
		Family:          models.AuditFamily(req.Family),
		OptionalZoneIDs: req.OptionalZoneIDs,
		RestroomCount:   req.RestroomCount,
	})
	if err != nil {
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, Ok(sess.ToSnapshot()))
}

// GetSession GET /audit/api/v1/sessions/{id}
func (h *AuditHandler) GetSession(w http.ResponseWriter, r *http.Request, sessionID string) {
	snap, err := h.svc.GetSession(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			writeJSON(w, http.StatusNotFound, Fail("session not found"))
			return
		}
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, Ok(snap))
}

// answerRequest 记录检查结果请求体
type answerRequest struct {
	CheckID string `json:"checkId"`
	Pass    bool   `json:"pass"`
}

// RecordAnswer POST /audit/api/v1/sessions/{id}/answers
func (h *AuditHandler) RecordAnswer(w http.ResponseWriter, r *http.Request, sessionID string) {
	var req answerRequest
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeJSON(w, http.StatusOK, Fail(fmt.Sprintf("invalid request body: %v", err)))
		return
	}
	if req.CheckID == "" {
		writeJSON(w, http.StatusOK, Fail("checkId is required"))
		return
	}

	sess, err := h.svc.RecordAnswer(r.Context(), sessionID, req.CheckID, req.Pass)
	if err != nil {
		h.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(sess.ToSnapshot()))
}

// explanationRequest 问题说明请求体
type explanationRequest struct {
	Text string `json:"text"`
}

// SetExplanation PUT /audit/api/v1/sessions/{id}/issues/{issueId}/explanation
func (h *AuditHandler) SetExplanation(w http.ResponseWriter, r *http.Request, sessionID, issueID string) {
	var req explanationRequest
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeJSON(w, http.StatusOK, Fail(fmt.Sprintf("invalid request body: %v", err)))
		return
	}

	if err := h.svc.SetExplanation(r.Context(), sessionID, issueID, req.Text); err != nil {
		h.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"updated": true}))
}

// photoRequest 照片引用请求体（核心只接受不透明引用，不处理上传）
type photoRequest struct {
	Photo string `json:"photo"`
}

// AddPhoto POST /audit/api/v1/sessions/{id}/issues/{issueId}/photos
func (h *AuditHandler) AddPhoto(w http.ResponseWriter, r *http.Request, sessionID, issueID string) {
	var req photoRequest
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeJSON(w, http.StatusOK, Fail(fmt.Sprintf("invalid request body: %v", err)))
		return
	}
	if req.Photo == "" {
		writeJSON(w, http.StatusOK, Fail("photo is required"))
		return
	}

	if err := h.svc.AddPhoto(r.Context(), sessionID, issueID, models.PhotoRef(req.Photo)); err != nil {
		h.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"added": true}))
}

// RemovePhoto DELETE /audit/api/v1/sessions/{id}/issues/{issueId}/photos/{index}
func (h *AuditHandler) RemovePhoto(w http.ResponseWriter, r *http.Request, sessionID, issueID string, index int) {
	if err := h.svc.RemovePhoto(r.Context(), sessionID, issueID, index); err != nil {
		h.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"removed": true}))
}

// terminalRequest 终审问题请求体
type terminalRequest struct {
	Ready bool `json:"ready"`
}

// AnswerTerminal POST /audit/api/v1/sessions/{id}/terminal
func (h *AuditHandler) AnswerTerminal(w http.ResponseWriter, r *http.Request, sessionID string) {
	var req terminalRequest
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeJSON(w, http.StatusOK, Fail(fmt.Sprintf("invalid request body: %v", err)))
		return
	}

	if err := h.svc.AnswerTerminal(r.Context(), sessionID, req.Ready); err != nil {
		h.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"answered": true}))
}

// AdvanceZone POST /audit/api/v1/sessions/{id}/advance
func (h *AuditHandler) AdvanceZone(w http.ResponseWriter, r *http.Request, sessionID string) {
	sess, err := h.svc.AdvanceZone(r.Context(), sessionID)
	if err != nil {
		h.writeSessionError(w, err)
		return
	}
	zone := sess.CurrentZone()
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"currentZone": zone,
	}))
}

// CompleteSession POST /audit/api/v1/sessions/{id}/complete
func (h *AuditHandler) CompleteSession(w http.ResponseWriter, r *http.Request, sessionID string) {
	record, err := h.svc.CompleteAudit(r.Context(), sessionID)
	if err != nil {
		h.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(record))
}

// DiscardSession POST /audit/api/v1/sessions/{id}/discard
func (h *AuditHandler) DiscardSession(w http.ResponseWriter, r *http.Request, sessionID string) {
	if err := h.svc.DiscardAudit(r.Context(), sessionID); err != nil {
		h.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"discarded": true}))
}

// PreviewRotation GET /audit/api/v1/rotation/preview?campusId=&family=
func (h *AuditHandler) PreviewRotation(w http.ResponseWriter, r *http.Request) {
	campusID := r.URL.Query().Get("campusId")
	family := r.URL.Query().Get("family")
	if campusID == "" || family == "" {
		writeJSON(w, http.StatusOK, Fail("campusId and family are required"))
		return
	}

	preview, err := h.svc.PreviewRotation(r.Context(), campusID, models.AuditFamily(family))
	if err != nil {
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, Ok(preview))
}

// writeSessionError 会话操作错误统一映射
func (h *AuditHandler) writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		writeJSON(w, http.StatusNotFound, Fail("session not found"))
	case errors.Is(err, session.ErrCheckNotFound),
		errors.Is(err, ledger.ErrIssueNotFound),
		errors.Is(err, ledger.ErrPhotoNotFound):
		writeJSON(w, http.StatusNotFound, Fail(err.Error()))
	default:
		writeJSON(w, http.StatusOK, Fail(err.Error()))
	}
}

// sessionSubPath 解析 /sessions/ 之后的路径段
func sessionSubPath(path, prefix string) []string {
	rest := strings.TrimPrefix(path, prefix)
	rest = strings.Trim(rest, "/")
	if rest == "" {
		return nil
	}
	return strings.Split(rest, "/")
}
