package httpapi

import (
	"net/http"

	"campus-audit/internal/repository"
)

// SubmissionsHandler 历史提交记录查询接口
type SubmissionsHandler struct {
	submissionsRepo *repository.SubmissionsRepository
}

func NewSubmissionsHandler(submissionsRepo *repository.SubmissionsRepository) *SubmissionsHandler {
	return &SubmissionsHandler{submissionsRepo: submissionsRepo}
}

// ListSubmissions GET /audit/api/v1/campuses/{campusId}/submissions?limit=
func (h *SubmissionsHandler) ListSubmissions(w http.ResponseWriter, r *http.Request, campusID string) {
	limit := parseInt(r.URL.Query().Get("limit"), 50)

	items, err := h.submissionsRepo.ListSubmissions(r.Context(), campusID, limit)
	if err != nil {
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}
	if items == nil {
		items = []repository.SubmissionSummary{}
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"items": items,
		"total": len(items),
	}))
}
