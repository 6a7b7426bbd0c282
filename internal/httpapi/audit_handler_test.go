package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"campus-audit/internal/catalog"
	"campus-audit/internal/models"
	"campus-audit/internal/repository"
	"campus-audit/internal/rotation"
	"campus-audit/internal/service"
	"campus-audit/internal/session"
	"campus-audit/internal/store"
	"campus-audit/internal/ticketing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testCatalogYAML = `
version: 1
zones:
  - zone_id: z_entrance
    name: Entrance
    category: mandatory
    amber_eligible: true
    sections:
      - name: General
        checks:
          - check_id: c_clean
            prompt: Is the entrance clean?
          - check_id: c_photo
            prompt: Is the floor undamaged?
            photo_required: true
templates:
  - template_id: restroom
    name_pattern: "Restroom %d"
    category: mandatory
    amber_eligible: false
    sections:
      - name: Hygiene
        checks:
          - check_id: rr_dry
            prompt: Is the floor dry?
  - template_id: assigned_room
    name_pattern: "Room %s"
    category: mandatory
    amber_eligible: true
    sections:
      - name: Cleaning
        checks:
          - check_id: rm_clean
            prompt: Is the room cleaned?
  - template_id: furniture_room
    name_pattern: "Furniture %s"
    category: mandatory
    amber_eligible: true
    sections:
      - name: Furniture
        checks:
          - check_id: fr_stable
            prompt: Is the furniture stable?
`

func setupTestAPI(t *testing.T) (*Router, sqlmock.Sqlmock) {
	cat, err := catalog.Parse([]byte(testCatalogYAML))
	require.NoError(t, err)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	logger := zap.NewNop()
	roomsRepo := repository.NewRoomsRepository(db, logger)
	rotationRepo := repository.NewRotationRepository(db, logger)
	submissionsRepo := repository.NewSubmissionsRepository(db, logger)
	sessionStore := store.NewSessionStore(redisClient, "campus-audit:session:", time.Hour, logger)

	svc := service.NewAuditService(
		cat,
		rotation.NewPlanner(4, []string{"restroom"}),
		roomsRepo,
		rotationRepo,
		submissionsRepo,
		sessionStore,
		redisClient,
		"campus-audit:submissions",
		ticketing.NewNoopSubmitter(logger),
		1,
		session.Limits{MaxExplanationLen: 500},
		logger,
	)

	router := NewRouter(logger)
	router.RegisterAuditRoutes(NewAuditHandler(svc, logger))
	router.RegisterCatalogRoutes(NewCatalogHandler(cat))
	router.RegisterCampusRoutes(NewRoomsHandler(roomsRepo, logger), NewSubmissionsHandler(submissionsRepo))
	router.RegisterHealthRoute()
	return router, mock
}

func doJSON(t *testing.T, router *Router, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var envelope map[string]any
	if strings.Contains(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	}
	return rec, envelope
}

func beginWalkthrough(t *testing.T, router *Router) string {
	rec, envelope := doJSON(t, router, http.MethodPost, "/audit/api/v1/sessions", map[string]any{
		"campusId":  "campus-1",
		"auditorId": "auditor-1",
		"family":    "walkthrough",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, float64(ResultSuccess), envelope["code"])

	result := envelope["result"].(map[string]any)
	return result["sessionId"].(string)
}

func TestBeginAndGetSession(t *testing.T) {
	router, _ := setupTestAPI(t)

	sessionID := beginWalkthrough(t, router)

	rec, envelope := doJSON(t, router, http.MethodGet, "/audit/api/v1/sessions/"+sessionID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	result := envelope["result"].(map[string]any)
	assert.Equal(t, "in_progress", result["state"])
	assert.Equal(t, "campus-1", result["campusId"])

	rec, _ = doJSON(t, router, http.MethodGet, "/audit/api/v1/sessions/does-not-exist", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestIssueFlow(t *testing.T) {
	router, _ := setupTestAPI(t)
	sessionID := beginWalkthrough(t, router)

	// 失败作答开问题记录
	rec, envelope := doJSON(t, router, http.MethodPost,
		fmt.Sprintf("/audit/api/v1/sessions/%s/answers", sessionID),
		map[string]any{"checkId": "c_photo", "pass": false})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, float64(ResultSuccess), envelope["code"])

	issues := envelope["result"].(map[string]any)["issues"].([]any)
	require.Len(t, issues, 1)
	issueID := issues[0].(map[string]any)["issueId"].(string)

	base := fmt.Sprintf("/audit/api/v1/sessions/%s/issues/%s", sessionID, issueID)

	rec, envelope = doJSON(t, router, http.MethodPut, base+"/explanation",
		map[string]any{"text": "cracked tile near entrance"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, float64(ResultSuccess), envelope["code"])

	rec, envelope = doJSON(t, router, http.MethodPost, base+"/photos",
		map[string]any{"photo": "photos/entrance-1.jpg"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, float64(ResultSuccess), envelope["code"])

	rec, envelope = doJSON(t, router, http.MethodDelete, base+"/photos/0", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, float64(ResultSuccess), envelope["code"])

	// 未知 issue 返回 404
	rec, _ = doJSON(t, router, http.MethodPut,
		fmt.Sprintf("/audit/api/v1/sessions/%s/issues/unknown/explanation", sessionID),
		map[string]any{"text": "x"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCompleteFlow_Green(t *testing.T) {
	router, mock := setupTestAPI(t)
	sessionID := beginWalkthrough(t, router)

	for _, checkID := range []string{"c_clean", "c_photo"} {
		rec, envelope := doJSON(t, router, http.MethodPost,
			fmt.Sprintf("/audit/api/v1/sessions/%s/answers", sessionID),
			map[string]any{"checkId": checkID, "pass": true})
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, float64(ResultSuccess), envelope["code"])
	}

	rec, envelope := doJSON(t, router, http.MethodPost,
		fmt.Sprintf("/audit/api/v1/sessions/%s/terminal", sessionID),
		map[string]any{"ready": true})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, float64(ResultSuccess), envelope["code"])

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO audit_submissions`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	rec, envelope = doJSON(t, router, http.MethodPost,
		fmt.Sprintf("/audit/api/v1/sessions/%s/complete", sessionID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, float64(ResultSuccess), envelope["code"])

	result := envelope["result"].(map[string]any)
	assert.Equal(t, "GREEN", result["rating"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteFlow_IncompleteRejected(t *testing.T) {
	router, _ := setupTestAPI(t)
	sessionID := beginWalkthrough(t, router)

	rec, envelope := doJSON(t, router, http.MethodPost,
		fmt.Sprintf("/audit/api/v1/sessions/%s/complete", sessionID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(ResultError), envelope["code"])
	assert.Contains(t, envelope["message"], "invalid transition")
}

func TestDiscardSession(t *testing.T) {
	router, _ := setupTestAPI(t)
	sessionID := beginWalkthrough(t, router)

	rec, envelope := doJSON(t, router, http.MethodPost,
		fmt.Sprintf("/audit/api/v1/sessions/%s/discard", sessionID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, float64(ResultSuccess), envelope["code"])

	rec, _ = doJSON(t, router, http.MethodGet, "/audit/api/v1/sessions/"+sessionID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetCatalogZones(t *testing.T) {
	router, _ := setupTestAPI(t)

	rec, envelope := doJSON(t, router, http.MethodGet, "/audit/api/v1/catalog/zones", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	result := envelope["result"].(map[string]any)
	assert.Equal(t, float64(1), result["version"])
	assert.Len(t, result["mandatoryZones"].([]any), 1)
}

func TestListRoomsEndpoint(t *testing.T) {
	router, mock := setupTestAPI(t)

	mock.ExpectQuery(`SELECT`).
		WithArgs("campus-1").
		WillReturnRows(sqlmock.NewRows([]string{"campus_id", "room_name", "room_type", "sort_order"}).
			AddRow("campus-1", "Room 101", "learning", 0))

	rec, envelope := doJSON(t, router, http.MethodGet, "/audit/api/v1/campuses/campus-1/rooms", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	result := envelope["result"].(map[string]any)
	assert.Equal(t, float64(1), result["total"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestImportRoomsEndpoint(t *testing.T) {
	router, mock := setupTestAPI(t)

	fileBytes, err := GenerateRoomExport([]models.Room{
		{RoomName: "Room 101", RoomType: models.RoomLearning},
		{RoomName: "Restroom A", RoomType: models.RoomRestroom},
	})
	require.NoError(t, err)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "rooms.xlsx")
	require.NoError(t, err)
	_, err = part.Write(fileBytes)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM rooms`).
		WithArgs("campus-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO rooms`).
		WithArgs("campus-1", "Room 101", "learning", 0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO rooms`).
		WithArgs("campus-1", "Restroom A", "restroom", 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	req := httptest.NewRequest(http.MethodPost, "/audit/api/v1/campuses/campus-1/rooms/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Equal(t, float64(ResultSuccess), envelope["code"])

	result := envelope["result"].(map[string]any)
	assert.Equal(t, float64(2), result["imported"])
	assert.Empty(t, result["errors"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestImportTemplateDownload(t *testing.T) {
	router, _ := setupTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/audit/api/v1/rooms/import-template", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "spreadsheetml")
	assert.NotEmpty(t, rec.Body.Bytes())
}

func TestMethodNotAllowed(t *testing.T) {
	router, _ := setupTestAPI(t)

	rec, _ := doJSON(t, router, http.MethodDelete, "/audit/api/v1/sessions", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec, _ = doJSON(t, router, http.MethodPost, "/audit/api/v1/catalog/zones", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
