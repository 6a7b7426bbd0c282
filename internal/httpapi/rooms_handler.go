package httpapi

import (
	"fmt"
	"io"
	"net/http"

	"campus-audit/internal/models"
	"campus-audit/internal/repository"

	"go.uber.org/zap"
)

// RoomsHandler 房间清单管理接口
// 清单顺序即轮转分桶的稳定目录顺序，整表替换而不是逐行编辑
type RoomsHandler struct {
	roomsRepo *repository.RoomsRepository
	logger    *zap.Logger
}

func NewRoomsHandler(roomsRepo *repository.RoomsRepository, logger *zap.Logger) *RoomsHandler {
	return &RoomsHandler{roomsRepo: roomsRepo, logger: logger}
}

// ListRooms GET /audit/api/v1/campuses/{campusId}/rooms
func (h *RoomsHandler) ListRooms(w http.ResponseWriter, r *http.Request, campusID string) {
	rooms, err := h.roomsRepo.ListRooms(r.Context(), campusID)
	if err != nil {
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"items": rooms,
		"total": len(rooms),
	}))
}

// replaceRoomsRequest 整表替换请求体
type replaceRoomsRequest struct {
	Rooms []struct {
		RoomName string `json:"roomName"`
		RoomType string `json:"roomType"`
	} `json:"rooms"`
}

// ReplaceRooms PUT /audit/api/v1/campuses/{campusId}/rooms
func (h *RoomsHandler) ReplaceRooms(w http.ResponseWriter, r *http.Request, campusID string) {
	var req replaceRoomsRequest
	if err := readBodyJSON(r, 4<<20, &req); err != nil {
		writeJSON(w, http.StatusOK, Fail(fmt.Sprintf("invalid request body: %v", err)))
		return
	}

	rooms := make([]models.Room, 0, len(req.Rooms))
	for _, room := range req.Rooms {
		rooms = append(rooms, models.Room{
			RoomName: room.RoomName,
			RoomType: models.RoomType(room.RoomType),
		})
	}

	if err := h.roomsRepo.ReplaceRooms(r.Context(), campusID, rooms); err != nil {
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"total": len(rooms)}))
}

// ImportRooms POST /audit/api/v1/campuses/{campusId}/rooms/import
// multipart 上传 .xlsx，解析成功的行整表替换该园区房间清单
func (h *RoomsHandler) ImportRooms(w http.ResponseWriter, r *http.Request, campusID string) {
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		writeJSON(w, http.StatusOK, Fail(fmt.Sprintf("failed to parse multipart form: %v", err)))
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusOK, Fail("file is required"))
		return
	}
	defer file.Close()

	fileBytes, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusOK, Fail(fmt.Sprintf("failed to read file: %v", err)))
		return
	}

	rooms, importErrors, err := ParseRoomImport(fileBytes)
	if err != nil {
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}

	if len(rooms) > 0 {
		if err := h.roomsRepo.ReplaceRooms(r.Context(), campusID, rooms); err != nil {
			writeJSON(w, http.StatusOK, Fail(err.Error()))
			return
		}
	}

	h.logger.Info("Room inventory imported",
		zap.String("campus_id", campusID),
		zap.Int("imported", len(rooms)),
		zap.Int("errors", len(importErrors)),
	)

	errorList := importErrors
	if errorList == nil {
		errorList = []RoomImportError{}
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"imported": len(rooms),
		"errors":   errorList,
	}))
}

// ExportRooms GET /audit/api/v1/campuses/{campusId}/rooms/export
func (h *RoomsHandler) ExportRooms(w http.ResponseWriter, r *http.Request, campusID string) {
	rooms, err := h.roomsRepo.ListRooms(r.Context(), campusID)
	if err != nil {
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}

	data, err := GenerateRoomExport(rooms)
	if err != nil {
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}
	writeExcel(w, fmt.Sprintf("rooms_%s.xlsx", campusID), data)
}

// ImportTemplate GET /audit/api/v1/rooms/import-template
func (h *RoomsHandler) ImportTemplate(w http.ResponseWriter, r *http.Request) {
	data, err := GenerateRoomImportTemplate()
	if err != nil {
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}
	writeExcel(w, "room_import_template.xlsx", data)
}

func writeExcel(w http.ResponseWriter, filename string, data []byte) {
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
