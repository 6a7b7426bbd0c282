package httpapi

import (
	"bytes"
	"fmt"
	"strings"

	"campus-audit/internal/models"

	"github.com/xuri/excelize/v2"
)

// RoomImportHeader 房间清单导入模板表头
var RoomImportHeader = []string{
	"Room Name",
	"Room Type",
}

const roomSheetName = "Rooms"

// GenerateRoomImportTemplate 生成房间清单导入模板 Excel 文件
func GenerateRoomImportTemplate() ([]byte, error) {
	return generateRoomExcel(nil)
}

// GenerateRoomExport 生成房间清单导出 Excel 文件
func GenerateRoomExport(rooms []models.Room) ([]byte, error) {
	return generateRoomExcel(rooms)
}

func generateRoomExcel(rooms []models.Room) ([]byte, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(roomSheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range RoomImportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(roomSheetName, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(roomSheetName, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
	}

	if err := f.SetColWidth(roomSheetName, "A", "A", 30); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to set column width: %w", err)
	}
	if err := f.SetColWidth(roomSheetName, "B", "B", 15); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to set column width: %w", err)
	}

	for i, room := range rooms {
		row := i + 2
		if err := f.SetCellValue(roomSheetName, fmt.Sprintf("A%d", row), room.RoomName); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set room name cell: %w", err)
		}
		if err := f.SetCellValue(roomSheetName, fmt.Sprintf("B%d", row), string(room.RoomType)); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set room type cell: %w", err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write excel file: %w", err)
	}
	f.Close()
	return buf.Bytes(), nil
}

// RoomImportError 单行导入错误
type RoomImportError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ParseRoomImport 解析上传的房间清单 Excel
// 返回按文件顺序的房间列表（顺序即轮转的稳定目录顺序）和逐行错误
func ParseRoomImport(data []byte) ([]models.Room, []RoomImportError, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse excel file: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, nil, fmt.Errorf("excel file has no sheets")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) < 2 {
		return nil, nil, nil
	}

	headerMap := make(map[string]int)
	for i, h := range rows[0] {
		headerMap[strings.TrimSpace(h)] = i
	}
	nameCol, ok := headerMap["Room Name"]
	if !ok {
		return nil, nil, fmt.Errorf("missing required column: Room Name")
	}
	typeCol, ok := headerMap["Room Type"]
	if !ok {
		return nil, nil, fmt.Errorf("missing required column: Room Type")
	}

	cell := func(row []string, col int) string {
		if col >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[col])
	}

	var rooms []models.Room
	var importErrors []RoomImportError
	seen := make(map[string]bool)
	for i, row := range rows[1:] {
		rowNum := i + 2

		name := cell(row, nameCol)
		roomType := strings.ToLower(cell(row, typeCol))
		if name == "" && roomType == "" {
			continue
		}
		if name == "" {
			importErrors = append(importErrors, RoomImportError{Row: rowNum, Message: "room name is empty"})
			continue
		}
		if seen[name] {
			importErrors = append(importErrors, RoomImportError{Row: rowNum, Message: fmt.Sprintf("duplicate room name: %s", name)})
			continue
		}
		if !models.ValidRoomType(roomType) {
			importErrors = append(importErrors, RoomImportError{Row: rowNum, Message: fmt.Sprintf("invalid room type: %s", roomType)})
			continue
		}

		seen[name] = true
		rooms = append(rooms, models.Room{
			RoomName: name,
			RoomType: models.RoomType(roomType),
		})
	}

	return rooms, importErrors, nil
}
