package models

// RoomType 房间类型
type RoomType string

const (
	RoomLearning  RoomType = "learning"
	RoomRestroom  RoomType = "restroom"
	RoomCommon    RoomType = "common"
	RoomOffice    RoomType = "office"
	RoomKitchen   RoomType = "kitchen"
	RoomStorage   RoomType = "storage"
	RoomVestibule RoomType = "vestibule"
	RoomHallway   RoomType = "hallway"
	RoomOther     RoomType = "other"
)

// ValidRoomType 校验房间类型
func ValidRoomType(t string) bool {
	switch RoomType(t) {
	case RoomLearning, RoomRestroom, RoomCommon, RoomOffice,
		RoomKitchen, RoomStorage, RoomVestibule, RoomHallway, RoomOther:
		return true
	}
	return false
}

// Room 房间领域模型（对应 rooms 表）
// 房间名在园区内唯一；SortOrder 保证轮转分桶的稳定顺序
type Room struct {
	CampusID  string   `db:"campus_id" json:"campusId"`
	RoomName  string   `db:"room_name" json:"roomName"`
	RoomType  RoomType `db:"room_type" json:"roomType"`
	SortOrder int      `db:"sort_order" json:"sortOrder"`
}
