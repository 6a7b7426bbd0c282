package rotation

import (
	"campus-audit/internal/models"
)

// Planner 房间轮转计划器
// 把园区房间清单按固定周期 K 均摊到各期，保证每个房间在一个完整周期内
// 至少被巡检一次；AlwaysTypes 中的房间类型每期固定巡检（如洗手间）
//
// 算法：对稳定顺序（目录顺序，不在调用时重排）的轮转房间取 index mod K 分桶，
// assign(rooms, period) 返回桶号等于 (period-1) mod K 的房间。
// period 由外部提供（园区级单调递增计数器，不用日历周，避免漏检/补检偏移）
type Planner struct {
	cycleLength int
	alwaysTypes map[models.RoomType]bool
}

// NewPlanner 创建计划器（cycleLength < 1 时按 1 处理）
func NewPlanner(cycleLength int, alwaysTypes []string) *Planner {
	if cycleLength < 1 {
		cycleLength = 1
	}
	always := make(map[models.RoomType]bool, len(alwaysTypes))
	for _, t := range alwaysTypes {
		always[models.RoomType(t)] = true
	}
	return &Planner{
		cycleLength: cycleLength,
		alwaysTypes: always,
	}
}

// CycleLength 返回周期长度 K
func (p *Planner) CycleLength() int {
	return p.cycleLength
}

// Assign 返回指定期应巡检的房间子集
// 结果确定可重放：同一房间清单 + 同一 period 永远得到同一子集。
// rooms 为空返回空；K 大于轮转房间数时部分期合法地返回空（或只有固定房间）
func (p *Planner) Assign(rooms []models.Room, period int) []models.Room {
	if len(rooms) == 0 || period < 1 {
		return nil
	}

	bucket := (period - 1) % p.cycleLength

	var assigned []models.Room
	rotatingIdx := 0
	for _, room := range rooms {
		if p.alwaysTypes[room.RoomType] {
			assigned = append(assigned, room)
			continue
		}
		if rotatingIdx%p.cycleLength == bucket {
			assigned = append(assigned, room)
		}
		rotatingIdx++
	}

	return assigned
}

// RotatingCount 返回参与轮转（非固定）的房间数
func (p *Planner) RotatingCount(rooms []models.Room) int {
	n := 0
	for _, room := range rooms {
		if !p.alwaysTypes[room.RoomType] {
			n++
		}
	}
	return n
}
