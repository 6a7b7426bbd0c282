package rotation

import (
	"fmt"
	"testing"

	"campus-audit/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeRooms(n int) []models.Room {
	rooms := make([]models.Room, n)
	for i := 0; i < n; i++ {
		rooms[i] = models.Room{
			CampusID:  "campus-1",
			RoomName:  fmt.Sprintf("Room %d", i+1),
			RoomType:  models.RoomLearning,
			SortOrder: i,
		}
	}
	return rooms
}

func TestAssign_FullCoverageOverCycle(t *testing.T) {
	// 一个完整周期内，每个房间恰好被分配一次，无重复
	planner := NewPlanner(4, nil)
	rooms := makeRooms(10)

	seen := make(map[string]int)
	for period := 1; period <= 4; period++ {
		for _, room := range planner.Assign(rooms, period) {
			seen[room.RoomName]++
		}
	}

	require.Len(t, seen, 10)
	for name, count := range seen {
		assert.Equal(t, 1, count, "room %s assigned %d times", name, count)
	}
}

func TestAssign_Deterministic(t *testing.T) {
	planner := NewPlanner(4, nil)
	rooms := makeRooms(13)

	first := planner.Assign(rooms, 3)
	second := planner.Assign(rooms, 3)

	assert.Equal(t, first, second)
}

func TestAssign_SamePeriodModuloCycle(t *testing.T) {
	// period 5 与 period 1 落在同一个桶
	planner := NewPlanner(4, nil)
	rooms := makeRooms(8)

	assert.Equal(t, planner.Assign(rooms, 1), planner.Assign(rooms, 5))
	assert.Equal(t, planner.Assign(rooms, 2), planner.Assign(rooms, 6))
}

func TestAssign_EmptyRooms(t *testing.T) {
	planner := NewPlanner(4, nil)

	assert.Empty(t, planner.Assign(nil, 1))
	assert.Empty(t, planner.Assign([]models.Room{}, 2))
}

func TestAssign_CycleLongerThanRoomList(t *testing.T) {
	// K 大于房间数时，后面的期合法地返回空
	planner := NewPlanner(4, nil)
	rooms := makeRooms(2)

	assert.Len(t, planner.Assign(rooms, 1), 1)
	assert.Len(t, planner.Assign(rooms, 2), 1)
	assert.Empty(t, planner.Assign(rooms, 3))
	assert.Empty(t, planner.Assign(rooms, 4))
}

func TestAssign_AlwaysTypesEveryPeriod(t *testing.T) {
	// 洗手间每期固定巡检，其余房间正常轮转
	planner := NewPlanner(4, []string{"restroom"})
	rooms := makeRooms(8)
	rooms = append(rooms, models.Room{
		CampusID: "campus-1", RoomName: "Restroom A", RoomType: models.RoomRestroom, SortOrder: 8,
	})

	seen := make(map[string]int)
	for period := 1; period <= 4; period++ {
		assigned := planner.Assign(rooms, period)

		found := false
		for _, room := range assigned {
			seen[room.RoomName]++
			if room.RoomName == "Restroom A" {
				found = true
			}
		}
		assert.True(t, found, "restroom missing in period %d", period)
	}

	assert.Equal(t, 4, seen["Restroom A"])
	for _, room := range makeRooms(8) {
		assert.Equal(t, 1, seen[room.RoomName])
	}
}

func TestAssign_InvalidPeriod(t *testing.T) {
	planner := NewPlanner(4, nil)
	rooms := makeRooms(4)

	assert.Empty(t, planner.Assign(rooms, 0))
	assert.Empty(t, planner.Assign(rooms, -1))
}

func TestAssign_StableOrderDrift(t *testing.T) {
	// 追加房间只影响追加点之后的分桶，前缀房间的桶不变
	planner := NewPlanner(4, nil)
	rooms := makeRooms(8)

	before := make(map[string]int)
	for period := 1; period <= 4; period++ {
		for _, room := range planner.Assign(rooms, period) {
			before[room.RoomName] = period
		}
	}

	extended := append(makeRooms(8), models.Room{
		CampusID: "campus-1", RoomName: "Room 9", RoomType: models.RoomLearning, SortOrder: 8,
	})

	after := make(map[string]int)
	for period := 1; period <= 4; period++ {
		for _, room := range planner.Assign(extended, period) {
			after[room.RoomName] = period
		}
	}

	for i := 1; i <= 8; i++ {
		name := fmt.Sprintf("Room %d", i)
		assert.Equal(t, before[name], after[name])
	}
	assert.NotZero(t, after["Room 9"])
}

func TestNewPlanner_ClampsCycleLength(t *testing.T) {
	planner := NewPlanner(0, nil)
	assert.Equal(t, 1, planner.CycleLength())

	// K=1 时每期覆盖全部房间
	rooms := makeRooms(3)
	assert.Len(t, planner.Assign(rooms, 1), 3)
	assert.Len(t, planner.Assign(rooms, 7), 3)
}
