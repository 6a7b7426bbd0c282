package models

// Rating 巡检评级（红绿灯）
type Rating string

const (
	RatingGreen Rating = "GREEN"
	RatingAmber Rating = "AMBER"
	RatingRed   Rating = "RED"
)

// AuditFamily 巡检类型
// - walkthrough: 常规区域巡检（含 tour-ready 终审问题）
// - cleanliness: 保洁巡检（instant-red 语义更严格）
// - furniture: 家具/设施周期巡检（无终审问题）
type AuditFamily string

const (
	FamilyWalkthrough AuditFamily = "walkthrough"
	FamilyCleanliness AuditFamily = "cleanliness"
	FamilyFurniture   AuditFamily = "furniture"
)

// ZoneCategory 区域类别
type ZoneCategory string

const (
	ZoneMandatory ZoneCategory = "mandatory"
	ZoneOptional  ZoneCategory = "optional"
)

// CheckDefinition 检查项定义（目录静态数据，进程启动时加载，不可变）
type CheckDefinition struct {
	CheckID       string `yaml:"check_id" json:"checkId"`
	Prompt        string `yaml:"prompt" json:"prompt"`
	InstantRed    bool   `yaml:"instant_red" json:"instantRed"`
	PhotoRequired bool   `yaml:"photo_required" json:"photoRequired"`
	SLATier       *int   `yaml:"sla_tier" json:"slaTier,omitempty"` // 1-4，nullable
}

// Section 区域内的检查分组（有序）
type Section struct {
	Name   string            `yaml:"name" json:"name"`
	Checks []CheckDefinition `yaml:"checks" json:"checks"`
}

// Zone 巡检区域
// AmberEligible=false 时该区域内任一检查失败直接强制 RED（不看总数）
type Zone struct {
	ZoneID        string       `yaml:"zone_id" json:"zoneId"`
	Name          string       `yaml:"name" json:"name"`
	Category      ZoneCategory `yaml:"category" json:"category"`
	AmberEligible bool         `yaml:"amber_eligible" json:"amberEligible"`
	Sections      []Section    `yaml:"sections" json:"sections"`
}

// Checks 按目录顺序返回区域内全部检查项
func (z *Zone) Checks() []CheckDefinition {
	var checks []CheckDefinition
	for _, s := range z.Sections {
		checks = append(checks, s.Checks...)
	}
	return checks
}

// FindCheck 按 check_id 查找检查项
func (z *Zone) FindCheck(checkID string) (*CheckDefinition, bool) {
	for si := range z.Sections {
		for ci := range z.Sections[si].Checks {
			if z.Sections[si].Checks[ci].CheckID == checkID {
				return &z.Sections[si].Checks[ci], true
			}
		}
	}
	return nil, false
}

// SectionOf 返回检查项所在的 Section 名称
func (z *Zone) SectionOf(checkID string) (string, bool) {
	for _, s := range z.Sections {
		for _, c := range s.Checks {
			if c.CheckID == checkID {
				return s.Name, true
			}
		}
	}
	return "", false
}

// ZoneRefKind 区域引用类型
type ZoneRefKind string

const (
	ZoneRefStatic    ZoneRefKind = "static"
	ZoneRefTemplated ZoneRefKind = "templated"
	ZoneRefRoom      ZoneRefKind = "room"
)

// ZoneRef 区域引用（显式 tagged union，不在核心里做字符串解析）
// - static: 引用目录中的固定区域
// - templated: 模板 + 实例序号（如 Restroom 3）
// - room: 模板 + 具体房间（保洁巡检的分配房间）
type ZoneRef struct {
	Kind       ZoneRefKind `json:"kind"`
	ZoneID     string      `json:"zoneId,omitempty"`
	TemplateID string      `json:"templateId,omitempty"`
	Instance   int         `json:"instance,omitempty"`
	Room       *Room       `json:"room,omitempty"`
}

// StaticZoneRef 构建固定区域引用
func StaticZoneRef(zoneID string) ZoneRef {
	return ZoneRef{Kind: ZoneRefStatic, ZoneID: zoneID}
}

// TemplatedZoneRef 构建模板实例引用（instance 从 1 开始）
func TemplatedZoneRef(templateID string, instance int) ZoneRef {
	return ZoneRef{Kind: ZoneRefTemplated, TemplateID: templateID, Instance: instance}
}

// RoomZoneRef 构建分配房间引用
func RoomZoneRef(templateID string, room Room) ZoneRef {
	return ZoneRef{Kind: ZoneRefRoom, TemplateID: templateID, Room: &room}
}
