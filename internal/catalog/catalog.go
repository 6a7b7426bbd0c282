package catalog

import (
	"fmt"
	"os"

	"campus-audit/internal/models"

	"gopkg.in/yaml.v3"
)

// ZoneTemplate 区域模板（按需生成动态区域，如 "Restroom N"、分配房间）
type ZoneTemplate struct {
	TemplateID    string              `yaml:"template_id"`
	NamePattern   string              `yaml:"name_pattern"` // 含一个 %s 或 %d 占位
	Category      models.ZoneCategory `yaml:"category"`
	AmberEligible bool                `yaml:"amber_eligible"`
	Sections      []models.Section    `yaml:"sections"`
}

// Catalog 区域目录（版本化静态表，启动时加载一次，只读）
type Catalog struct {
	Version   int            `yaml:"version"`
	Zones     []models.Zone  `yaml:"zones"`
	Templates []ZoneTemplate `yaml:"templates"`

	zoneIndex     map[string]*models.Zone
	templateIndex map[string]*ZoneTemplate
}

// Load 从 YAML 文件加载目录
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return Parse(data)
}

// Parse 解析目录 YAML
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	c.buildIndexes()
	return &c, nil
}

// validate 校验目录一致性（zone/check/template ID 唯一，字段合法）
func (c *Catalog) validate() error {
	if c.Version < 1 {
		return fmt.Errorf("catalog version is required")
	}

	zoneIDs := make(map[string]bool)
	// check_id 在全部固定区域范围内唯一：同一个 ID 出现在两个区域里，
	// 一次失败作答会被按区域重复计数，直接影响评级
	staticCheckIDs := make(map[string]bool)
	for i := range c.Zones {
		z := &c.Zones[i]
		if z.ZoneID == "" {
			return fmt.Errorf("zone_id is required")
		}
		if zoneIDs[z.ZoneID] {
			return fmt.Errorf("duplicate zone_id: %s", z.ZoneID)
		}
		zoneIDs[z.ZoneID] = true

		if z.Category != models.ZoneMandatory && z.Category != models.ZoneOptional {
			return fmt.Errorf("invalid category for zone %s: %s", z.ZoneID, z.Category)
		}
		if err := validateSections(z.ZoneID, z.Sections, staticCheckIDs); err != nil {
			return err
		}
	}

	templateIDs := make(map[string]bool)
	for i := range c.Templates {
		t := &c.Templates[i]
		if t.TemplateID == "" {
			return fmt.Errorf("template_id is required")
		}
		if templateIDs[t.TemplateID] || zoneIDs[t.TemplateID] {
			return fmt.Errorf("duplicate template_id: %s", t.TemplateID)
		}
		templateIDs[t.TemplateID] = true
		// 模板各自独立校验即可：实例化时检查项 ID 会加实例前缀
		if err := validateSections(t.TemplateID, t.Sections, make(map[string]bool)); err != nil {
			return err
		}
	}

	return nil
}

func validateSections(owner string, sections []models.Section, checkIDs map[string]bool) error {
	if len(sections) == 0 {
		return fmt.Errorf("zone %s has no sections", owner)
	}
	for _, s := range sections {
		if len(s.Checks) == 0 {
			return fmt.Errorf("section %s of zone %s has no checks", s.Name, owner)
		}
		for _, chk := range s.Checks {
			if chk.CheckID == "" {
				return fmt.Errorf("check_id is required in zone %s", owner)
			}
			if checkIDs[chk.CheckID] {
				return fmt.Errorf("duplicate check_id in zone %s: %s", owner, chk.CheckID)
			}
			checkIDs[chk.CheckID] = true
			if chk.SLATier != nil && (*chk.SLATier < 1 || *chk.SLATier > 4) {
				return fmt.Errorf("invalid sla_tier for check %s: %d", chk.CheckID, *chk.SLATier)
			}
		}
	}
	return nil
}

func (c *Catalog) buildIndexes() {
	c.zoneIndex = make(map[string]*models.Zone, len(c.Zones))
	for i := range c.Zones {
		c.zoneIndex[c.Zones[i].ZoneID] = &c.Zones[i]
	}
	c.templateIndex = make(map[string]*ZoneTemplate, len(c.Templates))
	for i := range c.Templates {
		c.templateIndex[c.Templates[i].TemplateID] = &c.Templates[i]
	}
}

// ResolveZone 解析区域引用
// 固定区域返回目录定义；模板引用按需合成实例；未知 ID 返回 (nil, false)
// 不修改全局状态，调用方不得改写返回的 Zone
func (c *Catalog) ResolveZone(ref models.ZoneRef) (*models.Zone, bool) {
	switch ref.Kind {
	case models.ZoneRefStatic:
		z, ok := c.zoneIndex[ref.ZoneID]
		return z, ok

	case models.ZoneRefTemplated:
		t, ok := c.templateIndex[ref.TemplateID]
		if !ok || ref.Instance < 1 {
			return nil, false
		}
		zoneID := fmt.Sprintf("%s_%d", t.TemplateID, ref.Instance)
		name := fmt.Sprintf(t.NamePattern, ref.Instance)
		return synthesizeZone(t, zoneID, name), true

	case models.ZoneRefRoom:
		t, ok := c.templateIndex[ref.TemplateID]
		if !ok || ref.Room == nil || ref.Room.RoomName == "" {
			return nil, false
		}
		zoneID := fmt.Sprintf("%s:%s", t.TemplateID, ref.Room.RoomName)
		name := fmt.Sprintf(t.NamePattern, ref.Room.RoomName)
		return synthesizeZone(t, zoneID, name), true
	}

	return nil, false
}

// synthesizeZone 从模板合成区域实例
// 检查项 ID 加 zoneID 前缀，保证同一模板多个实例之间不冲突
func synthesizeZone(t *ZoneTemplate, zoneID, name string) *models.Zone {
	sections := make([]models.Section, len(t.Sections))
	for si, s := range t.Sections {
		checks := make([]models.CheckDefinition, len(s.Checks))
		for ci, chk := range s.Checks {
			checks[ci] = chk
			checks[ci].CheckID = fmt.Sprintf("%s:%s", zoneID, chk.CheckID)
		}
		sections[si] = models.Section{Name: s.Name, Checks: checks}
	}
	return &models.Zone{
		ZoneID:        zoneID,
		Name:          name,
		Category:      t.Category,
		AmberEligible: t.AmberEligible,
		Sections:      sections,
	}
}

// MandatoryZones 返回全部必选区域（目录顺序）
func (c *Catalog) MandatoryZones() []*models.Zone {
	var zones []*models.Zone
	for i := range c.Zones {
		if c.Zones[i].Category == models.ZoneMandatory {
			zones = append(zones, &c.Zones[i])
		}
	}
	return zones
}

// OptionalZones 返回全部可选区域（目录顺序）
func (c *Catalog) OptionalZones() []*models.Zone {
	var zones []*models.Zone
	for i := range c.Zones {
		if c.Zones[i].Category == models.ZoneOptional {
			zones = append(zones, &c.Zones[i])
		}
	}
	return zones
}

// Template 按 ID 查找模板
func (c *Catalog) Template(templateID string) (*ZoneTemplate, bool) {
	t, ok := c.templateIndex[templateID]
	return t, ok
}
