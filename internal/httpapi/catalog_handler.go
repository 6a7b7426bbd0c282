package httpapi

import (
	"net/http"

	"campus-audit/internal/catalog"
)

// CatalogHandler 区域目录查询接口（目录启动时加载，只读）
type CatalogHandler struct {
	catalog *catalog.Catalog
}

func NewCatalogHandler(cat *catalog.Catalog) *CatalogHandler {
	return &CatalogHandler{catalog: cat}
}

// GetZones GET /audit/api/v1/catalog/zones
// 返回目录版本和可供会话设置界面选择的区域集
func (h *CatalogHandler) GetZones(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"version":        h.catalog.Version,
		"mandatoryZones": h.catalog.MandatoryZones(),
		"optionalZones":  h.catalog.OptionalZones(),
	}))
}
