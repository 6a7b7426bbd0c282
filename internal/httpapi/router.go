package httpapi

import (
	"net/http"

	"go.uber.org/zap"
)

const (
	sessionsPrefix = "/audit/api/v1/sessions"
	campusesPrefix = "/audit/api/v1/campuses"
)

// Router 使用标准库 http.ServeMux（避免引入第三方路由依赖）
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterAuditRoutes 注册巡检会话路由
func (r *Router) RegisterAuditRoutes(a *AuditHandler) {
	r.Handle(sessionsPrefix, func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		a.BeginSession(w, req)
	})

	// /sessions/{id}[/answers|/terminal|/advance|/complete|/discard|/issues/{issueId}/...]
	r.Handle(sessionsPrefix+"/", func(w http.ResponseWriter, req *http.Request) {
		parts := sessionSubPath(req.URL.Path, sessionsPrefix)
		if len(parts) == 0 {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		sessionID := parts[0]

		switch {
		case len(parts) == 1:
			if req.Method != http.MethodGet {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			a.GetSession(w, req, sessionID)

		case len(parts) == 2 && parts[1] == "answers":
			if req.Method != http.MethodPost {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			a.RecordAnswer(w, req, sessionID)

		case len(parts) == 2 && parts[1] == "terminal":
			if req.Method != http.MethodPost {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			a.AnswerTerminal(w, req, sessionID)

		case len(parts) == 2 && parts[1] == "advance":
			if req.Method != http.MethodPost {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			a.AdvanceZone(w, req, sessionID)

		case len(parts) == 2 && parts[1] == "complete":
			if req.Method != http.MethodPost {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			a.CompleteSession(w, req, sessionID)

		case len(parts) == 2 && parts[1] == "discard":
			if req.Method != http.MethodPost {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			a.DiscardSession(w, req, sessionID)

		case len(parts) == 4 && parts[1] == "issues" && parts[3] == "explanation":
			if req.Method != http.MethodPut {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			a.SetExplanation(w, req, sessionID, parts[2])

		case len(parts) == 4 && parts[1] == "issues" && parts[3] == "photos":
			if req.Method != http.MethodPost {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			a.AddPhoto(w, req, sessionID, parts[2])

		case len(parts) == 5 && parts[1] == "issues" && parts[3] == "photos":
			if req.Method != http.MethodDelete {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			a.RemovePhoto(w, req, sessionID, parts[2], parseInt(parts[4], -1))

		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	r.Handle("/audit/api/v1/rotation/preview", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		a.PreviewRotation(w, req)
	})
}

// RegisterCatalogRoutes 注册区域目录路由
func (r *Router) RegisterCatalogRoutes(c *CatalogHandler) {
	r.Handle("/audit/api/v1/catalog/zones", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		c.GetZones(w, req)
	})
}

// RegisterCampusRoutes 注册房间清单 + 历史提交路由
func (r *Router) RegisterCampusRoutes(rooms *RoomsHandler, submissions *SubmissionsHandler) {
	r.Handle("/audit/api/v1/rooms/import-template", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		rooms.ImportTemplate(w, req)
	})

	// /campuses/{campusId}/rooms[/import|/export] 和 /campuses/{campusId}/submissions
	r.Handle(campusesPrefix+"/", func(w http.ResponseWriter, req *http.Request) {
		parts := sessionSubPath(req.URL.Path, campusesPrefix)
		if len(parts) < 2 {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		campusID := parts[0]

		switch {
		case len(parts) == 2 && parts[1] == "rooms":
			switch req.Method {
			case http.MethodGet:
				rooms.ListRooms(w, req, campusID)
			case http.MethodPut:
				rooms.ReplaceRooms(w, req, campusID)
			default:
				w.WriteHeader(http.StatusMethodNotAllowed)
			}

		case len(parts) == 3 && parts[1] == "rooms" && parts[2] == "import":
			if req.Method != http.MethodPost {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			rooms.ImportRooms(w, req, campusID)

		case len(parts) == 3 && parts[1] == "rooms" && parts[2] == "export":
			if req.Method != http.MethodGet {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			rooms.ExportRooms(w, req, campusID)

		case len(parts) == 2 && parts[1] == "submissions":
			if req.Method != http.MethodGet {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			submissions.ListSubmissions(w, req, campusID)

		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

// RegisterHealthRoute 健康检查
func (r *Router) RegisterHealthRoute() {
	r.Handle("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}
