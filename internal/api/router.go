package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MikeSquared-Agency/Concord/internal/broker"
	"github.com/MikeSquared-Agency/Concord/internal/metrics"
)

// MCPMount is an optional MCP transport served next to the REST API.
type MCPMount struct {
	Path    string
	Handler http.Handler
}

func NewRouter(b *broker.Broker, m *metrics.Metrics, mcp *MCPMount, adminToken string, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(RequestLogger(logger))
	r.Use(MetricsMiddleware(m))
	r.Use(RateLimitMiddleware(120))

	members := NewMembersHandler(b)
	tasks := NewTasksHandler(b)
	team := NewTeamHandler(b)
	explain := NewExplainHandler(b)
	admin := NewAdminHandler(b)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/members", members.Create)
		r.Get("/members", members.List)
		r.Get("/members/{id}", members.Get)
		r.Patch("/members/{id}", members.Update)
		r.Get("/members/{id}/tasks", members.Tasks)
		r.Get("/members/{id}/partners", members.Partners)
		r.Get("/members/{id}/team-fit", members.TeamFit)

		r.Post("/tasks", tasks.Create)
		r.Get("/tasks", tasks.List)
		r.Get("/tasks/{id}", tasks.Get)
		r.Patch("/tasks/{id}/status", tasks.UpdateStatus)
		r.Get("/tasks/{id}/events", tasks.Events)
		r.Post("/tasks/{id}/assign", tasks.Assign)
		r.Get("/tasks/{id}/match", explain.Match)

		r.Get("/team/balance", team.Balance)
		r.Get("/team/dashboard", team.Dashboard)

		r.Group(func(r chi.Router) {
			r.Use(AdminAuthMiddleware(adminToken))
			r.Get("/stats", admin.Stats)
			r.Post("/members/{id}/drain", admin.Drain)
		})
	})

	if mcp != nil && mcp.Handler != nil {
		r.Handle(mcp.Path, mcp.Handler)
	}

	return r
}

func NewMetricsRouter() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}
