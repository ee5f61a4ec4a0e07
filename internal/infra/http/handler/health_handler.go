package handler

import (
	"context"
	"net/http"
	"time"
)

// Pinger is a dependency that can report its health.
type Pinger interface {
	HealthCheck(ctx context.Context) error
}

// HealthHandler reports service health.
type HealthHandler struct {
	db    Pinger
	redis Pinger
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(db, redis Pinger) *HealthHandler {
	return &HealthHandler{db: db, redis: redis}
}

// Healthz checks the service and its dependencies.
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true

	for name, dep := range map[string]Pinger{"database": h.db, "redis": h.redis} {
		if dep == nil {
			continue
		}
		if err := dep.HealthCheck(ctx); err != nil {
			checks[name] = "unhealthy"
			healthy = false
		} else {
			checks[name] = "ok"
		}
	}

	status := http.StatusOK
	overall := "ok"
	if !healthy {
		status = http.StatusServiceUnavailable
		overall = "degraded"
	}
	respondJSON(w, status, map[string]any{"status": overall, "checks": checks})
}
