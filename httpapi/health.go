package httpapi

import (
	"net/http"
	"sort"
	"time"

	"github.com/MrEthical07/loginGuard/middleware"
)

type healthResponse struct {
	Status  string            `json:"status"`
	Uptime  string            `json:"uptime"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks,omitempty"`
}

func (a *api) livez(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, healthResponse{
		Status:  "ok",
		Uptime:  time.Since(a.startTime).String(),
		Version: a.version,
	})
}

// readyz reports 503 when Redis or any registered check fails.
func (a *api) readyz(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{"redis": "ok"}
	status := http.StatusOK

	if h := a.engine.Health(r.Context()); !h.RedisAvailable {
		checks["redis"] = "unavailable"
		status = http.StatusServiceUnavailable
	}

	names := make([]string, 0, len(a.checks))
	for name := range a.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		checks[name] = "ok"
		if err := a.checks[name](r.Context()); err != nil {
			checks[name] = "error: " + err.Error()
			status = http.StatusServiceUnavailable
		}
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}
	middleware.WriteJSON(w, status, healthResponse{
		Status:  overall,
		Uptime:  time.Since(a.startTime).String(),
		Version: a.version,
		Checks:  checks,
	})
}
