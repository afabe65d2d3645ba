package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"
)

// Check tests one dependency; a nil error means healthy.
type Check func(ctx context.Context) error

type HealthController struct {
	checks map[string]Check
}

func NewHealthController(checks map[string]Check) *HealthController {
	return &HealthController{checks: checks}
}

func (h *HealthController) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := "ok"
	code := http.StatusOK
	results := make(map[string]string, len(names))
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			results[name] = err.Error()
			status = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]interface{}{"status": status, "checks": results})
}
