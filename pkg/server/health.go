package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/DFE-Digital/trs-workforce/pkg/composables"
)

// HealthController answers /health with the result of a dependency check.
type HealthController struct {
	check func(ctx context.Context) error
}

func NewHealthController(check func(ctx context.Context) error) *HealthController {
	return &HealthController{check: check}
}

func (c *HealthController) Key() string {
	return "/health"
}

func (c *HealthController) Register(r *mux.Router) {
	r.HandleFunc("/health", c.handle).Methods(http.MethodGet)
}

func (c *HealthController) handle(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if c.check != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := c.check(ctx); err != nil {
			composables.UseLogger(r.Context()).WithError(err).Warn("health check failed")
			status, code = "unavailable", http.StatusServiceUnavailable
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": status})
}
