package health

import (
	"context"
	"net/http"
	"time"

	"github.com/jrschumacher/complyhub/internal/config"
	"github.com/jrschumacher/complyhub/internal/httputil"
	"github.com/jrschumacher/complyhub/internal/logger"
	"github.com/jrschumacher/complyhub/internal/storage"
	"github.com/jrschumacher/complyhub/internal/svrlib"
)

const storageProbeTimeout = 2 * time.Second

// HealthRouter serves liveness and readiness checks.
type HealthRouter struct {
	*svrlib.Router
	store storage.Store
}

// Status is the /healthz response body.
type Status struct {
	Status  string `json:"status"`
	Storage string `json:"storage"`
	Driver  string `json:"driver"`
}

// RegisterRoutes registers all health check routes on the given mux
func RegisterRoutes(mux *http.ServeMux, baseRoute string, cfg *config.Config, store storage.Store) {
	router := &HealthRouter{Router: svrlib.NewRouter(mux, baseRoute, cfg), store: store}
	mux.HandleFunc("GET "+baseRoute+"/healthz", router.HealthzHandler)
}

// HealthzHandler reports ok when the storage backend answers.
func (rt *HealthRouter) HealthzHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), storageProbeTimeout)
	defer cancel()

	status := Status{Status: "ok", Storage: "ok", Driver: rt.Config.StorageDriver}
	if _, err := rt.store.Keys(ctx); err != nil {
		logger.Warn("Storage health probe failed", "error", err)
		status.Status = "degraded"
		status.Storage = err.Error()
		httputil.WriteJSON(w, http.StatusServiceUnavailable, status)
		return
	}
	httputil.WriteSuccess(w, status)
}
