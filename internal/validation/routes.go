package validation

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/restoration-monitor/polyvalidate/internal/middleware"
	"golang.org/x/time/rate"
)

// SetupRoutes mounts the validators. batchLimiter throttles the batch
// endpoint; nil disables throttling.
func SetupRoutes(registry *Registry, batchLimiter *rate.Limiter) http.Handler {
	r := chi.NewRouter()
	h := &handler{registry: registry}

	r.Get("/kinds", h.ListKinds)
	r.Get("/{kind}/polygons/{uuid}", h.ValidatePolygon)
	r.With(middleware.RateLimit(batchLimiter)).Post("/{kind}/polygons", h.ValidatePolygons)
	r.Post("/{kind}/geometry", h.ValidateGeometry)

	return r
}
