package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/restoration-monitor/polyvalidate/internal/config"
	"github.com/restoration-monitor/polyvalidate/internal/db"
	"github.com/restoration-monitor/polyvalidate/internal/middleware"
	"github.com/restoration-monitor/polyvalidate/internal/polygons/postgis"
	"github.com/restoration-monitor/polyvalidate/internal/validation"
	"golang.org/x/time/rate"
)

func RootHandler(w http.ResponseWriter, r *http.Request) {
	response := "Server is up!"
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, response)
}

// HealthHandler reports whether the database answers and has PostGIS.
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	version, err := db.PostGISVersion(ctx, db.DB)
	if err != nil {
		log.Printf("[server] health check failed: %v", err)
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintf(w, "ok postgis %s\n", version)
}

func main() {
	_ = godotenv.Load(".env.local")

	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("[server] config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[server] config: %v", err)
	}
	if err := db.Connect(cfg); err != nil {
		log.Fatalf("[server] %v", err)
	}

	validation.RegisterMetrics(prometheus.DefaultRegisterer)
	registry := validation.NewRegistry(
		postgis.NewGeometryStore(db.DB),
		postgis.NewEntityLookup(db.DB),
	)
	batchLimiter := rate.NewLimiter(rate.Limit(cfg.BatchRateLimit), cfg.BatchRateBurst)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORSMiddleware(cfg.CORSOrigins))
	r.Get("/", RootHandler)
	r.Get("/healthz", HealthHandler)
	r.Handle("/metrics", promhttp.Handler())

	r.Mount("/validation", validation.SetupRoutes(registry, batchLimiter))

	log.Printf("[server] listening on port :%s...", cfg.Port)
	if err := http.ListenAndServe("0.0.0.0:"+cfg.Port, r); err != nil {
		log.Fatalf("[server] %v", err)
	}
}
