package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/restoration-monitor/polyvalidate/internal/geometry"
)

const (
	maxBatchSize  = 500
	maxUploadSize = 10 << 20
)

type batchRequest struct {
	UUIDs []string `json:"uuids"`
}

type handler struct {
	registry *Registry
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func addServerTiming(w http.ResponseWriter, name string, start time.Time) {
	ms := float64(time.Since(start).Microseconds()) / 1000
	w.Header().Add("Server-Timing", fmt.Sprintf("%s;dur=%.1f", name, ms))
}

// writeError maps validation errors to HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrNotSupported), errors.Is(err, ErrUnknownKind):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *handler) ListKinds(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.registry.Capabilities())
}

func (h *handler) ValidatePolygon(w http.ResponseWriter, r *http.Request) {
	kind, err := ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "uuid"))
	if err != nil {
		http.Error(w, "Invalid polygon uuid", http.StatusBadRequest)
		return
	}
	v, err := h.registry.Validator(kind)
	if err != nil {
		writeError(w, err)
		return
	}

	start := time.Now()
	res, err := v.ValidatePolygon(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	addServerTiming(w, string(kind), start)
	writeJSON(w, polygonResult(id, res))
}

func (h *handler) ValidatePolygons(w http.ResponseWriter, r *http.Request) {
	kind, err := ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, err)
		return
	}

	var req batchRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxUploadSize)).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.UUIDs) == 0 {
		http.Error(w, "uuids is required", http.StatusBadRequest)
		return
	}
	if len(req.UUIDs) > maxBatchSize {
		http.Error(w, fmt.Sprintf("At most %d uuids per request", maxBatchSize), http.StatusBadRequest)
		return
	}
	ids := make([]uuid.UUID, 0, len(req.UUIDs))
	for _, s := range req.UUIDs {
		id, err := uuid.Parse(s)
		if err != nil {
			http.Error(w, fmt.Sprintf("Invalid polygon uuid %q", s), http.StatusBadRequest)
			return
		}
		ids = append(ids, id)
	}

	v, err := h.registry.Validator(kind)
	if err != nil {
		writeError(w, err)
		return
	}

	start := time.Now()
	results, err := v.ValidatePolygons(r.Context(), ids)
	if err != nil {
		writeError(w, err)
		return
	}
	addServerTiming(w, string(kind), start)
	writeJSON(w, results)
}

func (h *handler) ValidateGeometry(w http.ResponseWriter, r *http.Request) {
	kind, err := ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, err)
		return
	}
	v, err := h.registry.GeometryValidator(kind)
	if err != nil {
		writeError(w, err)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxUploadSize))
	if err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	feature, err := geometry.ParseFeature(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	start := time.Now()
	res, err := v.ValidateGeometry(r.Context(), feature)
	if err != nil {
		writeError(w, err)
		return
	}
	addServerTiming(w, string(kind), start)
	writeJSON(w, res)
}
