package advisor

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	core "github.com/LeonardoBeccarini/soil_advisor/internal/advisor"
	"github.com/LeonardoBeccarini/soil_advisor/internal/model/messages"
	"github.com/LeonardoBeccarini/soil_advisor/pkg/esp32"
)

const maxBody = 64 << 10

// Routes builds the HTTP surface. health may be nil in tests.
func Routes(svc *Service, health *Health) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	if health == nil {
		health = &Health{Service: svc}
	}
	r.Method(http.MethodGet, "/healthz", health.Liveness())
	r.Method(http.MethodGet, "/readyz", health.Readiness())
	r.Method(http.MethodGet, "/metrics", svc.metrics.Handler())

	h := &api{svc: svc}
	r.Route("/api", func(r chi.Router) {
		r.Get("/reading", h.reading)
		r.Get("/alerts", h.alerts)
		r.Get("/recommendations", h.recommendations)
		r.Get("/dashboard", h.dashboard)
		r.Post("/evaluate", h.evaluate)
		r.Get("/crops", h.crops)
		r.Get("/thresholds", h.thresholds)
		r.Post("/refresh", h.refresh)
	})
	return r
}

type api struct {
	svc *Service
}

type readingResponse struct {
	Reading   messages.SoilReading `json:"reading"`
	UpdatedAt time.Time            `json:"updated_at"`
}

func (h *api) reading(w http.ResponseWriter, _ *http.Request) {
	r, at, ok := h.svc.Latest()
	if !ok {
		writeError(w, http.StatusNotFound, ErrNoReading)
		return
	}
	writeJSON(w, http.StatusOK, readingResponse{Reading: messages.FromReading(r), UpdatedAt: at})
}

func (h *api) alerts(w http.ResponseWriter, r *http.Request) {
	max, _ := limits(r)
	ev, err := h.svc.Dashboard(max, 0)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, ev.Issues)
}

func (h *api) recommendations(w http.ResponseWriter, r *http.Request) {
	_, top := limits(r)
	ev, err := h.svc.Dashboard(0, top)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, ev.Recommendations)
}

func (h *api) dashboard(w http.ResponseWriter, r *http.Request) {
	max, top := limits(r)
	ev, err := h.svc.Dashboard(max, top)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (h *api) evaluate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var sr messages.SoilReading
	if err := json.Unmarshal(body, &sr); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	max, top := limits(r)
	ev := h.svc.Evaluate(sr.ToReading(), max, top)
	ev.Source = SourceAPI
	writeJSON(w, http.StatusOK, ev)
}

func (h *api) crops(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Crops())
}

func (h *api) thresholds(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Thresholds())
}

func (h *api) refresh(w http.ResponseWriter, r *http.Request) {
	err := h.svc.Refresh(r.Context())
	switch {
	case err == nil:
	case h.svc.fetcher == nil:
		writeError(w, http.StatusNotImplemented, err)
		return
	case errors.Is(err, esp32.ErrBreakerOpen):
		writeError(w, http.StatusServiceUnavailable, err)
		return
	case errors.Is(err, esp32.ErrInvalidPayload):
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	default:
		writeError(w, http.StatusBadGateway, err)
		return
	}
	max, top := limits(r)
	ev, err := h.svc.Dashboard(max, top)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

// limits legge ?max= e ?top= con default e clamp.
func limits(r *http.Request) (max, top int) {
	q := r.URL.Query()
	get := func(k string, def, lo, hi int) int {
		if v := strings.TrimSpace(q.Get(k)); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				if n < lo {
					return lo
				}
				if n > hi {
					return hi
				}
				return n
			}
		}
		return def
	}
	return get("max", core.MaxIssues, 0, core.MaxIssues), get("top", core.DefaultTopN, 0, 100)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
