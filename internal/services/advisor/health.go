package advisor

import (
	"encoding/json"
	"net/http"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sony/gobreaker"
)

// Health reports on the service and its optional dependencies.
type Health struct {
	Service *Service
	MQTT    mqtt.Client            // nil when MQTT is disabled
	Breaker func() gobreaker.State // nil when polling is disabled
	// StaleAfter marks the reading stale (0 = never).
	StaleAfter time.Duration
}

type healthStatus struct {
	Status        string  `json:"status"`
	HasReading    bool    `json:"has_reading"`
	ReadingAgeS   float64 `json:"reading_age_sec,omitempty"`
	MQTTEnabled   bool    `json:"mqtt_enabled"`
	MQTTConnected bool    `json:"mqtt_connected"`
	Breaker       string  `json:"breaker,omitempty"`
}

func (h *Health) status() healthStatus {
	st := healthStatus{MQTTEnabled: h.MQTT != nil}
	st.MQTTConnected = h.MQTT != nil && h.MQTT.IsConnectionOpen()
	if h.Breaker != nil {
		st.Breaker = h.Breaker().String()
	}
	_, at, ok := h.Service.Latest()
	st.HasReading = ok
	fresh := ok
	if ok {
		age := time.Since(at)
		st.ReadingAgeS = age.Seconds()
		if h.StaleAfter > 0 && age > h.StaleAfter {
			fresh = false
		}
	}

	depsOK := (!st.MQTTEnabled || st.MQTTConnected) && st.Breaker != gobreaker.StateOpen.String()
	switch {
	case fresh && depsOK:
		st.Status = "ok"
	case ok || st.MQTTConnected:
		st.Status = "degraded"
	default:
		st.Status = "down"
	}
	return st
}

// Liveness always answers 200 with the detailed status.
func (h *Health) Liveness() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(h.status())
	})
}

// Readiness: 200 solo con una lettura valida e dipendenze ok.
func (h *Health) Readiness() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		ready := h.status().Status == "ok"
		w.Header().Set("Content-Type", "application/json")
		if !ready {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(struct {
			Ready bool `json:"ready"`
		}{ready})
	})
}
