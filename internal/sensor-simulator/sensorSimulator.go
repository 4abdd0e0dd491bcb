package sensor_simulator

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/LeonardoBeccarini/soil_advisor/internal/model"
	"github.com/LeonardoBeccarini/soil_advisor/internal/model/messages"
	"github.com/LeonardoBeccarini/soil_advisor/pkg/broker"
	"github.com/LeonardoBeccarini/soil_advisor/pkg/dedup"
)

// Publisher sends a payload on a topic (nil disables MQTT publishing).
type Publisher interface {
	Publish(topic string, v any) error
}

// SensorSimulator stands in for the ESP32 board: it serves GET /sensor and
// publishes the same reading on sensor/soil/{field}/{sensor}.
type SensorSimulator struct {
	mu        sync.Mutex
	sensor    *model.Sensor
	timer     *time.Timer // single timer
	generator *DataGenerator
	publisher Publisher
	deduper   *dedup.Deduper
	current   model.Reading
	hasCur    bool
}

func NewSensorSimulator(publisher Publisher, gen *DataGenerator, sensor *model.Sensor) *SensorSimulator {
	return &SensorSimulator{
		sensor:    sensor,
		generator: gen,
		publisher: publisher,
		deduper:   dedup.New(2*time.Minute, 10000), // TTL e cap
	}
}

// Tick generates a new reading, stores it for /sensor and publishes it.
func (s *SensorSimulator) Tick() model.Reading {
	s.mu.Lock()
	sensor := *s.sensor
	s.mu.Unlock()

	r := s.generator.Next(&sensor)

	s.mu.Lock()
	s.current = r
	s.hasCur = true
	s.mu.Unlock()

	payload := messages.FromReading(r)
	log.Printf("sim: reading field=%s sensor=%s state=%s moisture=%.1f ph=%.2f",
		sensor.FieldID, sensor.ID, sensor.State, deref(r.Moisture), deref(r.PH))
	if s.publisher != nil {
		topic := broker.SensorTopic(sensor.FieldID, sensor.ID)
		if err := s.publisher.Publish(topic, payload); err != nil {
			log.Printf("sim: publish error topic=%s err=%v", topic, err)
		}
	}
	return r
}

// Start publishes every interval until ctx is done.
func (s *SensorSimulator) Start(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	s.Tick()
	for {
		select {
		case <-ctx.Done():
			s.mu.Lock()
			if s.timer != nil {
				s.timer.Stop()
			}
			s.mu.Unlock()
			return
		case <-t.C:
			s.Tick()
		}
	}
}

// Handler serves the board endpoint GET /sensor.
func (s *SensorSimulator) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/sensor", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		s.mu.Lock()
		cur, ok := s.current, s.hasCur
		s.mu.Unlock()
		if !ok {
			cur = s.Tick()
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(messages.FromReading(cur))
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// HandleCommand is the MQTT handler for event/StateChange/{field}/{sensor}.
func (s *SensorSimulator) HandleCommand(_ string, msg mqtt.Message) error {
	// redelivery QoS1: stesso payload, stesso hash
	if s.deduper != nil && !s.deduper.ShouldProcessPayload(msg.Topic(), msg.Payload()) {
		return nil
	}

	var cmd model.IrrigationCommand
	if err := json.Unmarshal(msg.Payload(), &cmd); err != nil {
		return fmt.Errorf("invalid IrrigationCommand: %w", err)
	}
	if cmd.SensorID != s.sensor.ID {
		return nil
	}
	s.applyTimedState(cmd)
	return nil
}

func (s *SensorSimulator) applyTimedState(cmd model.IrrigationCommand) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}

	prev := s.sensor.State
	s.sensor.State = cmd.NewState
	log.Printf("sim: sensor %s -> %s for %s", s.sensor.ID, cmd.NewState, cmd.Duration())

	// Se l'irrigazione va in ON, riflette subito l'acqua applicata nella moisture
	if cmd.NewState == model.StateOn && s.generator != nil {
		s.generator.ApplyIrrigation(cmd.Duration())
	}

	if d := cmd.Duration(); d > 0 {
		s.timer = time.AfterFunc(d, func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.sensor.State = prev
			log.Printf("sim: sensor %s back to %s", s.sensor.ID, prev)
			s.timer = nil
		})
	}
}

// State returns the current valve state.
func (s *SensorSimulator) State() model.SensorState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sensor.State
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
