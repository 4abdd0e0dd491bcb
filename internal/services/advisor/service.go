// Package advisor is the soil advisor service: it keeps the latest board
// reading, evaluates it against the knowledge base and serves the results over
// REST and gRPC. Readings arrive from an HTTP poll of the board and from MQTT.
package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	core "github.com/LeonardoBeccarini/soil_advisor/internal/advisor"
	"github.com/LeonardoBeccarini/soil_advisor/internal/knowledge"
	"github.com/LeonardoBeccarini/soil_advisor/internal/model/entities"
	"github.com/LeonardoBeccarini/soil_advisor/internal/model/messages"
	"github.com/LeonardoBeccarini/soil_advisor/pkg/broker"
	"github.com/LeonardoBeccarini/soil_advisor/pkg/dedup"
	"github.com/LeonardoBeccarini/soil_advisor/pkg/esp32"
)

// ErrNoReading: nothing accepted yet.
var ErrNoReading = errors.New("advisor: no reading yet")

// Fetcher pulls one reading from the board.
type Fetcher interface {
	Fetch(ctx context.Context) (messages.SoilReading, error)
}

// Publisher sends an event on a topic.
type Publisher interface {
	Publish(topic string, v any) error
}

const (
	SourcePoll = "poll"
	SourceMQTT = "mqtt"
	SourceAPI  = "api"
)

// Evaluation is the full result for one reading.
type Evaluation struct {
	Reading         messages.SoilReading `json:"reading"`
	Cards           []core.Card          `json:"cards"`
	Issues          []core.Issue         `json:"issues"`
	Recommendations []core.Suitability   `json:"recommendations"`
	Source          string               `json:"source,omitempty"`
	UpdatedAt       time.Time            `json:"updated_at,omitempty"`
}

type Options struct {
	Strict  bool
	Fetcher Fetcher
	// Publisher is optional; without it alerts are only served, not pushed.
	Publisher Publisher
	Metrics   *Metrics
	Dedup     *dedup.Deduper
}

type Service struct {
	thresholds entities.Thresholds
	messages   entities.MessageTable
	crops      []entities.CropProfile
	strict     bool

	fetcher Fetcher
	pub     Publisher
	metrics *Metrics
	seen    *dedup.Deduper

	mu        sync.RWMutex
	last      entities.Reading
	hasLast   bool
	source    string
	updatedAt time.Time

	// ultimo insieme di issue pubblicato per field|sensor
	alertMu  sync.Mutex
	alertSig map[string]string
	// publishes started from the MQTT handler
	pending sync.WaitGroup
}

func New(kb *knowledge.Base, opt Options) *Service {
	m := opt.Metrics
	if m == nil {
		m = NewMetrics(nil)
	}
	d := opt.Dedup
	if d == nil {
		d = dedup.New(time.Minute, 1000)
	}
	return &Service{
		thresholds: kb.Thresholds(),
		messages:   kb.Messages(),
		crops:      kb.Crops(),
		strict:     opt.Strict,
		fetcher:    opt.Fetcher,
		pub:        opt.Publisher,
		metrics:    m,
		seen:       d,
		alertSig:   map[string]string{},
	}
}

func (s *Service) Thresholds() entities.Thresholds { return s.thresholds.Clone() }

func (s *Service) Crops() []entities.CropProfile {
	out := make([]entities.CropProfile, len(s.crops))
	copy(out, s.crops)
	return out
}

// Latest returns a copy of the last good reading.
func (s *Service) Latest() (entities.Reading, time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.hasLast {
		return entities.Reading{}, time.Time{}, false
	}
	return s.last.Clone(), s.updatedAt, true
}

// Accept stores sr as the latest reading, unless no metric is usable: then
// the previous reading is kept and esp32.ErrInvalidPayload returned.
func (s *Service) Accept(sr messages.SoilReading, source string) error {
	return s.accept(sr, source, false)
}

// accept with async set publishes the alert from its own goroutine: the MQTT
// handler must not wait for a QoS 1 acknowledgement it is itself delivering.
func (s *Service) accept(sr messages.SoilReading, source string, async bool) error {
	r := sr.ToReading()
	if r.AllInvalid() {
		s.metrics.Rejected.WithLabelValues(source).Inc()
		return esp32.ErrInvalidPayload
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now().UTC()
	}

	s.mu.Lock()
	s.last = r.Clone()
	s.hasLast = true
	s.source = source
	s.updatedAt = time.Now()
	s.mu.Unlock()

	s.metrics.Readings.WithLabelValues(source).Inc()
	s.metrics.observeReading(r)

	issues := core.RankIssuesWith(r, s.thresholds, s.messages, core.MaxIssues, core.Options{Strict: s.strict})
	s.metrics.observeIssues(issues)
	if recs := core.Recommend(r, s.crops, 1); len(recs) > 0 {
		s.metrics.BestScore.Set(recs[0].Score)
	}
	s.maybePublish(r, issues, async)
	return nil
}

// WaitPublishes blocks until alert publishes started by the MQTT handler are done.
func (s *Service) WaitPublishes() { s.pending.Wait() }

// Refresh fetches from the board now.
func (s *Service) Refresh(ctx context.Context) error {
	if s.fetcher == nil {
		return fmt.Errorf("advisor: board polling not configured")
	}
	sr, err := s.fetcher.Fetch(ctx)
	if err != nil {
		s.metrics.FetchErrors.WithLabelValues(fetchReason(err)).Inc()
		return err
	}
	return s.Accept(sr, SourcePoll)
}

// Evaluate runs both components on r without touching the stored reading.
func (s *Service) Evaluate(r entities.Reading, maxIssues, topN int) Evaluation {
	return Evaluation{
		Reading:         messages.FromReading(r),
		Cards:           core.Cards(r, s.thresholds),
		Issues:          core.RankIssuesWith(r, s.thresholds, s.messages, maxIssues, core.Options{Strict: s.strict}),
		Recommendations: core.Recommend(r, s.crops, topN),
	}
}

// Dashboard evaluates the stored reading.
func (s *Service) Dashboard(maxIssues, topN int) (Evaluation, error) {
	s.mu.RLock()
	if !s.hasLast {
		s.mu.RUnlock()
		return Evaluation{}, ErrNoReading
	}
	r := s.last.Clone()
	src, at := s.source, s.updatedAt
	s.mu.RUnlock()

	ev := s.Evaluate(r, maxIssues, topN)
	ev.Source = src
	ev.UpdatedAt = at
	return ev, nil
}

// OnSensorMessage is the MQTT handler for sensor/soil/{field}/{sensor}.
// Bad payloads are logged and dropped.
func (s *Service) OnSensorMessage(_ string, msg mqtt.Message) error {
	if !s.seen.ShouldProcessPayload(msg.Topic(), msg.Payload()) {
		return nil
	}
	var sr messages.SoilReading
	if err := json.Unmarshal(msg.Payload(), &sr); err != nil {
		log.Printf("advisor: bad payload topic=%s err=%v", msg.Topic(), err)
		s.metrics.Rejected.WithLabelValues(SourceMQTT).Inc()
		return nil
	}
	if f, sid, ok := broker.SplitTopic(msg.Topic()); ok {
		if sr.FieldID == "" {
			sr.FieldID = f
		}
		if sr.SensorID == "" {
			sr.SensorID = sid
		}
	}
	if err := s.accept(sr, SourceMQTT, true); err != nil {
		log.Printf("advisor: reading rejected topic=%s err=%v", msg.Topic(), err)
	}
	return nil
}

// RunPoller fetches every interval until ctx is done.
func (s *Service) RunPoller(ctx context.Context, interval time.Duration) {
	if s.fetcher == nil || interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	poll := func() {
		cctx, cancel := context.WithTimeout(ctx, interval)
		defer cancel()
		if err := s.Refresh(cctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("advisor: poll failed err=%v", err)
		}
	}
	poll()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			poll()
		}
	}
}

func (s *Service) maybePublish(r entities.Reading, issues []core.Issue, async bool) {
	if s.pub == nil {
		return
	}
	key := r.FieldID + "|" + r.SensorID
	sig := issueSignature(issues)

	s.alertMu.Lock()
	if s.alertSig[key] == sig {
		s.alertMu.Unlock()
		return
	}
	s.alertSig[key] = sig
	s.alertMu.Unlock()

	evt := messages.SoilAlertEvent{
		EventID:   uuid.NewString(),
		FieldID:   r.FieldID,
		SensorID:  r.SensorID,
		Issues:    toAlertItems(issues),
		Timestamp: time.Now().UTC(),
	}
	topic := broker.AlertTopic(r.FieldID, r.SensorID)
	if async {
		s.pending.Add(1)
		go func() {
			defer s.pending.Done()
			s.publish(key, topic, sig, evt)
		}()
		return
	}
	s.publish(key, topic, sig, evt)
}

func (s *Service) publish(key, topic, sig string, evt messages.SoilAlertEvent) {
	if err := s.pub.Publish(topic, evt); err != nil {
		log.Printf("advisor: alert publish failed topic=%s err=%v", topic, err)
		// riprova al prossimo giro
		s.alertMu.Lock()
		if s.alertSig[key] == sig {
			delete(s.alertSig, key)
		}
		s.alertMu.Unlock()
		return
	}
	s.metrics.AlertsPublished.Inc()
	log.Printf("advisor: alert published topic=%s issues=%s", topic, sig)
}

func issueSignature(issues []core.Issue) string {
	keys := make([]string, 0, len(issues))
	for _, i := range issues {
		keys = append(keys, i.Key)
	}
	sort.Strings(keys)
	return strings.Join(keys, ",")
}

func toAlertItems(issues []core.Issue) []messages.AlertItem {
	out := make([]messages.AlertItem, 0, len(issues))
	for _, i := range issues {
		out = append(out, messages.AlertItem{
			Key:      i.Key,
			Metric:   string(i.Metric),
			State:    string(i.State),
			Severity: i.Severity,
			Title:    i.Title,
			Advice:   i.Advice,
			Value:    i.Value,
			Unit:     i.Unit,
		})
	}
	return out
}

func fetchReason(err error) string {
	switch {
	case errors.Is(err, esp32.ErrBreakerOpen):
		return "breaker_open"
	case errors.Is(err, esp32.ErrInvalidPayload):
		return "invalid_payload"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	}
	return "error"
}
