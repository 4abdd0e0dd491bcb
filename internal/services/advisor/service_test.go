package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/LeonardoBeccarini/soil_advisor/internal/knowledge"
	"github.com/LeonardoBeccarini/soil_advisor/internal/model/entities"
	"github.com/LeonardoBeccarini/soil_advisor/internal/model/messages"
	"github.com/LeonardoBeccarini/soil_advisor/pkg/esp32"
)

type fakeFetcher struct {
	mu   sync.Mutex
	body string
	err  error
}

func (f *fakeFetcher) set(body string, err error) {
	f.mu.Lock()
	f.body, f.err = body, err
	f.mu.Unlock()
}

func (f *fakeFetcher) Fetch(context.Context) (messages.SoilReading, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return messages.SoilReading{}, f.err
	}
	var sr messages.SoilReading
	err := json.Unmarshal([]byte(f.body), &sr)
	return sr, err
}

type published struct {
	topic string
	evt   messages.SoilAlertEvent
}

type fakePublisher struct {
	mu   sync.Mutex
	sent []published
	err  error
}

func (p *fakePublisher) Publish(topic string, v any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, published{topic: topic, evt: v.(messages.SoilAlertEvent)})
	return nil
}

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sent)
}

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 0 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 0 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

const (
	phHigh    = `{"field_id":"f1","sensor_id":"s1","ph":8.2,"moisture":60,"temp":28,"nitrogen":80,"phosphorus":70,"potassium":80}`
	allNormal = `{"field_id":"f1","sensor_id":"s1","ph":6.5,"moisture":60,"temp":28,"nitrogen":80,"phosphorus":70,"potassium":80}`
)

func newTestService(t *testing.T, opt Options) *Service {
	t.Helper()
	kb, err := knowledge.Default()
	if err != nil {
		t.Fatal(err)
	}
	return New(kb, opt)
}

func decode(t *testing.T, s string) messages.SoilReading {
	t.Helper()
	var sr messages.SoilReading
	if err := json.Unmarshal([]byte(s), &sr); err != nil {
		t.Fatal(err)
	}
	return sr
}

func TestAcceptAndDashboard(t *testing.T) {
	svc := newTestService(t, Options{})
	if _, err := svc.Dashboard(3, 4); !errors.Is(err, ErrNoReading) {
		t.Fatalf("err = %v, want ErrNoReading", err)
	}

	if err := svc.Accept(decode(t, phHigh), SourceAPI); err != nil {
		t.Fatal(err)
	}
	ev, err := svc.Dashboard(3, 4)
	if err != nil {
		t.Fatal(err)
	}
	if len(ev.Issues) != 1 || ev.Issues[0].Key != "ph-high" {
		t.Errorf("issues = %+v", ev.Issues)
	}
	if len(ev.Recommendations) != 4 || len(ev.Cards) != 6 {
		t.Errorf("recs=%d cards=%d", len(ev.Recommendations), len(ev.Cards))
	}
	if ev.Source != SourceAPI || ev.UpdatedAt.IsZero() {
		t.Errorf("source=%s at=%v", ev.Source, ev.UpdatedAt)
	}
}

func TestAcceptKeepsLastGood(t *testing.T) {
	svc := newTestService(t, Options{})
	if err := svc.Accept(decode(t, phHigh), SourceAPI); err != nil {
		t.Fatal(err)
	}
	err := svc.Accept(decode(t, `{"ph":"n/a","moisture":null}`), SourceMQTT)
	if !errors.Is(err, esp32.ErrInvalidPayload) {
		t.Fatalf("err = %v", err)
	}
	r, _, ok := svc.Latest()
	if v, _ := r.Value(entities.MetricPH); !ok || v != 8.2 {
		t.Errorf("latest ph = %v", v)
	}
}

func TestLatestIsACopy(t *testing.T) {
	svc := newTestService(t, Options{})
	_ = svc.Accept(decode(t, phHigh), SourceAPI)
	r, _, _ := svc.Latest()
	*r.PH = 1
	again, _, _ := svc.Latest()
	if v, _ := again.Value(entities.MetricPH); v != 8.2 {
		t.Errorf("stored reading mutated: %v", v)
	}
}

func TestRefresh(t *testing.T) {
	f := &fakeFetcher{}
	svc := newTestService(t, Options{Fetcher: f})

	f.set(phHigh, nil)
	if err := svc.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	f.set("", esp32.ErrBreakerOpen)
	if err := svc.Refresh(context.Background()); !errors.Is(err, esp32.ErrBreakerOpen) {
		t.Fatalf("err = %v", err)
	}
	if _, _, ok := svc.Latest(); !ok {
		t.Error("reading lost after failed refresh")
	}

	none := newTestService(t, Options{})
	if err := none.Refresh(context.Background()); err == nil {
		t.Error("refresh without fetcher should fail")
	}
}

func TestAlertPublishedOnChange(t *testing.T) {
	pub := &fakePublisher{}
	svc := newTestService(t, Options{Publisher: pub})

	_ = svc.Accept(decode(t, phHigh), SourcePoll)
	_ = svc.Accept(decode(t, phHigh), SourcePoll)
	if pub.count() != 1 {
		t.Fatalf("published %d, want 1 (unchanged issue set)", pub.count())
	}
	first := pub.sent[0]
	if first.topic != "event/soilAlert/f1/s1" || first.evt.EventID == "" {
		t.Errorf("first = %+v", first)
	}
	if len(first.evt.Issues) != 1 || first.evt.Issues[0].Key != "ph-high" || first.evt.Issues[0].Metric != "ph" {
		t.Errorf("issues = %+v", first.evt.Issues)
	}

	_ = svc.Accept(decode(t, allNormal), SourcePoll)
	if pub.count() != 2 || pub.sent[1].evt.Issues[0].Key != "all-normal" {
		t.Fatalf("recovery not published: %+v", pub.sent)
	}
}

func TestAlertRetriedAfterPublishFailure(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	svc := newTestService(t, Options{Publisher: pub})
	_ = svc.Accept(decode(t, phHigh), SourcePoll)

	pub.mu.Lock()
	pub.err = nil
	pub.mu.Unlock()
	_ = svc.Accept(decode(t, phHigh), SourcePoll)
	if pub.count() != 1 {
		t.Errorf("published %d, want 1 after retry", pub.count())
	}
}

func TestOnSensorMessage(t *testing.T) {
	svc := newTestService(t, Options{})
	msg := fakeMessage{topic: "sensor/soil/field9/probe2", payload: []byte(`{"ph":6.1,"moisture":"55"}`)}
	if err := svc.OnSensorMessage("sensor/soil/#", msg); err != nil {
		t.Fatal(err)
	}
	r, _, ok := svc.Latest()
	if !ok || r.FieldID != "field9" || r.SensorID != "probe2" {
		t.Fatalf("latest = %+v ok=%v", r, ok)
	}
	if v, _ := r.Value(entities.MetricMoisture); v != 55 {
		t.Errorf("moisture = %v", v)
	}

	if err := svc.OnSensorMessage("sensor/soil/#", fakeMessage{topic: "sensor/soil/x/y", payload: []byte("{")}); err != nil {
		t.Errorf("bad payload should be dropped, got %v", err)
	}
	if r2, _, _ := svc.Latest(); r2.FieldID != "field9" {
		t.Error("bad payload replaced the reading")
	}
}

func TestOnSensorMessageDedup(t *testing.T) {
	pub := &fakePublisher{}
	svc := newTestService(t, Options{Publisher: pub})
	msg := fakeMessage{topic: "sensor/soil/f1/s1", payload: []byte(phHigh)}
	_ = svc.OnSensorMessage("", msg)
	_, at1, _ := svc.Latest()
	_ = svc.OnSensorMessage("", msg)
	_, at2, _ := svc.Latest()
	if !at1.Equal(at2) {
		t.Error("duplicate message was processed")
	}
}

func TestStrictMode(t *testing.T) {
	svc := newTestService(t, Options{Strict: true})
	ev := svc.Evaluate(decode(t, `{"ph":6.5}`).ToReading(), 3, 1)
	if len(ev.Issues) != 3 || ev.Issues[0].State != "missing" {
		t.Errorf("issues = %+v", ev.Issues)
	}
}

func TestRunPollerStopsOnCancel(t *testing.T) {
	f := &fakeFetcher{}
	f.set(phHigh, nil)
	svc := newTestService(t, Options{Fetcher: f})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.RunPoller(ctx, 10*time.Millisecond)
		close(done)
	}()
	cancel()
	<-done
	if _, _, ok := svc.Latest(); !ok {
		t.Error("first poll should run immediately")
	}
}

// blockingPublisher holds every Publish until release is closed, like a QoS 1
// publish waiting for an ack that only the calling handler could deliver.
type blockingPublisher struct {
	fakePublisher
	release chan struct{}
}

func (p *blockingPublisher) Publish(topic string, v any) error {
	<-p.release
	return p.fakePublisher.Publish(topic, v)
}

func TestOnSensorMessageDoesNotWaitForPublish(t *testing.T) {
	pub := &blockingPublisher{release: make(chan struct{})}
	svc := newTestService(t, Options{Publisher: pub})
	msg := fakeMessage{topic: "sensor/soil/f1/s1", payload: []byte(phHigh)}

	done := make(chan struct{})
	go func() {
		_ = svc.OnSensorMessage("sensor/soil/#", msg)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		close(pub.release)
		t.Fatal("handler blocked on the alert publish")
	}

	close(pub.release)
	svc.WaitPublishes()
	if pub.count() != 1 || pub.sent[0].evt.Issues[0].Key != "ph-high" {
		t.Fatalf("published %+v, want one ph-high alert", pub.sent)
	}
}
