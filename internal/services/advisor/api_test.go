package advisor

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	core "github.com/LeonardoBeccarini/soil_advisor/internal/advisor"
	"github.com/LeonardoBeccarini/soil_advisor/internal/model/entities"
	"github.com/LeonardoBeccarini/soil_advisor/pkg/esp32"
)

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAPIBeforeFirstReading(t *testing.T) {
	h := Routes(newTestService(t, Options{}), nil)
	for _, p := range []string{"/api/reading", "/api/alerts", "/api/recommendations", "/api/dashboard"} {
		if rec := do(t, h, http.MethodGet, p, ""); rec.Code != http.StatusNotFound {
			t.Errorf("%s = %d", p, rec.Code)
		}
	}
	if rec := do(t, h, http.MethodGet, "/readyz", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("readyz = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"down"`) {
		t.Errorf("healthz = %d %s", rec.Code, rec.Body)
	}
}

func TestAPIDashboard(t *testing.T) {
	svc := newTestService(t, Options{})
	if err := svc.Accept(decode(t, phHigh), SourcePoll); err != nil {
		t.Fatal(err)
	}
	h := Routes(svc, nil)

	rec := do(t, h, http.MethodGet, "/api/dashboard?top=2", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard = %d %s", rec.Code, rec.Body)
	}
	var ev Evaluation
	if err := json.Unmarshal(rec.Body.Bytes(), &ev); err != nil {
		t.Fatal(err)
	}
	if len(ev.Issues) != 1 || ev.Issues[0].Key != "ph-high" || len(ev.Recommendations) != 2 {
		t.Errorf("dashboard = %+v", ev)
	}
	if v, ok := ev.Reading.ToReading().Value(entities.MetricPH); !ok || v != 8.2 {
		t.Errorf("reading ph = %v", v)
	}

	var issues []core.Issue
	rec = do(t, h, http.MethodGet, "/api/alerts?max=0", "")
	_ = json.Unmarshal(rec.Body.Bytes(), &issues)
	if rec.Code != http.StatusOK || len(issues) != 0 {
		t.Errorf("alerts max=0 = %d %s", rec.Code, rec.Body)
	}

	var recs []core.Suitability
	rec = do(t, h, http.MethodGet, "/api/recommendations?top=abc", "")
	_ = json.Unmarshal(rec.Body.Bytes(), &recs)
	if len(recs) != core.DefaultTopN {
		t.Errorf("recommendations default = %d", len(recs))
	}

	if rec := do(t, h, http.MethodGet, "/readyz", ""); rec.Code != http.StatusOK {
		t.Errorf("readyz = %d", rec.Code)
	}
}

func TestAPIEvaluate(t *testing.T) {
	svc := newTestService(t, Options{})
	h := Routes(svc, nil)

	rec := do(t, h, http.MethodPost, "/api/evaluate?max=3&top=1", `{"ph":"8.2","moisture":60,"temp":28,"N":80,"P":70,"K":80}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("evaluate = %d %s", rec.Code, rec.Body)
	}
	var ev Evaluation
	if err := json.Unmarshal(rec.Body.Bytes(), &ev); err != nil {
		t.Fatal(err)
	}
	if len(ev.Issues) != 1 || ev.Issues[0].Severity < 0.349 || ev.Issues[0].Severity > 0.351 {
		t.Errorf("issues = %+v", ev.Issues)
	}
	if len(ev.Recommendations) != 1 || ev.Source != SourceAPI {
		t.Errorf("evaluation = %+v", ev)
	}
	if _, _, ok := svc.Latest(); ok {
		t.Error("evaluate must not store the reading")
	}

	if rec := do(t, h, http.MethodPost, "/api/evaluate", "not json"); rec.Code != http.StatusBadRequest {
		t.Errorf("bad body = %d", rec.Code)
	}
}

func TestAPIReferenceTables(t *testing.T) {
	h := Routes(newTestService(t, Options{}), nil)

	var crops []entities.CropProfile
	rec := do(t, h, http.MethodGet, "/api/crops", "")
	if err := json.Unmarshal(rec.Body.Bytes(), &crops); err != nil || len(crops) != 20 {
		t.Errorf("crops = %d err=%v", len(crops), err)
	}

	var th entities.Thresholds
	rec = do(t, h, http.MethodGet, "/api/thresholds", "")
	if err := json.Unmarshal(rec.Body.Bytes(), &th); err != nil || th[entities.MetricPH].High != 7.5 {
		t.Errorf("thresholds = %+v err=%v", th, err)
	}

	if rec := do(t, h, http.MethodGet, "/metrics", ""); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "soil_advisor_best_crop_score") {
		t.Errorf("metrics = %d", rec.Code)
	}
}

func TestAPIRefresh(t *testing.T) {
	f := &fakeFetcher{}
	svc := newTestService(t, Options{Fetcher: f})
	h := Routes(svc, nil)

	cases := []struct {
		body string
		err  error
		want int
	}{
		{phHigh, nil, http.StatusOK},
		{"", esp32.ErrBreakerOpen, http.StatusServiceUnavailable},
		{"", esp32.ErrInvalidPayload, http.StatusUnprocessableEntity},
		{`{"ph":"?"}`, nil, http.StatusUnprocessableEntity},
		{"", errTest, http.StatusBadGateway},
	}
	for _, tc := range cases {
		f.set(tc.body, tc.err)
		if rec := do(t, h, http.MethodPost, "/api/refresh", ""); rec.Code != tc.want {
			t.Errorf("refresh(%q,%v) = %d, want %d", tc.body, tc.err, rec.Code, tc.want)
		}
	}

	none := Routes(newTestService(t, Options{}), nil)
	if rec := do(t, none, http.MethodPost, "/api/refresh", ""); rec.Code != http.StatusNotImplemented {
		t.Errorf("refresh without board = %d", rec.Code)
	}
}

var errTest = errors.New("connection refused")
