package knowledge

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/LeonardoBeccarini/soil_advisor/internal/model/entities"
)

func TestDefaultTables(t *testing.T) {
	b, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}

	th := b.Thresholds()
	if len(th) != len(entities.Metrics) {
		t.Fatalf("thresholds = %d metrics, want %d", len(th), len(entities.Metrics))
	}
	if ph := th[entities.MetricPH]; ph.Low != 5.5 || ph.High != 7.5 {
		t.Errorf("ph band = %+v", ph)
	}
	if u := th[entities.MetricMoisture].Unit; u != "%" {
		t.Errorf("moisture unit = %q", u)
	}

	crops := b.Crops()
	if len(crops) != 20 {
		t.Fatalf("crops = %d, want 20", len(crops))
	}
	first := crops[0]
	if first.Name != "Rice (Boro)" || first.LocalName == "" {
		t.Errorf("first crop = %q / %q", first.Name, first.LocalName)
	}
	for _, m := range entities.Metrics {
		if _, ok := first.Range(m); !ok {
			t.Errorf("first crop misses %s", m)
		}
	}
	if r, _ := first.Range(entities.MetricTemp); r.Low != 20 || r.High != 30 {
		t.Errorf("rice temp range = %+v", r)
	}

	msg, ok := b.Messages().Lookup(entities.MetricPH, "high")
	if !ok || msg.Title == "" || msg.Advice == "" {
		t.Errorf("ph/high message = %+v ok=%v", msg, ok)
	}
	if b.Messages().AllNormal.Title == "" {
		t.Error("allNormal title empty")
	}
}

func TestBanglaMessages(t *testing.T) {
	b, err := Load(Paths{Lang: "bn"})
	if err != nil {
		t.Fatal(err)
	}
	msg, ok := b.Messages().Lookup(entities.MetricPH, "low")
	if !ok || msg.Title != "pH কম" {
		t.Errorf("bn ph/low = %+v", msg)
	}
}

func TestAccessorsReturnCopies(t *testing.T) {
	b, err := Default()
	if err != nil {
		t.Fatal(err)
	}
	th := b.Thresholds()
	th[entities.MetricPH] = entities.Band{Low: 0, High: 1}
	if b.Thresholds()[entities.MetricPH].High != 7.5 {
		t.Error("thresholds mutated through accessor")
	}

	crops := b.Crops()
	crops[0].Ranges[entities.MetricPH] = entities.Band{}
	crops[0].Name = "x"
	again := b.Crops()[0]
	if again.Name == "x" || again.Ranges[entities.MetricPH].High == 0 {
		t.Error("crops mutated through accessor")
	}

	msgs := b.Messages()
	msgs.Metrics[entities.MetricPH] = entities.MetricMessages{}
	if _, ok := b.Messages().Lookup(entities.MetricPH, "low"); !ok {
		t.Error("messages mutated through accessor")
	}
}

func TestOverrideFiles(t *testing.T) {
	dir := t.TempDir()
	th := filepath.Join(dir, "th.json")
	crops := filepath.Join(dir, "crops.json")
	msgs := filepath.Join(dir, "msgs.json")

	write := func(p, s string) {
		if err := os.WriteFile(p, []byte(s), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	// alias e stringhe numeriche
	write(th, `{"pH":{"min":"6,0","max":7},"Temperature":{"low":10,"high":20,"unit":"C"},"bogus":{"low":1,"high":2}}`)
	write(crops, `[{"title":"Okra","ranges":{"ph":{"low":6,"high":7}},"N":{"min":10,"max":20}}]`)
	write(msgs, `{"metrics":{"ph":{"low":{"title":"acid","advice":"lime"}}},"all_normal":{"title":"ok"}}`)

	b, err := Load(Paths{Thresholds: th, Crops: crops, Messages: msgs})
	if err != nil {
		t.Fatal(err)
	}
	got := b.Thresholds()
	if len(got) != 2 {
		t.Fatalf("thresholds = %v", got)
	}
	if ph := got[entities.MetricPH]; ph.Low != 6 || ph.High != 7 {
		t.Errorf("ph = %+v", ph)
	}
	if tt := got[entities.MetricTemp]; tt.Unit != "C" {
		t.Errorf("temp = %+v", tt)
	}

	cs := b.Crops()
	if len(cs) != 1 || cs[0].Name != "Okra" {
		t.Fatalf("crops = %+v", cs)
	}
	if n, ok := cs[0].Range(entities.MetricNitrogen); !ok || n.High != 20 {
		t.Errorf("okra N = %+v", n)
	}

	m, ok := b.Messages().Lookup(entities.MetricPH, "low")
	if !ok || m.Title != "acid" {
		t.Errorf("ph/low = %+v", m)
	}
	if b.Messages().AllNormal.Title != "ok" {
		t.Errorf("allNormal = %+v", b.Messages().AllNormal)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	empty := filepath.Join(dir, "empty.json")
	if err := os.WriteFile(empty, []byte(`{"foo":{"low":1,"high":2}}`), 0o644); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name string
		p    Paths
	}{
		{"missing file", Paths{Crops: filepath.Join(dir, "nope.json")}},
		{"bad json", Paths{Thresholds: bad}},
		{"no metric", Paths{Thresholds: empty}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(tc.p); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestInvertedBandKept(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "th.json")
	if err := os.WriteFile(p, []byte(`{"ph":{"low":8,"high":6}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	b, err := Load(Paths{Thresholds: p})
	if err != nil {
		t.Fatal(err)
	}
	if ph := b.Thresholds()[entities.MetricPH]; ph.Low != 8 || ph.High != 6 {
		t.Errorf("ph = %+v", ph)
	}
}
