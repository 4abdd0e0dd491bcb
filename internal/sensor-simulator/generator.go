package sensor_simulator

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/LeonardoBeccarini/soil_advisor/internal/model"
	"github.com/LeonardoBeccarini/soil_advisor/internal/model/entities"
)

// ====== Tunables ======
const (
	// gainPerMin: +0.6% per minuto quando la valvola è ON (in [0..1]).
	gainPerMin = 0.006

	// defaultSeed: valore di seed se SoilGrids non è disponibile.
	defaultSeed = 0.30 // 30%
)

type limits struct{ lo, hi float64 }

// range fisici della sonda
var clamps = map[entities.Metric]limits{
	entities.MetricPH:         {4.5, 8.5},
	entities.MetricMoisture:   {10, 100},
	entities.MetricTemp:       {5, 45},
	entities.MetricNitrogen:   {0, 300},
	entities.MetricPhosphorus: {0, 300},
	entities.MetricPotassium:  {0, 300},
}

// passo del random walk per tick
var steps = map[entities.Metric]float64{
	entities.MetricPH:         0.05,
	entities.MetricTemp:       0.3,
	entities.MetricNitrogen:   1.5,
	entities.MetricPhosphorus: 1,
	entities.MetricPotassium:  1.5,
}

// Baseline is the starting point of the non-moisture metrics.
type Baseline struct {
	PH         float64
	Temp       float64
	Nitrogen   float64
	Phosphorus float64
	Potassium  float64
}

func DefaultBaseline() Baseline {
	return Baseline{PH: 6.5, Temp: 26, Nitrogen: 80, Phosphorus: 55, Potassium: 75}
}

// DataGenerator keeps the simulated soil state. Moisture follows irrigation
// (up while the valve is on, exponential-ish decay while off); the other
// metrics random-walk inside the probe limits.
type DataGenerator struct {
	mu           sync.Mutex
	seeded       bool
	last         time.Time
	moisture     float64 // [0..1]
	decayPerMin  float64
	pendingBoost float64
	values       map[entities.Metric]float64
	rnd          *rand.Rand
	soil         *SoilGrids

	// FaultRate is the chance that one metric comes out unparsable.
	FaultRate float64
	now       func() time.Time
}

func NewDataGenerator(decayPerMin float64, base Baseline, seed int64) *DataGenerator {
	return &DataGenerator{
		decayPerMin: math.Max(0, decayPerMin),
		values: map[entities.Metric]float64{
			entities.MetricPH:         base.PH,
			entities.MetricTemp:       base.Temp,
			entities.MetricNitrogen:   base.Nitrogen,
			entities.MetricPhosphorus: base.Phosphorus,
			entities.MetricPotassium:  base.Potassium,
		},
		rnd:  rand.New(rand.NewSource(seed)),
		soil: NewSoilGrids(""),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// SeedFromSoilGrids --> singola fetch a SoilGrids all'avvio.
// Se fallisce, usa un seed di default (30%).
func (g *DataGenerator) SeedFromSoilGrids(ctx context.Context, s *model.Sensor) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.seeded {
		return
	}

	seed := defaultSeed
	if g.soil != nil && (s.Latitude != 0 || s.Longitude != 0) {
		if m, err := g.soil.Moisture(ctx, s.Latitude, s.Longitude); err == nil && m >= 0 {
			seed = m
		}
	}
	g.seedLocked(seed)
}

func (g *DataGenerator) seedLocked(seed float64) {
	g.moisture = clampMoisture(seed + g.pendingBoost)
	g.pendingBoost = 0
	g.last = g.now()
	g.seeded = true
}

// Next advances the state to now and returns the reading.
func (g *DataGenerator) Next(sensor *model.Sensor) model.Reading {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if !g.seeded {
		g.seedLocked(defaultSeed)
	}

	dtMin := math.Max(0, now.Sub(g.last).Minutes())
	switch sensor.State {
	case model.StateOn:
		g.moisture = clampMoisture(g.moisture + gainPerMin*dtMin)
	default:
		g.moisture = clampMoisture(g.moisture - g.decayPerMin*dtMin)
	}
	g.last = now

	// ordine fisso: stesso seed, stessa sequenza
	for _, m := range entities.Metrics {
		step, ok := steps[m]
		if !ok {
			continue
		}
		l := clamps[m]
		g.values[m] = math.Max(l.lo, math.Min(l.hi, g.values[m]+g.rnd.NormFloat64()*step))
	}

	r := model.Reading{FieldID: sensor.FieldID, SensorID: sensor.ID, Timestamp: now}
	r.Set(entities.MetricMoisture, round(g.moisture*100, 1))
	for m, v := range g.values {
		r.Set(m, round(v, 2))
	}
	if g.FaultRate > 0 && g.rnd.Float64() < g.FaultRate {
		r.Set(entities.Metrics[g.rnd.Intn(len(entities.Metrics))], math.NaN())
	}
	return r
}

// ApplyIrrigation permette di accumulare un boost pre-seed.
// (Se già seedato: l'aumento avviene progressivamente mentre lo stato è ON.)
func (g *DataGenerator) ApplyIrrigation(d time.Duration) {
	if g == nil || d <= 0 {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.seeded {
		g.pendingBoost += gainPerMin * d.Minutes()
	}
}

// moisture interna in [0.10..1.00]
func clampMoisture(x float64) float64 {
	l := clamps[entities.MetricMoisture]
	return math.Max(l.lo/100, math.Min(l.hi/100, x))
}

func round(v float64, digits int) float64 {
	p := math.Pow(10, float64(digits))
	return math.Round(v*p) / p
}
