package sensor_simulator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

const soilGridsBase = "https://rest.isric.org"

// SoilGrids reads the volumetric water content at 10 kPa (wv0010) for a
// coordinate. Called once at startup, never per tick.
type SoilGrids struct {
	client *resty.Client
}

func NewSoilGrids(base string) *SoilGrids {
	if base == "" {
		base = soilGridsBase
	}
	c := resty.New().
		SetBaseURL(base).
		SetTimeout(8*time.Second).
		SetHeader("User-Agent", "soil-advisor-simulator/1.0").
		SetRetryCount(1).
		SetRetryWaitTime(600 * time.Millisecond).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() == 429 || r.StatusCode() >= 500
		})
	return &SoilGrids{client: c}
}

// Moisture returns the surface moisture in [0..1].
func (s *SoilGrids) Moisture(ctx context.Context, lat, lon float64) (float64, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"lat":      fmt.Sprintf("%f", lat),
			"lon":      fmt.Sprintf("%f", lon),
			"property": "wv0010",
		}).
		Get("/soilgrids/v2.0/properties/query")
	if err != nil {
		return -1, fmt.Errorf("soilgrids: %w", err)
	}
	if resp.StatusCode() != 200 {
		return -1, fmt.Errorf("soilgrids HTTP %d", resp.StatusCode())
	}
	var parsed any
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return -1, fmt.Errorf("soilgrids decode: %w", err)
	}
	if m := extractMoistureHeuristic(parsed); m >= 0 {
		return normalizeWV(m), nil
	}
	return -1, errors.New("soilgrids: moisture field not found")
}

// Prova a trovare un valore numerico di moisture in strutture comuni della risposta:
//   - {"properties":{"layers":[{"name":"wv0010","depths":[{"values":{"Q0.5":0.27}}]}]}}
//   - {"features":[{"properties":{...come sopra...}}]}
func extractMoistureHeuristic(v any) float64 {
	m, ok := v.(map[string]any)
	if !ok {
		return -1
	}
	if feats, ok := m["features"].([]any); ok && len(feats) > 0 {
		if f0, ok := feats[0].(map[string]any); ok {
			if p, ok := f0["properties"].(map[string]any); ok {
				if x := extractFromProperties(p); x >= 0 {
					return x
				}
			}
		}
	}
	if p, ok := m["properties"].(map[string]any); ok {
		return extractFromProperties(p)
	}
	return -1
}

func extractFromProperties(p map[string]any) float64 {
	layers, ok := p["layers"].([]any)
	if !ok || len(layers) == 0 {
		return -1
	}
	l0, ok := layers[0].(map[string]any)
	if !ok {
		return -1
	}
	depths, ok := l0["depths"].([]any)
	if !ok || len(depths) == 0 {
		return -1
	}
	d0, ok := depths[0].(map[string]any)
	if !ok {
		return -1
	}
	vals, ok := d0["values"].(map[string]any)
	if !ok {
		return -1
	}
	for _, k := range []string{"Q0.5", "mean", "Q0.95", "Q0.05", "value", "MED"} {
		if f, ok := vals[k].(float64); ok {
			return f
		}
	}
	return -1
}

// normalizeWV: i layer wv**** sono spesso interi in millesimi di m3/m3 (420 => 0.420).
func normalizeWV(x float64) float64 {
	if x > 1.5 {
		x = x / 1000.0
	}
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
