// Package knowledge holds the reference tables the advisor evaluates against:
// alert thresholds, alert texts and crop tolerance profiles. Defaults are
// embedded; each table can be replaced by a JSON file at startup.
package knowledge

import (
	"embed"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/LeonardoBeccarini/soil_advisor/internal/model/entities"
)

//go:embed defaults/*.json
var defaultFiles embed.FS

// Paths points at optional override files. Empty means embedded default.
type Paths struct {
	Thresholds string
	Messages   string
	Crops      string
	// Lang selects the embedded message table ("en" or "bn") when Messages is empty.
	Lang string
}

// Base is immutable after Load; accessors hand out copies.
type Base struct {
	thresholds entities.Thresholds
	messages   entities.MessageTable
	crops      []entities.CropProfile
}

// Default loads the embedded tables only.
func Default() (*Base, error) {
	return Load(Paths{})
}

// Load builds a Base from the embedded defaults and any override files.
func Load(p Paths) (*Base, error) {
	b := &Base{}

	if err := decode(p.Thresholds, "defaults/thresholds.json", &b.thresholds); err != nil {
		return nil, fmt.Errorf("thresholds: %w", err)
	}
	if err := decode(p.Messages, messagesFile(p.Lang), &b.messages); err != nil {
		return nil, fmt.Errorf("messages: %w", err)
	}
	if err := decode(p.Crops, "defaults/crops.json", &b.crops); err != nil {
		return nil, fmt.Errorf("crops: %w", err)
	}

	if len(b.thresholds) == 0 {
		return nil, fmt.Errorf("thresholds: no known metric")
	}
	for m, band := range b.thresholds {
		if band.Low > band.High {
			log.Printf("knowledge: WARN threshold low>high metric=%s low=%.2f high=%.2f", m, band.Low, band.High)
		}
	}
	for i, c := range b.crops {
		for m, band := range c.Ranges {
			if band.Low > band.High {
				log.Printf("knowledge: WARN crop range min>max crop=%q idx=%d metric=%s", c.Name, i, m)
			}
		}
	}
	log.Printf("knowledge: loaded thresholds=%d crops=%d lang=%s", len(b.thresholds), len(b.crops), langOrDefault(p.Lang))
	return b, nil
}

func messagesFile(lang string) string {
	if langOrDefault(lang) == "bn" {
		return "defaults/messages.bn.json"
	}
	return "defaults/messages.json"
}

func langOrDefault(lang string) string {
	l := strings.ToLower(strings.TrimSpace(lang))
	if l == "" {
		return "en"
	}
	return l
}

// file su disco se indicato, altrimenti quello embedded
func decode(path, embedded string, dst any) error {
	var (
		raw []byte
		err error
	)
	if path != "" {
		raw, err = os.ReadFile(path)
	} else {
		raw, err = defaultFiles.ReadFile(embedded)
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		src := path
		if src == "" {
			src = embedded
		}
		return fmt.Errorf("decode %s: %w", src, err)
	}
	return nil
}

func (b *Base) Thresholds() entities.Thresholds { return b.thresholds.Clone() }

func (b *Base) Messages() entities.MessageTable {
	out := entities.MessageTable{
		Metrics:   make(map[entities.Metric]entities.MetricMessages, len(b.messages.Metrics)),
		AllNormal: b.messages.AllNormal,
	}
	for k, v := range b.messages.Metrics {
		out.Metrics[k] = v
	}
	return out
}

// Crops returns the knowledge base in file order.
func (b *Base) Crops() []entities.CropProfile {
	out := make([]entities.CropProfile, len(b.crops))
	for i, c := range b.crops {
		cc := c
		cc.Ranges = make(map[entities.Metric]entities.Band, len(c.Ranges))
		for k, v := range c.Ranges {
			cc.Ranges[k] = v
		}
		out[i] = cc
	}
	return out
}
