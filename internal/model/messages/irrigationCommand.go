package messages

import (
	"time"

	"github.com/LeonardoBeccarini/soil_advisor/internal/model/entities"
)

// IrrigationCommand switches the valve next to a probe, for DurationSec seconds.
// Consumed by the sensor simulator on event/StateChange/{field}/{sensor}.
type IrrigationCommand struct {
	FieldID     string               `json:"field_id"`
	SensorID    string               `json:"sensor_id"`
	NewState    entities.SensorState `json:"new_state"`
	DurationSec float64              `json:"duration_s"`
	Timestamp   time.Time            `json:"timestamp"`
}

// Duration returns the command length as a time.Duration.
func (c IrrigationCommand) Duration() time.Duration {
	if c.DurationSec <= 0 {
		return 0
	}
	return time.Duration(c.DurationSec * float64(time.Second))
}
