package entities

// SensorState indicates whether the valve next to a probe is open.
type SensorState string

const (
	StateOff SensorState = "off"
	StateOn  SensorState = "on"
)

// Sensor is a soil probe board installed in a field.
type Sensor struct {
	FieldID   string      `json:"field_id"`
	ID        string      `json:"id"`
	Longitude float64     `json:"longitude"`
	Latitude  float64     `json:"latitude"`
	State     SensorState `json:"state"`
}
