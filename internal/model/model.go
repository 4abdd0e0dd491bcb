package model

import (
	"github.com/LeonardoBeccarini/soil_advisor/internal/model/entities"
	"github.com/LeonardoBeccarini/soil_advisor/internal/model/messages"
)

// Alias per esporre i tipi comuni ai servizi

type (
	Metric            = entities.Metric
	Reading           = entities.Reading
	Band              = entities.Band
	Thresholds        = entities.Thresholds
	Message           = entities.Message
	MessageTable      = entities.MessageTable
	CropProfile       = entities.CropProfile
	Sensor            = entities.Sensor
	SensorState       = entities.SensorState
	SoilReading       = messages.SoilReading
	SoilAlertEvent    = messages.SoilAlertEvent
	IrrigationCommand = messages.IrrigationCommand
)

const (
	StateOn  = entities.StateOn
	StateOff = entities.StateOff
)
