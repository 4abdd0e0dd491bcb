// cmd/sensor-sim/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"math"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/LeonardoBeccarini/soil_advisor/internal/model"
	sensorSimulator "github.com/LeonardoBeccarini/soil_advisor/internal/sensor-simulator"
	"github.com/LeonardoBeccarini/soil_advisor/pkg/broker"
)

func env(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func main() {
	sensorID := flag.String("sensor-id", env("SENSOR_ID", "sensor1"), "unique sensor identifier")
	fieldID := flag.String("field-id", env("FIELD_ID", "field1"), "unique field identifier")
	clientID := flag.String("client-id", env("MQTT_CLIENT_ID", "soilSim1"), "MQTT client ID")
	interval := flag.Duration("interval", 10*time.Second, "publish interval")
	lat := flag.Float64("lat", 23.8103, "latitude")
	lon := flag.Float64("lon", 90.4125, "longitude")
	httpPort := flag.Int("http-port", envInt("HTTP_PORT", 8081), "port for GET /sensor (0 disables)")
	faults := flag.Float64("fault-rate", 0, "probability of an unparsable metric per reading")
	noMQTT := flag.Bool("no-mqtt", false, "serve HTTP only")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	halfLife := 2 * time.Hour
	decayRate := math.Log(2) / halfLife.Minutes()
	generator := sensorSimulator.NewDataGenerator(decayRate, sensorSimulator.DefaultBaseline(), time.Now().UnixNano())
	generator.FaultRate = *faults

	sensor := model.Sensor{
		FieldID:   *fieldID,
		ID:        *sensorID,
		Longitude: *lon,
		Latitude:  *lat,
		State:     model.StateOff,
	}
	seedCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	generator.SeedFromSoilGrids(seedCtx, &sensor)
	cancel()

	var pub sensorSimulator.Publisher
	var sim *sensorSimulator.SensorSimulator
	if !*noMQTT {
		client, err := broker.Connect(ctx, broker.Config{
			Host:     env("MQTT_HOST", "localhost"),
			Port:     envInt("MQTT_PORT", 1883),
			User:     env("MQTT_USER", "guest"),
			Password: env("MQTT_PASSWORD", "guest"),
			ClientID: *clientID,
		})
		if err != nil {
			log.Fatal(err)
		}
		pub = broker.NewPublisher(client)
		sim = sensorSimulator.NewSensorSimulator(pub, generator, &sensor)
		go broker.NewConsumer(client, sim.HandleCommand, broker.StateChangeTopic(*fieldID, *sensorID)).Consume(ctx)
	} else {
		sim = sensorSimulator.NewSensorSimulator(nil, generator, &sensor)
	}

	if *httpPort > 0 {
		hs := &http.Server{
			Addr:              ":" + strconv.Itoa(*httpPort),
			Handler:           sim.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			log.Printf("sim: HTTP listening on :%d (GET /sensor)", *httpPort)
			if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatalf("http server error: %v", err)
			}
		}()
		defer func() {
			shCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			_ = hs.Shutdown(shCtx)
		}()
	}

	sim.Start(ctx, *interval)
	log.Printf("sim: shutting down...")
}
