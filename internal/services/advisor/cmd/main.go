package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"google.golang.org/grpc"

	"github.com/LeonardoBeccarini/soil_advisor/internal/knowledge"
	"github.com/LeonardoBeccarini/soil_advisor/internal/services/advisor"
	"github.com/LeonardoBeccarini/soil_advisor/pkg/broker"
	"github.com/LeonardoBeccarini/soil_advisor/pkg/dedup"
	"github.com/LeonardoBeccarini/soil_advisor/pkg/esp32"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := advisor.LoadConfig(ctx)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	kb, err := knowledge.Load(cfg.Knowledge())
	if err != nil {
		log.Fatalf("knowledge base: %v", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := advisor.NewMetrics(reg)

	opts := advisor.Options{
		Strict:  cfg.StrictMissing,
		Metrics: metrics,
		Dedup:   dedup.New(2*cfg.PollInterval, 10000),
	}
	health := &advisor.Health{StaleAfter: cfg.StaleAfter}

	// === ESP32 ===
	if cfg.ESP32URL != "" {
		board := esp32.New(cfg.ESP32())
		opts.Fetcher = board
		health.Breaker = board.State
		log.Printf("advisor: polling board url=%s every=%s", board.BaseURL(), cfg.PollInterval)
	}

	// === MQTT ===
	var mqttClient mqtt.Client
	if cfg.MQTTHost != "" {
		mqttClient, err = broker.Connect(ctx, cfg.Broker())
		if err != nil {
			log.Fatalf("mqtt: %v", err)
		}
		defer broker.Close(mqttClient)
		opts.Publisher = broker.NewPublisher(mqttClient)
		health.MQTT = mqttClient
	}

	svc := advisor.New(kb, opts)
	health.Service = svc

	if mqttClient != nil {
		go broker.NewConsumer(mqttClient, svc.OnSensorMessage, cfg.SensorSubTopic).Consume(ctx)
	}
	go svc.RunPoller(ctx, cfg.PollInterval)

	// === HTTP ===
	hs := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.HTTPPort),
		Handler:           advisor.Routes(svc, health),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Printf("advisor: HTTP listening on :%d", cfg.HTTPPort)
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()

	// === gRPC ===
	addr := ":" + strconv.Itoa(cfg.GRPCPort)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatalf("listen %s: %v", addr, err)
	}
	gs := grpc.NewServer()
	hsrv := advisor.RegisterAdvisorServer(gs, advisor.NewGrpcHandler(svc))
	go func() {
		log.Printf("advisor: gRPC listening on %s service=%s", addr, advisor.GRPCServiceName)
		if err := gs.Serve(lis); err != nil {
			log.Fatalf("gRPC serve error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("advisor: shutting down...")

	svc.WaitPublishes()
	hsrv.Shutdown()
	shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = hs.Shutdown(shCtx)
	gs.GracefulStop()
}
