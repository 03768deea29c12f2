package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/bob-jr-kab/Fire-Detection-Alert-System/internal/services/alerts"
	"github.com/bob-jr-kab/Fire-Detection-Alert-System/internal/services/gateway/app"
	"github.com/bob-jr-kab/Fire-Detection-Alert-System/internal/services/stream"
	"github.com/bob-jr-kab/Fire-Detection-Alert-System/pkg/mqttbus"
)

func main() {
	// .env è opzionale: in container la config arriva dall'ambiente
	_ = godotenv.Load()
	cfg := loadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	primary, err := alerts.NewInfluxStore(alerts.InfluxConfig{
		URL:    cfg.InfluxURL,
		Token:  cfg.InfluxToken,
		Org:    cfg.InfluxOrg,
		Bucket: cfg.InfluxBucket,
	})
	if err != nil {
		log.Fatalf("gateway: influx init: %v", err)
	}

	mirror, err := alerts.NewRedisMirror(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatalf("gateway: redis init: %v", err)
	}

	hub := stream.NewHub()
	stream.Init(hub)

	gw := app.NewGateway(app.Config{
		Hub:    hub,
		Alerts: alerts.NewService(primary, mirror),
		Logger: log.Default(),
	})

	// ingest MQTT opzionale accanto a quello HTTP
	var mqttClient mqtt.Client
	if cfg.MQTTHost != "" {
		mqttClient, err = mqttbus.NewConn(&mqttbus.Config{
			Host:     cfg.MQTTHost,
			Port:     cfg.MQTTPort,
			User:     cfg.MQTTUser,
			Password: cfg.MQTTPass,
			ClientID: envStr("HOSTNAME", "fire-gateway"),
		}, ctx)
		if err != nil {
			log.Fatalf("gateway: mqtt init: %v", err)
		}
		consumer := mqttbus.NewConsumer(mqttClient, cfg.MQTTTopic, gw.MQTTHandler)
		go consumer.ConsumeMessage(ctx)
	}

	router := gw.Router()
	router.Handle("/healthz", app.NewHealthHandler(mqttClient, primary, mirror))
	router.Handle("/readyz", app.NewReadyHandler(mqttClient, primary, mirror))
	router.Handle("/metrics", promhttp.HandlerFor(gw.MetricsRegistry(), promhttp.HandlerOpts{}))

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	})

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: c.Handler(router)}

	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()

	log.Printf("gateway listening on :%s", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("gateway: server error: %v", err)
	}
}
