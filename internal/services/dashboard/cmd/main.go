package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"github.com/bob-jr-kab/Fire-Detection-Alert-System/internal/model"
	"github.com/bob-jr-kab/Fire-Detection-Alert-System/internal/services/alerts"
	"github.com/bob-jr-kab/Fire-Detection-Alert-System/internal/services/dashboard"
)

func envStr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func main() {
	_ = godotenv.Load()

	cfg := struct {
		Port       string
		RedisAddr  string
		RedisPass  string
		RedisDB    int
		GatewayURL string
		PageSize   int

		TempCriticalC    float64
		SmokeCriticalPPM float64
	}{
		Port:       envStr("PORT", "5000"),
		RedisAddr:  envStr("REDIS_ADDR", "localhost:6379"),
		RedisPass:  os.Getenv("REDIS_PASSWORD"),
		RedisDB:    envInt("REDIS_DB", 0),
		GatewayURL: envStr("GATEWAY_URL", "http://localhost:3000"),
		PageSize:   envInt("HISTORY_PAGE_SIZE", 6),

		TempCriticalC:    envFloat("TEMP_CRITICAL_C", model.DefaultSeverityPolicy().TempCriticalC),
		SmokeCriticalPPM: envFloat("SMOKE_CRITICAL_PPM", model.DefaultSeverityPolicy().SmokeCriticalPPM),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mirror, err := alerts.NewRedisMirror(ctx, cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	if err != nil {
		log.Fatalf("dashboard: redis init: %v", err)
	}

	policy := model.SeverityPolicy{TempCriticalC: cfg.TempCriticalC, SmokeCriticalPPM: cfg.SmokeCriticalPPM}
	watcher := dashboard.NewWatcher(policy)

	// subscription loop: se il canale si chiude, riprova con backoff e
	// nel frattempo la UI mostra "disconnected"
	go func() {
		bo := backoff.NewExponentialBackOff()
		bo.MaxElapsedTime = 0 // keep retrying for the life of the process
		for {
			snaps, err := mirror.SubscribeSnapshots(ctx)
			if err == nil {
				bo.Reset()
				watcher.Run(snaps)
			}
			if ctx.Err() != nil {
				return
			}
			watcher.SetConnected(false)
			select {
			case <-ctx.Done():
				return
			case <-time.After(bo.NextBackOff()):
			}
		}
	}()

	srv := dashboard.NewServer(watcher, dashboard.NewHistoryClient(cfg.GatewayURL, 5*time.Second), cfg.PageSize)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
	})
	httpSrv := &http.Server{Addr: ":" + cfg.Port, Handler: c.Handler(srv.Router())}

	go func() {
		<-ctx.Done()
		_ = httpSrv.Shutdown(context.Background())
	}()

	log.Printf("dashboard listening on :%s", cfg.Port)
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("dashboard: server error: %v", err)
	}
}
