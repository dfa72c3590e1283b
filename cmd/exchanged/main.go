// Command exchanged runs the matching exchange as an HTTP + WebSocket
// service: it loads a snapshot if one exists, serves order submission,
// cancellation and replacement over HTTP, and shuts down gracefully on
// SIGINT/SIGTERM, snapshotting on the way out. Grounded on the
// teacher's cmd/server/main.go wiring, extended with the supervised
// shutdown shape saiputravu-Exchange's internal/net/server.go uses.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"github.com/exchangecore/matchkernel/internal/broadcast"
	"github.com/exchangecore/matchkernel/internal/config"
	"github.com/exchangecore/matchkernel/internal/ingress"
	"github.com/exchangecore/matchkernel/internal/obslog"
	"github.com/exchangecore/matchkernel/internal/obsmetrics"
	"github.com/exchangecore/matchkernel/internal/persistence"
	"github.com/exchangecore/matchkernel/internal/registry"
)

func main() {
	obslog.Init(os.Getenv("EXCHANGE_DEBUG") != "")
	cfg := config.FromEnv()

	reg, err := loadOrCreateRegistry(cfg.SnapshotPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load snapshot")
	}

	metrics := obsmetrics.New()
	prometheus.MustRegister(obsmetrics.NewCollector(metrics))

	auth := ingress.NewAuthenticator(cfg.JWTSecret)

	var idem *ingress.IdempotencyCache
	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Warn().Err(err).Msg("redis unavailable, idempotency checking disabled")
	} else {
		idem = ingress.NewIdempotencyCache(redisClient, 5*time.Minute)
	}

	hub := broadcast.NewHub()
	server := ingress.NewServer(reg, auth, idem, hub, metrics)

	httpServer := &http.Server{Addr: cfg.ListenAddr, Handler: server.Router()}

	t, ctx := tomb.WithContext(context.Background())

	t.Go(func() error {
		log.Info().Str("addr", cfg.ListenAddr).Msg("exchange listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	t.Go(func() error {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-sigCh:
		case <-ctx.Done():
		}
		log.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("http shutdown error")
		}
		if err := persistence.SaveToFile(reg, cfg.SnapshotPath); err != nil {
			log.Error().Err(err).Msg("failed to save snapshot on shutdown")
		}
		return nil
	})

	if err := t.Wait(); err != nil {
		log.Fatal().Err(err).Msg("exchange exited with error")
	}
}

func loadOrCreateRegistry(path string) (*registry.Registry, error) {
	if _, err := os.Stat(path); err == nil {
		return persistence.LoadFromFile(path)
	}
	return registry.New(), nil
}
