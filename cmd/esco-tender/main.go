package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"esco_tender/internal/config"
	"esco_tender/internal/http-server/handlers/api/ping"
	"esco_tender/internal/http-server/router"
	"esco_tender/internal/storage"
	"esco_tender/internal/storage/cache"
	"esco_tender/internal/storage/memory"
	"esco_tender/internal/storage/postgres"
	"esco_tender/internal/storage/redis"
)

type backend interface {
	storage.Storage
	ping.Pinger
}

func main() {
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	cfg, err := config.Load(log)
	if err != nil {
		log.Error("Failed to load config", slog.Attr{Key: "error", Value: slog.StringValue(err.Error())})
		os.Exit(1)
	}

	log = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))

	var base backend
	switch cfg.Storage {
	case config.StoragePostgres:
		pg, err := postgres.New(cfg.PostgresConn)
		if err != nil {
			log.Error("Failed to connect to postgresql", slog.Attr{Key: "error", Value: slog.StringValue(err.Error())})
			os.Exit(1)
		}
		defer pg.Close()
		base = pg
	default:
		log.Warn("using in-memory storage, data is lost on restart")
		base = memory.New()
	}

	var store storage.Storage = base
	if cfg.RedisAddr != "" {
		rc, err := redis.New(cfg.RedisAddr, cfg.CacheTTL)
		if err != nil {
			log.Error("Failed to connect to redis", slog.Attr{Key: "error", Value: slog.StringValue(err.Error())})
			os.Exit(1)
		}
		defer rc.Close()
		store = cache.New(base, rc, log)
		log.Info("tender cache enabled", slog.String("addr", cfg.RedisAddr), slog.Duration("ttl", cfg.CacheTTL))
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	srv := &http.Server{
		Addr:    cfg.HTTPAddress,
		Handler: router.New(log, store, base),
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("failed to start the server", slog.Attr{Key: "error", Value: slog.StringValue(err.Error())})
		}
	}()

	log.Info("starting server", slog.String("address", cfg.HTTPAddress))
	<-done

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("failed to stop the server", slog.Attr{Key: "error", Value: slog.StringValue(err.Error())})
	}
	log.Info("server stopped")
}
