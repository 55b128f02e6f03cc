package main

import (
	"context"

	"github.com/amity-social/amity/internal/app"
	"github.com/amity-social/amity/internal/cache"
	"github.com/amity-social/amity/internal/config"
	"github.com/amity-social/amity/internal/db"
	"github.com/amity-social/amity/internal/logger"
	"github.com/amity-social/amity/internal/notify"
	"github.com/amity-social/amity/internal/repository"
	"github.com/amity-social/amity/internal/server"
	"github.com/amity-social/amity/internal/service/account"
	"github.com/amity-social/amity/internal/service/matching"
	"github.com/amity-social/amity/internal/service/queue"
)

func main() {
	cfg := config.New()

	// Init logger (global singleton)
	logger.Init(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     logger.Format(cfg.Log.Format),
		Component:  cfg.Log.Component,
		WithSource: cfg.Log.Source,
	})
	log := logger.L()

	// Init DB
	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		return
	}

	// Init Redis
	redisCache := cache.NewRedisCache(cfg)
	if err := redisCache.Ping(context.Background()); err != nil {
		log.Error("failed to connect to redis", "err", err)
		return
	}

	appCtx := app.New(database, redisCache, log)

	// Notification fanout. The log transport stands in for a push provider
	// outside production.
	dispatcher := notify.NewDispatcher(
		repository.NewSubscriptionRepository(database),
		&notify.LogTransport{Logger: log.With("component", "notify")},
		log,
	)

	registrars := []server.Registrar{
		matching.NewRegistrar(appCtx, dispatcher),
		queue.NewRegistrar(appCtx),
		account.NewRegistrar(appCtx),
	}

	if cfg.App.Env == "development" && cfg.App.SeedOnBoot {
		if err := db.SeedTestData(database); err != nil {
			log.Error("failed to seed", "err", err)
		}
	}

	addr := cfg.HTTP.Host + ":" + cfg.HTTP.Port
	log.Info("starting HTTP server", "addr", addr)

	if err := server.StartHTTPServer(cfg, registrars...); err != nil {
		log.Error("failed to start HTTP server", "err", err)
	}
}
