// cmd/historian/main.go drains the Redis action queue into the configured store.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/animalfarm/internal/cache"
	"github.com/jason-s-yu/animalfarm/internal/config"
	"github.com/jason-s-yu/animalfarm/internal/database"
	"github.com/jason-s-yu/animalfarm/internal/historian"
)

func main() {
	os.Exit(run())
}

// run returns the process exit code so deferred cleanup always happens.
func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 1
	}
	logger := cfg.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Error("unable to open store")
		return 1
	}
	defer closeStore()

	rdb, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		logger.WithError(err).Error("unable to reach redis")
		return 1
	}
	defer rdb.Close()

	hs := historian.New(historian.NewRedisSource(rdb, cfg.QueueName), store, cfg.Historian(), logger)
	logger.WithFields(logrus.Fields{
		"queue": cfg.QueueName,
		"sink":  cfg.HistorianSink,
	}).Info("historian listening")

	if err := hs.Run(ctx); err != nil {
		logger.WithError(err).Error("historian exited with error")
		return 1
	}
	logger.Info("historian shutdown complete")
	return 0
}

func openStore(ctx context.Context, cfg config.Config, logger *logrus.Logger) (historian.Store, func(), error) {
	switch strings.ToLower(cfg.HistorianSink) {
	case config.SinkPostgres:
		pool, err := database.ConnectDB(ctx, cfg.Postgres(), logger)
		if err != nil {
			return nil, nil, err
		}
		store := database.NewPostgresStore(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return store, pool.Close, nil
	default:
		store, err := database.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		logger.WithField("path", cfg.SQLitePath).Info("using sqlite store")
		return store, func() { _ = store.Close() }, nil
	}
}
