// Package config reads process settings from the environment.
package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/animalfarm/internal/database"
	"github.com/jason-s-yu/animalfarm/internal/game"
	"github.com/jason-s-yu/animalfarm/internal/historian"
)

// Historian sinks.
const (
	SinkPostgres = "postgres"
	SinkSQLite   = "sqlite"
)

// Config is shared by the simulator and the historian binaries.
type Config struct {
	// Seed drives every shuffle. 0 derives a seed from the clock.
	Seed     int64  `env:"ANIMALFARM_SEED" envDefault:"0"`
	Games    int    `env:"ANIMALFARM_GAMES" envDefault:"1"`
	MaxTurns int    `env:"ANIMALFARM_MAX_TURNS" envDefault:"200"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	// CatalogPath optionally replaces the embedded card and character data.
	CatalogPath string `env:"ANIMALFARM_CATALOG"`
	// HouseRules is a JSON object of rule overrides, e.g. {"handLimit": 5}.
	HouseRules string `env:"ANIMALFARM_HOUSE_RULES"`

	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`
	QueueName string `env:"HISTORIAN_QUEUE_NAME" envDefault:"animalfarm_actions"`
	// Publish pushes game events onto the historian queue.
	Publish bool `env:"ANIMALFARM_PUBLISH" envDefault:"false"`

	HistorianSink      string `env:"HISTORIAN_SINK" envDefault:"sqlite"`
	SQLitePath         string `env:"HISTORIAN_SQLITE_PATH" envDefault:"animalfarm.db"`
	HistorianBatchSize int    `env:"HISTORIAN_BATCH_SIZE" envDefault:"20"`
	HistorianFlushMS   int    `env:"HISTORIAN_FLUSH_MS" envDefault:"500"`
	InactivitySec      int    `env:"GAME_INACTIVITY_TIMEOUT_SEC" envDefault:"600"`

	PostgresUser     string `env:"POSTGRES_USER"`
	PostgresPassword string `env:"POSTGRES_PASSWORD"`
	PGHost           string `env:"PG_HOST" envDefault:"localhost"`
	PGPort           string `env:"PG_PORT" envDefault:"5432"`
	PGDatabase       string `env:"PG_DATABASE" envDefault:"animalfarm"`
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects values the binaries cannot run with.
func (c Config) Validate() error {
	if c.Games < 1 {
		return fmt.Errorf("ANIMALFARM_GAMES must be at least 1, got %d", c.Games)
	}
	if c.MaxTurns < 1 {
		return fmt.Errorf("ANIMALFARM_MAX_TURNS must be at least 1, got %d", c.MaxTurns)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	if _, err := c.Rules(); err != nil {
		return err
	}
	switch strings.ToLower(c.HistorianSink) {
	case SinkPostgres, SinkSQLite:
	default:
		return fmt.Errorf("HISTORIAN_SINK must be %q or %q, got %q", SinkPostgres, SinkSQLite, c.HistorianSink)
	}
	return nil
}

// Rules applies the ANIMALFARM_HOUSE_RULES overrides to the default house rules.
func (c Config) Rules() (game.HouseRules, error) {
	if strings.TrimSpace(c.HouseRules) == "" {
		return game.DefaultHouseRules(), nil
	}
	var overrides map[string]interface{}
	if err := json.Unmarshal([]byte(c.HouseRules), &overrides); err != nil {
		return game.HouseRules{}, fmt.Errorf("ANIMALFARM_HOUSE_RULES: %w", err)
	}
	rules, err := game.ParseRules(overrides, game.DefaultHouseRules())
	if err != nil {
		return game.HouseRules{}, fmt.Errorf("ANIMALFARM_HOUSE_RULES: %w", err)
	}
	return rules, nil
}

// Logger builds a text logger at the configured level.
func (c Config) Logger() *logrus.Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if lvl, err := logrus.ParseLevel(c.LogLevel); err == nil {
		l.SetLevel(lvl)
	}
	return l
}

// Postgres returns the connection settings for the Postgres sink.
func (c Config) Postgres() database.PostgresConfig {
	return database.PostgresConfig{
		User:     c.PostgresUser,
		Password: c.PostgresPassword,
		Host:     c.PGHost,
		Port:     c.PGPort,
		Database: c.PGDatabase,
	}
}

// Historian returns the batching settings of the historian service.
func (c Config) Historian() historian.Config {
	cfg := historian.DefaultConfig()
	cfg.BatchSize = c.HistorianBatchSize
	cfg.FlushDelay = time.Duration(c.HistorianFlushMS) * time.Millisecond
	cfg.Inactivity = time.Duration(c.InactivitySec) * time.Second
	return cfg
}
