// cmd/animalfarm/main.go runs Animal Farm games, either bot-driven or replayed from a script.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/jason-s-yu/animalfarm/internal/bot"
	"github.com/jason-s-yu/animalfarm/internal/cache"
	"github.com/jason-s-yu/animalfarm/internal/catalog"
	"github.com/jason-s-yu/animalfarm/internal/config"
	"github.com/jason-s-yu/animalfarm/internal/game"
	"github.com/jason-s-yu/animalfarm/internal/models"
)

var defaultPlayers = []string{"Napoleon", "Snowball", "Boxer", "Clover"}

func main() {
	os.Exit(run())
}

// run returns the process exit code so deferred cleanup always happens.
func run() int {
	script := flag.String("script", "", "replay a JSON list of actions instead of running bots")
	narrate := flag.Bool("narrate", false, "print every event message to stdout")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 1
	}
	logger := cfg.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts, cleanup, err := sessionOptions(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Error("setup failed")
		return 1
	}
	defer cleanup()

	if *script != "" {
		err = replay(*script, cfg.Seed, opts, logger, *narrate)
	} else {
		err = simulate(ctx, cfg, opts, logger, *narrate)
	}
	if err != nil {
		logger.WithError(err).Error("run failed")
		return 1
	}
	return 0
}

// sessionOptions builds the options every session shares: logger, house rules,
// catalog and, when publishing is on, the historian queue recorder.
func sessionOptions(ctx context.Context, cfg config.Config, logger *logrus.Logger) ([]game.Option, func(), error) {
	cleanup := func() {}
	rules, err := cfg.Rules()
	if err != nil {
		return nil, cleanup, err
	}
	opts := []game.Option{game.WithLogger(logger), game.WithRules(rules)}

	if cfg.CatalogPath != "" {
		cat, err := catalog.LoadFile(cfg.CatalogPath)
		if err != nil {
			return nil, cleanup, err
		}
		opts = append(opts, game.WithCatalog(cat))
	}

	if cfg.Publish {
		rdb, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			return nil, cleanup, err
		}
		cleanup = func() { _ = rdb.Close() }
		pub := cache.NewPublisher(rdb, cfg.QueueName)
		opts = append(opts, game.WithRecorder(pub))
		logger.WithFields(logrus.Fields{"addr": cfg.RedisAddr, "queue": pub.Queue()}).Info("publishing game events")
	}
	return opts, cleanup, nil
}

func seedFor(base int64, i int) int64 {
	if base == 0 {
		return time.Now().UnixNano() + int64(i)
	}
	return base + int64(i)
}

// simulate plays cfg.Games bot games concurrently.
func simulate(ctx context.Context, cfg config.Config, opts []game.Option, logger *logrus.Logger, narrate bool) error {
	store := game.NewSessionStore()
	g, ctx := errgroup.WithContext(ctx)

	for i := 0; i < cfg.Games; i++ {
		seed := seedFor(cfg.Seed, i)
		s, err := game.NewSession(append(opts, game.WithSeed(seed))...)
		if err != nil {
			return err
		}
		store.Add(s)

		g.Go(func() error {
			entry := logger.WithFields(logrus.Fields{"game": s.ID, "seed": seed})
			res, err := s.StartGame(defaultPlayers)
			if err != nil {
				return err
			}
			if narrate {
				printEvents(res.Events)
			}

			sum, err := bot.Play(ctx, s, cfg.MaxTurns, entry)
			if err != nil {
				return fmt.Errorf("game %s: %w", s.ID, err)
			}
			if !sum.Decided {
				entry.WithField("turns", sum.Turns).Warn("turn limit reached without a winner")
				return nil
			}
			entry.WithFields(logrus.Fields{
				"turns":   sum.Turns,
				"faction": sum.Outcome.Faction,
				"winners": sum.Outcome.Winners,
			}).Info(sum.Outcome.Reason)
			return nil
		})
	}

	err := g.Wait()
	logger.WithFields(logrus.Fields{"games": len(store.IDs()), "finished": store.PruneFinished()}).Info("simulation done")
	return err
}

// replay feeds a scripted action list through a single session. Rejected actions
// are logged and skipped.
func replay(path string, seed int64, opts []game.Option, logger *logrus.Logger, narrate bool) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var actions []models.GameAction
	if err := json.Unmarshal(raw, &actions); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}

	s, err := game.NewSession(append(opts, game.WithSeed(seedFor(seed, 0)))...)
	if err != nil {
		return err
	}
	for i, action := range actions {
		res, err := s.HandleAction(action)
		if err != nil {
			entry := logger.WithError(err).WithFields(logrus.Fields{"index": i, "action": action.ActionType})
			var ge *game.Error
			if errors.As(err, &ge) && ge.Fatal() {
				return err
			}
			entry.Warn("action rejected")
			continue
		}
		if narrate {
			printEvents(res.Events)
		}
	}

	if snap := s.Snapshot(); snap != nil && snap.IsGameOver {
		logger.WithFields(logrus.Fields{"game": s.ID, "faction": snap.Outcome.Faction}).Info(snap.Outcome.Reason)
	} else {
		logger.WithField("game", s.ID).Info("script finished without a winner")
	}
	return nil
}

func printEvents(events []game.Event) {
	for _, ev := range events {
		fmt.Printf("[turn %d] %s\n", ev.Turn, ev.Message)
	}
}
