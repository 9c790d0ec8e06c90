// Package historian drains the action queue and persists the records in batches.
package historian

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/jason-s-yu/animalfarm/internal/database"
	"github.com/jason-s-yu/animalfarm/internal/models"
)

// Source yields raw queued records. Pop returns nil, nil when nothing arrived within timeout.
type Source interface {
	Pop(ctx context.Context, timeout time.Duration) ([]byte, error)
}

// Store persists flushed batches.
type Store interface {
	SaveActions(ctx context.Context, records []models.ActionRecord) error
	MarkAbandoned(ctx context.Context, gameID uuid.UUID) (bool, error)
}

// RedisSource pops from a Redis list with BLPop.
type RedisSource struct {
	rdb   *redis.Client
	queue string
}

func NewRedisSource(rdb *redis.Client, queue string) *RedisSource {
	return &RedisSource{rdb: rdb, queue: queue}
}

func (r *RedisSource) Pop(ctx context.Context, timeout time.Duration) ([]byte, error) {
	res, err := r.rdb.BLPop(ctx, timeout, r.queue).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	// res[0] is the queue name and res[1] the payload.
	if len(res) < 2 {
		return nil, nil
	}
	return []byte(res[1]), nil
}

// Config tunes batching and the inactivity sweep.
type Config struct {
	BatchSize     int
	FlushDelay    time.Duration
	Inactivity    time.Duration // duration until a game is marked abandoned
	SweepInterval time.Duration
	PopTimeout    time.Duration
}

// DefaultConfig mirrors HISTORIAN_BATCH_SIZE=20, HISTORIAN_FLUSH_MS=500 and a 10 minute inactivity timeout.
func DefaultConfig() Config {
	return Config{
		BatchSize:     20,
		FlushDelay:    500 * time.Millisecond,
		Inactivity:    10 * time.Minute,
		SweepInterval: time.Minute,
		PopTimeout:    3 * time.Second,
	}
}

// Service moves records from a Source into a Store and marks silent games abandoned.
type Service struct {
	source Source
	store  Store
	cfg    Config
	logger logrus.FieldLogger
	now    func() time.Time

	lastActivity sync.Map // map[uuid.UUID]time.Time

	batchMu sync.Mutex
	batch   []models.ActionRecord
}

func New(source Source, store Store, cfg Config, logger logrus.FieldLogger) *Service {
	def := DefaultConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.FlushDelay <= 0 {
		cfg.FlushDelay = def.FlushDelay
	}
	if cfg.Inactivity <= 0 {
		cfg.Inactivity = def.Inactivity
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = def.SweepInterval
	}
	if cfg.PopTimeout <= 0 {
		cfg.PopTimeout = def.PopTimeout
	}
	return &Service{
		source: source,
		store:  store,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
		batch:  make([]models.ActionRecord, 0, cfg.BatchSize),
	}
}

// Run blocks until ctx is cancelled, then flushes whatever is still buffered.
func (hs *Service) Run(ctx context.Context) error {
	hs.logger.Info("historian service started")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return hs.readLoop(gctx) })
	g.Go(func() error { hs.flushLoop(gctx); return nil })
	g.Go(func() error { hs.inactivityLoop(gctx); return nil })
	err := g.Wait()

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if ferr := hs.Flush(flushCtx); ferr != nil && err == nil {
		err = ferr
	}
	hs.logger.Info("historian service stopped")
	return err
}

func (hs *Service) readLoop(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		raw, err := hs.source.Pop(ctx, hs.cfg.PopTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			hs.logger.WithError(err).Error("queue pop failed")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}
		if raw == nil {
			continue
		}
		if hs.handle(raw) {
			if err := hs.Flush(ctx); err != nil {
				hs.logger.WithError(err).Error("flush failed")
			}
		}
	}
}

// handle buffers one record and reports whether the batch is full.
func (hs *Service) handle(raw []byte) bool {
	var record models.ActionRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		hs.logger.WithError(err).Warn("invalid action record")
		return false
	}

	if record.ActionType == database.FinalActionType {
		hs.lastActivity.Delete(record.GameID)
	} else {
		hs.lastActivity.Store(record.GameID, hs.now())
	}

	hs.batchMu.Lock()
	defer hs.batchMu.Unlock()
	hs.batch = append(hs.batch, record)
	return len(hs.batch) >= hs.cfg.BatchSize
}

func (hs *Service) flushLoop(ctx context.Context) {
	ticker := time.NewTicker(hs.cfg.FlushDelay)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := hs.Flush(ctx); err != nil {
				hs.logger.WithError(err).Error("flush failed")
			}
		}
	}
}

// Flush writes the buffered records in one call. On failure they are put back
// in front of anything buffered since.
func (hs *Service) Flush(ctx context.Context) error {
	hs.batchMu.Lock()
	if len(hs.batch) == 0 {
		hs.batchMu.Unlock()
		return nil
	}
	pending := hs.batch
	hs.batch = make([]models.ActionRecord, 0, hs.cfg.BatchSize)
	hs.batchMu.Unlock()

	if err := hs.store.SaveActions(ctx, pending); err != nil {
		hs.batchMu.Lock()
		hs.batch = append(pending, hs.batch...)
		hs.batchMu.Unlock()
		return err
	}
	hs.logger.WithField("actions", len(pending)).Debug("flushed actions")
	return nil
}

// Pending returns how many records wait for the next flush.
func (hs *Service) Pending() int {
	hs.batchMu.Lock()
	defer hs.batchMu.Unlock()
	return len(hs.batch)
}

func (hs *Service) inactivityLoop(ctx context.Context) {
	ticker := time.NewTicker(hs.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			hs.Sweep(ctx)
		}
	}
}

// Sweep marks every game silent for longer than the inactivity timeout as abandoned
// and returns how many were marked.
func (hs *Service) Sweep(ctx context.Context) int {
	now := hs.now()
	marked := 0
	hs.lastActivity.Range(func(key, val interface{}) bool {
		gameID, ok1 := key.(uuid.UUID)
		last, ok2 := val.(time.Time)
		if !ok1 || !ok2 || now.Sub(last) <= hs.cfg.Inactivity {
			return true
		}
		// Pending records must reach the store before the game row can be marked.
		if err := hs.Flush(ctx); err != nil {
			hs.logger.WithError(err).Error("flush before sweep failed")
			return false
		}
		changed, err := hs.store.MarkAbandoned(ctx, gameID)
		if err != nil {
			hs.logger.WithError(err).WithField("game", gameID).Error("failed to mark game abandoned")
			return true
		}
		hs.lastActivity.Delete(gameID)
		if changed {
			marked++
			hs.logger.WithField("game", gameID).Info("marked game abandoned due to inactivity")
		}
		return true
	})
	return marked
}
