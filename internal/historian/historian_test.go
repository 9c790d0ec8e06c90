// internal/historian/historian_test.go
package historian

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jason-s-yu/animalfarm/internal/models"
)

type chanSource struct {
	ch chan []byte
}

func (c *chanSource) Pop(ctx context.Context, timeout time.Duration) ([]byte, error) {
	select {
	case raw := <-c.ch:
		return raw, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(timeout):
		return nil, nil
	}
}

type fakeStore struct {
	mu        sync.Mutex
	batches   [][]models.ActionRecord
	abandoned []uuid.UUID
	saveErr   error
}

func (f *fakeStore) SaveActions(_ context.Context, records []models.ActionRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.batches = append(f.batches, append([]models.ActionRecord(nil), records...))
	return nil
}

func (f *fakeStore) MarkAbandoned(_ context.Context, gameID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.abandoned = append(f.abandoned, gameID)
	return true, nil
}

func (f *fakeStore) saved() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, b := range f.batches {
		n += len(b)
	}
	return n
}

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func encode(t *testing.T, rec models.ActionRecord) []byte {
	t.Helper()
	data, err := json.Marshal(rec)
	require.NoError(t, err)
	return data
}

func TestRunFlushesFullBatchesAndRemainderOnShutdown(t *testing.T) {
	src := &chanSource{ch: make(chan []byte, 8)}
	store := &fakeStore{}
	hs := New(src, store, Config{BatchSize: 2, FlushDelay: time.Hour, PopTimeout: 10 * time.Millisecond}, quietLogger())

	gameID := uuid.New()
	for i := 0; i < 3; i++ {
		src.ch <- encode(t, models.ActionRecord{GameID: gameID, ActionIndex: i, ActionType: "player_draw"})
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- hs.Run(ctx) }()

	require.Eventually(t, func() bool { return store.saved() == 2 }, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return hs.Pending() == 1 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, 3, store.saved())
	assert.Len(t, store.batches, 2)
}

func TestInvalidRecordsAreSkipped(t *testing.T) {
	hs := New(&chanSource{}, &fakeStore{}, Config{BatchSize: 1}, quietLogger())
	assert.False(t, hs.handle([]byte("{not json")))
	assert.Zero(t, hs.Pending())
}

func TestFailedFlushKeepsRecords(t *testing.T) {
	store := &fakeStore{saveErr: errors.New("db down")}
	hs := New(&chanSource{}, store, Config{BatchSize: 10}, quietLogger())
	hs.handle(encode(t, models.ActionRecord{GameID: uuid.New(), ActionIndex: 0}))
	hs.handle(encode(t, models.ActionRecord{GameID: uuid.New(), ActionIndex: 1}))

	assert.Error(t, hs.Flush(context.Background()))
	assert.Equal(t, 2, hs.Pending())

	store.mu.Lock()
	store.saveErr = nil
	store.mu.Unlock()
	require.NoError(t, hs.Flush(context.Background()))
	assert.Zero(t, hs.Pending())
	require.Len(t, store.batches, 1)
	assert.Equal(t, 0, store.batches[0][0].ActionIndex, "order is preserved across retries")
}

func TestSweepMarksSilentGamesAbandoned(t *testing.T) {
	store := &fakeStore{}
	hs := New(&chanSource{}, store, Config{BatchSize: 10, Inactivity: time.Minute}, quietLogger())

	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	hs.now = func() time.Time { return clock }

	stale, finished, fresh := uuid.New(), uuid.New(), uuid.New()
	hs.handle(encode(t, models.ActionRecord{GameID: stale, ActionType: "game_start"}))
	hs.handle(encode(t, models.ActionRecord{GameID: finished, ActionType: "game_start"}))
	hs.handle(encode(t, models.ActionRecord{GameID: finished, ActionIndex: 1, ActionType: "game_end"}))

	clock = clock.Add(2 * time.Minute)
	hs.handle(encode(t, models.ActionRecord{GameID: fresh, ActionType: "game_start"}))

	assert.Equal(t, 1, hs.Sweep(context.Background()))
	assert.Equal(t, []uuid.UUID{stale}, store.abandoned)
	assert.Equal(t, 4, store.saved(), "pending records are flushed before marking")

	assert.Zero(t, hs.Sweep(context.Background()), "a game is only marked once")
}
