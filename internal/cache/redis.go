// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jason-s-yu/animalfarm/internal/game"
	"github.com/jason-s-yu/animalfarm/internal/models"
)

// DefaultQueueName is the Redis list (queue) name for game action logs.
const DefaultQueueName = "animalfarm_actions"

// Connect opens a client and pings it before returning.
func Connect(ctx context.Context, addr string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// Publisher pushes committed game events onto the historian queue. It satisfies game.Recorder.
type Publisher struct {
	rdb   *redis.Client
	queue string
	now   func() time.Time
}

// NewPublisher pushes records onto queue through rdb.
func NewPublisher(rdb *redis.Client, queue string) *Publisher {
	if queue == "" {
		queue = DefaultQueueName
	}
	return &Publisher{rdb: rdb, queue: queue, now: time.Now}
}

// Queue returns the list name records are pushed to.
func (p *Publisher) Queue() string {
	return p.queue
}

// Record converts events to ActionRecords and pushes them in one RPush, keeping their order.
func (p *Publisher) Record(ctx context.Context, gameID uuid.UUID, events []game.Event) error {
	if len(events) == 0 {
		return nil
	}
	ts := p.now().UnixMilli()
	records := make([]models.ActionRecord, len(events))
	for i, ev := range events {
		records[i] = RecordFromEvent(gameID, ev, ts)
	}
	return p.Publish(ctx, records...)
}

// Publish serializes the given records to JSON, then pushes them to the Redis queue.
func (p *Publisher) Publish(ctx context.Context, records ...models.ActionRecord) error {
	values := make([]interface{}, 0, len(records))
	for _, rec := range records {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal ActionRecord: %w", err)
		}
		values = append(values, data)
	}
	if err := p.rdb.RPush(ctx, p.queue, values...).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", p.queue, err)
	}
	return nil
}

// RecordFromEvent flattens an event into the queue format. The narration text,
// target and cards travel in the payload.
func RecordFromEvent(gameID uuid.UUID, ev game.Event, ts int64) models.ActionRecord {
	payload := map[string]interface{}{
		"message": ev.Message,
	}
	if ev.Target != nil {
		payload["target"] = *ev.Target
	}
	if len(ev.CardIDs) > 0 {
		payload["cardIds"] = ev.CardIDs
	}
	if ev.Amount != 0 {
		payload["amount"] = ev.Amount
	}
	return models.ActionRecord{
		GameID:        gameID,
		ActionIndex:   ev.Seq,
		Turn:          ev.Turn,
		ActorID:       ev.Actor,
		ActionType:    string(ev.Type),
		ActionPayload: payload,
		Timestamp:     ts,
	}
}
