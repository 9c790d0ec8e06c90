package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jason-s-yu/animalfarm/internal/models"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS games (
	id         UUID PRIMARY KEY,
	status     TEXT NOT NULL DEFAULT 'in_progress',
	start_time TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	end_time   TIMESTAMPTZ
);
CREATE TABLE IF NOT EXISTS game_actions (
	game_id        UUID NOT NULL REFERENCES games (id),
	action_index   INT NOT NULL,
	turn           INT NOT NULL,
	actor_id       INT,
	action_type    TEXT NOT NULL,
	action_payload JSONB NOT NULL,
	recorded_at    TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (game_id, action_index)
);
`

// PostgresStore writes historian batches through a pgx pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the tables if they do not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// SaveActions inserts a batch in a single transaction. Records already stored are skipped.
func (s *PostgresStore) SaveActions(ctx context.Context, records []models.ActionRecord) error {
	if len(records) == 0 {
		return nil
	}
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, rec := range records {
			if err := insertGameActionTx(ctx, tx, rec); err != nil {
				return fmt.Errorf("insertGameActionTx: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save %d actions: %w", len(records), err)
	}
	return nil
}

// insertGameActionTx upserts the game row, inserts the action and finalizes the game
// when the action ends it.
func insertGameActionTx(ctx context.Context, tx pgx.Tx, rec models.ActionRecord) error {
	upsertGameQ := `
		INSERT INTO games (id, status, start_time)
		VALUES ($1, 'in_progress', NOW())
		ON CONFLICT (id) DO NOTHING
	`
	if _, err := tx.Exec(ctx, upsertGameQ, rec.GameID); err != nil {
		return err
	}

	payload, err := encodePayload(rec)
	if err != nil {
		return err
	}
	actionInsertQ := `
		INSERT INTO game_actions (
			game_id, action_index, turn, actor_id, action_type, action_payload, recorded_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (game_id, action_index) DO NOTHING
	`
	_, err = tx.Exec(ctx, actionInsertQ,
		rec.GameID, rec.ActionIndex, rec.Turn, rec.ActorID, rec.ActionType, payload,
		time.UnixMilli(rec.Timestamp).UTC(),
	)
	if err != nil {
		return err
	}

	if rec.ActionType == FinalActionType {
		finalizeQ := `
			UPDATE games
			SET status = 'completed', end_time = NOW()
			WHERE id = $1 AND status = 'in_progress'
		`
		if _, err := tx.Exec(ctx, finalizeQ, rec.GameID); err != nil {
			return err
		}
	}
	return nil
}

// MarkAbandoned flags a game still in progress as abandoned. It reports whether a row changed.
func (s *PostgresStore) MarkAbandoned(ctx context.Context, gameID uuid.UUID) (bool, error) {
	var changed bool
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		q := `
			UPDATE games
			SET status = 'abandoned', end_time = NOW()
			WHERE id = $1 AND status = 'in_progress'
		`
		tag, e := tx.Exec(ctx, q, gameID)
		if e != nil {
			return e
		}
		changed = tag.RowsAffected() > 0
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("mark game %s abandoned: %w", gameID, err)
	}
	return changed, nil
}

// GameStatus returns the stored status of a game.
func (s *PostgresStore) GameStatus(ctx context.Context, gameID uuid.UUID) (string, error) {
	var status string
	err := s.pool.QueryRow(ctx, `SELECT status FROM games WHERE id = $1`, gameID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("game %s: %w", gameID, ErrGameNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("query game %s: %w", gameID, err)
	}
	return status, nil
}

// Actions returns the stored records of a game in action order.
func (s *PostgresStore) Actions(ctx context.Context, gameID uuid.UUID) ([]models.ActionRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT action_index, turn, actor_id, action_type, action_payload, recorded_at
		FROM game_actions
		WHERE game_id = $1
		ORDER BY action_index
	`, gameID)
	if err != nil {
		return nil, fmt.Errorf("query actions of %s: %w", gameID, err)
	}
	defer rows.Close()

	var out []models.ActionRecord
	for rows.Next() {
		var (
			rec      models.ActionRecord
			actor    *int
			payload  []byte
			recorded time.Time
		)
		if err := rows.Scan(&rec.ActionIndex, &rec.Turn, &actor, &rec.ActionType, &payload, &recorded); err != nil {
			return nil, fmt.Errorf("scan action: %w", err)
		}
		if err := json.Unmarshal(payload, &rec.ActionPayload); err != nil {
			return nil, fmt.Errorf("decode payload of action %d: %w", rec.ActionIndex, err)
		}
		rec.GameID = gameID
		rec.ActorID = actor
		rec.Timestamp = recorded.UnixMilli()
		out = append(out, rec)
	}
	return out, rows.Err()
}
