package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/jason-s-yu/animalfarm/internal/models"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS games (
	id         TEXT PRIMARY KEY,
	status     TEXT NOT NULL DEFAULT 'in_progress',
	start_time INTEGER NOT NULL,
	end_time   INTEGER
);
CREATE TABLE IF NOT EXISTS game_actions (
	game_id        TEXT NOT NULL REFERENCES games (id),
	action_index   INTEGER NOT NULL,
	turn           INTEGER NOT NULL,
	actor_id       INTEGER,
	action_type    TEXT NOT NULL,
	action_payload TEXT NOT NULL,
	recorded_at    INTEGER NOT NULL,
	PRIMARY KEY (game_id, action_index)
);
`

// SQLiteStore is the single-file historian sink for local runs.
type SQLiteStore struct {
	sqlDB *sql.DB
	now   func() time.Time
}

// OpenSQLite opens (or creates) the database at path and applies the schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(sqliteSchema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{sqlDB: sqlDB, now: time.Now}, nil
}

// Close closes the SQLite handle.
func (s *SQLiteStore) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// SaveActions inserts a batch in a single transaction. Records already stored are skipped.
func (s *SQLiteStore) SaveActions(ctx context.Context, records []models.ActionRecord) (err error) {
	if len(records) == 0 {
		return nil
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := s.now().UTC().UnixMilli()
	for _, rec := range records {
		gameID := rec.GameID.String()
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO games (id, status, start_time) VALUES (?, 'in_progress', ?) ON CONFLICT (id) DO NOTHING`,
			gameID, now,
		); err != nil {
			return fmt.Errorf("upsert game %s: %w", gameID, err)
		}

		var payload []byte
		if payload, err = encodePayload(rec); err != nil {
			return err
		}
		var actor sql.NullInt64
		if rec.ActorID != nil {
			actor = sql.NullInt64{Int64: int64(*rec.ActorID), Valid: true}
		}
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO game_actions (game_id, action_index, turn, actor_id, action_type, action_payload, recorded_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT (game_id, action_index) DO NOTHING`,
			gameID, rec.ActionIndex, rec.Turn, actor, rec.ActionType, string(payload), rec.Timestamp,
		); err != nil {
			return fmt.Errorf("insert action %d of %s: %w", rec.ActionIndex, gameID, err)
		}

		if rec.ActionType == FinalActionType {
			if _, err = tx.ExecContext(ctx,
				`UPDATE games SET status = 'completed', end_time = ? WHERE id = ? AND status = 'in_progress'`,
				now, gameID,
			); err != nil {
				return fmt.Errorf("finalize game %s: %w", gameID, err)
			}
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// MarkAbandoned flags a game still in progress as abandoned. It reports whether a row changed.
func (s *SQLiteStore) MarkAbandoned(ctx context.Context, gameID uuid.UUID) (bool, error) {
	res, err := s.sqlDB.ExecContext(ctx,
		`UPDATE games SET status = 'abandoned', end_time = ? WHERE id = ? AND status = 'in_progress'`,
		s.now().UTC().UnixMilli(), gameID.String(),
	)
	if err != nil {
		return false, fmt.Errorf("mark game %s abandoned: %w", gameID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// GameStatus returns the stored status of a game.
func (s *SQLiteStore) GameStatus(ctx context.Context, gameID uuid.UUID) (string, error) {
	var status string
	err := s.sqlDB.QueryRowContext(ctx, `SELECT status FROM games WHERE id = ?`, gameID.String()).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("game %s: %w", gameID, ErrGameNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("query game %s: %w", gameID, err)
	}
	return status, nil
}

// Actions returns the stored records of a game in action order.
func (s *SQLiteStore) Actions(ctx context.Context, gameID uuid.UUID) ([]models.ActionRecord, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
		SELECT action_index, turn, actor_id, action_type, action_payload, recorded_at
		FROM game_actions
		WHERE game_id = ?
		ORDER BY action_index`, gameID.String())
	if err != nil {
		return nil, fmt.Errorf("query actions of %s: %w", gameID, err)
	}
	defer rows.Close()

	var out []models.ActionRecord
	for rows.Next() {
		var (
			rec     models.ActionRecord
			actor   sql.NullInt64
			payload string
		)
		if err := rows.Scan(&rec.ActionIndex, &rec.Turn, &actor, &rec.ActionType, &payload, &rec.Timestamp); err != nil {
			return nil, fmt.Errorf("scan action: %w", err)
		}
		if err := json.Unmarshal([]byte(payload), &rec.ActionPayload); err != nil {
			return nil, fmt.Errorf("decode payload of action %d: %w", rec.ActionIndex, err)
		}
		if actor.Valid {
			id := int(actor.Int64)
			rec.ActorID = &id
		}
		rec.GameID = gameID
		out = append(out, rec)
	}
	return out, rows.Err()
}
