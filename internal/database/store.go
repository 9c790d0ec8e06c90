// Package database persists historian records in Postgres or SQLite.
package database

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jason-s-yu/animalfarm/internal/models"
)

// Game statuses stored in the games table.
const (
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusAbandoned  = "abandoned"
)

// ErrGameNotFound is returned when a game has no stored row.
var ErrGameNotFound = errors.New("game not found")

// FinalActionType marks the record that completes a game.
const FinalActionType = "game_end"

func encodePayload(rec models.ActionRecord) ([]byte, error) {
	payload := rec.ActionPayload
	if payload == nil {
		payload = map[string]interface{}{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload of action %d: %w", rec.ActionIndex, err)
	}
	return data, nil
}
