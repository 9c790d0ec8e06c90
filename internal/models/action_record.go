package models

import "github.com/google/uuid"

// ActionRecord is one narrated game event as it travels through the historian queue.
type ActionRecord struct {
	GameID        uuid.UUID              `json:"game_id"`
	ActionIndex   int                    `json:"action_index"`
	Turn          int                    `json:"turn"`
	ActorID       *int                   `json:"actor_id,omitempty"`
	ActionType    string                 `json:"action_type"`
	ActionPayload map[string]interface{} `json:"action_payload"`
	Timestamp     int64                  `json:"timestamp"`
}
