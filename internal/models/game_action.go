package models

// GameAction captures a scripted player move, as read by replay tooling.
type GameAction struct {
	ActionType string                 `json:"action_type"`
	Payload    map[string]interface{} `json:"payload"`
}
