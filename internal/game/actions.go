package game

import (
	"fmt"

	"github.com/jason-s-yu/animalfarm/internal/models"
)

// Action types accepted by HandleAction.
const (
	ActionStartGame = "action_start_game"
	ActionBeginTurn = "action_begin_turn"
	ActionPlayCard  = "action_play_card"
	ActionUseSkill  = "action_use_skill"
	ActionEndTurn   = "action_end_turn"
)

// HandleAction routes a decoded GameAction to the matching command. Payload numbers
// may be float64, as produced by encoding/json, or int.
func (s *Session) HandleAction(action models.GameAction) (Result, error) {
	switch action.ActionType {
	case ActionStartGame:
		names, err := stringsFromPayload(action.Payload, "players")
		if err != nil {
			return Result{}, err
		}
		return s.StartGame(names)
	case ActionBeginTurn:
		return s.BeginTurn()
	case ActionPlayCard:
		cardID, err := intFromPayload(action.Payload, "cardId")
		if err != nil {
			return Result{}, err
		}
		if cardID == nil {
			return Result{}, reject(CodeInvalidAction, "%s requires cardId", action.ActionType)
		}
		target, err := intFromPayload(action.Payload, "target")
		if err != nil {
			return Result{}, err
		}
		return s.PlayCard(*cardID, target)
	case ActionUseSkill:
		req := SkillRequest{}
		if opt, ok := action.Payload["option"]; ok && opt != nil {
			str, ok := opt.(string)
			if !ok {
				return Result{}, reject(CodeInvalidAction, "option must be a string")
			}
			req.Option = SkillOption(str)
		}
		var err error
		if req.Target, err = intFromPayload(action.Payload, "target"); err != nil {
			return Result{}, err
		}
		if req.CardID, err = intFromPayload(action.Payload, "cardId"); err != nil {
			return Result{}, err
		}
		return s.UseSkill(req)
	case ActionEndTurn:
		return s.EndTurn()
	default:
		return Result{}, reject(CodeInvalidAction, "unknown action type %q", action.ActionType)
	}
}

// intFromPayload returns nil when key is absent.
func intFromPayload(payload map[string]interface{}, key string) (*int, error) {
	raw, ok := payload[key]
	if !ok || raw == nil {
		return nil, nil
	}
	var n int
	switch v := raw.(type) {
	case float64:
		if v != float64(int(v)) {
			return nil, reject(CodeInvalidAction, "%s must be a whole number", key)
		}
		n = int(v)
	case int:
		n = v
	default:
		return nil, reject(CodeInvalidAction, "invalid type for %s: %T", key, raw)
	}
	return &n, nil
}

func stringsFromPayload(payload map[string]interface{}, key string) ([]string, error) {
	raw, ok := payload[key]
	if !ok {
		return nil, reject(CodeInvalidAction, "missing %s", key)
	}
	switch v := raw.(type) {
	case []string:
		return v, nil
	case []interface{}:
		out := make([]string, len(v))
		for i, item := range v {
			str, ok := item.(string)
			if !ok {
				return nil, reject(CodeInvalidAction, "%s[%d] must be a string", key, i)
			}
			out[i] = str
		}
		return out, nil
	default:
		return nil, reject(CodeInvalidAction, "invalid type for %s: %s", key, fmt.Sprintf("%T", raw))
	}
}
