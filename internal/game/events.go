package game

import (
	"fmt"

	"github.com/jason-s-yu/animalfarm/internal/models"
)

// EventType is an enum-like type for the narration log.
type EventType string

const (
	EventGameStart       EventType = "game_start"
	EventDeal            EventType = "game_deal"
	EventPlayerTurn      EventType = "game_player_turn"
	EventReshuffle       EventType = "game_reshuffle_stockpile"
	EventDraw            EventType = "player_draw"
	EventDrawSkipped     EventType = "player_draw_skipped"
	EventPlayCard        EventType = "player_play_card"
	EventDodge           EventType = "player_dodge"
	EventDamage          EventType = "player_damage"
	EventHeal            EventType = "player_heal"
	EventForcedDiscard   EventType = "player_forced_discard"
	EventSkipDrawApplied EventType = "player_skip_draw_applied"
	EventSkill           EventType = "player_skill"
	EventSwap            EventType = "player_swap"
	EventAttackForfeit   EventType = "player_attack_forfeit"
	EventHandTrim        EventType = "player_hand_trim"
	EventEliminated      EventType = "player_eliminated"
	EventShowdown        EventType = "game_showdown"
	EventGameEnd         EventType = "game_end"
)

// Event is one line of the externally observed narration. Seq increases by one for
// every event a session emits.
type Event struct {
	Seq     int       `json:"seq"`
	Turn    int       `json:"turn"`
	Type    EventType `json:"type"`
	Actor   *int      `json:"actor,omitempty"`
	Target  *int      `json:"target,omitempty"`
	CardIDs []int     `json:"cardIds,omitempty"`
	Amount  int       `json:"amount,omitempty"`
	Message string    `json:"message"`
}

// eventLog buffers the events of a single command until it commits.
type eventLog struct {
	nextSeq int
	turn    *int
	events  []Event
}

func newEventLog(nextSeq int, turn *int) *eventLog {
	return &eventLog{nextSeq: nextSeq, turn: turn}
}

func (l *eventLog) add(ev Event, format string, args ...interface{}) {
	ev.Seq = l.nextSeq
	ev.Turn = *l.turn
	ev.Message = fmt.Sprintf(format, args...)
	l.nextSeq++
	l.events = append(l.events, ev)
}

func idOf(p *models.Player) *int {
	if p == nil {
		return nil
	}
	id := p.ID
	return &id
}

func cardIDs(cards []*models.Card) []int {
	if len(cards) == 0 {
		return nil
	}
	ids := make([]int, len(cards))
	for i, c := range cards {
		ids[i] = c.ID
	}
	return ids
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
