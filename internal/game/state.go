package game

import "github.com/jason-s-yu/animalfarm/internal/models"

// Phase is a step of a player's turn.
type Phase string

const (
	PhaseDraw    Phase = "Draw"
	PhaseAction  Phase = "Action"
	PhaseDiscard Phase = "Discard"
)

// Outcome describes how a finished game ended.
type Outcome struct {
	Faction models.Faction `json:"faction"`
	Reason  string         `json:"reason"`
	Winners []int          `json:"winners"` // player ids belonging to the winning faction
}

// GameState is the complete, exclusively owned state of one game.
type GameState struct {
	Players            Registry `json:"players"`
	Deck               Deck     `json:"deck"`
	CurrentPlayerIndex int      `json:"currentPlayerIndex"`
	CurrentPhase       Phase    `json:"currentPhase"`
	Turn               int      `json:"turn"`

	AttackPlayedThisTurn bool `json:"attackPlayedThisTurn"`
	SkillUsedThisTurn    bool `json:"skillUsedThisTurn"`

	// Showdown is set once only the Tyrant and the Collaborator remain. It is not terminal.
	Showdown   bool    `json:"showdown"`
	IsGameOver bool    `json:"isGameOver"`
	Outcome    Outcome `json:"outcome"`
}

// CurrentPlayer returns the player whose turn it is.
func (s *GameState) CurrentPlayer() *models.Player {
	return s.Players[s.CurrentPlayerIndex]
}

// CardIDs lists every card id across all zones. Used to audit conservation.
func (s *GameState) CardIDs() []int {
	var ids []int
	for _, c := range s.Deck.DrawPile {
		ids = append(ids, c.ID)
	}
	for _, c := range s.Deck.DiscardPile {
		ids = append(ids, c.ID)
	}
	for _, p := range s.Players {
		for _, c := range p.Hand {
			ids = append(ids, c.ID)
		}
	}
	return ids
}

// Clone returns a deep copy. Cards are immutable and shared between copies.
func (s *GameState) Clone() *GameState {
	out := *s
	out.Players = make(Registry, len(s.Players))
	for i, p := range s.Players {
		cp := *p
		cp.Hand = cloneCards(p.Hand)
		if p.Character.RolePool != nil {
			cp.Character.RolePool = append(make([]models.Role, 0, len(p.Character.RolePool)), p.Character.RolePool...)
		}
		out.Players[i] = &cp
	}
	out.Deck = Deck{
		DrawPile:    cloneCards(s.Deck.DrawPile),
		DiscardPile: cloneCards(s.Deck.DiscardPile),
	}
	if s.Outcome.Winners != nil {
		out.Outcome.Winners = append(make([]int, 0, len(s.Outcome.Winners)), s.Outcome.Winners...)
	}
	return &out
}

func cloneCards(cards []*models.Card) []*models.Card {
	if cards == nil {
		return nil
	}
	out := make([]*models.Card, len(cards))
	copy(out, cards)
	return out
}
