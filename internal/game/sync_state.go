// internal/game/sync_state.go
package game

import (
	"github.com/google/uuid"

	"github.com/jason-s-yu/animalfarm/internal/models"
)

// SeatView is one player as seen by someone else at the table.
type SeatView struct {
	PlayerID      int                `json:"player_id"`
	DisplayName   string             `json:"displayName"`
	Character     string             `json:"character"`
	Health        int                `json:"health"`
	MaxHealth     int                `json:"maxHealth"`
	HandSize      int                `json:"hand_size"`
	Active        bool               `json:"active"`
	IsCurrentTurn bool               `json:"isCurrentTurn"`
	Flags         models.StatusFlags `json:"flags"`
	// Role is only filled for the viewer, for eliminated players and once the game is over.
	Role models.Role `json:"role,omitempty"`
}

// PlayerView is the state a single player is allowed to see.
type PlayerView struct {
	GameID          uuid.UUID      `json:"game_id"`
	ForPlayer       int            `json:"forPlayer"`
	Role            models.Role    `json:"role"`
	Skill           models.Skill   `json:"skill"`
	Hand            []*models.Card `json:"hand"`
	Turn            int            `json:"turn"`
	Phase           Phase          `json:"phase"`
	CurrentPlayerID int            `json:"currentPlayerId"`
	AttackPlayed    bool           `json:"attackPlayed"`
	SkillUsed       bool           `json:"skillUsed"`
	DrawPileSize    int            `json:"drawPileSize"`
	DiscardSize     int            `json:"discardSize"`
	DiscardTop      *models.Card   `json:"discardTop,omitempty"`
	Seats           []SeatView     `json:"seats"`
	Showdown        bool           `json:"showdown"`
	GameOver        bool           `json:"gameOver"`
	Outcome         *Outcome       `json:"outcome,omitempty"`
}

// ViewFor builds the view of playerID. It reports false before StartGame or for an unknown id.
func (s *Session) ViewFor(playerID int) (PlayerView, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == nil {
		return PlayerView{}, false
	}
	st := s.state
	me, ok := st.Players.Get(playerID)
	if !ok {
		return PlayerView{}, false
	}

	view := PlayerView{
		GameID:          s.ID,
		ForPlayer:       playerID,
		Role:            me.Role,
		Skill:           me.Character.Skill,
		Hand:            cloneCards(me.Hand),
		Turn:            st.Turn,
		Phase:           st.CurrentPhase,
		CurrentPlayerID: st.CurrentPlayer().ID,
		AttackPlayed:    st.AttackPlayedThisTurn,
		SkillUsed:       st.SkillUsedThisTurn,
		DrawPileSize:    len(st.Deck.DrawPile),
		DiscardSize:     len(st.Deck.DiscardPile),
		Showdown:        st.Showdown,
		GameOver:        st.IsGameOver,
	}
	if n := len(st.Deck.DiscardPile); n > 0 {
		view.DiscardTop = st.Deck.DiscardPile[n-1]
	}
	if st.IsGameOver {
		out := st.Outcome
		out.Winners = append([]int{}, st.Outcome.Winners...)
		view.Outcome = &out
	}

	for i, p := range st.Players {
		seat := SeatView{
			PlayerID:      p.ID,
			DisplayName:   p.DisplayName,
			Character:     p.Character.Name,
			Health:        p.Health,
			MaxHealth:     p.MaxHealth,
			HandSize:      len(p.Hand),
			Active:        p.Active,
			IsCurrentTurn: i == st.CurrentPlayerIndex,
			Flags:         p.Flags,
		}
		if p.ID == playerID || !p.Active || st.IsGameOver {
			seat.Role = p.Role
		}
		view.Seats = append(view.Seats, seat)
	}
	return view, true
}
