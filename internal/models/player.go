package models

// StatusFlag names a one-shot modifier attached to a player.
type StatusFlag string

const (
	FlagSkipNextDraw   StatusFlag = "skipNextDraw"
	FlagSkipNextAttack StatusFlag = "skipNextAttack"
)

// StatusFlags alter the next draw or action phase and are cleared once used.
type StatusFlags struct {
	SkipNextDraw   bool `json:"skipNextDraw"`
	SkipNextAttack bool `json:"skipNextAttack"`
}

// Player is one seat at the table and everything it holds.
type Player struct {
	ID          int                 `json:"id"`
	DisplayName string              `json:"displayName"`
	Role        Role                `json:"role"`
	Character   CharacterDefinition `json:"character"`
	Health      int                 `json:"health"`
	MaxHealth   int                 `json:"maxHealth"`
	Hand        []*Card             `json:"hand"`

	// Active is false once the player has been eliminated. It never flips back.
	Active bool        `json:"active"`
	Flags  StatusFlags `json:"flags"`
}

// HandIndex returns the position of cardID in the hand, or -1.
func (p *Player) HandIndex(cardID int) int {
	for i, c := range p.Hand {
		if c.ID == cardID {
			return i
		}
	}
	return -1
}

// FindEffect returns the index of the first card carrying effect, or -1.
func (p *Player) FindEffect(effect Effect) int {
	for i, c := range p.Hand {
		if c.Effect == effect {
			return i
		}
	}
	return -1
}
