package game

import "github.com/jason-s-yu/animalfarm/internal/models"

// Registry is the ordered set of seated players. It is a plain state container:
// callers decide when a player should be eliminated.
type Registry []*models.Player

// Get returns the player with id, or false.
func (r Registry) Get(id int) (*models.Player, bool) {
	for _, p := range r {
		if p.ID == id {
			return p, true
		}
	}
	return nil, false
}

// AdjustHealth applies delta to the player's health, clamped to [0, MaxHealth],
// and returns the new value.
func (r Registry) AdjustHealth(id, delta int) int {
	p, ok := r.Get(id)
	if !ok {
		return 0
	}
	h := p.Health + delta
	if h < 0 {
		h = 0
	}
	if h > p.MaxHealth {
		h = p.MaxHealth
	}
	p.Health = h
	return h
}

// AddToHand appends cards to the end of the player's hand.
func (r Registry) AddToHand(id int, cards ...*models.Card) {
	if p, ok := r.Get(id); ok {
		p.Hand = append(p.Hand, cards...)
	}
}

// RemoveFromHand takes cardID out of the player's hand, preserving the order of the rest.
func (r Registry) RemoveFromHand(id, cardID int) (*models.Card, bool) {
	p, ok := r.Get(id)
	if !ok {
		return nil, false
	}
	idx := p.HandIndex(cardID)
	if idx == -1 {
		return nil, false
	}
	card := p.Hand[idx]
	p.Hand = append(p.Hand[:idx:idx], p.Hand[idx+1:]...)
	return card, true
}

// TakeFront removes up to n cards from the front of the player's hand.
func (r Registry) TakeFront(id, n int) []*models.Card {
	p, ok := r.Get(id)
	if !ok || n <= 0 {
		return nil
	}
	if n > len(p.Hand) {
		n = len(p.Hand)
	}
	taken := append([]*models.Card(nil), p.Hand[:n]...)
	p.Hand = append([]*models.Card{}, p.Hand[n:]...)
	return taken
}

// SetFlag sets or clears a status flag.
func (r Registry) SetFlag(id int, flag models.StatusFlag, value bool) {
	p, ok := r.Get(id)
	if !ok {
		return
	}
	switch flag {
	case models.FlagSkipNextDraw:
		p.Flags.SkipNextDraw = value
	case models.FlagSkipNextAttack:
		p.Flags.SkipNextAttack = value
	}
}

// Eliminate deactivates the player and moves the whole hand to the discard pile.
// It reports false, and changes nothing, if the player was already eliminated.
func (r Registry) Eliminate(id int, deck *Deck) bool {
	p, ok := r.Get(id)
	if !ok || !p.Active {
		return false
	}
	p.Active = false
	deck.Discard(p.Hand...)
	p.Hand = []*models.Card{}
	p.Flags = models.StatusFlags{}
	return true
}

// Active returns the players still in the game, in seat order.
func (r Registry) Active() []*models.Player {
	var out []*models.Player
	for _, p := range r {
		if p.Active {
			out = append(out, p)
		}
	}
	return out
}

// CountActive returns how many active players hold role.
func (r Registry) CountActive(role models.Role) int {
	n := 0
	for _, p := range r {
		if p.Active && p.Role == role {
			n++
		}
	}
	return n
}
