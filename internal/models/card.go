// internal/models/card.go
package models

// CardKind is the broad category printed on a card.
type CardKind string

const (
	KindAttack     CardKind = "Attack"
	KindDefense    CardKind = "Defense"
	KindHealth     CardKind = "Health"
	KindDisruption CardKind = "Disruption"
	KindControl    CardKind = "Control"
	KindSpecial    CardKind = "Special"
)

// Effect is the capability tag the resolver dispatches on. Two cards of the same
// kind may carry different effects (e.g. a single-target and a global attack).
type Effect string

const (
	EffectShoot        Effect = "shoot"         // single-target attack, once per turn
	EffectDream        Effect = "dream"         // global attack against every other active player
	EffectDodge        Effect = "dodge"         // reactive cancel, never played directly
	EffectRation       Effect = "ration"        // self heal
	EffectForceDiscard Effect = "force_discard" // target discards from the front of the hand
	EffectSkipDraw     Effect = "skip_draw"     // target skips their next draw phase
)

// Card is a single physical card. Cards are immutable once built; identity is ID.
type Card struct {
	ID         int      `json:"id"`
	Name       string   `json:"name"`
	Kind       CardKind `json:"kind"`
	Effect     Effect   `json:"effect"`
	EffectText string   `json:"effectText"`
}

// IsAttack reports whether the card deals damage when resolved.
func (c *Card) IsAttack() bool {
	return c.Effect == EffectShoot || c.Effect == EffectDream
}
