package game

import "github.com/jason-s-yu/animalfarm/internal/models"

// capabilities describe how an effect picks who it touches.
type capabilities struct {
	requiresTarget bool // a single other active player must be named
	global         bool // touches every other active player
	self           bool // touches only the player who played it
}

type effectHandler struct {
	caps capabilities

	// reactive cards are only ever consumed while resolving someone else's card.
	reactive bool

	// check runs while the card is still in hand. A non-nil error rejects the play.
	check func(tc *turnContext, actor *models.Player, card *models.Card) error

	resolve func(tc *turnContext, actor, target *models.Player, card *models.Card)
}

var effects = map[models.Effect]effectHandler{
	models.EffectShoot: {
		caps:    capabilities{requiresTarget: true},
		check:   checkShoot,
		resolve: resolveShoot,
	},
	models.EffectDream: {
		caps:    capabilities{global: true},
		check:   checkAttackAllowed,
		resolve: resolveDream,
	},
	models.EffectDodge: {
		reactive: true,
	},
	models.EffectRation: {
		caps:    capabilities{self: true},
		resolve: resolveRation,
	},
	models.EffectForceDiscard: {
		caps:    capabilities{requiresTarget: true},
		resolve: resolveForceDiscard,
	},
	models.EffectSkipDraw: {
		caps:    capabilities{requiresTarget: true},
		resolve: resolveSkipDraw,
	},
}

// RequiresTarget reports whether cards with effect must name a target player.
func RequiresTarget(effect models.Effect) bool {
	return effects[effect].caps.requiresTarget
}

// Playable reports whether cards with effect may be played from hand.
func Playable(effect models.Effect) bool {
	h, ok := effects[effect]
	return ok && !h.reactive
}

// playCard validates and resolves a card play by the current player.
func (tc *turnContext) playCard(cardID int, targetID *int) error {
	if err := tc.ensureActionPhase(); err != nil {
		return err
	}
	actor := tc.current()
	idx := actor.HandIndex(cardID)
	if idx == -1 {
		return reject(CodeCardNotFound, "%s does not hold card %d", actor.DisplayName, cardID)
	}
	card := actor.Hand[idx]

	h, ok := effects[card.Effect]
	if !ok {
		return reject(CodeActionNotAllowed, "%s has no playable effect", card.Name)
	}
	if h.reactive {
		return reject(CodeActionNotAllowed, "%s can only be used in response to an attack", card.Name)
	}

	var target *models.Player
	if h.caps.requiresTarget {
		t, err := tc.resolveTarget(actor, targetID)
		if err != nil {
			return err
		}
		target = t
	}
	if h.check != nil {
		if err := h.check(tc, actor, card); err != nil {
			return err
		}
	}

	// The card leaves the hand before the effect runs so it can never be played twice.
	tc.state.Players.RemoveFromHand(actor.ID, card.ID)
	tc.state.Deck.Discard(card)
	if target != nil {
		tc.log.add(Event{Type: EventPlayCard, Actor: idOf(actor), Target: idOf(target), CardIDs: []int{card.ID}},
			"%s plays %s on %s.", actor.DisplayName, card.Name, target.DisplayName)
	} else {
		tc.log.add(Event{Type: EventPlayCard, Actor: idOf(actor), CardIDs: []int{card.ID}},
			"%s plays %s.", actor.DisplayName, card.Name)
	}

	h.resolve(tc, actor, target, card)
	return nil
}

// resolveTarget checks that targetID names another active player.
func (tc *turnContext) resolveTarget(actor *models.Player, targetID *int) (*models.Player, error) {
	if targetID == nil {
		return nil, reject(CodeInvalidTarget, "a target player is required")
	}
	t, ok := tc.state.Players.Get(*targetID)
	if !ok {
		return nil, reject(CodeInvalidTarget, "no player with id %d", *targetID)
	}
	if !t.Active {
		return nil, reject(CodeInvalidTarget, "%s has been eliminated", t.DisplayName)
	}
	if t.ID == actor.ID {
		return nil, reject(CodeInvalidTarget, "%s cannot target themselves", actor.DisplayName)
	}
	return t, nil
}

func checkAttackAllowed(tc *turnContext, actor *models.Player, card *models.Card) error {
	if card.IsAttack() && actor.Flags.SkipNextAttack {
		return reject(CodeActionNotAllowed, "%s gave up attacking this turn", actor.DisplayName)
	}
	return nil
}

func checkShoot(tc *turnContext, actor *models.Player, card *models.Card) error {
	if err := checkAttackAllowed(tc, actor, card); err != nil {
		return err
	}
	if tc.state.AttackPlayedThisTurn {
		return reject(CodeActionNotAllowed, "only one '%s' attack may be played per turn", card.Name)
	}
	return nil
}

func resolveShoot(tc *turnContext, actor, target *models.Player, card *models.Card) {
	tc.state.AttackPlayedThisTurn = true
	tc.resolveAttack(target, card)
}

func resolveDream(tc *turnContext, actor, _ *models.Player, card *models.Card) {
	for _, p := range tc.state.Players {
		if p.ID == actor.ID || !p.Active {
			continue
		}
		tc.resolveAttack(p, card)
		if tc.state.IsGameOver {
			return
		}
	}
}

// resolveAttack lets the defender cancel with a Dodge from hand, otherwise deals damage.
func (tc *turnContext) resolveAttack(defender *models.Player, card *models.Card) {
	if i := defender.FindEffect(models.EffectDodge); i != -1 {
		dodge, _ := tc.state.Players.RemoveFromHand(defender.ID, defender.Hand[i].ID)
		tc.state.Deck.Discard(dodge)
		tc.log.add(Event{Type: EventDodge, Actor: idOf(defender), CardIDs: []int{dodge.ID}},
			"%s played %s and avoided %s.", defender.DisplayName, dodge.Name, card.Name)
		return
	}
	tc.damage(defender, tc.rules.AttackDamage)
}

// damage lowers health, eliminates at zero and re-evaluates the win conditions.
func (tc *turnContext) damage(victim *models.Player, amount int) {
	health := tc.state.Players.AdjustHealth(victim.ID, -amount)
	tc.log.add(Event{Type: EventDamage, Actor: idOf(victim), Amount: amount},
		"%s takes %d damage. HP: %d.", victim.DisplayName, amount, health)
	if health == 0 {
		tc.eliminate(victim)
	}
	tc.checkVictory()
}

func (tc *turnContext) heal(p *models.Player, amount int) {
	health := tc.state.Players.AdjustHealth(p.ID, amount)
	tc.log.add(Event{Type: EventHeal, Actor: idOf(p), Amount: amount},
		"%s heals to %d HP.", p.DisplayName, health)
	tc.checkVictory()
}

func (tc *turnContext) eliminate(p *models.Player) {
	if !tc.state.Players.Eliminate(p.ID, &tc.state.Deck) {
		return
	}
	tc.log.add(Event{Type: EventEliminated, Actor: idOf(p)},
		"%s (%s) has been ELIMINATED!", p.DisplayName, p.Role)
}

// forceDiscard moves the first n cards of p's hand to the discard pile.
func (tc *turnContext) forceDiscard(p *models.Player, n int) {
	dropped := tc.state.Players.TakeFront(p.ID, n)
	tc.state.Deck.Discard(dropped...)
	tc.log.add(Event{Type: EventForcedDiscard, Actor: idOf(p), CardIDs: cardIDs(dropped), Amount: len(dropped)},
		"%s was forced to discard %s.", p.DisplayName, plural(len(dropped), "card"))
}

func resolveRation(tc *turnContext, actor, _ *models.Player, _ *models.Card) {
	tc.heal(actor, tc.rules.HealAmount)
}

func resolveForceDiscard(tc *turnContext, _, target *models.Player, _ *models.Card) {
	tc.forceDiscard(target, tc.rules.DisruptionCount)
}

func resolveSkipDraw(tc *turnContext, _, target *models.Player, _ *models.Card) {
	tc.state.Players.SetFlag(target.ID, models.FlagSkipNextDraw, true)
	tc.log.add(Event{Type: EventSkipDrawApplied, Actor: idOf(target)},
		"%s will skip their next draw phase.", target.DisplayName)
}
