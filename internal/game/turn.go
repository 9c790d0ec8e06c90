package game

import (
	"math/rand/v2"

	"github.com/jason-s-yu/animalfarm/internal/models"
)

// turnContext carries what a single command needs. It is built per command around
// a working copy of the state and is never retained afterwards.
type turnContext struct {
	state *GameState
	rng   *rand.Rand
	rules HouseRules
	log   *eventLog
}

// passiveDrawBonus maps passive capabilities to extra cards in the draw phase.
var passiveDrawBonus = map[models.Capability]int{
	models.CapabilityBonusDraw: 1,
}

func drawBonus(skill models.Skill) int {
	if skill.Kind != models.SkillPassive {
		return 0
	}
	return passiveDrawBonus[skill.Capability]
}

func (tc *turnContext) current() *models.Player {
	return tc.state.CurrentPlayer()
}

// beginTurn hands the turn to the player at idx. The draw phase runs when that
// player first acts.
func (tc *turnContext) beginTurn(idx int) {
	s := tc.state
	s.CurrentPlayerIndex = idx
	s.CurrentPhase = PhaseDraw
	s.AttackPlayedThisTurn = false
	s.SkillUsedThisTurn = false

	p := s.CurrentPlayer()
	tc.log.add(Event{Type: EventPlayerTurn, Actor: idOf(p)}, "%s's turn begins.", p.DisplayName)
}

// drawCards moves up to n cards from the deck into p's hand, narrating a reshuffle if one happened.
func (tc *turnContext) drawCards(p *models.Player, n int) []*models.Card {
	res := tc.state.Deck.Draw(tc.rng, n)
	if res.Reshuffled > 0 {
		tc.log.add(Event{Type: EventReshuffle, Amount: res.Reshuffled},
			"Deck is empty. Shuffling %s from the discard pile.", plural(res.Reshuffled, "card"))
	}
	tc.state.Players.AddToHand(p.ID, res.Cards...)
	return res.Cards
}

// drawPhase resolves the current player's draw and moves to the action phase.
func (tc *turnContext) drawPhase() {
	p := tc.current()
	if p.Flags.SkipNextDraw {
		tc.state.Players.SetFlag(p.ID, models.FlagSkipNextDraw, false)
		tc.log.add(Event{Type: EventDrawSkipped, Actor: idOf(p)},
			"%s skips the draw phase (Commandment).", p.DisplayName)
	} else {
		want := tc.rules.BaseDraw + drawBonus(p.Character.Skill)
		drawn := tc.drawCards(p, want)
		if len(drawn) < want {
			tc.log.add(Event{Type: EventDraw, Actor: idOf(p), CardIDs: cardIDs(drawn), Amount: len(drawn)},
				"%s draws %s; the deck is exhausted.", p.DisplayName, plural(len(drawn), "card"))
		} else {
			tc.log.add(Event{Type: EventDraw, Actor: idOf(p), CardIDs: cardIDs(drawn), Amount: len(drawn)},
				"%s draws %s.", p.DisplayName, plural(len(drawn), "card"))
		}
	}
	tc.state.CurrentPhase = PhaseAction
}

// ensureActionPhase runs a pending draw phase so the current player can act.
func (tc *turnContext) ensureActionPhase() error {
	switch tc.state.CurrentPhase {
	case PhaseDraw:
		if !tc.current().Active {
			return reject(CodeConsistency, "turn belongs to eliminated player %d", tc.current().ID)
		}
		tc.drawPhase()
		return nil
	case PhaseAction:
		return nil
	default:
		return reject(CodeConsistency, "cannot act during the %s phase", tc.state.CurrentPhase)
	}
}

// discardPhase trims the hand from the front down to the hand limit and clears
// the flags that only last for the turn.
func (tc *turnContext) discardPhase() {
	s := tc.state
	s.CurrentPhase = PhaseDiscard
	p := tc.current()

	if excess := len(p.Hand) - tc.rules.HandLimit; excess > 0 {
		dropped := s.Players.TakeFront(p.ID, excess)
		s.Deck.Discard(dropped...)
		tc.log.add(Event{Type: EventHandTrim, Actor: idOf(p), CardIDs: cardIDs(dropped), Amount: len(dropped)},
			"%s discarded %s.", p.DisplayName, plural(len(dropped), "card"))
	}
	if p.Flags.SkipNextAttack {
		s.Players.SetFlag(p.ID, models.FlagSkipNextAttack, false)
	}
}

// nextActiveIndex finds the next active seat after the current one. The search is
// bounded by the table size.
func (tc *turnContext) nextActiveIndex() (int, error) {
	s := tc.state
	n := len(s.Players)
	for i := 1; i <= n; i++ {
		idx := (s.CurrentPlayerIndex + i) % n
		if s.Players[idx].Active {
			return idx, nil
		}
	}
	return 0, reject(CodeConsistency, "no active player left to take a turn")
}

// endTurn runs Action -> Discard -> next player's Draw.
func (tc *turnContext) endTurn() error {
	if err := tc.ensureActionPhase(); err != nil {
		return err
	}
	tc.discardPhase()
	tc.checkVictory()
	if tc.state.IsGameOver {
		return nil
	}

	next, err := tc.nextActiveIndex()
	if err != nil {
		return err
	}
	tc.state.Turn++
	tc.beginTurn(next)
	return nil
}
