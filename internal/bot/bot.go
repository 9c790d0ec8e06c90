// Package bot drives a game.Session with a fixed heuristic, seeing only what the
// seat whose turn it is may see.
package bot

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/animalfarm/internal/game"
	"github.com/jason-s-yu/animalfarm/internal/models"
)

// MoveKind is the command a Move maps to.
type MoveKind string

const (
	MovePlay    MoveKind = "play"
	MoveSkill   MoveKind = "skill"
	MoveEndTurn MoveKind = "end_turn"
)

// Move is one command the bot wants to issue.
type Move struct {
	Kind   MoveKind
	CardID int
	Target *int
	Skill  game.SkillRequest
}

func (m Move) key() string {
	switch m.Kind {
	case MovePlay:
		return fmt.Sprintf("play:%d", m.CardID)
	case MoveSkill:
		return "skill"
	default:
		return string(m.Kind)
	}
}

// maxMovesPerTurn bounds the moves a bot makes before it ends the turn.
const maxMovesPerTurn = 16

// Choose picks the next move from view. Moves in rejected are never proposed again.
func Choose(view game.PlayerView, rejected map[string]bool) Move {
	me := seat(view, view.ForPlayer)
	try := func(m Move) bool { return !rejected[m.key()] }

	// Heal first when hurt.
	if me.Health < me.MaxHealth {
		if c := firstCard(view.Hand, models.EffectRation); c != nil {
			if m := (Move{Kind: MovePlay, CardID: c.ID}); try(m) {
				return m
			}
		}
	}

	if !view.SkillUsed && view.Skill.Kind == models.SkillActive {
		if m, ok := chooseSkill(view, me); ok && try(m) {
			return m
		}
	}

	if !me.Flags.SkipNextAttack {
		if c := firstCard(view.Hand, models.EffectShoot); c != nil && !view.AttackPlayed {
			if t := weakestOpponent(view); t != nil {
				if m := (Move{Kind: MovePlay, CardID: c.ID, Target: t}); try(m) {
					return m
				}
			}
		}
		if c := firstCard(view.Hand, models.EffectDream); c != nil {
			if m := (Move{Kind: MovePlay, CardID: c.ID}); try(m) {
				return m
			}
		}
	}

	if c := firstCard(view.Hand, models.EffectForceDiscard); c != nil {
		if t := largestHandOpponent(view); t != nil {
			if m := (Move{Kind: MovePlay, CardID: c.ID, Target: t}); try(m) {
				return m
			}
		}
	}
	if c := firstCard(view.Hand, models.EffectSkipDraw); c != nil {
		if t := nextOpponent(view); t != nil {
			if m := (Move{Kind: MovePlay, CardID: c.ID, Target: t}); try(m) {
				return m
			}
		}
	}
	return Move{Kind: MoveEndTurn}
}

func chooseSkill(view game.PlayerView, me game.SeatView) (Move, bool) {
	switch view.Skill.Capability {
	case models.CapabilityWorkHarder:
		if me.Health < me.MaxHealth {
			return Move{Kind: MoveSkill, Skill: game.SkillRequest{Option: game.SkillOptionHeal}}, true
		}
		if len(view.Hand) < 2 {
			return Move{Kind: MoveSkill, Skill: game.SkillRequest{Option: game.SkillOptionDraw}}, true
		}
	case models.CapabilityPropaganda:
		if t := largestHandOpponent(view); t != nil {
			return Move{Kind: MoveSkill, Skill: game.SkillRequest{Target: t}}, true
		}
	case models.CapabilityReviseTruth:
		if len(view.Hand) == 0 {
			return Move{}, false
		}
		for _, s := range opponents(view) {
			if s.Health < 2 && s.HandSize > 0 {
				target, card := s.PlayerID, leastUseful(view.Hand).ID
				return Move{Kind: MoveSkill, Skill: game.SkillRequest{Target: &target, CardID: &card}}, true
			}
		}
	}
	return Move{}, false
}

// TakeTurn plays the current seat's whole turn and ends it, unless the game ends first.
func TakeTurn(s *game.Session, logger logrus.FieldLogger) error {
	snap := s.Snapshot()
	if snap == nil {
		return game.ErrGameNotStarted
	}
	if snap.IsGameOver {
		return nil
	}
	seatID := snap.CurrentPlayer().ID
	rejected := map[string]bool{}

	for i := 0; i < maxMovesPerTurn; i++ {
		view, ok := s.ViewFor(seatID)
		if !ok {
			return fmt.Errorf("no view for seat %d", seatID)
		}
		if view.GameOver {
			return nil
		}
		if view.Phase == game.PhaseDraw {
			if _, err := s.BeginTurn(); err != nil {
				return err
			}
			continue
		}

		move := Choose(view, rejected)
		if move.Kind == MoveEndTurn {
			break
		}
		var err error
		switch move.Kind {
		case MovePlay:
			_, err = s.PlayCard(move.CardID, move.Target)
		case MoveSkill:
			_, err = s.UseSkill(move.Skill)
		}
		if err == nil {
			continue
		}
		var ge *game.Error
		if !errors.As(err, &ge) || ge.Fatal() {
			return err
		}
		if ge.Code == game.CodeGameOver {
			return nil
		}
		logger.WithError(err).WithFields(logrus.Fields{"seat": seatID, "move": move.key()}).Debug("bot move rejected")
		rejected[move.key()] = true
	}

	if s.Over() {
		return nil
	}
	_, err := s.EndTurn()
	return err
}

// Summary describes how a simulated game went.
type Summary struct {
	GameID  uuid.UUID
	Turns   int
	Decided bool
	Outcome game.Outcome
}

// Play runs bot turns until the game ends, maxTurns turns have started or ctx is done.
func Play(ctx context.Context, s *game.Session, maxTurns int, logger logrus.FieldLogger) (Summary, error) {
	sum := Summary{GameID: s.ID}
	for !s.Over() {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		snap := s.Snapshot()
		if snap == nil {
			return sum, game.ErrGameNotStarted
		}
		if snap.Turn > maxTurns {
			break
		}
		if err := TakeTurn(s, logger); err != nil {
			return sum, err
		}
	}

	final := s.Snapshot()
	sum.Turns = final.Turn
	if final.IsGameOver {
		sum.Decided = true
		sum.Outcome = final.Outcome
	}
	return sum, nil
}

func seat(view game.PlayerView, id int) game.SeatView {
	for _, s := range view.Seats {
		if s.PlayerID == id {
			return s
		}
	}
	return game.SeatView{}
}

// opponents lists the other active seats starting after the viewer, in turn order.
func opponents(view game.PlayerView) []game.SeatView {
	n := len(view.Seats)
	start := 0
	for i, s := range view.Seats {
		if s.PlayerID == view.ForPlayer {
			start = i
		}
	}
	var out []game.SeatView
	for i := 1; i < n; i++ {
		s := view.Seats[(start+i)%n]
		if s.Active {
			out = append(out, s)
		}
	}
	return out
}

func weakestOpponent(view game.PlayerView) *int {
	opps := opponents(view)
	if len(opps) == 0 {
		return nil
	}
	sort.SliceStable(opps, func(i, j int) bool { return opps[i].Health < opps[j].Health })
	id := opps[0].PlayerID
	return &id
}

func largestHandOpponent(view game.PlayerView) *int {
	opps := opponents(view)
	if len(opps) == 0 {
		return nil
	}
	sort.SliceStable(opps, func(i, j int) bool { return opps[i].HandSize > opps[j].HandSize })
	id := opps[0].PlayerID
	return &id
}

func nextOpponent(view game.PlayerView) *int {
	opps := opponents(view)
	if len(opps) == 0 {
		return nil
	}
	id := opps[0].PlayerID
	return &id
}

func firstCard(hand []*models.Card, effect models.Effect) *models.Card {
	for _, c := range hand {
		if c.Effect == effect {
			return c
		}
	}
	return nil
}

// leastUseful picks a disruption or control card to give away, else the last card.
func leastUseful(hand []*models.Card) *models.Card {
	for _, c := range hand {
		if c.Effect == models.EffectSkipDraw || c.Effect == models.EffectForceDiscard {
			return c
		}
	}
	return hand[len(hand)-1]
}
