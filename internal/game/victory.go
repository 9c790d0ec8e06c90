package game

import (
	"fmt"
	"strings"

	"github.com/jason-s-yu/animalfarm/internal/models"
)

// Verdict is the result of inspecting the table for a win.
type Verdict struct {
	Terminal bool
	Faction  models.Faction
	Reason   string
	// Showdown means only the Tyrant and the Collaborator remain. Play continues.
	Showdown bool
}

// Evaluate checks the win conditions in priority order. It only looks at
// active players and never mutates them.
func Evaluate(players Registry) Verdict {
	if players.CountActive(models.RoleTyrant) == 0 {
		return Verdict{Terminal: true, Faction: models.FactionRebels, Reason: "The Tyrant has fallen!"}
	}
	if players.CountActive(models.RoleRebel) == 0 && players.CountActive(models.RoleCollaborator) == 0 {
		return Verdict{Terminal: true, Faction: models.FactionTyrant, Reason: "All enemies of the Farm have been defeated!"}
	}
	if len(players.Active()) == 2 && players.CountActive(models.RoleCollaborator) == 1 {
		return Verdict{Showdown: true}
	}
	return Verdict{}
}

// winnersOf lists every player, eliminated or not, who belongs to faction.
func winnersOf(players Registry, faction models.Faction) []int {
	winners := []int{}
	for _, p := range players {
		switch faction {
		case models.FactionRebels:
			if p.Role == models.RoleRebel {
				winners = append(winners, p.ID)
			}
		case models.FactionTyrant:
			if p.Role == models.RoleTyrant || p.Role == models.RoleLoyalist {
				winners = append(winners, p.ID)
			}
		}
	}
	return winners
}

// checkVictory ends the game on a terminal verdict and announces the showdown the
// first time it is reached.
func (tc *turnContext) checkVictory() {
	s := tc.state
	if s.IsGameOver {
		return
	}
	v := Evaluate(s.Players)
	if v.Terminal {
		s.IsGameOver = true
		s.Outcome = Outcome{
			Faction: v.Faction,
			Reason:  v.Reason,
			Winners: winnersOf(s.Players, v.Faction),
		}
		tc.log.add(Event{Type: EventGameEnd}, "%s", victoryMessage(v))
		return
	}
	if v.Showdown && !s.Showdown {
		s.Showdown = true
		tc.log.add(Event{Type: EventShowdown}, "Collaborator vs. Tyrant Showdown!")
	}
}

func victoryMessage(v Verdict) string {
	return fmt.Sprintf("%s WIN! %s", strings.ToUpper(string(v.Faction)), v.Reason)
}
