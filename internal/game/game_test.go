// internal/game/game_test.go
package game

import (
	"context"
	"errors"
	"math/rand/v2"
	"sort"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jason-s-yu/animalfarm/internal/catalog"
	"github.com/jason-s-yu/animalfarm/internal/models"
)

var testNames = []string{"Alice", "Bob", "Carol", "Dave"}

// mockRecorder collects recorded events instead of pushing them to redis.
type mockRecorder struct {
	mu     sync.Mutex
	events []Event
	calls  int
	err    error
}

func (m *mockRecorder) Record(_ context.Context, _ uuid.UUID, events []Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.events = append(m.events, events...)
	return m.err
}

func (m *mockRecorder) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

// setupTestGame starts a seeded four-player game.
func setupTestGame(t *testing.T, seed int64, opts ...Option) (*Session, *mockRecorder) {
	t.Helper()
	rec := &mockRecorder{}
	s, err := NewSession(append([]Option{WithSeed(seed), WithRecorder(rec)}, opts...)...)
	require.NoError(t, err)
	_, err = s.StartGame(testNames)
	require.NoError(t, err)
	return s, rec
}

// arrange edits the committed state directly to build a position.
func arrange(s *Session, fn func(st *GameState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.state)
}

// prepareTurn hands the turn to seat idx with the draw phase already resolved.
func prepareTurn(st *GameState, idx int) {
	st.CurrentPlayerIndex = idx
	st.CurrentPhase = PhaseAction
	st.AttackPlayedThisTurn = false
	st.SkillUsedThisTurn = false
}

func seatOf(st *GameState, role models.Role) int {
	for i, p := range st.Players {
		if p.Role == role {
			return i
		}
	}
	return -1
}

var testCardNames = map[models.Effect]string{
	models.EffectShoot:        "The Gun",
	models.EffectDream:        "Old Major's Dream",
	models.EffectDodge:        "Dodge",
	models.EffectRation:       "Apple Ration",
	models.EffectForceDiscard: "The Dogs",
	models.EffectSkipDraw:     "Seven Commandments",
}

func testCard(id int, effect models.Effect) *models.Card {
	return &models.Card{ID: id, Name: testCardNames[effect], Effect: effect}
}

func character(t *testing.T, name string) models.CharacterDefinition {
	t.Helper()
	cat, err := catalog.Default()
	require.NoError(t, err)
	for _, ch := range cat.Characters {
		if ch.Name == name {
			return ch
		}
	}
	t.Fatalf("no character %q", name)
	return models.CharacterDefinition{}
}

func eventTypes(events []Event) []EventType {
	out := make([]EventType, len(events))
	for i, ev := range events {
		out[i] = ev.Type
	}
	return out
}

func findEvent(events []Event, typ EventType) *Event {
	for i := range events {
		if events[i].Type == typ {
			return &events[i]
		}
	}
	return nil
}

func handIDs(p *models.Player) []int {
	ids := []int{}
	for _, c := range p.Hand {
		ids = append(ids, c.ID)
	}
	return ids
}

func fullDeckIDs(n int) []int {
	ids := make([]int, n)
	for i := range ids {
		ids[i] = i
	}
	return ids
}

func TestStartGameDealsStartingHands(t *testing.T) {
	for seed := int64(1); seed <= 5; seed++ {
		s, _ := setupTestGame(t, seed)
		st := s.Snapshot()
		require.NotNil(t, st)

		require.Len(t, st.Players, 4)
		roles := map[models.Role]int{}
		for i, p := range st.Players {
			assert.Equal(t, i, p.ID)
			assert.Equal(t, testNames[i], p.DisplayName)
			assert.Len(t, p.Hand, 4, "every player holds exactly 4 cards after setup")
			assert.True(t, p.Active)
			assert.True(t, p.Character.Allows(p.Role), "%s cannot be %s", p.Character.Name, p.Role)
			assert.Equal(t, p.Character.BaseHealth, p.Health)
			assert.Equal(t, p.Character.BaseHealth, p.MaxHealth)
			roles[p.Role]++
		}
		assert.Equal(t, 1, roles[models.RoleTyrant], "exactly one Tyrant")
		assert.Equal(t, 1, roles[models.RoleLoyalist])
		assert.Equal(t, 1, roles[models.RoleRebel])
		assert.Equal(t, 1, roles[models.RoleCollaborator])

		assert.Len(t, st.Deck.DrawPile, 58-16)
		assert.Empty(t, st.Deck.DiscardPile)
		assert.Equal(t, PhaseDraw, st.CurrentPhase)
		assert.Equal(t, 0, st.CurrentPlayerIndex)
		assert.Equal(t, 1, st.Turn)
		assert.False(t, st.IsGameOver)

		ids := st.CardIDs()
		sort.Ints(ids)
		assert.Equal(t, fullDeckIDs(58), ids)
	}
}

func TestStartGameIsDeterministicForSeed(t *testing.T) {
	a, recA := setupTestGame(t, 42)
	b, recB := setupTestGame(t, 42)
	assert.Equal(t, a.Snapshot(), b.Snapshot())

	msgs := func(events []Event) []string {
		out := []string{}
		for _, ev := range events {
			out = append(out, ev.Message)
		}
		return out
	}
	assert.Equal(t, msgs(recA.events), msgs(recB.events))
}

func TestStartGameEvents(t *testing.T) {
	s, err := NewSession(WithSeed(3))
	require.NoError(t, err)
	res, err := s.StartGame(testNames)
	require.NoError(t, err)

	require.NotEmpty(t, res.Events)
	assert.Equal(t, EventGameStart, res.Events[0].Type)
	assert.Equal(t, "Game started! Roles assigned.", res.Events[0].Message)
	assert.Equal(t, EventPlayerTurn, res.Events[len(res.Events)-1].Type)
	for i, ev := range res.Events {
		assert.Equal(t, i, ev.Seq)
		assert.Equal(t, 1, ev.Turn)
	}
	deals := 0
	for _, ev := range res.Events {
		if ev.Type == EventDeal {
			deals++
			assert.Len(t, ev.CardIDs, 4)
		}
	}
	assert.Equal(t, 4, deals)
}

func TestStartGameInvalidPlayerCount(t *testing.T) {
	s, err := NewSession(WithSeed(1))
	require.NoError(t, err)

	_, err = s.StartGame(testNames[:3])
	assert.ErrorIs(t, err, ErrInvalidPlayerCount)
	_, err = s.StartGame(append(testNames, "Eve"))
	assert.ErrorIs(t, err, ErrInvalidPlayerCount)
	assert.Nil(t, s.Snapshot())
	assert.False(t, s.Started())

	_, err = s.StartGame(testNames)
	require.NoError(t, err)
	assert.True(t, s.Started())
}

func TestStartGameTwice(t *testing.T) {
	s, _ := setupTestGame(t, 1)
	before := s.Snapshot()
	_, err := s.StartGame(testNames)
	assert.ErrorIs(t, err, ErrActionNotAllowed)
	assert.Equal(t, before, s.Snapshot())
}

func TestCommandsBeforeStart(t *testing.T) {
	s, err := NewSession(WithSeed(1))
	require.NoError(t, err)

	_, err = s.BeginTurn()
	assert.ErrorIs(t, err, ErrGameNotStarted)
	_, err = s.PlayCard(0, nil)
	assert.ErrorIs(t, err, ErrGameNotStarted)
	_, err = s.UseSkill(SkillRequest{})
	assert.ErrorIs(t, err, ErrGameNotStarted)
	_, err = s.EndTurn()
	assert.ErrorIs(t, err, ErrGameNotStarted)
}

func TestBeginTurnDraws(t *testing.T) {
	s, _ := setupTestGame(t, 9)
	before := s.Snapshot()
	cur := before.CurrentPlayer()
	want := DefaultHouseRules().BaseDraw + drawBonus(cur.Character.Skill)

	res, err := s.BeginTurn()
	require.NoError(t, err)
	after := res.State.CurrentPlayer()
	assert.Len(t, after.Hand, 4+want)
	assert.Equal(t, handIDs(cur), handIDs(after)[:4], "drawn cards go to the end of the hand")
	assert.Len(t, res.State.Deck.DrawPile, len(before.Deck.DrawPile)-want)
	assert.Equal(t, PhaseAction, res.State.CurrentPhase)
	assert.Equal(t, []EventType{EventDraw}, eventTypes(res.Events))

	_, err = s.BeginTurn()
	assert.ErrorIs(t, err, ErrActionNotAllowed)
}

func TestPassiveBonusDraw(t *testing.T) {
	s, _ := setupTestGame(t, 2)
	arrange(s, func(st *GameState) {
		st.Players[0].Character = character(t, "Snowball")
	})
	res, err := s.BeginTurn()
	require.NoError(t, err)
	assert.Len(t, res.State.Players[0].Hand, 4+3)
}

func TestScenarioBGunEliminatesLastRebel(t *testing.T) {
	s, rec := setupTestGame(t, 11)
	var tyrant, rebel, loyalist, collab int
	arrange(s, func(st *GameState) {
		tyrant = seatOf(st, models.RoleTyrant)
		rebel = seatOf(st, models.RoleRebel)
		loyalist = seatOf(st, models.RoleLoyalist)
		collab = seatOf(st, models.RoleCollaborator)

		st.Players.Eliminate(collab, &st.Deck)
		prepareTurn(st, tyrant)
		st.Players[tyrant].Hand = []*models.Card{testCard(100, models.EffectShoot)}
		st.Players[rebel].Hand = []*models.Card{}
		st.Players[rebel].Health = 1
	})

	res, err := s.PlayCard(100, &rebel)
	require.NoError(t, err)

	p := res.State.Players[rebel]
	assert.Equal(t, 0, p.Health)
	assert.False(t, p.Active)
	assert.True(t, res.State.IsGameOver)
	assert.Equal(t, models.FactionTyrant, res.State.Outcome.Faction)
	assert.ElementsMatch(t, []int{tyrant, loyalist}, res.State.Outcome.Winners)
	assert.Equal(t,
		[]EventType{EventPlayCard, EventDamage, EventEliminated, EventGameEnd},
		eventTypes(res.Events))
	assert.Equal(t, "TYRANT AND LOYALISTS WIN! All enemies of the Farm have been defeated!",
		res.Events[len(res.Events)-1].Message)
	assert.True(t, s.Over())

	recorded := rec.count()
	_, err = s.EndTurn()
	assert.ErrorIs(t, err, ErrGameOver)
	_, err = s.PlayCard(100, &rebel)
	assert.ErrorIs(t, err, ErrGameOver)
	assert.Equal(t, recorded, rec.count())
}

func TestScenarioCDrawFromEmptyDeck(t *testing.T) {
	s, _ := setupTestGame(t, 4)
	var before []int
	arrange(s, func(st *GameState) {
		st.Deck.DrawPile = []*models.Card{}
		st.Deck.DiscardPile = []*models.Card{}
		before = handIDs(st.CurrentPlayer())
	})

	res, err := s.BeginTurn()
	require.NoError(t, err)
	assert.Equal(t, before, handIDs(res.State.CurrentPlayer()))
	require.Len(t, res.Events, 1)
	assert.Equal(t, 0, res.Events[0].Amount)
	assert.Contains(t, res.Events[0].Message, "the deck is exhausted")
}

func TestScenarioDTyrantFalls(t *testing.T) {
	s, _ := setupTestGame(t, 5)
	var tyrant, rebel int
	arrange(s, func(st *GameState) {
		tyrant = seatOf(st, models.RoleTyrant)
		rebel = seatOf(st, models.RoleRebel)
		prepareTurn(st, rebel)
		st.Players[rebel].Hand = []*models.Card{testCard(100, models.EffectShoot)}
		st.Players[tyrant].Hand = []*models.Card{testCard(101, models.EffectRation)}
		st.Players[tyrant].Health = 1
	})

	res, err := s.PlayCard(100, &tyrant)
	require.NoError(t, err)
	assert.True(t, res.State.IsGameOver)
	assert.Equal(t, models.FactionRebels, res.State.Outcome.Faction)
	assert.Equal(t, []int{rebel}, res.State.Outcome.Winners)
	assert.Len(t, res.State.Players.Active(), 3, "rebel, loyalist and collaborator are still standing")
	end := findEvent(res.Events, EventGameEnd)
	require.NotNil(t, end)
	assert.Equal(t, "REBELS WIN! The Tyrant has fallen!", end.Message)
	discard := res.State.Deck.DiscardPile
	assert.Equal(t, 101, discard[len(discard)-1].ID, "the eliminated player's hand is discarded")
}

func TestDodgeCancelsAttack(t *testing.T) {
	s, _ := setupTestGame(t, 6)
	arrange(s, func(st *GameState) {
		prepareTurn(st, 0)
		st.Players[0].Hand = []*models.Card{testCard(100, models.EffectShoot)}
		st.Players[1].Hand = []*models.Card{testCard(101, models.EffectRation), testCard(102, models.EffectDodge)}
	})
	target := 1
	before := s.Snapshot().Players[1].Health

	res, err := s.PlayCard(100, &target)
	require.NoError(t, err)
	assert.Equal(t, before, res.State.Players[1].Health)
	assert.Equal(t, []int{101}, handIDs(res.State.Players[1]))
	assert.Equal(t, []EventType{EventPlayCard, EventDodge}, eventTypes(res.Events))
	discard := res.State.Deck.DiscardPile
	assert.Equal(t, []int{100, 102}, []int{discard[len(discard)-2].ID, discard[len(discard)-1].ID})
	assert.True(t, res.State.AttackPlayedThisTurn)
}

func TestAttackLimit(t *testing.T) {
	s, _ := setupTestGame(t, 7)
	arrange(s, func(st *GameState) {
		prepareTurn(st, 0)
		st.Players[0].Hand = []*models.Card{
			testCard(100, models.EffectShoot),
			testCard(101, models.EffectShoot),
			testCard(102, models.EffectDream),
		}
		for _, p := range st.Players {
			p.Health = p.MaxHealth
			if p.ID != 0 {
				p.Hand = []*models.Card{}
			}
		}
	})
	target := 2

	_, err := s.PlayCard(100, &target)
	require.NoError(t, err)

	before := s.Snapshot()
	_, err = s.PlayCard(101, &target)
	assert.ErrorIs(t, err, ErrActionNotAllowed)
	assert.Equal(t, before, s.Snapshot())

	res, err := s.PlayCard(102, nil)
	require.NoError(t, err, "a global attack is not limited by the single-target limit")
	damaged := 0
	for _, ev := range res.Events {
		if ev.Type == EventDamage {
			damaged++
		}
	}
	assert.Equal(t, 3, damaged)
	assert.Equal(t, before.Players[2].Health-1, res.State.Players[2].Health)
}

func TestDreamHitsEveryOtherActivePlayer(t *testing.T) {
	s, _ := setupTestGame(t, 8)
	arrange(s, func(st *GameState) {
		prepareTurn(st, 0)
		st.Players[0].Hand = []*models.Card{testCard(100, models.EffectDream)}
		for _, p := range st.Players {
			p.Health = p.MaxHealth
		}
		st.Players[1].Hand = []*models.Card{}
		st.Players[2].Hand = []*models.Card{testCard(101, models.EffectRation), testCard(102, models.EffectDodge)}
		st.Players[3].Hand = []*models.Card{}
	})
	before := s.Snapshot()

	res, err := s.PlayCard(100, nil)
	require.NoError(t, err)

	after := res.State.Players
	assert.Equal(t, before.Players[0].Health, after[0].Health, "the attacker is never hit")
	assert.Equal(t, before.Players[1].Health-1, after[1].Health)
	assert.Equal(t, before.Players[2].Health, after[2].Health, "dodged")
	assert.Equal(t, before.Players[3].Health-1, after[3].Health)
	assert.Equal(t, []int{101}, handIDs(after[2]), "only the dodge is spent")
	assert.Equal(t,
		[]EventType{EventPlayCard, EventDamage, EventDodge, EventDamage},
		eventTypes(res.Events))
	discard := res.State.Deck.DiscardPile
	assert.Equal(t, []int{100, 102}, []int{discard[len(discard)-2].ID, discard[len(discard)-1].ID})
	assert.False(t, res.State.IsGameOver)
}

func TestDreamStopsOnceTheGameIsDecided(t *testing.T) {
	s, _ := setupTestGame(t, 9)
	arrange(s, func(st *GameState) {
		roles := []models.Role{models.RoleRebel, models.RoleTyrant, models.RoleLoyalist, models.RoleCollaborator}
		for i, p := range st.Players {
			p.Role = roles[i]
			p.Health = p.MaxHealth
			p.Hand = []*models.Card{}
		}
		prepareTurn(st, 0)
		st.Players[0].Hand = []*models.Card{testCard(100, models.EffectDream)}
		st.Players[1].Health = 1
	})
	before := s.Snapshot()

	res, err := s.PlayCard(100, nil)
	require.NoError(t, err)

	assert.True(t, res.State.IsGameOver)
	assert.Equal(t, models.FactionRebels, res.State.Outcome.Faction)
	assert.False(t, res.State.Players[1].Active)
	assert.Equal(t, before.Players[2].Health, res.State.Players[2].Health, "no damage after the Tyrant falls")
	assert.Equal(t, before.Players[3].Health, res.State.Players[3].Health)
	assert.Equal(t,
		[]EventType{EventPlayCard, EventDamage, EventEliminated, EventGameEnd},
		eventTypes(res.Events))
}

func TestAttackLimitResetsNextTurn(t *testing.T) {
	s, _ := setupTestGame(t, 8)
	arrange(s, func(st *GameState) {
		prepareTurn(st, 0)
		st.AttackPlayedThisTurn = true
	})
	res, err := s.EndTurn()
	require.NoError(t, err)
	assert.False(t, res.State.AttackPlayedThisTurn)
	assert.Equal(t, 1, res.State.CurrentPlayerIndex)
	assert.Equal(t, PhaseDraw, res.State.CurrentPhase)
	assert.Equal(t, 2, res.State.Turn)
}

func TestPlayCardRejectionsLeaveStateUnchanged(t *testing.T) {
	s, rec := setupTestGame(t, 10)
	arrange(s, func(st *GameState) {
		prepareTurn(st, 0)
		st.Players[0].Hand = []*models.Card{
			testCard(100, models.EffectShoot),
			testCard(101, models.EffectDodge),
		}
		st.Players.Eliminate(3, &st.Deck)
	})
	self, dead, ghost := 0, 3, 42

	cases := []struct {
		name   string
		cardID int
		target *int
		want   error
	}{
		{"card not in hand", 999, nil, ErrCardNotFound},
		{"dodge is reactive", 101, nil, ErrActionNotAllowed},
		{"missing target", 100, nil, ErrInvalidTarget},
		{"self target", 100, &self, ErrInvalidTarget},
		{"eliminated target", 100, &dead, ErrInvalidTarget},
		{"unknown target", 100, &ghost, ErrInvalidTarget},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			before := s.Snapshot()
			recorded := rec.count()
			_, err := s.PlayCard(tc.cardID, tc.target)
			assert.ErrorIs(t, err, tc.want)
			assert.Equal(t, before, s.Snapshot())
			assert.Equal(t, recorded, rec.count())
		})
	}
}

func TestRejectedCommandRollsBackPendingDraw(t *testing.T) {
	s, _ := setupTestGame(t, 12)
	before := s.Snapshot()
	require.Equal(t, PhaseDraw, before.CurrentPhase)

	_, err := s.PlayCard(999, nil)
	assert.ErrorIs(t, err, ErrCardNotFound)
	assert.Equal(t, before, s.Snapshot())
}

// A rejected command must not advance the random source either: the same seed and
// the same committed commands have to produce the same shuffles.
func TestRejectedCommandKeepsShufflesReproducible(t *testing.T) {
	exhaustDrawPile := func(st *GameState) {
		st.Deck.DiscardPile = append(st.Deck.DiscardPile, st.Deck.DrawPile...)
		st.Deck.DrawPile = []*models.Card{}
	}
	withReject, _ := setupTestGame(t, 77)
	clean, _ := setupTestGame(t, 77)
	arrange(withReject, exhaustDrawPile)
	arrange(clean, exhaustDrawPile)

	_, err := withReject.PlayCard(9999, nil)
	require.ErrorIs(t, err, ErrCardNotFound)
	require.Equal(t, clean.Snapshot(), withReject.Snapshot())

	got, err := withReject.BeginTurn()
	require.NoError(t, err)
	want, err := clean.BeginTurn()
	require.NoError(t, err)

	require.NotNil(t, findEvent(want.Events, EventReshuffle))
	assert.Equal(t, handIDs(want.State.CurrentPlayer()), handIDs(got.State.CurrentPlayer()))
	assert.Equal(t, want.State.Deck, got.State.Deck)
	assert.Equal(t, want.Events, got.Events)
}

func TestRationHealsUpToMax(t *testing.T) {
	s, _ := setupTestGame(t, 13)
	arrange(s, func(st *GameState) {
		prepareTurn(st, 0)
		st.Players[0].Health = st.Players[0].MaxHealth - 1
		st.Players[0].Hand = []*models.Card{
			testCard(100, models.EffectRation),
			testCard(101, models.EffectRation),
		}
	})

	_, err := s.PlayCard(100, nil)
	require.NoError(t, err)
	res, err := s.PlayCard(101, nil)
	require.NoError(t, err)
	p := res.State.Players[0]
	assert.Equal(t, p.MaxHealth, p.Health)
	assert.Empty(t, p.Hand)
}

func TestForceDiscardTakesFromFront(t *testing.T) {
	s, _ := setupTestGame(t, 14)
	arrange(s, func(st *GameState) {
		prepareTurn(st, 0)
		st.Players[0].Hand = []*models.Card{testCard(100, models.EffectForceDiscard)}
		st.Players[2].Hand = []*models.Card{
			testCard(200, models.EffectShoot),
			testCard(201, models.EffectDodge),
			testCard(202, models.EffectRation),
		}
	})
	target := 2

	res, err := s.PlayCard(100, &target)
	require.NoError(t, err)
	assert.Equal(t, []int{202}, handIDs(res.State.Players[2]))
	discard := res.State.Deck.DiscardPile
	require.GreaterOrEqual(t, len(discard), 3)
	tail := []int{discard[len(discard)-3].ID, discard[len(discard)-2].ID, discard[len(discard)-1].ID}
	assert.Equal(t, []int{100, 200, 201}, tail)
}

func TestSkipDrawAppliesOnNextDraw(t *testing.T) {
	s, _ := setupTestGame(t, 15)
	arrange(s, func(st *GameState) {
		prepareTurn(st, 0)
		st.Players[0].Hand = []*models.Card{testCard(100, models.EffectSkipDraw)}
	})
	target := 1

	res, err := s.PlayCard(100, &target)
	require.NoError(t, err)
	assert.True(t, res.State.Players[1].Flags.SkipNextDraw)

	res, err = s.EndTurn()
	require.NoError(t, err)
	require.Equal(t, 1, res.State.CurrentPlayerIndex)
	hand := handIDs(res.State.Players[1])

	res, err = s.BeginTurn()
	require.NoError(t, err)
	assert.Equal(t, hand, handIDs(res.State.Players[1]))
	assert.False(t, res.State.Players[1].Flags.SkipNextDraw)
	assert.Equal(t, []EventType{EventDrawSkipped}, eventTypes(res.Events))
}

func TestEndTurnTrimsHandFromFront(t *testing.T) {
	s, _ := setupTestGame(t, 16)
	arrange(s, func(st *GameState) {
		prepareTurn(st, 0)
		st.Players[0].Hand = []*models.Card{
			testCard(200, models.EffectShoot),
			testCard(201, models.EffectShoot),
			testCard(202, models.EffectDodge),
			testCard(203, models.EffectDodge),
			testCard(204, models.EffectRation),
			testCard(205, models.EffectRation),
		}
	})

	res, err := s.EndTurn()
	require.NoError(t, err)
	assert.Equal(t, []int{202, 203, 204, 205}, handIDs(res.State.Players[0]))
	discard := res.State.Deck.DiscardPile
	assert.Equal(t, []int{200, 201}, []int{discard[len(discard)-2].ID, discard[len(discard)-1].ID})
	assert.Equal(t, []EventType{EventHandTrim, EventPlayerTurn}, eventTypes(res.Events))
}

func TestEndTurnRunsPendingDraw(t *testing.T) {
	s, _ := setupTestGame(t, 17)
	res, err := s.EndTurn()
	require.NoError(t, err)
	types := eventTypes(res.Events)
	require.NotEmpty(t, types)
	assert.Equal(t, EventDraw, types[0])
	assert.Len(t, res.State.Players[0].Hand, 4, "hand is trimmed back to the limit")
}

func TestEndTurnSkipsEliminatedPlayers(t *testing.T) {
	s, _ := setupTestGame(t, 18)
	var next int
	arrange(s, func(st *GameState) {
		prepareTurn(st, 0)
		// keep the win conditions out of the way: eliminate a seat that is neither Tyrant nor Rebel.
		for i := 1; i < 4; i++ {
			if st.Players[i].Role != models.RoleTyrant && st.Players[i].Role != models.RoleRebel {
				st.Players.Eliminate(i, &st.Deck)
				if i == 1 {
					next = 2
				} else {
					next = 1
				}
				break
			}
		}
	})

	res, err := s.EndTurn()
	require.NoError(t, err)
	assert.Equal(t, next, res.State.CurrentPlayerIndex)
	assert.True(t, res.State.CurrentPlayer().Active)
}

func TestConsistencyErrorCorruptsSession(t *testing.T) {
	s, rec := setupTestGame(t, 19)
	arrange(s, func(st *GameState) {
		st.CurrentPlayerIndex = seatOf(st, models.RoleLoyalist)
		st.CurrentPhase = PhaseDraw
		st.CurrentPlayer().Active = false
	})
	before := s.Snapshot()

	_, err := s.PlayCard(0, nil)
	assert.ErrorIs(t, err, ErrConsistency)
	assert.Error(t, s.Err())
	assert.Equal(t, before, s.Snapshot())

	recorded := rec.count()
	_, err = s.EndTurn()
	assert.ErrorIs(t, err, ErrSessionCorrupted)
	_, err = s.BeginTurn()
	assert.ErrorIs(t, err, ErrSessionCorrupted)
	assert.Equal(t, recorded, rec.count())
}

func TestNextActiveIndexIsBounded(t *testing.T) {
	s, _ := setupTestGame(t, 20)
	st := s.Snapshot()
	for _, p := range st.Players {
		p.Active = false
	}
	tc := &turnContext{state: st, log: newEventLog(0, &st.Turn)}
	_, err := tc.nextActiveIndex()
	assert.ErrorIs(t, err, ErrConsistency)
}

func TestShowdownIsLoggedOnce(t *testing.T) {
	s, _ := setupTestGame(t, 21)
	var tyrant int
	arrange(s, func(st *GameState) {
		tyrant = seatOf(st, models.RoleTyrant)
		st.Players.Eliminate(seatOf(st, models.RoleRebel), &st.Deck)
		st.Players.Eliminate(seatOf(st, models.RoleLoyalist), &st.Deck)
		prepareTurn(st, tyrant)
		st.Players[tyrant].Health = 1
		st.Players[tyrant].Hand = []*models.Card{
			testCard(100, models.EffectRation),
			testCard(101, models.EffectRation),
		}
	})

	res, err := s.PlayCard(100, nil)
	require.NoError(t, err)
	show := findEvent(res.Events, EventShowdown)
	require.NotNil(t, show)
	assert.Equal(t, "Collaborator vs. Tyrant Showdown!", show.Message)
	assert.True(t, res.State.Showdown)
	assert.False(t, res.State.IsGameOver)

	res, err = s.PlayCard(101, nil)
	require.NoError(t, err)
	assert.Nil(t, findEvent(res.Events, EventShowdown))
	assert.False(t, res.State.IsGameOver)
}

func TestEvaluatePriority(t *testing.T) {
	mk := func(roles ...models.Role) Registry {
		var r Registry
		for i, role := range roles {
			r = append(r, &models.Player{ID: i, Role: role, Active: true, Health: 1, MaxHealth: 3})
		}
		return r
	}
	all := mk(models.RoleTyrant, models.RoleLoyalist, models.RoleRebel, models.RoleCollaborator)
	assert.Equal(t, Verdict{}, Evaluate(all))

	noTyrant := mk(models.RoleTyrant, models.RoleLoyalist, models.RoleRebel, models.RoleCollaborator)
	noTyrant[0].Active = false
	noTyrant[2].Active = false
	noTyrant[3].Active = false
	v := Evaluate(noTyrant)
	assert.True(t, v.Terminal)
	assert.Equal(t, models.FactionRebels, v.Faction, "a missing Tyrant wins for the Rebels even with nobody left")

	loyalOnly := mk(models.RoleTyrant, models.RoleLoyalist, models.RoleRebel, models.RoleCollaborator)
	loyalOnly[2].Active = false
	loyalOnly[3].Active = false
	v = Evaluate(loyalOnly)
	assert.True(t, v.Terminal)
	assert.Equal(t, models.FactionTyrant, v.Faction)

	showdown := mk(models.RoleTyrant, models.RoleLoyalist, models.RoleRebel, models.RoleCollaborator)
	showdown[1].Active = false
	showdown[2].Active = false
	v = Evaluate(showdown)
	assert.False(t, v.Terminal)
	assert.True(t, v.Showdown)
}

func TestRecorderReceivesCommittedEvents(t *testing.T) {
	s, rec := setupTestGame(t, 22)
	startCount := rec.count()
	require.Positive(t, startCount)

	rec.err = errors.New("queue unavailable")
	res, err := s.EndTurn()
	require.NoError(t, err, "recording failures never reject a command")
	assert.Equal(t, startCount+len(res.Events), rec.count())

	for i, ev := range rec.events {
		assert.Equal(t, i, ev.Seq, "sequence numbers are contiguous across commands")
	}
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	s, _ := setupTestGame(t, 23)
	snap := s.Snapshot()
	snap.Players[0].Hand = nil
	snap.Players[1].Health = 0
	snap.Deck.DrawPile = snap.Deck.DrawPile[:1]

	fresh := s.Snapshot()
	assert.Len(t, fresh.Players[0].Hand, 4)
	assert.Equal(t, fresh.Players[1].MaxHealth, fresh.Players[1].Health)
	assert.Len(t, fresh.Deck.DrawPile, 42)
}

// TestRandomPlayInvariants drives games with random legal and illegal commands and
// checks the state after every command.
func TestRandomPlayInvariants(t *testing.T) {
	for seed := int64(1); seed <= 25; seed++ {
		s, rec := setupTestGame(t, seed)
		r := rand.New(rand.NewPCG(uint64(seed), 31))
		eliminated := map[int]bool{}

		for step := 0; step < 500 && !s.Over(); step++ {
			st := s.Snapshot()
			cur := st.CurrentPlayer()

			var res Result
			var err error
			if len(cur.Hand) == 0 || r.IntN(4) == 0 {
				res, err = s.EndTurn()
			} else {
				c := cur.Hand[r.IntN(len(cur.Hand))]
				var target *int
				if RequiresTarget(c.Effect) {
					var others []int
					for _, p := range st.Players.Active() {
						if p.ID != cur.ID {
							others = append(others, p.ID)
						}
					}
					if len(others) > 0 {
						id := others[r.IntN(len(others))]
						target = &id
					}
				}
				res, err = s.PlayCard(c.ID, target)
			}

			if err != nil {
				var ge *Error
				require.True(t, errors.As(err, &ge))
				require.False(t, ge.Fatal(), "seed %d step %d: %v", seed, step, err)
				require.Equal(t, st, s.Snapshot(), "rejected commands change nothing")
				continue
			}

			ids := res.State.CardIDs()
			sort.Ints(ids)
			require.Equal(t, fullDeckIDs(58), ids, "seed %d step %d: cards are conserved", seed, step)

			for _, p := range res.State.Players {
				require.GreaterOrEqual(t, p.Health, 0)
				require.LessOrEqual(t, p.Health, p.MaxHealth)
				if eliminated[p.ID] {
					require.False(t, p.Active, "elimination is permanent")
				}
				if !p.Active {
					eliminated[p.ID] = true
					require.Equal(t, 0, p.Health)
					require.Empty(t, p.Hand)
				}
			}
			if !res.State.IsGameOver {
				require.True(t, res.State.CurrentPlayer().Active)
			}
		}

		for i, ev := range rec.events {
			require.Equal(t, i, ev.Seq)
		}
		if s.Over() {
			_, err := s.EndTurn()
			assert.ErrorIs(t, err, ErrGameOver)
		}
	}
}
