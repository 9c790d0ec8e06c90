// internal/game/game.go
package game

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/animalfarm/internal/catalog"
	"github.com/jason-s-yu/animalfarm/internal/models"
)

// Recorder receives the events of every committed command, e.g. to feed the historian queue.
type Recorder interface {
	Record(ctx context.Context, gameID uuid.UUID, events []Event) error
}

// Result is what a successful command returns: a snapshot taken after the command
// and the events it produced, in order.
type Result struct {
	State  *GameState
	Events []Event
}

// Session owns one game. Commands either apply completely or leave the state untouched.
type Session struct {
	ID uuid.UUID

	mu            sync.Mutex
	rules         HouseRules
	catalog       *catalog.Catalog
	src           *rand.PCG
	rng           *rand.Rand
	logger        logrus.FieldLogger
	recorder      Recorder
	recordTimeout time.Duration

	state   *GameState
	nextSeq int
	// fatal is the consistency error that aborted the session, if any.
	fatal error
}

// Option configures a Session.
type Option func(*Session)

// pcgStream is the fixed second PCG word; the seed alone selects the sequence.
const pcgStream = 0x9e3779b97f4a7c15

// WithSeed makes shuffles and role assignment reproducible.
func WithSeed(seed int64) Option {
	return func(s *Session) { s.src = rand.NewPCG(uint64(seed), pcgStream) }
}

// WithRules replaces the default house rules.
func WithRules(rules HouseRules) Option {
	return func(s *Session) { s.rules = rules }
}

// WithCatalog deals from c instead of the embedded catalog.
func WithCatalog(c *catalog.Catalog) Option {
	return func(s *Session) { s.catalog = c }
}

// WithLogger sets where command logs go. The default discards them.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Session) { s.logger = l }
}

// WithRecorder publishes committed events. Failures are logged and never reject a command.
func WithRecorder(r Recorder) Option {
	return func(s *Session) { s.recorder = r }
}

func WithID(id uuid.UUID) Option {
	return func(s *Session) { s.ID = id }
}

// NewSession creates an unstarted game.
func NewSession(opts ...Option) (*Session, error) {
	s := &Session{
		ID:            uuid.New(),
		rules:         DefaultHouseRules(),
		recordTimeout: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.src == nil {
		s.src = rand.NewPCG(uint64(time.Now().UnixNano()), pcgStream)
	}
	s.rng = rand.New(s.src)
	if s.logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		s.logger = l
	}
	if s.catalog == nil {
		c, err := catalog.Default()
		if err != nil {
			return nil, err
		}
		s.catalog = c
	}
	return s, nil
}

// Rules returns the house rules the session plays with.
func (s *Session) Rules() HouseRules {
	return s.rules
}

// StartGame seats exactly four players in the given order, assigns roles and
// characters, shuffles the deck and deals the starting hands. The first player's
// draw phase is pending when it returns.
func (s *Session) StartGame(names []string) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fatal != nil {
		return Result{}, s.corrupted()
	}
	if s.state != nil {
		return Result{}, reject(CodeActionNotAllowed, "game already started")
	}
	if len(names) != RequiredPlayers {
		return Result{}, reject(CodeInvalidPlayerCount, "got %d players, need exactly %d", len(names), RequiredPlayers)
	}

	work := &GameState{Turn: 1, CurrentPhase: PhaseDraw}
	return s.commit("start_game", logrus.Fields{"players": len(names)}, work, func(tc *turnContext) error {
		return tc.setup(names, s.catalog)
	})
}

// setup builds the table. Role order is a uniform permutation and seat order
// follows names.
func (tc *turnContext) setup(names []string, cat *catalog.Catalog) error {
	s := tc.state
	deck := cat.BuildDeck()
	Shuffle(tc.rng, deck)
	s.Deck = Deck{DrawPile: deck, DiscardPile: []*models.Card{}}

	roles := []models.Role{models.RoleTyrant, models.RoleLoyalist, models.RoleRebel, models.RoleCollaborator}
	tc.rng.Shuffle(len(roles), func(i, j int) { roles[i], roles[j] = roles[j], roles[i] })

	taken := make(map[string]bool, len(names))
	for i, name := range names {
		ch, ok := cat.CharacterFor(roles[i], taken)
		if !ok {
			return reject(CodeConsistency, "catalog has no character for role %s", roles[i])
		}
		taken[ch.Name] = true
		s.Players = append(s.Players, &models.Player{
			ID:          i,
			DisplayName: name,
			Role:        roles[i],
			Character:   ch,
			Health:      ch.BaseHealth,
			MaxHealth:   ch.BaseHealth,
			Hand:        []*models.Card{},
			Active:      true,
		})
	}
	tc.log.add(Event{Type: EventGameStart, Amount: len(s.Players)}, "Game started! Roles assigned.")

	for _, p := range s.Players {
		dealt := tc.drawCards(p, tc.rules.StartingHand)
		tc.log.add(Event{Type: EventDeal, Actor: idOf(p), CardIDs: cardIDs(dealt), Amount: len(dealt)},
			"%s (%s) is dealt %s.", p.DisplayName, p.Character.Name, plural(len(dealt), "card"))
	}
	tc.beginTurn(0)
	return nil
}

// BeginTurn runs the current player's pending draw phase.
func (s *Session) BeginTurn() (Result, error) {
	return s.apply("begin_turn", nil, func(tc *turnContext) error {
		if tc.state.CurrentPhase != PhaseDraw {
			return reject(CodeActionNotAllowed, "draw phase already resolved this turn")
		}
		return tc.ensureActionPhase()
	})
}

// PlayCard plays cardID from the current player's hand. target is required for
// single-target cards and ignored otherwise.
func (s *Session) PlayCard(cardID int, target *int) (Result, error) {
	fields := logrus.Fields{"cardId": cardID}
	if target != nil {
		fields["target"] = *target
	}
	return s.apply("play_card", fields, func(tc *turnContext) error {
		return tc.playCard(cardID, target)
	})
}

// UseSkill triggers the current player's active character skill.
func (s *Session) UseSkill(req SkillRequest) (Result, error) {
	return s.apply("use_skill", logrus.Fields{"option": req.Option}, func(tc *turnContext) error {
		return tc.useSkill(req)
	})
}

// EndTurn finishes the action phase, trims the hand and passes to the next active player.
func (s *Session) EndTurn() (Result, error) {
	return s.apply("end_turn", nil, func(tc *turnContext) error {
		return tc.endTurn()
	})
}

// Snapshot returns a deep copy of the current state, or nil before StartGame.
func (s *Session) Snapshot() *GameState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return nil
	}
	return s.state.Clone()
}

// Started reports whether StartGame has succeeded.
func (s *Session) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state != nil
}

// Over reports whether a faction has won.
func (s *Session) Over() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state != nil && s.state.IsGameOver
}

// Err returns the error that corrupted the session, or nil.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fatal
}

func (s *Session) corrupted() error {
	return reject(CodeSessionCorrupted, "session aborted: %v", s.fatal)
}

// apply runs fn against a copy of the state and commits the copy only if fn succeeds.
// The random source is rewound on failure too, so a rejected command never shifts later shuffles.
func (s *Session) apply(command string, fields logrus.Fields, fn func(tc *turnContext) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fatal != nil {
		return Result{}, s.corrupted()
	}
	if s.state == nil {
		return Result{}, reject(CodeGameNotStarted, "call StartGame first")
	}
	if s.state.IsGameOver {
		return Result{}, reject(CodeGameOver, "the game has already concluded")
	}
	return s.commit(command, fields, s.state.Clone(), fn)
}

func (s *Session) commit(command string, fields logrus.Fields, work *GameState, fn func(tc *turnContext) error) (Result, error) {
	tc := &turnContext{
		state: work,
		rng:   s.rng,
		rules: s.rules,
		log:   newEventLog(s.nextSeq, &work.Turn),
	}
	entry := s.logger.WithFields(fields).WithFields(logrus.Fields{"game": s.ID, "command": command})

	saved, err := s.src.MarshalBinary()
	if err != nil {
		return Result{}, fmt.Errorf("save random source: %w", err)
	}
	if err := fn(tc); err != nil {
		if rerr := s.src.UnmarshalBinary(saved); rerr != nil {
			entry.WithError(rerr).Error("unable to rewind random source")
		}
		var ge *Error
		if errors.As(err, &ge) && ge.Fatal() {
			s.fatal = err
			entry.WithError(err).Error("session corrupted")
		} else {
			entry.WithError(err).Debug("command rejected")
		}
		return Result{}, err
	}

	s.state = work
	s.nextSeq = tc.log.nextSeq
	entry.WithFields(logrus.Fields{
		"events": len(tc.log.events),
		"turn":   work.Turn,
		"phase":  work.CurrentPhase,
	}).Info("command applied")
	if work.IsGameOver {
		entry.WithFields(logrus.Fields{"faction": work.Outcome.Faction, "winners": work.Outcome.Winners}).Info("game over")
	}
	s.record(tc.log.events)

	return Result{State: work.Clone(), Events: tc.log.events}, nil
}

func (s *Session) record(events []Event) {
	if s.recorder == nil || len(events) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.recordTimeout)
	defer cancel()
	if err := s.recorder.Record(ctx, s.ID, events); err != nil {
		s.logger.WithError(err).WithField("game", s.ID).Warn("failed to record game events")
	}
}
