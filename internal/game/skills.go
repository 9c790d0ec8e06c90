package game

import "github.com/jason-s-yu/animalfarm/internal/models"

// SkillOption selects between the modes of a skill that offers a choice.
type SkillOption string

const (
	SkillOptionDefault SkillOption = ""
	SkillOptionHeal    SkillOption = "heal"
	SkillOptionDraw    SkillOption = "draw"
)

const (
	propagandaDraw    = 2
	propagandaDiscard = 1
	workHarderDraw    = 3
	// reviseTruthBelow is the health a target must be under to be swapped with.
	reviseTruthBelow = 2
)

// SkillRequest carries the arguments of UseSkill. Target and CardID are only
// read by skills that need them.
type SkillRequest struct {
	Option SkillOption `json:"option,omitempty"`
	Target *int        `json:"target,omitempty"`
	CardID *int        `json:"cardId,omitempty"`
}

type skillHandler struct {
	requiresTarget bool
	// use must validate before it mutates anything.
	use func(tc *turnContext, actor, target *models.Player, req SkillRequest) error
}

var activeSkills = map[models.Capability]skillHandler{
	models.CapabilityPropaganda:  {requiresTarget: true, use: usePropaganda},
	models.CapabilityWorkHarder:  {use: useWorkHarder},
	models.CapabilityReviseTruth: {requiresTarget: true, use: useReviseTruth},
}

// SkillRequiresTarget reports whether the active skill with capability names a target.
func SkillRequiresTarget(capability models.Capability) bool {
	return activeSkills[capability].requiresTarget
}

func (tc *turnContext) useSkill(req SkillRequest) error {
	if err := tc.ensureActionPhase(); err != nil {
		return err
	}
	actor := tc.current()
	skill := actor.Character.Skill
	if skill.Kind != models.SkillActive {
		return reject(CodeActionNotAllowed, "%s is a passive skill", skill.Name)
	}
	if tc.state.SkillUsedThisTurn {
		return reject(CodeActionNotAllowed, "%s already used a skill this turn", actor.DisplayName)
	}
	h, ok := activeSkills[skill.Capability]
	if !ok {
		return reject(CodeActionNotAllowed, "%s has no usable effect", skill.Name)
	}

	var target *models.Player
	if h.requiresTarget {
		t, err := tc.resolveTarget(actor, req.Target)
		if err != nil {
			return err
		}
		target = t
	}
	if err := h.use(tc, actor, target, req); err != nil {
		return err
	}
	tc.state.SkillUsedThisTurn = true
	return nil
}

func usePropaganda(tc *turnContext, actor, target *models.Player, _ SkillRequest) error {
	tc.log.add(Event{Type: EventSkill, Actor: idOf(actor), Target: idOf(target)},
		"%s uses %s on %s.", actor.DisplayName, actor.Character.Skill.Name, target.DisplayName)
	drawn := tc.drawCards(actor, propagandaDraw)
	tc.log.add(Event{Type: EventDraw, Actor: idOf(actor), CardIDs: cardIDs(drawn), Amount: len(drawn)},
		"%s draws %s.", actor.DisplayName, plural(len(drawn), "card"))
	tc.forceDiscard(target, propagandaDiscard)
	return nil
}

func useWorkHarder(tc *turnContext, actor, _ *models.Player, req SkillRequest) error {
	switch req.Option {
	case SkillOptionDefault, SkillOptionHeal:
		tc.log.add(Event{Type: EventSkill, Actor: idOf(actor)},
			"%s uses %s to recover.", actor.DisplayName, actor.Character.Skill.Name)
		tc.heal(actor, tc.rules.HealAmount)
	case SkillOptionDraw:
		tc.log.add(Event{Type: EventSkill, Actor: idOf(actor)},
			"%s uses %s to gather supplies.", actor.DisplayName, actor.Character.Skill.Name)
		drawn := tc.drawCards(actor, workHarderDraw)
		tc.log.add(Event{Type: EventDraw, Actor: idOf(actor), CardIDs: cardIDs(drawn), Amount: len(drawn)},
			"%s draws %s.", actor.DisplayName, plural(len(drawn), "card"))
		tc.state.Players.SetFlag(actor.ID, models.FlagSkipNextAttack, true)
		tc.log.add(Event{Type: EventAttackForfeit, Actor: idOf(actor)},
			"%s cannot attack for the rest of the turn.", actor.DisplayName)
	default:
		return reject(CodeInvalidAction, "unknown option %q for %s", req.Option, actor.Character.Skill.Name)
	}
	return nil
}

func useReviseTruth(tc *turnContext, actor, target *models.Player, req SkillRequest) error {
	if target.Health >= reviseTruthBelow {
		return reject(CodeInvalidTarget, "%s must be below %d HP", target.DisplayName, reviseTruthBelow)
	}
	if len(target.Hand) == 0 {
		return reject(CodeInvalidTarget, "%s has no cards to swap", target.DisplayName)
	}
	if req.CardID == nil {
		return reject(CodeCardNotFound, "%s needs a card to give", actor.Character.Skill.Name)
	}
	if actor.HandIndex(*req.CardID) == -1 {
		return reject(CodeCardNotFound, "%s does not hold card %d", actor.DisplayName, *req.CardID)
	}

	tc.log.add(Event{Type: EventSkill, Actor: idOf(actor), Target: idOf(target)},
		"%s uses %s on %s.", actor.DisplayName, actor.Character.Skill.Name, target.DisplayName)
	given, _ := tc.state.Players.RemoveFromHand(actor.ID, *req.CardID)
	taken := tc.state.Players.TakeFront(target.ID, 1)
	tc.state.Players.AddToHand(target.ID, given)
	tc.state.Players.AddToHand(actor.ID, taken...)
	tc.log.add(Event{Type: EventSwap, Actor: idOf(actor), Target: idOf(target), CardIDs: []int{given.ID, taken[0].ID}},
		"%s swaps a card with %s.", actor.DisplayName, target.DisplayName)
	return nil
}
