package models

// SkillKind distinguishes skills a player triggers from those that always apply.
type SkillKind string

const (
	SkillActive  SkillKind = "Active"
	SkillPassive SkillKind = "Passive"
)

// Capability tags a skill's mechanical effect. Engine modifiers are keyed by
// capability so renaming a character never changes behavior.
type Capability string

const (
	CapabilityNone        Capability = ""
	CapabilityBonusDraw   Capability = "bonus_draw"   // passive: +1 card in the draw phase
	CapabilityPropaganda  Capability = "propaganda"   // active: draw 2, target discards 1
	CapabilityWorkHarder  Capability = "work_harder"  // active: heal 1, or draw 3 and give up attacking
	CapabilityReviseTruth Capability = "revise_truth" // active: swap a card with a badly hurt player
)

// Skill is a character ability, dispatched by Capability.
type Skill struct {
	Name        string     `json:"name"`
	Kind        SkillKind  `json:"kind"`
	Capability  Capability `json:"capability"`
	Description string     `json:"description"`
}

// CharacterDefinition is static roster data and is never mutated at runtime.
type CharacterDefinition struct {
	Name       string `json:"name"`
	BaseHealth int    `json:"baseHealth"`
	RolePool   []Role `json:"rolePool"`
	Skill      Skill  `json:"skill"`
}

// Allows reports whether the character may be dealt to a player holding role.
func (c CharacterDefinition) Allows(role Role) bool {
	for _, r := range c.RolePool {
		if r == role {
			return true
		}
	}
	return false
}
