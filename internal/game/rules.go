// internal/game/rules.go
package game

import "fmt"

// RequiredPlayers is the only table size the role assignment supports.
const RequiredPlayers = 4

// HouseRules holds the tunable numbers of a game. Defaults match the printed rules.
type HouseRules struct {
	StartingHand    int `json:"startingHand"`    // cards dealt to each player at setup
	HandLimit       int `json:"handLimit"`       // max hand size after the discard phase
	BaseDraw        int `json:"baseDraw"`        // cards drawn in each draw phase before modifiers
	AttackDamage    int `json:"attackDamage"`    // damage of an undodged attack
	HealAmount      int `json:"healAmount"`      // health restored by a ration or a heal skill
	DisruptionCount int `json:"disruptionCount"` // cards a disruption forces the target to discard
}

// DefaultHouseRules returns the standard four-player configuration.
func DefaultHouseRules() HouseRules {
	return HouseRules{
		StartingHand:    4,
		HandLimit:       4,
		BaseDraw:        2,
		AttackDamage:    1,
		HealAmount:      1,
		DisruptionCount: 2,
	}
}

// Update will update the house rules with the new rules provided.
// If a rule is not set or defined, it will be ignored, and the old value will persist.
func (rules *HouseRules) Update(newRules map[string]interface{}) error {
	assignInt := func(field *int, key string, minVal int) error {
		val, exists := newRules[key]
		if !exists || val == nil {
			return nil
		}
		var n int
		switch v := val.(type) {
		case float64:
			// JSON numbers decode as float64
			n = int(v)
		case int:
			n = v
		default:
			return fmt.Errorf("invalid type for %s", key)
		}
		if n < minVal {
			return fmt.Errorf("%s must be at least %d", key, minVal)
		}
		*field = n
		return nil
	}

	if err := assignInt(&rules.StartingHand, "startingHand", 0); err != nil {
		return err
	}
	if err := assignInt(&rules.HandLimit, "handLimit", 0); err != nil {
		return err
	}
	if err := assignInt(&rules.BaseDraw, "baseDraw", 0); err != nil {
		return err
	}
	if err := assignInt(&rules.AttackDamage, "attackDamage", 1); err != nil {
		return err
	}
	if err := assignInt(&rules.HealAmount, "healAmount", 0); err != nil {
		return err
	}
	if err := assignInt(&rules.DisruptionCount, "disruptionCount", 0); err != nil {
		return err
	}
	return nil
}

// ParseRules converts a map of rules to a HouseRules struct. It will ensure the types are valid.
func ParseRules(rules map[string]interface{}, current HouseRules) (HouseRules, error) {
	houseRules := current
	err := houseRules.Update(rules)
	return houseRules, err
}
