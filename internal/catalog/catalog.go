// Package catalog holds the static card and character data a game is built from.
package catalog

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/jason-s-yu/animalfarm/internal/models"
)

//go:embed data/*.json
var dataFS embed.FS

// CardPrototype describes Count identical copies of a card.
type CardPrototype struct {
	Name       string          `json:"name"`
	Kind       models.CardKind `json:"kind"`
	Effect     models.Effect   `json:"effect"`
	Count      int             `json:"count"`
	EffectText string          `json:"effectText"`
}

// Catalog is the read-only configuration input for a game: the deck recipe and the roster.
type Catalog struct {
	Cards      []CardPrototype              `json:"cards"`
	Characters []models.CharacterDefinition `json:"characters"`
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
	defaultErr     error
)

// Default returns the catalog shipped with the binary.
func Default() (*Catalog, error) {
	defaultOnce.Do(func() {
		var c Catalog
		if defaultErr = readEmbedded("data/cards.json", &c.Cards); defaultErr != nil {
			return
		}
		if defaultErr = readEmbedded("data/characters.json", &c.Characters); defaultErr != nil {
			return
		}
		if defaultErr = c.Validate(); defaultErr != nil {
			return
		}
		defaultCatalog = &c
	})
	return defaultCatalog, defaultErr
}

// LoadFile parses a catalog override from a single JSON document with "cards" and "characters".
func LoadFile(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	var c Catalog
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return &c, nil
}

func readEmbedded(name string, v interface{}) error {
	raw, err := dataFS.ReadFile(name)
	if err != nil {
		return fmt.Errorf("read embedded %s: %w", name, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("parse embedded %s: %w", name, err)
	}
	return nil
}

// Validate rejects catalogs the engine cannot run with.
func (c *Catalog) Validate() error {
	if len(c.Cards) == 0 {
		return errors.New("no card prototypes")
	}
	for _, p := range c.Cards {
		if p.Count < 0 {
			return fmt.Errorf("card %q has negative count", p.Name)
		}
		switch p.Effect {
		case models.EffectShoot, models.EffectDream, models.EffectDodge,
			models.EffectRation, models.EffectForceDiscard, models.EffectSkipDraw:
		default:
			return fmt.Errorf("card %q has unknown effect %q", p.Name, p.Effect)
		}
	}
	roles := []models.Role{models.RoleTyrant, models.RoleLoyalist, models.RoleRebel, models.RoleCollaborator}
	for _, role := range roles {
		if _, ok := c.CharacterFor(role, nil); !ok {
			return fmt.Errorf("no character allows role %s", role)
		}
	}
	for _, ch := range c.Characters {
		if ch.BaseHealth <= 0 {
			return fmt.Errorf("character %q has non-positive health", ch.Name)
		}
	}
	return nil
}

// BuildDeck expands every prototype into cards numbered from zero, in catalog order.
func (c *Catalog) BuildDeck() []*models.Card {
	var deck []*models.Card
	id := 0
	for _, p := range c.Cards {
		for i := 0; i < p.Count; i++ {
			deck = append(deck, &models.Card{
				ID:         id,
				Name:       p.Name,
				Kind:       p.Kind,
				Effect:     p.Effect,
				EffectText: p.EffectText,
			})
			id++
		}
	}
	return deck
}

// CharacterFor picks the first roster entry allowing role that is not in taken.
// If every allowed character is taken it falls back to the first one allowing role.
func (c *Catalog) CharacterFor(role models.Role, taken map[string]bool) (models.CharacterDefinition, bool) {
	var fallback *models.CharacterDefinition
	for i := range c.Characters {
		ch := c.Characters[i]
		if !ch.Allows(role) {
			continue
		}
		if !taken[ch.Name] {
			return ch, true
		}
		if fallback == nil {
			fallback = &c.Characters[i]
		}
	}
	if fallback != nil {
		return *fallback, true
	}
	return models.CharacterDefinition{}, false
}
