package game

import (
	"math/rand/v2"

	"github.com/jason-s-yu/animalfarm/internal/models"
)

// Deck owns the draw pile and the discard pile. The front of DrawPile is the top.
type Deck struct {
	DrawPile    []*models.Card `json:"drawPile"`
	DiscardPile []*models.Card `json:"discardPile"`
}

// DrawResult reports what a draw request produced.
type DrawResult struct {
	Cards []*models.Card
	// Reshuffled is the number of discarded cards recycled into the draw pile, 0 if none.
	Reshuffled int
}

// Shuffle permutes cards in place with a uniform Fisher-Yates shuffle.
func Shuffle(r *rand.Rand, cards []*models.Card) {
	r.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})
}

// Draw removes up to n cards from the top of the draw pile. When the draw pile runs
// out the whole discard pile is shuffled into it and drawing continues. If both piles
// are empty fewer than n cards are returned.
func (d *Deck) Draw(r *rand.Rand, n int) DrawResult {
	var res DrawResult
	for i := 0; i < n; i++ {
		if len(d.DrawPile) == 0 {
			if len(d.DiscardPile) == 0 {
				break
			}
			res.Reshuffled += len(d.DiscardPile)
			d.DrawPile = d.DiscardPile
			d.DiscardPile = []*models.Card{}
			Shuffle(r, d.DrawPile)
		}
		res.Cards = append(res.Cards, d.DrawPile[0])
		d.DrawPile = d.DrawPile[1:]
	}
	return res
}

// Discard appends cards to the discard pile in the given order.
func (d *Deck) Discard(cards ...*models.Card) {
	d.DiscardPile = append(d.DiscardPile, cards...)
}
