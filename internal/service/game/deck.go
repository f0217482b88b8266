package game

import (
	"math/rand"

	"github.com/google/uuid"
)

const DeckSize = 40

// Shuffler permutes n elements through swap. rand.Shuffle (Fisher-Yates)
// satisfies it.
type Shuffler func(n int, swap func(i, j int))

// Build returns the 40 cards in suit-major order, each with a fresh id.
func Build() []Card {
	deck := make([]Card, 0, DeckSize)
	for _, s := range Suits {
		for _, r := range Ranks {
			deck = append(deck, NewCard(uuid.NewString(), s, r))
		}
	}
	return deck
}

// Shuffle returns a uniformly permuted copy of cards. A nil shuffler uses
// math/rand.
func Shuffle(cards []Card, shuffler Shuffler) []Card {
	if shuffler == nil {
		shuffler = rand.Shuffle
	}
	out := make([]Card, len(cards))
	copy(out, cards)
	shuffler(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}
