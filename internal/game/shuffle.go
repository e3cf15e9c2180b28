package game

import (
	"math/rand/v2"
)

// Shuffler permutes a board in place.
type Shuffler interface {
	Shuffle(cards []Card)
}

// IntNSource draws a uniform int in [0, n). *rand.Rand satisfies it.
type IntNSource interface {
	IntN(n int) int
}

// FisherYates is the Knuth shuffle: walk from the last index down to 1 and swap
// each position with a partner drawn uniformly from [0, i].
type FisherYates struct {
	src IntNSource
}

// NewShuffler returns a Fisher–Yates shuffler over src.
// A nil src uses the runtime-seeded global generator.
func NewShuffler(src IntNSource) *FisherYates {
	return &FisherYates{src: src}
}

// NewSeededShuffler returns a deterministic shuffler; equal seeds deal equal boards.
func NewSeededShuffler(seed uint64) *FisherYates {
	return &FisherYates{src: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Shuffle implements Shuffler.
func (f *FisherYates) Shuffle(cards []Card) {
	for i := len(cards) - 1; i > 0; i-- {
		j := f.intN(i + 1)
		cards[i], cards[j] = cards[j], cards[i]
	}
}

func (f *FisherYates) intN(n int) int {
	if f.src == nil {
		return rand.IntN(n)
	}
	return f.src.IntN(n)
}
