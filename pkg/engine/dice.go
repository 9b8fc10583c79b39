package engine

import (
	"golang.org/x/exp/rand"
)

// Pips are the die values available for one turn: two values, or four
// copies of the same value on doubles.
type Pips []int

// IsDouble reports whether the pips came from a doubles roll.
func (p Pips) IsDouble() bool {
	return len(p) == 4
}

// RollPips builds the pips for a pair of dice values.
func RollPips(d1, d2 int) Pips {
	if d1 == d2 {
		return Pips{d1, d1, d1, d1}
	}
	return Pips{d1, d2}
}

// Dice is a seeded source of rolls. It is not safe for concurrent use.
type Dice struct {
	rng *rand.Rand
}

// NewDice returns dice seeded with seed.
func NewDice(seed uint64) *Dice {
	return &Dice{rng: rand.New(rand.NewSource(seed))}
}

func (d *Dice) die() int {
	return d.rng.Intn(6) + 1
}

// Roll throws both dice.
func (d *Dice) Roll() Pips {
	return RollPips(d.die(), d.die())
}

// First performs the opening roll: each side throws one die, ties are
// rethrown, and the higher die moves first.
func (d *Dice) First() Side {
	for {
		w, b := d.die(), d.die()
		switch {
		case w > b:
			return White
		case b > w:
			return Black
		}
	}
}
