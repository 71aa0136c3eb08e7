package solitaire

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/TheusHen/knapchat/knapchat/errs"
)

const (
	// NumCards is the size of every deck.
	NumCards = 54
	// JokerA and JokerB are the two marker cards.
	JokerA = NumCards - 1
	JokerB = NumCards
)

var ErrInvalidDeck = errors.Wrap(errs.ErrValidation, "solitaire: deck is not a permutation of 1..54")

// Deck is an arrangement of the values 1..54, top card first.
type Deck [NumCards]int

// IdentityDeck returns 1..54 in order.
func IdentityDeck() Deck {
	var d Deck
	for i := range d {
		d[i] = i + 1
	}
	return d
}

// DeckFromSlice copies values into a Deck and validates it.
func DeckFromSlice(values []int) (Deck, error) {
	var d Deck
	if len(values) != NumCards {
		return d, errors.Wrapf(ErrInvalidDeck, "got %d cards", len(values))
	}
	copy(d[:], values)
	return d, d.Validate()
}

// Validate checks that the deck holds every value 1..54 exactly once.
func (d Deck) Validate() error {
	var seen [NumCards + 1]bool
	for i, v := range d {
		if v < 1 || v > NumCards {
			return errors.Wrapf(ErrInvalidDeck, "card %d has value %d", i, v)
		}
		if seen[v] {
			return errors.Wrapf(ErrInvalidDeck, "value %d repeated", v)
		}
		seen[v] = true
	}
	return nil
}

// Slice returns the deck as a fresh slice.
func (d Deck) Slice() []int {
	out := make([]int, NumCards)
	copy(out, d[:])
	return out
}

func (d Deck) String() string { return fmt.Sprint(d.Slice()) }

func isJoker(v int) bool { return v == JokerA || v == JokerB }
