// Package solitaire provides a deck-driven keystream generator and the XOR
// stream cipher built on it.
//
// The generator follows the Solitaire card algorithm over a 54 card deck
// whose two jokers (53 and 54) never appear in the output. Two generators
// built from the same deck produce the same bytes forever; one generator must
// not be shared between goroutines.
//
// The stream cipher carries no integrity check. A dropped, duplicated or
// reordered byte desynchronizes both ends for the rest of the session and
// nothing here detects it.
package solitaire
