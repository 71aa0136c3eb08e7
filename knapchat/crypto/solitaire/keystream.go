package solitaire

// Keystream is the Solitaire generator. It owns its deck and updates it on
// every draw.
type Keystream struct {
	deck Deck
	// pos[v] is the index of value v in deck.
	pos [NumCards + 1]int
}

// NewKeystream starts a generator from a copy of deck.
func NewKeystream(deck Deck) (*Keystream, error) {
	if err := deck.Validate(); err != nil {
		return nil, err
	}
	ks := &Keystream{deck: deck}
	ks.reindex(0, NumCards)
	return ks, nil
}

// NewIdentityKeystream starts a generator from the ordered deck.
func NewIdentityKeystream() *Keystream {
	ks, _ := NewKeystream(IdentityDeck())
	return ks
}

// Deck returns a copy of the current deck state.
func (ks *Keystream) Deck() Deck { return ks.deck }

// NextBytes returns the next n keystream bytes.
func (ks *Keystream) NextBytes(n int) []byte {
	out := make([]byte, n)
	ks.fill(out)
	return out
}

func (ks *Keystream) fill(buf []byte) {
	for i := range buf {
		buf[i] = ks.NextByte()
	}
}

// NextByte packs four draws reduced mod 4, the first draw in the low bits.
func (ks *Keystream) NextByte() byte {
	var b byte
	for shift := 0; shift < 8; shift += 2 {
		b |= byte(ks.NextValue()%4) << shift
	}
	return b
}

// NextValue draws until a non-joker output in 1..52 appears.
func (ks *Keystream) NextValue() int {
	for {
		if v, ok := ks.draw(); ok {
			return v
		}
	}
}

// draw runs one round of the algorithm. ok is false when the output card is
// a joker and the round must be repeated.
func (ks *Keystream) draw() (int, bool) {
	ks.advanceJokers()
	ks.tripleCut()
	ks.countCut()
	return ks.output()
}

func (ks *Keystream) advanceJokers() {
	a := ks.pos[JokerA]
	if a == NumCards-1 {
		ks.move(a, 1)
	} else {
		ks.move(a, a+1)
	}

	b := ks.pos[JokerB]
	switch b {
	case NumCards - 2:
		ks.move(b, 1)
	case NumCards - 1:
		ks.move(b, 2)
	default:
		ks.move(b, b+2)
	}
}

// move removes the card at from and reinserts it so it ends up at to.
func (ks *Keystream) move(from, to int) {
	v := ks.deck[from]
	switch {
	case from < to:
		copy(ks.deck[from:to], ks.deck[from+1:to+1])
		ks.deck[to] = v
		ks.reindex(from, to+1)
	case from > to:
		copy(ks.deck[to+1:from+1], ks.deck[to:from])
		ks.deck[to] = v
		ks.reindex(to, from+1)
	}
}

// tripleCut swaps the cards above the first joker with the cards below the
// second joker.
func (ks *Keystream) tripleCut() {
	top, bottom := ks.pos[JokerA], ks.pos[JokerB]
	if top > bottom {
		top, bottom = bottom, top
	}

	var next Deck
	n := copy(next[:], ks.deck[bottom+1:])
	n += copy(next[n:], ks.deck[top:bottom+1])
	copy(next[n:], ks.deck[:top])
	ks.deck = next
	ks.reindex(0, NumCards)
}

// countCut moves as many top cards as the bottom card's value to just above
// the bottom card. A joker on the bottom leaves the deck unchanged.
func (ks *Keystream) countCut() {
	count := ks.deck[NumCards-1]
	if isJoker(count) {
		return
	}

	var next Deck
	n := copy(next[:], ks.deck[count:NumCards-1])
	n += copy(next[n:], ks.deck[:count])
	next[n] = count
	ks.deck = next
	ks.reindex(0, NumCards)
}

// output looks up the card indexed by the top card's value, jokers counting
// as 53.
func (ks *Keystream) output() (int, bool) {
	top := ks.deck[0]
	if isJoker(top) {
		top = JokerA
	}
	v := ks.deck[top]
	if isJoker(v) {
		return 0, false
	}
	return v, true
}

func (ks *Keystream) reindex(lo, hi int) {
	for i := lo; i < hi; i++ {
		ks.pos[ks.deck[i]] = i
	}
}
