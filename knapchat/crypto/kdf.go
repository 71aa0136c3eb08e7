package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"io"
	"math/big"
	"math/bits"
	mrand "math/rand/v2"

	"github.com/pkg/errors"
	"golang.org/x/crypto/hkdf"

	"github.com/TheusHen/knapchat/knapchat/crypto/solitaire"
	"github.com/TheusHen/knapchat/knapchat/errs"
)

// Derivation selects how the half-key product becomes shuffle state.
type Derivation string

const (
	// DerivationLegacy seeds the shuffle with the raw product.
	DerivationLegacy Derivation = "legacy"
	// DerivationHKDF stretches the product through HKDF-SHA256 first. Both
	// parties must use the same mode.
	DerivationHKDF Derivation = "hkdf"
)

const commonKeyInfo = "knapchat-common-key"

var (
	ErrHalfKeyRange = errors.Wrap(errs.ErrValidation, "crypto: invalid half-key range")
	ErrSeedOverflow = errors.Wrap(errs.ErrValidation, "crypto: half-key product overflows 64 bits")
	ErrDerivation   = errors.Wrap(errs.ErrValidation, "crypto: unknown derivation")
)

// HalfKeyRange bounds half-keys, inclusive.
type HalfKeyRange struct {
	Min uint64
	Max uint64
}

// DefaultHalfKeyRange is [10000, 9999999].
var DefaultHalfKeyRange = HalfKeyRange{Min: 10000, Max: 9999999}

func (r HalfKeyRange) Validate() error {
	if r.Min == 0 || r.Min > r.Max {
		return errors.Wrapf(ErrHalfKeyRange, "[%d, %d]", r.Min, r.Max)
	}
	if hi, _ := bits.Mul64(r.Max, r.Max); hi != 0 {
		return errors.Wrapf(ErrSeedOverflow, "max %d", r.Max)
	}
	return nil
}

// Contains reports whether k lies in the range.
func (r HalfKeyRange) Contains(k uint64) bool { return k >= r.Min && k <= r.Max }

// GenerateHalfKey draws a uniform half-key from r. A nil random uses
// crypto/rand.
func GenerateHalfKey(random io.Reader, r HalfKeyRange) (uint64, error) {
	if err := r.Validate(); err != nil {
		return 0, err
	}
	if random == nil {
		random = rand.Reader
	}
	span := new(big.Int).SetUint64(r.Max - r.Min)
	span.Add(span, big.NewInt(1))
	v, err := rand.Int(random, span)
	if err != nil {
		return 0, errors.Wrap(err, "crypto: random source")
	}
	return r.Min + v.Uint64(), nil
}

// Seed multiplies both half-keys.
func Seed(own, peer uint64) (uint64, error) {
	hi, lo := bits.Mul64(own, peer)
	if hi != 0 {
		return 0, ErrSeedOverflow
	}
	return lo, nil
}

// DeriveCommonKey turns both half-keys into the shared deck. The product is
// commutative, so either party may pass its own key first.
func DeriveCommonKey(own, peer uint64, mode Derivation) (solitaire.Deck, error) {
	seed, err := Seed(own, peer)
	if err != nil {
		return solitaire.Deck{}, err
	}

	var s1, s2 uint64
	switch mode {
	case DerivationLegacy, "":
		s1, s2 = seed, seed
	case DerivationHKDF:
		var secret [8]byte
		binary.BigEndian.PutUint64(secret[:], seed)
		material, err := DeriveKey(secret[:], nil, []byte(commonKeyInfo), 16)
		if err != nil {
			return solitaire.Deck{}, err
		}
		s1 = binary.BigEndian.Uint64(material[:8])
		s2 = binary.BigEndian.Uint64(material[8:])
	default:
		return solitaire.Deck{}, errors.Wrapf(ErrDerivation, "%q", mode)
	}
	return ShuffleDeck(mrand.NewPCG(s1, s2)), nil
}

// ShuffleDeck applies Fisher–Yates to the identity deck, from the last card
// down, taking j = src.Uint64() mod (i+1).
func ShuffleDeck(src mrand.Source) solitaire.Deck {
	d := solitaire.IdentityDeck()
	for i := solitaire.NumCards - 1; i > 0; i-- {
		j := int(src.Uint64() % uint64(i+1))
		d[i], d[j] = d[j], d[i]
	}
	return d
}

// DeriveKey derives a key of the specified length using HKDF-SHA256.
// salt can be nil (uses zero salt), info provides context binding.
func DeriveKey(secret, salt, info []byte, length int) ([]byte, error) {
	hk := hkdf.New(sha256.New, secret, salt, info)
	key := make([]byte, length)
	if _, err := io.ReadFull(hk, key); err != nil {
		return nil, err
	}
	return key, nil
}
