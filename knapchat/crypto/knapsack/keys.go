package knapsack

import (
	"crypto/rand"
	"io"
	"math/big"

	"github.com/pkg/errors"

	"github.com/TheusHen/knapchat/knapchat/crypto/numeric"
	"github.com/TheusHen/knapchat/knapchat/errs"
)

// DefaultBits is the key length that encrypts one byte per chunk.
const DefaultBits = 8

var (
	ErrInvalidKeySize    = errors.Wrap(errs.ErrValidation, "knapsack: key size must be at least 1")
	ErrInvalidPrivateKey = errors.Wrap(errs.ErrValidation, "knapsack: invalid private key")
)

var (
	seedMin = big.NewInt(2)
	seedMax = big.NewInt(10)
)

// PrivateKey is (w, q, r). W is superincreasing, Q > sum(W), gcd(Q, R) == 1
// and 2 <= R < Q.
type PrivateKey struct {
	W []*big.Int
	Q *big.Int
	R *big.Int
}

// PublicKey is b_i = R*W_i mod Q.
type PublicKey []*big.Int

// Bits returns the key length n.
func (k PrivateKey) Bits() int { return len(k.W) }

// Validate checks the private key invariants.
func (k PrivateKey) Validate() error {
	if len(k.W) == 0 || k.Q == nil || k.R == nil {
		return errors.Wrap(ErrInvalidPrivateKey, "missing component")
	}
	if !numeric.IsSuperincreasing(k.W) {
		return errors.Wrap(ErrInvalidPrivateKey, "w is not superincreasing")
	}
	if k.Q.Cmp(numeric.Sum(k.W)) <= 0 {
		return errors.Wrap(ErrInvalidPrivateKey, "q must exceed sum(w)")
	}
	if k.R.Cmp(seedMin) < 0 || k.R.Cmp(k.Q) >= 0 {
		return errors.Wrap(ErrInvalidPrivateKey, "r out of range")
	}
	if !numeric.Coprime(k.Q, k.R) {
		return errors.Wrap(ErrInvalidPrivateKey, "q and r are not coprime")
	}
	return nil
}

// PublicKey derives the public key.
func (k PrivateKey) PublicKey() PublicKey {
	pub := make(PublicKey, len(k.W))
	for i, w := range k.W {
		b := new(big.Int).Mul(k.R, w)
		pub[i] = b.Mod(b, k.Q)
	}
	return pub
}

// Clone returns a deep copy of the public key.
func (p PublicKey) Clone() PublicKey {
	out := make(PublicKey, len(p))
	for i, v := range p {
		out[i] = new(big.Int).Set(v)
	}
	return out
}

// Equal reports whether both keys hold the same values.
func (p PublicKey) Equal(other PublicKey) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i].Cmp(other[i]) != 0 {
			return false
		}
	}
	return true
}

// GeneratePrivateKey builds an n-element private key from random.
// A nil random uses crypto/rand.
func GeneratePrivateKey(random io.Reader, n int) (PrivateKey, error) {
	if n < 1 {
		return PrivateKey{}, ErrInvalidKeySize
	}
	if random == nil {
		random = rand.Reader
	}

	first, err := randRange(random, seedMin, seedMax)
	if err != nil {
		return PrivateKey{}, err
	}
	w := make([]*big.Int, 1, n)
	w[0] = first
	total := new(big.Int).Set(first)
	for len(w) < n {
		next, err := nextSuperincreasing(random, total)
		if err != nil {
			return PrivateKey{}, err
		}
		w = append(w, next)
		total.Add(total, next)
	}

	q, err := nextSuperincreasing(random, total)
	if err != nil {
		return PrivateKey{}, err
	}
	r, err := coprimeTo(random, q)
	if err != nil {
		return PrivateKey{}, err
	}
	return PrivateKey{W: w, Q: q, R: r}, nil
}

// GenerateKeyPair returns a private key and its public key.
func GenerateKeyPair(random io.Reader, n int) (PrivateKey, PublicKey, error) {
	priv, err := GeneratePrivateKey(random, n)
	if err != nil {
		return PrivateKey{}, nil, err
	}
	return priv, priv.PublicKey(), nil
}

// nextSuperincreasing picks uniformly from [total+1, 2*total].
func nextSuperincreasing(random io.Reader, total *big.Int) (*big.Int, error) {
	lo := new(big.Int).Add(total, big.NewInt(1))
	hi := new(big.Int).Lsh(total, 1)
	return randRange(random, lo, hi)
}

// coprimeTo rejection-samples r in [2, q-1] until gcd(q, r) == 1.
func coprimeTo(random io.Reader, q *big.Int) (*big.Int, error) {
	hi := new(big.Int).Sub(q, big.NewInt(1))
	for {
		r, err := randRange(random, seedMin, hi)
		if err != nil {
			return nil, err
		}
		if numeric.Coprime(q, r) {
			return r, nil
		}
	}
}

// randRange returns a uniform integer in [lo, hi].
func randRange(random io.Reader, lo, hi *big.Int) (*big.Int, error) {
	span := new(big.Int).Sub(hi, lo)
	span.Add(span, big.NewInt(1))
	v, err := rand.Int(random, span)
	if err != nil {
		return nil, errors.Wrap(err, "knapsack: random source")
	}
	return v.Add(v, lo), nil
}
