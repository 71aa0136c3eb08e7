package knapsack

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/TheusHen/knapchat/knapchat/crypto/numeric"
	"github.com/TheusHen/knapchat/knapchat/errs"
)

var (
	ErrNoSubset      = errors.Wrap(errs.ErrCrypto, "knapsack: no subset sums to target")
	ErrChunkTooLarge = errors.Wrap(errs.ErrCrypto, "knapsack: chunk does not decode to a byte")
	ErrKeyTooShort   = errors.Wrap(errs.ErrValidation, "knapsack: key must have at least 8 elements to encrypt bytes")
)

// Ciphertext holds one integer per plaintext byte.
type Ciphertext []*big.Int

// Encrypt encrypts msg under pub. Each byte is expanded to len(pub) bits,
// most significant first, and dotted with the key.
func Encrypt(msg []byte, pub PublicKey) (Ciphertext, error) {
	n := len(pub)
	if n < 8 {
		return nil, ErrKeyTooShort
	}
	out := make(Ciphertext, len(msg))
	for i, b := range msg {
		bits, err := numeric.ToBits(uint(b), n)
		if err != nil {
			return nil, err
		}
		c := new(big.Int)
		for j, bit := range bits {
			if bit == 1 {
				c.Add(c, pub[j])
			}
		}
		out[i] = c
	}
	return out, nil
}

// Decrypt reverses Encrypt with the matching private key. A chunk that has no
// exact subset-sum solution fails with ErrNoSubset.
func Decrypt(ct Ciphertext, priv PrivateKey) ([]byte, error) {
	if len(priv.W) == 0 || priv.Q == nil || priv.R == nil {
		return nil, errors.Wrap(ErrInvalidPrivateKey, "missing component")
	}
	s, err := numeric.ModInverse(priv.R, priv.Q)
	if err != nil {
		return nil, err
	}

	out := make([]byte, len(ct))
	for i, c := range ct {
		if c == nil {
			return nil, errors.Wrapf(ErrNoSubset, "chunk %d is empty", i)
		}
		target := new(big.Int).Mul(c, s)
		target.Mod(target, priv.Q)

		bits, err := SolveSubsetSum(target, priv.W)
		if err != nil {
			return nil, errors.Wrapf(err, "chunk %d", i)
		}
		b, err := bitsToByte(bits)
		if err != nil {
			return nil, errors.Wrapf(err, "chunk %d", i)
		}
		out[i] = b
	}
	return out, nil
}

// SolveSubsetSum finds bits with sum(bits_i * w_i) == target for a
// superincreasing w by a greedy scan from the largest element down.
func SolveSubsetSum(target *big.Int, w []*big.Int) ([]uint8, error) {
	if !numeric.IsSuperincreasing(w) {
		return nil, errors.Wrap(ErrInvalidPrivateKey, "w is not superincreasing")
	}
	rest := new(big.Int).Set(target)
	bits := make([]uint8, len(w))
	for i := len(w) - 1; i >= 0; i-- {
		if rest.Cmp(w[i]) >= 0 {
			bits[i] = 1
			rest.Sub(rest, w[i])
		}
	}
	if rest.Sign() != 0 {
		return nil, errors.Wrapf(ErrNoSubset, "remainder %s", rest)
	}
	return bits, nil
}

// bitsToByte recomposes an MSB-first vector; every bit above the low eight
// must be zero.
func bitsToByte(bits []uint8) (byte, error) {
	if len(bits) < 8 {
		v, err := numeric.FromBits(bits)
		return byte(v), err
	}
	hi := len(bits) - 8
	for _, b := range bits[:hi] {
		if b != 0 {
			return 0, ErrChunkTooLarge
		}
	}
	return numeric.BitsToByte(bits[hi:])
}
