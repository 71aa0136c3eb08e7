// Package numeric holds the integer helpers used by the knapsack cipher.
package numeric

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/TheusHen/knapchat/knapchat/errs"
)

var (
	ErrNotInvertible = errors.Wrap(errs.ErrValidation, "numeric: value has no modular inverse")
	ErrInvalidBit    = errors.Wrap(errs.ErrValidation, "numeric: bit must be 0 or 1")
	ErrBitWidth      = errors.Wrap(errs.ErrValidation, "numeric: value does not fit in bit width")
)

var one = big.NewInt(1)

// Sum returns the sum of seq.
func Sum(seq []*big.Int) *big.Int {
	total := new(big.Int)
	for _, v := range seq {
		total.Add(total, v)
	}
	return total
}

// IsSuperincreasing reports whether every element of seq exceeds the sum of
// all elements before it.
func IsSuperincreasing(seq []*big.Int) bool {
	total := new(big.Int)
	for _, v := range seq {
		if v.Cmp(total) <= 0 {
			return false
		}
		total.Add(total, v)
	}
	return true
}

// Coprime reports whether gcd(a, b) == 1.
func Coprime(a, b *big.Int) bool {
	return new(big.Int).GCD(nil, nil, a, b).Cmp(one) == 0
}

// ModInverse returns s with a*s ≡ 1 (mod m), computed with the extended
// Euclidean algorithm. a and m must be positive and coprime.
func ModInverse(a, m *big.Int) (*big.Int, error) {
	if a.Sign() <= 0 || m.Sign() <= 0 {
		return nil, ErrNotInvertible
	}
	x := new(big.Int)
	gcd := new(big.Int).GCD(x, nil, a, m)
	if gcd.Cmp(one) != 0 {
		return nil, ErrNotInvertible
	}
	return x.Mod(x, m), nil
}

// ToBits expands v into a width-bit vector, most significant bit first.
func ToBits(v uint, width int) ([]uint8, error) {
	if width < 1 || (width < 64 && v>>uint(width) != 0) {
		return nil, errors.Wrapf(ErrBitWidth, "%d in %d bits", v, width)
	}
	bits := make([]uint8, width)
	for i := width - 1; i >= 0; i-- {
		bits[i] = uint8(v & 1)
		v >>= 1
	}
	return bits, nil
}

// FromBits recomposes an MSB-first bit vector.
func FromBits(bits []uint8) (uint, error) {
	var v uint
	for _, b := range bits {
		if b > 1 {
			return 0, ErrInvalidBit
		}
		v = v<<1 | uint(b)
	}
	return v, nil
}

// ByteToBits is ToBits for a single byte in 8 bits.
func ByteToBits(b byte) []uint8 {
	bits, _ := ToBits(uint(b), 8)
	return bits
}

// BitsToByte recomposes an 8-bit MSB-first vector into a byte.
func BitsToByte(bits []uint8) (byte, error) {
	if len(bits) != 8 {
		return 0, errors.Wrapf(ErrBitWidth, "got %d bits", len(bits))
	}
	v, err := FromBits(bits)
	if err != nil {
		return 0, err
	}
	return byte(v), nil
}
