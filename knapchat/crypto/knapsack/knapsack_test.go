package knapsack

import (
	"errors"
	"math/big"
	mrand "math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/TheusHen/knapchat/knapchat/crypto/numeric"
	"github.com/TheusHen/knapchat/knapchat/errs"
)

func fixedKey() PrivateKey {
	w := []*big.Int{}
	for _, v := range []int64{2, 3, 6, 13, 27, 52, 105, 210} {
		w = append(w, big.NewInt(v))
	}
	return PrivateKey{W: w, Q: big.NewInt(420), R: big.NewInt(229)}
}

func TestGeneratePrivateKeyInvariants(t *testing.T) {
	random := mrand.NewChaCha8([32]byte{1})
	for n := 1; n <= 64; n++ {
		priv, err := GeneratePrivateKey(random, n)
		require.NoError(t, err)
		require.Len(t, priv.W, n)
		require.True(t, numeric.IsSuperincreasing(priv.W), "n=%d", n)
		require.Equal(t, 1, priv.Q.Cmp(numeric.Sum(priv.W)), "n=%d", n)
		require.True(t, numeric.Coprime(priv.Q, priv.R), "n=%d", n)
		require.NoError(t, priv.Validate())
		require.True(t, priv.W[0].Int64() >= 2 && priv.W[0].Int64() <= 10)
	}
}

func TestGeneratePrivateKeyDefaultSource(t *testing.T) {
	priv, pub, err := GenerateKeyPair(nil, DefaultBits)
	require.NoError(t, err)
	require.NoError(t, priv.Validate())
	require.Len(t, pub, DefaultBits)
}

func TestGeneratePrivateKeyRejectsZeroSize(t *testing.T) {
	_, err := GeneratePrivateKey(nil, 0)
	require.ErrorIs(t, err, ErrInvalidKeySize)
}

func TestPublicKeyDerivation(t *testing.T) {
	priv := fixedKey()
	pub := priv.PublicKey()
	require.Len(t, pub, len(priv.W))
	for i, w := range priv.W {
		want := new(big.Int).Mul(priv.R, w)
		want.Mod(want, priv.Q)
		require.Zero(t, want.Cmp(pub[i]))
	}
	require.True(t, pub.Equal(priv.PublicKey()))
	require.True(t, pub.Equal(pub.Clone()))
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	random := mrand.NewChaCha8([32]byte{7})
	messages := [][]byte{
		{},
		[]byte("I Love Go!"),
		[]byte(`{"client_id": 9001}`),
		[]byte("👋🤑🐮🚝🎼🇺🇲"),
	}
	all := make([]byte, 256)
	for i := range all {
		all[i] = byte(i)
	}
	messages = append(messages, all)

	for _, n := range []int{8, 9, 16, 40} {
		priv, pub, err := GenerateKeyPair(random, n)
		require.NoError(t, err)
		for _, msg := range messages {
			ct, err := Encrypt(msg, pub)
			require.NoError(t, err)
			require.Len(t, ct, len(msg))

			pt, err := Decrypt(ct, priv)
			require.NoError(t, err)
			require.Equal(t, len(msg), len(pt))
			if len(msg) > 0 {
				require.Equal(t, msg, pt)
			}
		}
	}
}

func TestEncryptKnownByte(t *testing.T) {
	priv := fixedKey()
	pub := priv.PublicKey()

	// 'A' = 0b01000001 selects b_1 and b_7.
	ct, err := Encrypt([]byte("A"), pub)
	require.NoError(t, err)
	want := new(big.Int).Add(pub[1], pub[7])
	require.Zero(t, want.Cmp(ct[0]))

	pt, err := Decrypt(ct, priv)
	require.NoError(t, err)
	require.Equal(t, []byte("A"), pt)
}

func TestEncryptRejectsShortKey(t *testing.T) {
	priv, pub, err := GenerateKeyPair(mrand.NewChaCha8([32]byte{3}), 4)
	require.NoError(t, err)
	require.NoError(t, priv.Validate())
	_, err = Encrypt([]byte("x"), pub)
	require.ErrorIs(t, err, ErrKeyTooShort)
}

func TestDecryptUnsolvableChunk(t *testing.T) {
	priv := fixedKey()

	// c = r reduces to c' = 1, below the smallest element.
	_, err := Decrypt(Ciphertext{big.NewInt(229)}, priv)
	require.ErrorIs(t, err, ErrNoSubset)
	require.True(t, errors.Is(err, errs.ErrCrypto))

	// c' = sum(w) + 1 leaves a remainder after the scan.
	s, err := numeric.ModInverse(priv.R, priv.Q)
	require.NoError(t, err)
	require.NotNil(t, s)
	c := new(big.Int).Mul(big.NewInt(419), priv.R)
	c.Mod(c, priv.Q)
	_, err = Decrypt(Ciphertext{c}, priv)
	require.ErrorIs(t, err, ErrNoSubset)
}

func TestDecryptWithWrongKeyNeverSucceedsSilently(t *testing.T) {
	random := mrand.NewChaCha8([32]byte{9})
	_, pub, err := GenerateKeyPair(random, DefaultBits)
	require.NoError(t, err)
	other, _, err := GenerateKeyPair(random, DefaultBits)
	require.NoError(t, err)

	msg := []byte("attack at dawn")
	ct, err := Encrypt(msg, pub)
	require.NoError(t, err)

	pt, err := Decrypt(ct, other)
	if err == nil {
		require.NotEqual(t, msg, pt)
		return
	}
	require.ErrorIs(t, err, errs.ErrCrypto)
}

func TestSolveSubsetSum(t *testing.T) {
	w := []*big.Int{big.NewInt(2), big.NewInt(6), big.NewInt(19), big.NewInt(49), big.NewInt(90)}
	bits, err := SolveSubsetSum(big.NewInt(70), w)
	require.NoError(t, err)

	sum := new(big.Int)
	for i, b := range bits {
		if b == 1 {
			sum.Add(sum, w[i])
		}
	}
	require.Equal(t, int64(70), sum.Int64())

	_, err = SolveSubsetSum(big.NewInt(1), w)
	require.ErrorIs(t, err, ErrNoSubset)

	_, err = SolveSubsetSum(big.NewInt(3), []*big.Int{big.NewInt(2), big.NewInt(1)})
	require.ErrorIs(t, err, ErrInvalidPrivateKey)
}

func TestValidateRejectsBrokenKeys(t *testing.T) {
	k := fixedKey()
	k.Q = big.NewInt(400)
	require.ErrorIs(t, k.Validate(), ErrInvalidPrivateKey)

	k = fixedKey()
	k.R = big.NewInt(210)
	require.ErrorIs(t, k.Validate(), ErrInvalidPrivateKey)

	k = fixedKey()
	k.W[2] = big.NewInt(4)
	require.ErrorIs(t, k.Validate(), ErrInvalidPrivateKey)
}
