package protocol

import (
	"bytes"
	"encoding/json"
	"math/big"
	mrand "math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/TheusHen/knapchat/knapchat/crypto/knapsack"
	"github.com/TheusHen/knapchat/knapchat/crypto/solitaire"
	"github.com/TheusHen/knapchat/knapchat/errs"
	"github.com/TheusHen/knapchat/knapchat/identity"
)

func testKeyPair(t *testing.T, seed byte) identity.KeyPair {
	t.Helper()
	kp, err := identity.GenerateKeyPair(mrand.NewChaCha8([32]byte{seed}), knapsack.DefaultBits)
	require.NoError(t, err)
	return kp
}

func TestSealOpen(t *testing.T) {
	kp := testKeyPair(t, 1)

	payload, err := Seal(HalfKey{HalfKey: 1234567}, kp.Public)
	require.NoError(t, err)
	require.Equal(t, byte('['), payload[0])

	var out HalfKey
	require.NoError(t, Open(payload, kp, &out))
	require.Equal(t, uint64(1234567), out.HalfKey)
}

func TestOpenWithWrongKey(t *testing.T) {
	kp := testKeyPair(t, 1)
	other := testKeyPair(t, 2)

	payload, err := Seal(Ack{Status: AckOK}, kp.Public)
	require.NoError(t, err)

	var ack Ack
	err = Open(payload, other, &ack)
	require.Error(t, err)
	require.NotEqual(t, AckOK, ack.Status)
}

func TestOpenRejectsGarbage(t *testing.T) {
	kp := testKeyPair(t, 1)
	var ack Ack
	require.ErrorIs(t, Open([]byte(`{"not":"a list"}`), kp, &ack), ErrMalformed)
	require.ErrorIs(t, Open([]byte(`[1.5]`), kp, &ack), errs.ErrProtocol)
}

func TestHelloExchange(t *testing.T) {
	kp := testKeyPair(t, 3)

	var buf bytes.Buffer
	require.NoError(t, WriteSealed(&buf, MessageTypeHello, Hello{ClientID: 9001}, kp.Public))
	h, err := ReadHello(&buf, kp)
	require.NoError(t, err)
	require.Equal(t, identity.ClientID(9001), h.ClientID)
}

func TestHelloWithoutClientID(t *testing.T) {
	kp := testKeyPair(t, 3)
	for _, body := range []any{
		map[string]any{},
		map[string]any{"client_id": nil},
		map[string]any{"client_id": "9001"},
		map[string]any{"client_id": 1.5},
	} {
		var buf bytes.Buffer
		require.NoError(t, WriteSealed(&buf, MessageTypeHello, body, kp.Public))
		_, err := ReadHello(&buf, kp)
		require.ErrorIs(t, err, ErrMissingClientID, "body %v", body)
	}
}

func TestHalfKeyExchange(t *testing.T) {
	kp := testKeyPair(t, 4)

	var buf bytes.Buffer
	require.NoError(t, WriteSealed(&buf, MessageTypeHalfKey, HalfKey{HalfKey: 10000}, kp.Public))
	k, err := ReadHalfKey(&buf, kp)
	require.NoError(t, err)
	require.Equal(t, uint64(10000), k)

	buf.Reset()
	require.NoError(t, WriteSealed(&buf, MessageTypeHalfKey, map[string]int{"other": 1}, kp.Public))
	_, err = ReadHalfKey(&buf, kp)
	require.ErrorIs(t, err, ErrMissingHalfKey)
}

func TestSealedChunkCorruption(t *testing.T) {
	kp := testKeyPair(t, 5)
	payload, err := Seal(Ack{Status: AckOK}, kp.Public)
	require.NoError(t, err)

	var ct knapsack.Ciphertext
	require.NoError(t, json.Unmarshal(payload, &ct))
	ct[0] = new(big.Int).Add(ct[0], big.NewInt(1))
	corrupted, err := json.Marshal(ct)
	require.NoError(t, err)

	var ack Ack
	require.Error(t, Open(corrupted, kp, &ack))
}

func TestDataRoundTrip(t *testing.T) {
	deck := solitaire.IdentityDeck()
	sendKS, err := solitaire.NewKeystream(deck)
	require.NoError(t, err)
	recvKS, err := solitaire.NewKeystream(deck)
	require.NoError(t, err)
	send := solitaire.NewStreamCipher(sendKS)
	recv := solitaire.NewStreamCipher(recvKS)

	var buf bytes.Buffer
	msgs := []AppMessage{
		{Message: "hi there"},
		{Message: "👋 second"},
		{Over: true},
	}
	for _, m := range msgs {
		require.NoError(t, WriteData(&buf, send, m))
	}
	for _, want := range msgs {
		got, err := ReadData(&buf, recv)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestDataDesyncIsMalformed(t *testing.T) {
	send := solitaire.NewStreamCipher(solitaire.NewIdentityKeystream())
	recv := solitaire.NewStreamCipher(solitaire.NewIdentityKeystream())
	recv.Decode(make([]byte, 7))

	var buf bytes.Buffer
	require.NoError(t, WriteData(&buf, send, AppMessage{Message: "out of step"}))
	_, err := ReadData(&buf, recv)
	require.ErrorIs(t, err, ErrMalformed)
}
