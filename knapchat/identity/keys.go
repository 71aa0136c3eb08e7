package identity

import (
	"io"

	"github.com/TheusHen/knapchat/knapchat/crypto/knapsack"
)

// KeyPair holds a knapsack keypair. The private half never leaves the party.
type KeyPair struct {
	Private knapsack.PrivateKey
	Public  knapsack.PublicKey
}

// GenerateKeyPair creates a keypair with bits-long sequences. A nil random
// uses crypto/rand.
func GenerateKeyPair(random io.Reader, bits int) (KeyPair, error) {
	priv, pub, err := knapsack.GenerateKeyPair(random, bits)
	if err != nil {
		return KeyPair{}, err
	}
	return KeyPair{Private: priv, Public: pub}, nil
}

// NewKeyPair validates priv and derives its public key.
func NewKeyPair(priv knapsack.PrivateKey) (KeyPair, error) {
	if err := priv.Validate(); err != nil {
		return KeyPair{}, err
	}
	return KeyPair{Private: priv, Public: priv.PublicKey()}, nil
}

// Seal encrypts msg for the holder of pub.
func Seal(msg []byte, pub knapsack.PublicKey) (knapsack.Ciphertext, error) {
	return knapsack.Encrypt(msg, pub)
}

// Open decrypts a ciphertext addressed to this keypair.
func (kp KeyPair) Open(ct knapsack.Ciphertext) ([]byte, error) {
	return knapsack.Decrypt(ct, kp.Private)
}
