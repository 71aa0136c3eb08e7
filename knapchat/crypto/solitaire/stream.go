package solitaire

// StreamCipher XORs data with bytes pulled from its keystream. Encode and
// Decode are the same operation; both ends stay in step only while they
// process exactly the same byte counts in the same order.
type StreamCipher struct {
	ks *Keystream
}

// NewStreamCipher wraps ks. The cipher takes ownership of the generator.
func NewStreamCipher(ks *Keystream) *StreamCipher {
	return &StreamCipher{ks: ks}
}

// Encode returns plaintext XOR the next len(plaintext) keystream bytes.
func (c *StreamCipher) Encode(plaintext []byte) []byte {
	out := make([]byte, len(plaintext))
	c.ks.fill(out)
	for i, b := range plaintext {
		out[i] ^= b
	}
	return out
}

// Decode is Encode.
func (c *StreamCipher) Decode(ciphertext []byte) []byte {
	return c.Encode(ciphertext)
}
