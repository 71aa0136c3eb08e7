// Package crypto derives the session key material shared by two knapchat
// parties.
//
// Each side contributes a random half-key. The product of both half-keys
// seeds a fixed PCG-driven Fisher–Yates shuffle of the 54 card deck, and that
// deck (the common key) initializes the solitaire keystream on both ends.
//
// Primitives live in subpackages:
//   - knapsack: Merkle–Hellman asymmetric cipher for handshake messages
//   - solitaire: deck keystream and XOR stream cipher for the session
//   - numeric: integer helpers shared by the above
package crypto
