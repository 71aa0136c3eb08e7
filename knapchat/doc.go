// Package knapchat wires the building blocks of a knapchat peer together.
//
// A knapchat conversation is two parties that publish Merkle-Hellman
// knapsack public keys to a shared directory, find each other through it,
// agree on a Solitaire deck by exchanging sealed half-keys and then chat
// over a stream cipher keyed by that deck. The subpackages hold the pieces:
// crypto for the ciphers, discovery for the directory, transport for the
// peer links, protocol for the framing and session for the state machine.
package knapchat
