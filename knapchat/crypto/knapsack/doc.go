// Package knapsack implements the Merkle–Hellman knapsack cryptosystem.
//
// The private key is a superincreasing sequence w with a modulus q > sum(w)
// and a multiplier r coprime to q. The public key is b_i = r*w_i mod q. Each
// plaintext byte encrypts to one integer: the dot product of its MSB-first bit
// vector with the public key.
//
// The scheme is textbook and breakable. knapchat uses it only to protect the
// handshake messages that establish a stream cipher key.
package knapsack
