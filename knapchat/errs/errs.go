// Package errs defines the error kinds shared across knapchat.
//
// Concrete errors wrap one of the kinds with github.com/pkg/errors so callers
// can classify failures with errors.Is without depending on message text.
package errs

import "errors"

var (
	// ErrProtocol marks malformed or out-of-order handshake messages and
	// unsuccessful directory or acknowledgment statuses.
	ErrProtocol = errors.New("protocol error")
	// ErrCrypto marks ciphertexts that do not decrypt under the given key.
	ErrCrypto = errors.New("crypto error")
	// ErrNetwork marks connect, accept, send and receive failures.
	ErrNetwork = errors.New("network error")
	// ErrValidation marks rejected input such as a malformed public key.
	ErrValidation = errors.New("validation error")
)

// Mark tags err with kind while keeping err itself in the chain, so both
// errors.Is(err, kind) and checks against the original cause hold.
func Mark(err, kind error) error {
	if err == nil {
		return nil
	}
	return &marked{cause: err, kind: kind}
}

type marked struct {
	cause error
	kind  error
}

func (m *marked) Error() string   { return m.kind.Error() + ": " + m.cause.Error() }
func (m *marked) Unwrap() []error { return []error{m.cause, m.kind} }
