package discovery

import (
	"context"

	"github.com/pkg/errors"

	"github.com/TheusHen/knapchat/knapchat/crypto/knapsack"
	"github.com/TheusHen/knapchat/knapchat/errs"
	"github.com/TheusHen/knapchat/knapchat/identity"
)

var (
	ErrNotFound   = errors.Wrap(errs.ErrProtocol, "client_id not found")
	ErrInvalidKey = errors.Wrap(errs.ErrValidation, "invalid public key registration")
)

// Entry is one registered public key.
type Entry struct {
	ClientID  identity.ClientID  `json:"client_id"`
	PublicKey knapsack.PublicKey `json:"public_key"`
}

// Resolver maps client ids to registered public keys.
// Implementations can be in-process stores or remote directory clients.
type Resolver interface {
	Register(ctx context.Context, id identity.ClientID, key knapsack.PublicKey) error
	Retrieve(ctx context.Context, id identity.ClientID) (knapsack.PublicKey, error)
}

// Lister is implemented by resolvers that can enumerate their entries.
type Lister interface {
	List(ctx context.Context) ([]Entry, error)
}

// CheckRegistration rejects a zero id or an empty key. Registrations replace
// any previous key for the same id.
func CheckRegistration(id identity.ClientID, key knapsack.PublicKey) error {
	if id == 0 || len(key) == 0 {
		return errors.Wrapf(ErrInvalidKey, "client_id %d, %d elements", int64(id), len(key))
	}
	for i, b := range key {
		if b == nil {
			return errors.Wrapf(ErrInvalidKey, "element %d is empty", i)
		}
	}
	return nil
}
