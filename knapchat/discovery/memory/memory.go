package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/TheusHen/knapchat/knapchat/crypto/knapsack"
	"github.com/TheusHen/knapchat/knapchat/discovery"
	"github.com/TheusHen/knapchat/knapchat/identity"
)

// Store is an in-memory public key directory.
// It backs the key server and is useful for tests and examples.
type Store struct {
	mu   sync.RWMutex
	keys map[identity.ClientID]knapsack.PublicKey
}

func New() *Store {
	return &Store{keys: map[identity.ClientID]knapsack.PublicKey{}}
}

func (s *Store) Register(_ context.Context, id identity.ClientID, key knapsack.PublicKey) error {
	if err := discovery.CheckRegistration(id, key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[id] = key.Clone()
	return nil
}

func (s *Store) Retrieve(_ context.Context, id identity.ClientID) (knapsack.PublicKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key, ok := s.keys[id]
	if !ok {
		return nil, errors.Wrapf(discovery.ErrNotFound, "%d", int64(id))
	}
	return key.Clone(), nil
}

// List returns every entry ordered by client id.
func (s *Store) List(_ context.Context) ([]discovery.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]discovery.Entry, 0, len(s.keys))
	for id, key := range s.keys {
		out = append(out, discovery.Entry{ClientID: id, PublicKey: key.Clone()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClientID < out[j].ClientID })
	return out, nil
}

// Len returns the number of registered keys.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys)
}
