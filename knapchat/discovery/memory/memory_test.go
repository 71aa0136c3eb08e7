package memory

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/TheusHen/knapchat/knapchat/crypto/knapsack"
	"github.com/TheusHen/knapchat/knapchat/discovery"
	"github.com/TheusHen/knapchat/knapchat/identity"
)

func key(vals ...int64) knapsack.PublicKey {
	out := make(knapsack.PublicKey, len(vals))
	for i, v := range vals {
		out[i] = big.NewInt(v)
	}
	return out
}

func TestStoreRegisterRetrieve(t *testing.T) {
	ctx := context.Background()
	s := New()
	if err := s.Register(ctx, 1, key(3, 5, 11)); err != nil {
		t.Fatalf("Register: %v", err)
	}

	got, err := s.Retrieve(ctx, 1)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if !got.Equal(key(3, 5, 11)) {
		t.Fatalf("unexpected key %v", got)
	}

	// Callers cannot reach into the stored key.
	got[0].SetInt64(99)
	again, _ := s.Retrieve(ctx, 1)
	if again[0].Int64() != 3 {
		t.Fatalf("stored key was mutated through a returned copy")
	}

	if err := s.Register(ctx, 1, key(7)); err != nil {
		t.Fatalf("Register overwrite: %v", err)
	}
	again, _ = s.Retrieve(ctx, 1)
	if !again.Equal(key(7)) {
		t.Fatalf("overwrite not applied")
	}
}

func TestStoreRejectsInvalid(t *testing.T) {
	ctx := context.Background()
	s := New()
	if err := s.Register(ctx, 0, key(1)); !errors.Is(err, discovery.ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey for zero id, got %v", err)
	}
	if err := s.Register(ctx, 2, nil); !errors.Is(err, discovery.ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey for empty key, got %v", err)
	}
	if s.Len() != 0 {
		t.Fatalf("store modified by rejected registrations")
	}
	if _, err := s.Retrieve(ctx, 999999); !errors.Is(err, discovery.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreList(t *testing.T) {
	ctx := context.Background()
	s := New()
	for _, id := range []int64{30, 10, 20} {
		if err := s.Register(ctx, identity.ClientID(id), key(id)); err != nil {
			t.Fatalf("Register: %v", err)
		}
	}
	entries, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	for i, want := range []int64{10, 20, 30} {
		if int64(entries[i].ClientID) != want || entries[i].PublicKey[0].Int64() != want {
			t.Fatalf("entry %d = %+v", i, entries[i])
		}
	}
}
