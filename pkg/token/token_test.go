package token

import (
	"context"
	"testing"
	"time"

	"github.com/cuemby/strata/pkg/security"
	"github.com/cuemby/strata/pkg/storage"
	"github.com/cuemby/strata/pkg/types"
)

func newTestHandler(t *testing.T) (*Handler, *storage.Store) {
	t.Helper()
	s, err := storage.Open(t.TempDir())
	if err != nil {
		t.Fatalf("storage.Open() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	secrets, err := security.NewSecretsManagerFromPassword("test-passphrase")
	if err != nil {
		t.Fatalf("NewSecretsManagerFromPassword() error = %v", err)
	}
	keyring := NewKeyring(secrets)
	registry := NewRegistry(keyring)

	err = s.Update(func(txn *storage.Txn) error {
		if err := keyring.LoadOrInitialize(txn); err != nil {
			return err
		}
		return registry.RegisterIssuer(txn, &types.Issuer{
			Name:      "server",
			Type:      types.IssuerServer,
			Audiences: []string{"strata"},
		})
	})
	if err != nil {
		t.Fatalf("bootstrap error = %v", err)
	}

	return NewHandler(registry, keyring), s
}

func TestSignAndValidateInternalToken(t *testing.T) {
	h, s := newTestHandler(t)

	user := &types.User{ID: types.NewID(), Active: true}
	tokenID := types.NewID()
	scope := types.Scope{Kind: types.ScopePersonal}

	err := s.Update(func(txn *storage.Txn) error {
		if err := txn.PutNode(types.NewUserNode(user)); err != nil {
			return err
		}
		return txn.PutNode(types.NewTokenNode(&types.Token{
			ID: tokenID, OwnerID: user.ID, Scope: scope, ExpiresAt: time.Now().Add(time.Hour),
		}))
	})
	if err != nil {
		t.Fatalf("seed error = %v", err)
	}

	raw, err := h.Sign(user.ID, tokenID, scope, time.Now().Add(time.Hour), "strata")
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}

	err = s.View(func(txn *storage.Txn) error {
		req, err := h.Validate(context.Background(), txn, raw, "strata")
		if err != nil {
			return err
		}
		if req.UserID != user.ID {
			t.Errorf("UserID = %s, want %s", req.UserID, user.ID)
		}
		if req.Method != MethodInternal {
			t.Errorf("Method = %s, want %s", req.Method, MethodInternal)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	h, s := newTestHandler(t)

	user := &types.User{ID: types.NewID(), Active: true}
	tokenID := types.NewID()
	scope := types.Scope{Kind: types.ScopePersonal}

	err := s.Update(func(txn *storage.Txn) error {
		if err := txn.PutNode(types.NewUserNode(user)); err != nil {
			return err
		}
		return txn.PutNode(types.NewTokenNode(&types.Token{
			ID: tokenID, OwnerID: user.ID, Scope: scope, ExpiresAt: time.Now().Add(time.Hour),
		}))
	})
	if err != nil {
		t.Fatalf("seed error = %v", err)
	}

	raw, err := h.Sign(user.ID, tokenID, scope, time.Now().Add(-time.Minute), "strata")
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}

	err = s.View(func(txn *storage.Txn) error {
		_, err := h.Validate(context.Background(), txn, raw, "strata")
		return err
	})
	if err == nil {
		t.Error("Validate() on expired token = nil error, want an error")
	}
}
