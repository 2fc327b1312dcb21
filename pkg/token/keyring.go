package token

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"fmt"
	"sync"

	"github.com/cuemby/strata/pkg/security"
	"github.com/cuemby/strata/pkg/storage"
	"github.com/cuemby/strata/pkg/types"
)

// Keyring holds the server's own EdDSA signing keys: exactly one "current"
// key used to sign freshly-issued tokens, plus every previously active key
// kept around so tokens signed before a rotation still verify. It mirrors
// CertAuthority's RWMutex-guarded in-memory cache backed by the store.
type Keyring struct {
	mu      sync.RWMutex
	secrets *security.SecretsManager
	current string // serial of the signing key
	private map[string]ed25519.PrivateKey
	public  map[string]ed25519.PublicKey
}

// NewKeyring builds an empty keyring. Call LoadOrInitialize before first use.
func NewKeyring(secrets *security.SecretsManager) *Keyring {
	return &Keyring{
		secrets: secrets,
		private: map[string]ed25519.PrivateKey{},
		public:  map[string]ed25519.PublicKey{},
	}
}

// LoadOrInitialize loads every previously-persisted signing key from the
// store, or — on a brand new store — generates and persists the first one.
func (k *Keyring) LoadOrInitialize(txn *storage.Txn) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	keys, err := txn.AllSigningKeys()
	if err != nil {
		return fmt.Errorf("load signing keys: %w", err)
	}
	if len(keys) == 0 {
		return k.rotateLocked(txn)
	}

	for serial, dk := range keys {
		block, _ := pem.Decode([]byte(dk.PEM))
		if block == nil {
			return fmt.Errorf("signing key %s: malformed PEM", serial)
		}
		plaintext, err := k.secrets.DecryptSecret(block.Bytes)
		if err != nil {
			return fmt.Errorf("signing key %s: decrypt: %w", serial, err)
		}
		priv := ed25519.PrivateKey(plaintext)
		k.private[serial] = priv
		k.public[serial] = priv.Public().(ed25519.PublicKey)
		if k.current == "" || serial > k.current {
			k.current = serial
		}
	}
	return nil
}

// Rotate generates a fresh signing key, makes it current, and persists it
// without discarding any previously active key.
func (k *Keyring) Rotate(txn *storage.Txn) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.rotateLocked(txn)
}

func (k *Keyring) rotateLocked(txn *storage.Txn) error {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return fmt.Errorf("generate signing key: %w", err)
	}
	serial := types.NewID().String()

	ciphertext, err := k.secrets.EncryptSecret(priv)
	if err != nil {
		return fmt.Errorf("encrypt signing key: %w", err)
	}
	pemBlock := pem.EncodeToMemory(&pem.Block{Type: "STRATA SIGNING KEY", Bytes: ciphertext})

	if err := txn.PutSigningKey(serial, types.DecodingKey{KeyID: serial, PEM: string(pemBlock), Alg: "EdDSA"}); err != nil {
		return err
	}

	k.private[serial] = priv
	k.public[serial] = pub
	k.current = serial
	return nil
}

// Sign returns the current signing key and its serial (the JWT "kid").
func (k *Keyring) Sign() (serial string, priv ed25519.PrivateKey) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.current, k.private[k.current]
}

// PublicKey returns the verification key for a given serial, if known.
func (k *Keyring) PublicKey(serial string) (ed25519.PublicKey, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	pub, ok := k.public[serial]
	return pub, ok
}
