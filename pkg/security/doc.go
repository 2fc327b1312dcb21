/*
Package security provides at-rest encryption for sensitive key material.

SecretsManager wraps AES-256-GCM encryption behind a key derived either
directly (NewSecretsManager) or from a passphrase (NewSecretsManagerFromPassword,
SHA-256 of the passphrase). It is used by pkg/token's Keyring to encrypt the
server's ed25519 signing keys before they are persisted, and nowhere else —
this package owns no lifecycle beyond that one responsibility.

# Usage

	secrets, err := security.NewSecretsManagerFromPassword(passphrase)
	if err != nil {
		return err
	}

	ciphertext, err := secrets.EncryptSecret(privateKeyBytes)
	// ciphertext is nonce || AES-256-GCM(plaintext), ready to persist

	plaintext, err := secrets.DecryptSecret(ciphertext)

# Design Notes

EncryptSecret generates a fresh random nonce per call and prepends it to
the ciphertext, so DecryptSecret needs no side channel to recover it.
Encrypting or decrypting empty input is rejected rather than silently
producing a degenerate ciphertext.

cmd/strata-server derives its key from the required passphrase through
NewSecretsManagerFromPassword; NewSecretsManager takes a raw 32-byte key
instead.
*/
package security
