package token

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"

	"github.com/cuemby/strata/pkg/storage"
	"github.com/cuemby/strata/pkg/types"
)

// Registry is the set of issuers the server trusts: itself (IssuerServer),
// data-proxy components it has registered (IssuerDataProxy), and external
// OIDC providers (IssuerOIDC). OIDC key material is fetched and cached by
// jwx's jwk.Cache, which refreshes on an interval and serves the last good
// key set if a refresh fails.
type Registry struct {
	mu      sync.RWMutex
	issuers map[string]*types.Issuer

	keyring *Keyring
	jwks    *jwk.Cache
}

// NewRegistry builds a Registry backed by keyring for the server's own
// issuer identity and an empty jwk.Cache for OIDC providers.
func NewRegistry(keyring *Keyring) *Registry {
	return &Registry{
		issuers: map[string]*types.Issuer{},
		keyring: keyring,
		jwks:    jwk.NewCache(context.Background()),
	}
}

// Load populates the registry from every persisted issuer, registering
// OIDC issuers' JWKS endpoints with the refresh cache.
func (r *Registry) Load(txn *storage.Txn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := txn.AllIssuers()
	if err != nil {
		return err
	}
	for i := range all {
		iss := all[i]
		r.issuers[iss.Name] = &iss
		if iss.Type == types.IssuerOIDC && iss.JWKSEndpoint != "" {
			if err := r.jwks.Register(iss.JWKSEndpoint, jwk.WithMinRefreshInterval(15*time.Minute)); err != nil {
				return fmt.Errorf("register jwks for issuer %s: %w", iss.Name, err)
			}
		}
	}
	return nil
}

// RegisterIssuer adds or replaces a trusted issuer, persisting it and (for
// OIDC issuers) subscribing its JWKS endpoint to scheduled refresh.
func (r *Registry) RegisterIssuer(txn *storage.Txn, iss *types.Issuer) error {
	if err := txn.PutIssuer(iss); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.issuers[iss.Name] = iss
	if iss.Type == types.IssuerOIDC && iss.JWKSEndpoint != "" {
		if err := r.jwks.Register(iss.JWKSEndpoint, jwk.WithMinRefreshInterval(15*time.Minute)); err != nil {
			return fmt.Errorf("register jwks for issuer %s: %w", iss.Name, err)
		}
	}
	return nil
}

// Lookup returns the trusted issuer record for name.
func (r *Registry) Lookup(name string) (*types.Issuer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	iss, ok := r.issuers[name]
	return iss, ok
}

// decodingKey resolves the verification key for (issuer, kid). Internal and
// data-proxy issuers are verified against the keyring directly; OIDC
// issuers are verified against jwx's refreshed JWKS, falling back to
// whatever key set was last fetched successfully if a live refresh fails.
func (r *Registry) decodingKey(ctx context.Context, iss *types.Issuer, kid string) (ed25519.PublicKey, error) {
	switch iss.Type {
	case types.IssuerServer, types.IssuerDataProxy:
		pub, ok := r.keyring.PublicKey(kid)
		if !ok {
			return nil, fmt.Errorf("unknown key id %q for issuer %q", kid, iss.Name)
		}
		return pub, nil
	case types.IssuerOIDC:
		set, err := r.jwks.Get(ctx, iss.JWKSEndpoint)
		if err != nil {
			return nil, fmt.Errorf("fetch jwks for issuer %q: %w", iss.Name, err)
		}
		key, ok := set.LookupKeyID(kid)
		if !ok {
			return nil, fmt.Errorf("unknown key id %q for issuer %q", kid, iss.Name)
		}
		var pub ed25519.PublicKey
		if err := key.Raw(&pub); err != nil {
			return nil, fmt.Errorf("decode jwks key %q: %w", kid, err)
		}
		return pub, nil
	default:
		return nil, fmt.Errorf("unsupported issuer type %q", iss.Type)
	}
}
