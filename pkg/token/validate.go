package token

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/cuemby/strata/pkg/storage"
	"github.com/cuemby/strata/pkg/types"
)

// Handler ties a Registry and a Keyring together to validate inbound
// bearer tokens and sign outbound ones.
type Handler struct {
	registry *Registry
	keyring  *Keyring
}

// NewHandler builds a Handler over an already-loaded Registry and Keyring.
func NewHandler(registry *Registry, keyring *Keyring) *Handler {
	return &Handler{registry: registry, keyring: keyring}
}

// Validate parses and verifies raw, then dispatches on the issuer's type to
// produce a Requester. Expiry and audience are enforced
// strictly; there is no clock-skew tolerance.
func (h *Handler) Validate(ctx context.Context, txn *storage.Txn, raw string, expectAudience string) (*Requester, error) {
	unverified := jwt.NewParser()
	var claims Claims
	tok, _, err := unverified.ParseUnverified(raw, &claims)
	if err != nil {
		return nil, fmt.Errorf("unauthorized: malformed token: %w", err)
	}
	kid, _ := tok.Header["kid"].(string)
	if kid == "" {
		return nil, fmt.Errorf("unauthorized: token missing kid")
	}
	if claims.Issuer == "" {
		return nil, fmt.Errorf("unauthorized: token missing issuer")
	}

	iss, ok := h.registry.Lookup(claims.Issuer)
	if !ok {
		return nil, fmt.Errorf("unauthorized: unknown issuer %q", claims.Issuer)
	}

	pub, err := h.registry.decodingKey(ctx, iss, kid)
	if err != nil {
		return nil, fmt.Errorf("unauthorized: %w", err)
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{"EdDSA"}),
		jwt.WithExpirationRequired(),
		jwt.WithAudience(expectAudience),
		jwt.WithIssuer(claims.Issuer),
	)
	var verified Claims
	if _, err := parser.ParseWithClaims(raw, &verified, func(*jwt.Token) (any, error) {
		return pub, nil
	}); err != nil {
		return nil, fmt.Errorf("unauthorized: %w", err)
	}

	switch iss.Type {
	case types.IssuerServer:
		return h.extractTokenInfo(txn, &verified, "")
	case types.IssuerDataProxy:
		return h.extractTokenInfo(txn, &verified, types.ID(iss.Name))
	case types.IssuerOIDC:
		return h.fromOidc(txn, iss.Name, &verified)
	default:
		return nil, fmt.Errorf("unauthorized: unsupported issuer type %q", iss.Type)
	}
}

// extractTokenInfo implements Server/DataProxy dispatch: the
// subject is a user id, and info.token_index must name a token that still
// exists on that user (ensure_token_exists).
func (h *Handler) extractTokenInfo(txn *storage.Txn, claims *Claims, impersonatedBy types.ID) (*Requester, error) {
	subject := types.ID(claims.Subject)
	node, err := txn.GetNode(subject)
	if err != nil {
		return nil, fmt.Errorf("unauthorized: unknown subject %q: %w", claims.Subject, err)
	}

	req := &Requester{Method: MethodInternal, ImpersonatedBy: impersonatedBy, Scope: claims.Scope}
	switch node.Variant {
	case types.NodeUser:
		req.UserID = subject
	case types.NodeServiceAccount:
		req.ServiceAccountID = subject
	default:
		return nil, fmt.Errorf("unauthorized: subject %q is not a User or ServiceAccount", claims.Subject)
	}

	if claims.Info != nil && claims.Info.TokenIndex != "" {
		tokenID, err := types.ParseID(claims.Info.TokenIndex)
		if err != nil {
			return nil, fmt.Errorf("unauthorized: malformed token index: %w", err)
		}
		tokenNode, err := txn.GetNode(tokenID)
		if err != nil {
			return nil, fmt.Errorf("unauthorized: token %q no longer exists", claims.Info.TokenIndex)
		}
		tok, err := tokenNode.AsToken()
		if err != nil {
			return nil, fmt.Errorf("unauthorized: %w", err)
		}
		if tok.Expired(time.Now()) {
			return nil, fmt.Errorf("unauthorized: token expired")
		}
		req.TokenIndex = claims.Info.TokenIndex
		req.Scope = &tok.Scope
	}
	return req, nil
}

// fromOidc implements OIDC dispatch: (subject, issuer-name) maps
// through oidc_map to a user id.
func (h *Handler) fromOidc(txn *storage.Txn, issuerName string, claims *Claims) (*Requester, error) {
	userID, err := txn.GetOidcMapping(issuerName, claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("unauthorized: no user mapped for (%s, %s)", issuerName, claims.Subject)
	}
	return &Requester{UserID: userID, Method: MethodOIDC}, nil
}

// Sign mints a new internally-issued token for subject (a User or
// ServiceAccount id), with the given scope and expiry, signed with the
// keyring's current key.
func (h *Handler) Sign(subject types.ID, tokenID types.ID, scope types.Scope, expiresAt time.Time, audience string) (string, error) {
	serial, priv := h.keyring.Sign()
	if priv == nil {
		return "", fmt.Errorf("internal: no signing key available")
	}

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "server",
			Subject:   subject.String(),
			Audience:  jwt.ClaimStrings{audience},
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Scope: &scope,
		Info:  &Info{TokenIndex: tokenID.String()},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	tok.Header["kid"] = serial
	return tok.SignedString(priv)
}
