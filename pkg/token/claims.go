package token

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/cuemby/strata/pkg/types"
)

// Info carries the optional (is-service-account, token-index) payload field
// describes for internally-issued tokens.
type Info struct {
	IsServiceAccount bool   `json:"is_service_account,omitempty"`
	TokenIndex       string `json:"token_index,omitempty"`
}

// Claims is the JWT payload shape for every issuer type the server trusts:
// issuer, subject, expiry and audience from registered claims, plus the
// optional scope and info Strata-specific claims.
type Claims struct {
	jwt.RegisteredClaims
	Scope *types.Scope `json:"scope,omitempty"`
	Info  *Info        `json:"info,omitempty"`
}
