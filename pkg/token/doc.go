/*
Package token validates and signs the compact signed envelopes that carry a
Requester's identity. Internal tokens are EdDSA-signed JWTs via
github.com/golang-jwt/jwt/v5; external OIDC issuers are verified against
keys fetched and cached by github.com/lestrrat-go/jwx/v2's jwk.Cache, which
refreshes on a schedule and serves the last-known-good key set if a refresh
fails.
*/
package token
