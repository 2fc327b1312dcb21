package storage

import "github.com/cuemby/strata/pkg/types"

// PutIssuer inserts or replaces a trusted issuer record.
func (t *Txn) PutIssuer(iss *types.Issuer) error {
	data, err := encodeJSON(iss)
	if err != nil {
		return internal("encode issuer", err)
	}
	if err := t.bucket(bucketIssuers).Put([]byte(iss.Name), data); err != nil {
		return internal("put issuer", err)
	}
	return nil
}

// GetIssuer looks up a trusted issuer by name.
func (t *Txn) GetIssuer(name string) (*types.Issuer, error) {
	raw := t.bucket(bucketIssuers).Get([]byte(name))
	if raw == nil {
		return nil, notFound("issuer " + name)
	}
	var iss types.Issuer
	if err := decodeJSON(raw, &iss); err != nil {
		return nil, internal("decode issuer", err)
	}
	return &iss, nil
}

// AllIssuers returns every trusted issuer, used to rebuild pkg/token's
// in-memory registry on startup.
func (t *Txn) AllIssuers() ([]types.Issuer, error) {
	var out []types.Issuer
	err := t.bucket(bucketIssuers).ForEach(func(_, v []byte) error {
		var iss types.Issuer
		if err := decodeJSON(v, &iss); err != nil {
			return internal("decode issuer", err)
		}
		out = append(out, iss)
		return nil
	})
	return out, err
}

// PutSigningKey records the server's own signing key under its serial, so
// tokens signed by a now-rotated-out key remain verifiable.
func (t *Txn) PutSigningKey(serial string, key types.DecodingKey) error {
	data, err := encodeJSON(key)
	if err != nil {
		return internal("encode signing key", err)
	}
	if err := t.bucket(bucketPubkeys).Put([]byte(serial), data); err != nil {
		return internal("put signing key", err)
	}
	return nil
}

// GetSigningKey fetches a previously recorded signing key by serial.
func (t *Txn) GetSigningKey(serial string) (*types.DecodingKey, error) {
	raw := t.bucket(bucketPubkeys).Get([]byte(serial))
	if raw == nil {
		return nil, notFound("signing key " + serial)
	}
	var key types.DecodingKey
	if err := decodeJSON(raw, &key); err != nil {
		return nil, internal("decode signing key", err)
	}
	return &key, nil
}

// AllSigningKeys returns every recorded server signing key.
func (t *Txn) AllSigningKeys() (map[string]types.DecodingKey, error) {
	out := map[string]types.DecodingKey{}
	err := t.bucket(bucketPubkeys).ForEach(func(k, v []byte) error {
		var key types.DecodingKey
		if err := decodeJSON(v, &key); err != nil {
			return internal("decode signing key", err)
		}
		out[string(k)] = key
		return nil
	})
	return out, err
}

// PutOidcMapping records that (issuerName, subject) maps to userID, the
// lookup path for Requester resolution when an OIDC-issued token arrives.
func (t *Txn) PutOidcMapping(issuerName, subject string, userID types.ID) error {
	key := oidcMapKey(issuerName, subject)
	if err := t.bucket(bucketOidcMap).Put(key, []byte(userID)); err != nil {
		return internal("put oidc mapping", err)
	}
	return nil
}

// GetOidcMapping resolves (issuerName, subject) to a user id.
func (t *Txn) GetOidcMapping(issuerName, subject string) (types.ID, error) {
	raw := t.bucket(bucketOidcMap).Get(oidcMapKey(issuerName, subject))
	if raw == nil {
		return "", notFound("oidc mapping")
	}
	return types.ID(raw), nil
}

func oidcMapKey(issuerName, subject string) []byte {
	return []byte(issuerName + "\x00" + subject)
}
