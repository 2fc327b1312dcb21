package storage

import "encoding/json"

// encodeJSON/decodeJSON centralize the on-disk encoding for every bucket.
// JSON keeps the store readable with stock bbolt tooling during development;
// nothing here depends on the encoding being JSON specifically.
func encodeJSON(v any) ([]byte, error) {
	return json.Marshal(v)
}

func decodeJSON(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
