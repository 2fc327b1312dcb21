package notify

import (
	"encoding/json"
	"sort"

	"github.com/cespare/xxhash/v2"
	"github.com/cuemby/strata/pkg/types"
)

// projection is the canonical, order-independent shape a checksum is taken
// over: sorted touched ids plus the event kind, so the same logical mutation
// always hashes the same way regardless of map iteration order upstream.
type projection struct {
	Kind    types.EventKind `json:"kind"`
	Touched []string        `json:"touched"`
}

// Checksum computes a deterministic content checksum for an event, used by
// subscribers to detect a corrupted or duplicated delivery without
// re-fetching the touched resources.
func Checksum(kind types.EventKind, touched []types.ID) (uint64, error) {
	ids := make([]string, len(touched))
	for i, id := range touched {
		ids[i] = id.String()
	}
	sort.Strings(ids)

	data, err := json.Marshal(projection{Kind: kind, Touched: ids})
	if err != nil {
		return 0, err
	}
	return xxhash.Sum64(data), nil
}
