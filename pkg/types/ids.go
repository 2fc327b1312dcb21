package types

import (
	"crypto/rand"
	"strings"

	"github.com/oklog/ulid/v2"
)

// ID is a 128-bit lexicographically sortable identifier (ULID). Resources,
// principals, realms, groups, components, rules and rule bindings are all
// addressed by ID; events carry a uint64 sequence number instead.
type ID string

// NewID mints a fresh ULID seeded from crypto/rand, monotonic within a single
// process via ulid's default entropy pool semantics.
func NewID() ID {
	return ID(ulid.Make().String())
}

// ParseID validates that s is a syntactically well-formed ULID.
func ParseID(s string) (ID, error) {
	if _, err := ulid.ParseStrict(s); err != nil {
		return "", err
	}
	return ID(s), nil
}

// String implements fmt.Stringer.
func (id ID) String() string { return string(id) }

// Empty reports whether id is the zero value.
func (id ID) Empty() bool { return id == "" }

// IsValid reports whether id parses as a ULID.
func (id ID) IsValid() bool {
	_, err := ulid.ParseStrict(string(id))
	return err == nil
}

// NewCorrelationToken returns a short random hex string suitable for a
// non-persisted, short-lived identifier — an incident id an operator can
// grep a log line for, or an event correlation token — where ULID's
// sortability and size aren't needed.
func NewCorrelationToken() string {
	return randomHex(8)
}

// randomHex returns a lowercase hex string of n random bytes.
func randomHex(n int) string {
	buf := make([]byte, n)
	_, _ = rand.Read(buf)
	var b strings.Builder
	const hexdigits = "0123456789abcdef"
	for _, c := range buf {
		b.WriteByte(hexdigits[c>>4])
		b.WriteByte(hexdigits[c&0x0f])
	}
	return b.String()
}
