// Package principal defines the opaque identity type used to address users.
package principal

import (
	"encoding/base32"
	"errors"
	"sort"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Principal errors.
var (
	ErrEmpty   = errors.New("principal is empty")
	ErrInvalid = errors.New("invalid principal")
)

const digestSize = 20

var encoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// Principal is the opaque, globally unique identity of a user. Its text form
// is dash-grouped lowercase base32 over a 20-byte digest of the user's public
// key. Equality is exact string equality; no canonicalization is applied
// beyond what FromText enforces.
type Principal string

// FromPublicKey derives a principal from a raw public key.
func FromPublicKey(pub []byte) Principal {
	sum := blake2b.Sum256(pub)
	return fromDigest(sum[:digestSize])
}

// FromText parses and validates the textual form of a principal.
func FromText(text string) (Principal, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", ErrEmpty
	}
	compact := strings.ReplaceAll(trimmed, "-", "")
	raw, err := encoding.DecodeString(strings.ToUpper(compact))
	if err != nil {
		return "", ErrInvalid
	}
	if len(raw) != digestSize {
		return "", ErrInvalid
	}
	canonical := fromDigest(raw)
	if string(canonical) != strings.ToLower(trimmed) {
		return "", ErrInvalid
	}
	return canonical, nil
}

func fromDigest(digest []byte) Principal {
	encoded := strings.ToLower(encoding.EncodeToString(digest))
	groups := make([]string, 0, (len(encoded)+4)/5)
	for len(encoded) > 5 {
		groups = append(groups, encoded[:5])
		encoded = encoded[5:]
	}
	groups = append(groups, encoded)
	return Principal(strings.Join(groups, "-"))
}

// String returns the textual form.
func (p Principal) String() string {
	return string(p)
}

// IsZero reports whether the principal is unset.
func (p Principal) IsZero() bool {
	return p == ""
}

// Equal reports exact identity equality.
func (p Principal) Equal(other Principal) bool {
	return p == other
}

// Sort orders principals by their text form, ascending. Used as the
// deterministic tie-break wherever a stable order over principals is needed.
func Sort(ps []Principal) {
	sort.Slice(ps, func(i, j int) bool { return ps[i] < ps[j] })
}
