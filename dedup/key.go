// Package dedup computes identities of logical registrations and tracks which
// of them have already been emitted.
package dedup

import (
	"encoding/binary"
	"encoding/hex"

	"lukechampine.com/blake3"
)

// Key is the identity of one logical registration: a registry, the subject
// being registered, and the canonical content of the registration.
//
// The digest is used for lookups. The canonical bytes are kept alongside it
// so that two keys are equal only if their contents are, even if the digests
// were ever to collide.
type Key struct {
	digest    [32]byte
	canonical string
}

// NewKey computes the key for the given tuple. Each component is length
// prefixed, so no two distinct tuples share an encoding.
func NewKey(registry, subject, canonical string) Key {
	buf := make([]byte, 0, len(registry)+len(subject)+len(canonical)+3*binary.MaxVarintLen64)
	for _, s := range [...]string{registry, subject, canonical} {
		buf = binary.AppendUvarint(buf, uint64(len(s)))
		buf = append(buf, s...)
	}
	return Key{digest: blake3.Sum256(buf), canonical: string(buf)}
}

// IsZero reports whether k is the zero key.
func (k Key) IsZero() bool {
	return k.canonical == ""
}

// Digest returns the blake3-256 digest of the key's contents.
func (k Key) Digest() [32]byte {
	return k.digest
}

// Equal reports whether k and o identify the same registration.
func (k Key) Equal(o Key) bool {
	return k.digest == o.digest && k.canonical == o.canonical
}

// String returns the full digest in hex. It is what generated code uses to
// identify deferred blocks at run time, where the canonical content is not
// available for comparison.
func (k Key) String() string {
	return hex.EncodeToString(k.digest[:])
}

// Short returns a 128-bit prefix of the digest in hex, for logs.
func (k Key) Short() string {
	return hex.EncodeToString(k.digest[:16])
}
