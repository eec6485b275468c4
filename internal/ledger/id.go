package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// IDSize is the byte length of every identity handle in the ledger:
// agent identities, pathway keys, and token mints.
const IDSize = 32

// ID is an opaque 32-byte identity handle.
type ID [IDSize]byte

// String returns the lowercase hex encoding of the ID.
func (id ID) String() string {
	return hex.EncodeToString(id[:])
}

// Bytes returns the ID as a byte slice, for storage bindings.
func (id ID) Bytes() []byte {
	return id[:]
}

// IsZero reports whether the ID is all zero bytes.
func (id ID) IsZero() bool {
	return id == ID{}
}

// ParseID decodes a 64-char hex string into an ID.
func ParseID(s string) (ID, error) {
	var id ID
	b, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("parse id: %w", err)
	}
	if len(b) != IDSize {
		return id, fmt.Errorf("parse id: got %d bytes, want %d", len(b), IDSize)
	}
	copy(id[:], b)
	return id, nil
}

// IDFromBytes converts a byte slice into an ID. The slice must be exactly
// IDSize bytes.
func IDFromBytes(b []byte) (ID, error) {
	var id ID
	if len(b) != IDSize {
		return id, fmt.Errorf("id from bytes: got %d bytes, want %d", len(b), IDSize)
	}
	copy(id[:], b)
	return id, nil
}

// PathwayKey derives the identity key for the directed pathway from source
// to target. The derivation is deterministic and direction-sensitive:
// PathwayKey(a, b) != PathwayKey(b, a).
func PathwayKey(source, target ID) ID {
	h := sha256.New()
	h.Write([]byte("pathway"))
	h.Write(source[:])
	h.Write(target[:])
	var key ID
	copy(key[:], h.Sum(nil))
	return key
}
