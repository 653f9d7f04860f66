package accumulator

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"

	"github.com/Davidson-Souza/floresta-go/common"
)

// Hash is the 32 bytes of a sha256 hash
type Hash [32]byte

// Prefix for printfs
func (h Hash) Prefix() []byte {
	return h[:4]
}

// Mini takes the first 12 slices of a hash and outputs a MiniHash
func (h Hash) Mini() (m MiniHash) {
	copy(m[:], h[:12])
	return
}

// String returns the hash as a plain (not byte-reversed) hex string.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// MiniHash is the first 12 bytes of a sha256 hash
type MiniHash [12]byte

// HashFromString takes a string and hashes with sha256
func HashFromString(s string) Hash {
	return sha256.Sum256([]byte(s))
}

// empty marks a leaf or root that has been deleted from the forest.
var empty Hash

// Leaf contains a hash and a hint about whether it should be cached.
// The roots-only Stump has nothing to cache so the hint is carried
// through unused.
type Leaf struct {
	Hash
	Remember bool
}

// parentHash gets you the merkle parent of two children hashes.
func parentHash(l, r Hash) Hash {
	buf := common.NewFreeBytes()
	defer buf.Free()
	buf.Bytes = append(buf.Bytes, l[:]...)
	buf.Bytes = append(buf.Bytes, r[:]...)
	return sha512.Sum512_256(buf.Bytes)
}

// deletedParentHash is parentHash when children may have been removed.
// A deleted child hashes as empty: the surviving sibling moves up
// unchanged, and when both children are gone the parent is gone too.
func deletedParentHash(l, r Hash) Hash {
	if l == empty && r == empty {
		return empty
	}
	if l == empty {
		return r
	}
	if r == empty {
		return l
	}
	return parentHash(l, r)
}
