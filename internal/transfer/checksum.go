package transfer

import (
	"github.com/cespare/xxhash/v2"
)

// Verifier accumulates the trailer checksum (xxHash64) over payload bytes in
// the order they cross the wire. The zero value is not usable; call NewVerifier.
type Verifier struct {
	d     *xxhash.Digest
	total uint64
}

// NewVerifier returns a verifier with no bytes accumulated.
func NewVerifier() *Verifier {
	return &Verifier{d: xxhash.New()}
}

// Update feeds p into the running checksum.
func (v *Verifier) Update(p []byte) {
	// Digest.Write never fails.
	_, _ = v.d.Write(p)
	v.total += uint64(len(p))
}

// Sum64 returns the checksum of every byte seen so far.
func (v *Verifier) Sum64() uint64 {
	return v.d.Sum64()
}

// Len returns the number of bytes seen so far.
func (v *Verifier) Len() uint64 {
	return v.total
}

// Checksum computes the trailer checksum of a complete payload in one call.
func Checksum(p []byte) uint64 {
	return xxhash.Sum64(p)
}
