package hash

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// Int32Hasher hashes int32 sequences without allocating.
// It is not safe for concurrent use; give each goroutine its own.
type Int32Hasher struct {
	buf []byte
}

// Sum64 returns the xxhash of v's little-endian encoding.
func (h *Int32Hasher) Sum64(v []int32) uint64 {
	h.buf = h.buf[:0]
	for _, x := range v {
		h.buf = binary.LittleEndian.AppendUint32(h.buf, uint32(x))
	}
	return xxhash.Sum64(h.buf)
}

// Int32s hashes v like Int32Hasher.Sum64 but keeps no shared state, so it
// is safe for concurrent use. Short keys are encoded on the stack.
func Int32s(v []int32) uint64 {
	var arr [64]byte
	h := Int32Hasher{buf: arr[:0]}
	return h.Sum64(v)
}
