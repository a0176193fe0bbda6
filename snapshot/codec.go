package snapshot

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/saetre/arx/internal/hash"
	"github.com/saetre/arx/model"
)

var (
	// ErrCorrupt is returned when an encoded snapshot fails validation.
	ErrCorrupt = errors.New("snapshot: data corruption detected")

	// ErrIncompatibleFormat is returned for unknown magic, version or compression.
	ErrIncompatibleFormat = errors.New("snapshot: incompatible format")
)

const (
	magic   = "ARXS"
	version = 1
)

// Encoding:
//
//	magic[4] version u8 requirements u8 compression u8 reserved u8
//	levels u32 level... u32
//	excluded u32 dim... u32
//	records u32 rawSize u32 payloadSize u32 crc32c(raw) u32
//	payload
//
// All integers are little-endian.

// Marshal encodes s, compressing the payload with c.
func Marshal(s *Snapshot, c Compression) ([]byte, error) {
	raw := make([]byte, 0, len(s.data)*4)
	for _, v := range s.data {
		raw = binary.LittleEndian.AppendUint32(raw, uint32(v))
	}

	payload, applied, err := compress(raw, c)
	if err != nil {
		return nil, fmt.Errorf("snapshot: compress: %w", err)
	}

	excluded := excludedDims(s)

	out := make([]byte, 0, 8+4*(len(s.levels)+len(excluded)+6)+len(payload))
	out = append(out, magic...)
	out = append(out, version, byte(s.requirements), byte(applied), 0)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(s.levels)))
	for _, l := range s.levels {
		out = binary.LittleEndian.AppendUint32(out, uint32(l))
	}
	out = binary.LittleEndian.AppendUint32(out, uint32(len(excluded)))
	for _, d := range excluded {
		out = binary.LittleEndian.AppendUint32(out, uint32(d))
	}
	out = binary.LittleEndian.AppendUint32(out, uint32(s.Len()))
	out = binary.LittleEndian.AppendUint32(out, uint32(len(raw)))
	out = binary.LittleEndian.AppendUint32(out, uint32(len(payload)))
	out = binary.LittleEndian.AppendUint32(out, hash.CRC32C(raw))
	out = append(out, payload...)
	return out, nil
}

// Unmarshal decodes a snapshot produced by Marshal.
func Unmarshal(b []byte) (*Snapshot, error) {
	r := reader{b: b}

	head := r.bytes(8)
	if r.err != nil {
		return nil, r.err
	}
	if string(head[:4]) != magic {
		return nil, fmt.Errorf("%w: bad magic", ErrIncompatibleFormat)
	}
	if head[4] != version {
		return nil, fmt.Errorf("%w: version %d", ErrIncompatibleFormat, head[4])
	}
	reqs := model.Requirements(head[5])
	if !reqs.Valid() {
		return nil, fmt.Errorf("%w: requirements %s", ErrCorrupt, reqs)
	}
	c := Compression(head[6])

	levels := make(model.Levels, r.count())
	for i := range levels {
		levels[i] = int(r.u32())
	}
	excluded := make([]int, r.count())
	for i := range excluded {
		excluded[i] = int(r.u32())
	}
	records := int(r.u32())
	rawSize := int(r.u32())
	payloadSize := int(r.u32())
	sum := r.u32()
	payload := r.bytes(payloadSize)
	if r.err != nil {
		return nil, r.err
	}
	// checked before decompressing so the header cannot size the buffer
	if rawSize != records*LayoutFor(reqs).Step*4 {
		return nil, fmt.Errorf("%w: %d payload bytes for %d records of %s", ErrCorrupt, rawSize, records, reqs)
	}

	raw, err := decompress(payload, c, rawSize)
	if err != nil {
		return nil, err
	}
	if hash.CRC32C(raw) != sum {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrCorrupt)
	}

	data := make([]int32, len(raw)/4)
	for i := range data {
		data[i] = int32(binary.LittleEndian.Uint32(raw[i*4:]))
	}

	var proj *model.Projection
	if len(excluded) > 0 {
		proj = model.NewProjection(excluded...)
	}
	s, err := FromRecords(reqs, levels, proj, data)
	if err != nil {
		return nil, err
	}
	if s.Len() != records {
		return nil, fmt.Errorf("%w: %d records, header says %d", ErrCorrupt, s.Len(), records)
	}
	return s, nil
}

func excludedDims(s *Snapshot) []int {
	var out []int
	if s.projection.Len() == 0 {
		return out
	}
	for d := 0; len(out) < s.projection.Len(); d++ {
		if s.projection.Excludes(d) {
			out = append(out, d)
		}
	}
	return out
}

type reader struct {
	b   []byte
	off int
	err error
}

func (r *reader) bytes(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.off+n > len(r.b) {
		r.err = fmt.Errorf("%w: truncated at offset %d", ErrCorrupt, r.off)
		return nil
	}
	out := r.b[r.off : r.off+n]
	r.off += n
	return out
}

func (r *reader) u32() uint32 {
	b := r.bytes(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

// count reads a length prefix and rejects values that cannot fit in the
// remaining input.
func (r *reader) count() int {
	n := int(r.u32())
	if r.err == nil && n*4 > len(r.b)-r.off {
		r.err = fmt.Errorf("%w: length %d exceeds input", ErrCorrupt, n)
		return 0
	}
	return n
}
