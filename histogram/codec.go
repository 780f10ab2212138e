package histogram

import (
	"encoding/binary"

	"github.com/cespare/xxhash"
)

// The compact wire form of a sparse histogram:
//
//	version  uint8
//	a, b, n  uint8
//	total    uint64
//	pairs    uint32
//	indices  pairs * uint32
//	counts   pairs * uint64
//	checksum uint64 (xxh64 of everything before it)
//
// All integers little-endian.
const codecVersion = 1

const codecHeaderLen = 1 + 3 + 8 + 4

// MarshalBinary encodes the sparse histogram into the compact wire
// form.
func (s *SparseHistogram) MarshalBinary() ([]byte, error) {
	a, b, n := s.config.Params()

	buf := make([]byte, 0, codecHeaderLen+12*len(s.indices)+8)
	buf = append(buf, codecVersion, a, b, n)
	buf = binary.LittleEndian.AppendUint64(buf, s.total)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(s.indices)))
	for _, idx := range s.indices {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(idx))
	}
	for _, count := range s.counts {
		buf = binary.LittleEndian.AppendUint64(buf, count)
	}
	buf = binary.LittleEndian.AppendUint64(buf, xxhash.Sum64(buf))

	return buf, nil
}

// UnmarshalBinary decodes the compact wire form, replacing the
// receiver's contents. The checksum, the config, and the
// strictly-increasing index invariant are all verified.
func (s *SparseHistogram) UnmarshalBinary(data []byte) error {
	if len(data) < codecHeaderLen+8 {
		return FromRawWrongLength.New("short buffer: %d bytes", len(data))
	}

	payload, sum := data[:len(data)-8], binary.LittleEndian.Uint64(data[len(data)-8:])
	if xxhash.Sum64(payload) != sum {
		return FromRawWrongLength.New("checksum mismatch")
	}

	if payload[0] != codecVersion {
		return FromRawWrongLength.New("unknown version %d", payload[0])
	}

	config, err := NewConfig(payload[1], payload[2], payload[3])
	if err != nil {
		return err
	}

	total := binary.LittleEndian.Uint64(payload[4:])
	pairs := int(binary.LittleEndian.Uint32(payload[12:]))

	if len(payload) != codecHeaderLen+12*pairs {
		return FromRawWrongLength.New(
			"expected %d bytes for %d pairs, got %d", codecHeaderLen+12*pairs, pairs, len(payload))
	}

	indices := make([]int, pairs)
	counts := make([]uint64, pairs)

	off := codecHeaderLen
	for i := range indices {
		idx := int(binary.LittleEndian.Uint32(payload[off:]))
		if idx >= config.TotalBuckets() {
			return FromRawWrongLength.New("index %d beyond %d buckets", idx, config.TotalBuckets())
		}
		if i > 0 && idx <= indices[i-1] {
			return FromRawWrongLength.New("indices not strictly increasing")
		}
		indices[i] = idx
		off += 4
	}
	for i := range counts {
		count := binary.LittleEndian.Uint64(payload[off:])
		if count == 0 {
			return FromRawWrongLength.New("zero count at index %d", indices[i])
		}
		counts[i] = count
		off += 8
	}

	*s = SparseHistogram{config: config, total: total, indices: indices, counts: counts}
	return nil
}
