package filters

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
)

// Snapshot layout, all integers big-endian:
//
//	+--------------------------+  32B header
//	| magic[4] version bitOrder|
//	| m keyHash k[2]           |
//	| keyBytes[4] count[8]     |
//	| reserved[10]             |
//	+--------------------------+  ceil(2^m/8) bytes
//	| filter bits              |
//	+--------------------------+  2^m/2 bytes (counting filters only)
//	| nibble counters          |
//	+--------------------------+  4B
//	| crc32(IEEE) of the above |
//	+--------------------------+
const (
	snapshotHeaderBytes = 32
	snapshotCRCBytes    = 4
	snapshotVersion     = 1

	maxSnapshotK        = 1<<16 - 1
	maxSnapshotKeyBytes = 1<<32 - 1

	magicFilter   = "XLB1"
	magicCounting = "XLC1"

	// BitOrderLSB0 means filter bit 0 is the least-significant bit of byte 0.
	BitOrderLSB0 uint8 = 0
)

// SnapshotKind identifies the filter type held by a snapshot.
type SnapshotKind uint8

const (
	// KindUnknown is returned for data that is not a snapshot.
	KindUnknown SnapshotKind = iota
	// KindFilter is a plain Filter snapshot.
	KindFilter
	// KindCounting is a CountingFilter snapshot.
	KindCounting
)

func (k SnapshotKind) String() string {
	switch k {
	case KindFilter:
		return "bloom"
	case KindCounting:
		return "counting"
	default:
		return "unknown"
	}
}

type snapshotHeader struct {
	magic    string
	m        uint
	k        uint
	keyBytes int
	keyHash  uint8
	count    uint64
}

// KindOf reports which kind of filter data encodes, without validating the
// rest of the snapshot.
func KindOf(data []byte) SnapshotKind {
	if len(data) < 4 {
		return KindUnknown
	}
	switch string(data[0:4]) {
	case magicFilter:
		return KindFilter
	case magicCounting:
		return KindCounting
	default:
		return KindUnknown
	}
}

func encodeHeader(dst []byte, h snapshotHeader) {
	copy(dst[0:4], h.magic)
	dst[4] = snapshotVersion
	dst[5] = BitOrderLSB0
	dst[6] = uint8(h.m)
	dst[7] = h.keyHash
	binary.BigEndian.PutUint16(dst[8:10], uint16(h.k))
	binary.BigEndian.PutUint32(dst[10:14], uint32(h.keyBytes))
	binary.BigEndian.PutUint64(dst[14:22], h.count)
	clear(dst[22:snapshotHeaderBytes])
}

// decodeSnapshot checks framing and CRC and returns the header and the
// payload between header and checksum.
func decodeSnapshot(data []byte, magic string) (snapshotHeader, []byte, error) {
	if len(data) < snapshotHeaderBytes+snapshotCRCBytes {
		return snapshotHeader{}, nil, fmt.Errorf("%w: %d bytes is too short", ErrBadSnapshot, len(data))
	}
	crcOff := len(data) - snapshotCRCBytes
	if crc32.ChecksumIEEE(data[:crcOff]) != binary.BigEndian.Uint32(data[crcOff:]) {
		return snapshotHeader{}, nil, ErrSnapshotChecksum
	}
	if string(data[0:4]) != magic {
		return snapshotHeader{}, nil, fmt.Errorf("%w: magic %q, want %q", ErrBadSnapshot, data[0:4], magic)
	}
	if data[4] != snapshotVersion {
		return snapshotHeader{}, nil, fmt.Errorf("%w: unsupported version %d", ErrBadSnapshot, data[4])
	}
	if data[5] != BitOrderLSB0 {
		return snapshotHeader{}, nil, fmt.Errorf("%w: unsupported bit order %d", ErrBadSnapshot, data[5])
	}

	h := snapshotHeader{
		magic:    magic,
		m:        uint(data[6]),
		k:        uint(binary.BigEndian.Uint16(data[8:10])),
		keyBytes: int(binary.BigEndian.Uint32(data[10:14])),
		keyHash:  data[7],
		count:    binary.BigEndian.Uint64(data[14:22]),
	}
	opts := &Options{M: h.m, K: h.k, KeyBytes: h.keyBytes}
	if err := opts.Validate(); err != nil {
		return snapshotHeader{}, nil, fmt.Errorf("%w: %v", ErrBadSnapshot, err)
	}
	if effectiveK(h.m, h.k, h.keyBytes) != h.k {
		return snapshotHeader{}, nil, fmt.Errorf("%w: k = %d does not fit %d-byte keys", ErrBadSnapshot, h.k, h.keyBytes)
	}

	// Nothing is allocated for the filter until the payload is known to
	// match the header.
	payload := data[snapshotHeaderBytes:crcOff]
	if want := payloadBytes(magic, h.m); uint64(len(payload)) != want {
		return snapshotHeader{}, nil, fmt.Errorf("%w: %d payload bytes, want %d", ErrBadSnapshot, len(payload), want)
	}
	return h, payload, nil
}

// payloadBytes is the size of the bit array, plus the counters for a
// counting snapshot, of a filter with 2^m bits. m must be in [MinM, MaxM].
func payloadBytes(magic string, m uint) uint64 {
	bits := uint64(1) << m
	n := (bits + 7) / 8
	if magic == magicCounting {
		n += (bits + 1) / 2
	}
	return n
}

func appendCRC(buf []byte) []byte {
	return binary.BigEndian.AppendUint32(buf, crc32.ChecksumIEEE(buf))
}

// MarshalBinary encodes the filter parameters, count and bit array.
func (f *Filter) MarshalBinary() ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.marshalLocked(magicFilter, nil)
}

func (f *Filter) marshalLocked(magic string, extra []byte) ([]byte, error) {
	if f.k > maxSnapshotK || uint64(f.keyBytes) > maxSnapshotKeyBytes {
		return nil, fmt.Errorf("%w: k = %d, key bytes = %d exceed snapshot limits",
			ErrBadSnapshot, f.k, f.keyBytes)
	}
	buf := make([]byte, snapshotHeaderBytes, snapshotHeaderBytes+len(f.bits)+len(extra)+snapshotCRCBytes)
	encodeHeader(buf, snapshotHeader{magic: magic, m: f.m, k: f.k, keyBytes: f.keyBytes, keyHash: f.keyHash, count: f.count})
	buf = append(buf, f.bits...)
	buf = append(buf, extra...)
	return appendCRC(buf), nil
}

// UnmarshalBinary replaces the filter's state with a snapshot produced by
// MarshalBinary.
func (f *Filter) UnmarshalBinary(data []byte) error {
	h, payload, err := decodeSnapshot(data, magicFilter)
	if err != nil {
		return err
	}
	src, err := New(h.m, h.k, h.keyBytes)
	if err != nil {
		return err
	}
	copy(src.bits, payload)
	src.keyHash = h.keyHash

	f.mu.Lock()
	defer f.mu.Unlock()
	f.adopt(src, h.count)
	return nil
}

// adopt takes over the parameters and bits of src. Caller holds f.mu.
func (f *Filter) adopt(src *Filter, count uint64) {
	f.m = src.m
	f.k = src.k
	f.keyBytes = src.keyBytes
	f.filterBits = src.filterBits
	f.filterBytes = src.filterBytes
	f.bits = src.bits
	f.keyHash = src.keyHash
	f.count = count
}

// MarshalBinary encodes the filter and its nibble counters.
func (cf *CountingFilter) MarshalBinary() ([]byte, error) {
	cf.cbMu.Lock()
	defer cf.cbMu.Unlock()

	cf.filter.mu.Lock()
	defer cf.filter.mu.Unlock()
	return cf.filter.marshalLocked(magicCounting, cf.counters.counters)
}

// UnmarshalBinary replaces the counting filter's state with a snapshot
// produced by MarshalBinary.
func (cf *CountingFilter) UnmarshalBinary(data []byte) error {
	h, payload, err := decodeSnapshot(data, magicCounting)
	if err != nil {
		return err
	}
	src, err := NewCounting(h.m, h.k, h.keyBytes)
	if err != nil {
		return err
	}
	bitBytes := src.filter.filterBytes
	copy(src.filter.bits, payload[:bitBytes])
	copy(src.counters.counters, payload[bitBytes:])
	if err := src.checkConsistent(); err != nil {
		return err
	}
	src.filter.keyHash = h.keyHash

	cf.cbMu.Lock()
	defer cf.cbMu.Unlock()
	if cf.filter == nil {
		cf.filter = &Filter{}
	}
	cf.filter.mu.Lock()
	defer cf.filter.mu.Unlock()
	cf.filter.adopt(src.filter, h.count)
	cf.counters = src.counters
	return nil
}

// checkConsistent verifies that every set bit has a nonzero counter and
// every clear bit a zero one.
func (cf *CountingFilter) checkConsistent() error {
	for bit := uint64(0); bit < cf.filter.filterBits; bit++ {
		set := cf.filter.bits[bit>>3]&(1<<(bit&7)) != 0
		value, _ := cf.counters.Value(bit)
		if set != (value > 0) {
			return fmt.Errorf("%w: bit %d disagrees with its counter %d", ErrBadSnapshot, bit, value)
		}
	}
	return nil
}

// WriteFile writes a snapshot of the filter to path, replacing any
// existing file atomically.
func (f *Filter) WriteFile(path string) error {
	data, err := f.MarshalBinary()
	if err != nil {
		return err
	}
	return writeFileAtomic(path, data)
}

// WriteFile writes a snapshot of the counting filter to path.
func (cf *CountingFilter) WriteFile(path string) error {
	data, err := cf.MarshalBinary()
	if err != nil {
		return err
	}
	return writeFileAtomic(path, data)
}

// ReadFile loads a Filter snapshot from path.
func ReadFile(path string) (*Filter, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read filter: %w", err)
	}
	f := &Filter{}
	if err := f.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return f, nil
}

// ReadCountingFile loads a CountingFilter snapshot from path.
func ReadCountingFile(path string) (*CountingFilter, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read filter: %w", err)
	}
	cf := &CountingFilter{}
	if err := cf.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return cf, nil
}

// writeFileAtomic writes data to a temporary file beside path and renames
// it into place.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temporary file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to rename file: %w", err)
	}
	return nil
}
