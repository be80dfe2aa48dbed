package filters

import "fmt"

// Params exposes the immutable parameters a KeySelector is derived against.
// Filter and CountingFilter implement it.
type Params interface {
	M() uint
	K() uint
	KeyBytes() int
}

// KeySelector holds the k (bit, byte) pairs that locate a key's flag bits
// in a filter of 2^m bits.
//
// The key is treated as an unsigned little-endian integer. Each selector
// consumes the next m bits of it: the low bits pick a bit within a byte and
// the remaining bits pick the byte. No hashing is done here, so keys must
// already be uniformly distributed, typically a cryptographic digest.
type KeySelector struct {
	key     []byte
	m       uint
	bitSel  []uint8
	byteSel []uint64
}

// NewKeySelector derives the selectors for key against the parameters of p.
func NewKeySelector(key []byte, p Params) (*KeySelector, error) {
	if len(key) == 0 {
		return nil, ErrInvalidKey
	}
	if p == nil {
		return nil, fmt.Errorf("%w: filter may not be nil", ErrInvalidParameter)
	}
	if len(key) != p.KeyBytes() {
		return nil, fmt.Errorf("%w: key of length %d but filter expects %d bytes",
			ErrLengthMismatch, len(key), p.KeyBytes())
	}

	owned := make([]byte, len(key))
	copy(owned, key)
	bitSel, byteSel, err := Derive(owned, p.M(), p.K())
	if err != nil {
		return nil, err
	}

	return &KeySelector{
		key:     owned,
		m:       p.M(),
		bitSel:  bitSel,
		byteSel: byteSel,
	}, nil
}

// Derive returns the bit-in-byte and byte-index selectors for key in a
// filter of 2^m bits with k selectors. It is a pure function of its inputs.
//
// For m >= 3 selector j reads bits [j*m, j*m+3) as the bit within a byte and
// the following m-3 bits as the byte index. A filter with m == 2 fits in a
// single byte, so its selectors carry an m-bit bit field and no byte field.
func Derive(key []byte, m, k uint) ([]uint8, []uint64, error) {
	if len(key) == 0 {
		return nil, nil, ErrInvalidKey
	}
	if m < MinM || m > MaxM {
		return nil, nil, fmt.Errorf("%w: m = %d out of range [%d, %d]", ErrInvalidParameter, m, MinM, MaxM)
	}
	if k < MinK {
		return nil, nil, fmt.Errorf("%w: k = %d but must be >= %d", ErrInvalidParameter, k, MinK)
	}
	if k*m > uint(len(key))*8 {
		return nil, nil, fmt.Errorf("%w: %d selectors of %d bits exceed a %d-byte key",
			ErrInvalidParameter, k, m, len(key))
	}

	bitWidth, byteWidth := selectorWidths(m)
	bitSel := make([]uint8, k)
	byteSel := make([]uint64, k)

	var pos uint
	for j := uint(0); j < k; j++ {
		bitSel[j] = uint8(bitField(key, pos, bitWidth))
		pos += bitWidth
		byteSel[j] = bitField(key, pos, byteWidth)
		pos += byteWidth
	}
	return bitSel, byteSel, nil
}

// selectorWidths splits the m bits of one selector into the bit-in-byte
// and byte-index field widths.
func selectorWidths(m uint) (bitWidth, byteWidth uint) {
	if m < 3 {
		return m, 0
	}
	return 3, m - 3
}

// bitField returns width bits of key starting at bit pos, where bit 0 is
// the least significant bit of key[0].
func bitField(key []byte, pos, width uint) uint64 {
	if width == 0 {
		return 0
	}
	shift := pos & 7
	first := pos >> 3

	var v uint64
	for i := uint(0); i*8 < shift+width; i++ {
		idx := first + i
		if idx >= uint(len(key)) {
			break
		}
		v |= uint64(key[idx]) << (8 * i)
	}
	return (v >> shift) & (uint64(1)<<width - 1)
}

// Key returns a copy of the key the selectors were derived from.
func (ks *KeySelector) Key() []byte {
	out := make([]byte, len(ks.key))
	copy(out, ks.key)
	return out
}

// BitSel returns the bit-within-byte selectors.
func (ks *KeySelector) BitSel() []uint8 {
	out := make([]uint8, len(ks.bitSel))
	copy(out, ks.bitSel)
	return out
}

// ByteSel returns the byte index selectors.
func (ks *KeySelector) ByteSel() []uint64 {
	out := make([]uint64, len(ks.byteSel))
	copy(out, ks.byteSel)
	return out
}

// K returns the number of selectors.
func (ks *KeySelector) K() uint {
	return uint(len(ks.bitSel))
}

// FilterBits returns the absolute filter bit offset of each selector,
// (byte << 3) + bit, which is also the nibble counter index.
func (ks *KeySelector) FilterBits() []uint64 {
	out := make([]uint64, len(ks.bitSel))
	for i := range ks.bitSel {
		out[i] = ks.byteSel[i]<<3 + uint64(ks.bitSel[i])
	}
	return out
}

// matches reports whether the selector was derived for a filter with the
// given parameters.
func (ks *KeySelector) matches(p Params) bool {
	return ks.m == p.M() && ks.K() == p.K() && len(ks.key) == p.KeyBytes()
}
