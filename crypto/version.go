package crypto

import (
	"fmt"
	"strconv"
	"strings"
)

// DecimalVersion packs a dotted a.b.c.d version into a uint32, a in the
// low byte. Its little-endian serialisation is therefore the bytes a, b, c, d,
// which is how versions travel in the handshake.
type DecimalVersion uint32

// NewDecimalVersion builds the version a.b.c.d.
func NewDecimalVersion(a, b, c, d uint8) DecimalVersion {
	return DecimalVersion(uint32(a) | uint32(b)<<8 | uint32(c)<<16 | uint32(d)<<24)
}

// ParseDecimalVersion accepts one to four dot-separated fields, each in
// [0, 255]. Missing trailing fields are zero.
func ParseDecimalVersion(s string) (DecimalVersion, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty string", ErrInvalidVersion)
	}
	parts := strings.Split(s, ".")
	if len(parts) > 4 {
		return 0, fmt.Errorf("%w: %q has more than four fields", ErrInvalidVersion, s)
	}

	var v uint32
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 8)
		if err != nil {
			return 0, fmt.Errorf("%w: field %d of %q: %w", ErrInvalidVersion, i, s, err)
		}
		v |= uint32(n) << (8 * i)
	}
	return DecimalVersion(v), nil
}

// Value returns the packed form.
func (v DecimalVersion) Value() uint32 { return uint32(v) }

// Field returns byte i (0..3) of the version.
func (v DecimalVersion) Field(i int) uint8 {
	if i < 0 || i > 3 {
		return 0
	}
	return uint8(v >> (8 * i))
}

func (v DecimalVersion) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", v.Field(0), v.Field(1), v.Field(2), v.Field(3))
}
