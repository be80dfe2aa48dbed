package crypto

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecimalVersion(t *testing.T) {
	v := NewDecimalVersion(1, 2, 3, 4)
	assert.Equal(t, uint32(0x04030201), v.Value())
	assert.Equal(t, "1.2.3.4", v.String())

	buf := binary.LittleEndian.AppendUint32(nil, v.Value())
	assert.Equal(t, []byte{1, 2, 3, 4}, buf)

	assert.Equal(t, uint8(3), v.Field(2))
	assert.Equal(t, uint8(0), v.Field(4))
}

func TestParseDecimalVersion(t *testing.T) {
	tests := []struct {
		in   string
		want DecimalVersion
	}{
		{"1.2.3.4", NewDecimalVersion(1, 2, 3, 4)},
		{"0.2.1", NewDecimalVersion(0, 2, 1, 0)},
		{"7", NewDecimalVersion(7, 0, 0, 0)},
		{" 255.255.255.255 ", DecimalVersion(0xffffffff)},
	}
	for _, tt := range tests {
		got, err := ParseDecimalVersion(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	for _, bad := range []string{"", "1.2.3.4.5", "256", "1..2", "a.b", "-1"} {
		_, err := ParseDecimalVersion(bad)
		assert.ErrorIs(t, err, ErrInvalidVersion, bad)
	}
}

func TestDecimalVersionStringRoundTrip(t *testing.T) {
	for _, raw := range []uint32{0, 1, 0x01020304, 0xdeadbeef} {
		v := DecimalVersion(raw)
		back, err := ParseDecimalVersion(v.String())
		require.NoError(t, err)
		assert.Equal(t, v, back)
	}
}
