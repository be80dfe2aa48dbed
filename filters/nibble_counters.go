package filters

import "fmt"

const nibbleMax = 0x0f

// NibbleCounters keeps a 4-bit saturating counter for each bit of a
// filter of 2^m bits, two counters per byte. Filter bit 2i uses the low
// nibble of byte i and bit 2i+1 the high nibble.
//
// NibbleCounters is not safe for concurrent use; CountingFilter guards it
// with its own lock.
type NibbleCounters struct {
	nibbleCount uint64
	counters    []byte
}

// NewNibbleCounters returns zeroed counters for a filter of 2^m bits.
func NewNibbleCounters(m uint) *NibbleCounters {
	n := uint64(1) << m
	return &NibbleCounters{
		nibbleCount: n,
		counters:    make([]byte, (n+1)/2),
	}
}

// Len returns the number of counters, one per filter bit.
func (nc *NibbleCounters) Len() uint64 { return nc.nibbleCount }

// Clear zeroes every counter. Unsynchronized.
func (nc *NibbleCounters) Clear() {
	clear(nc.counters)
}

// Inc increments the counter for filterBit, holding at 15 rather than
// wrapping. It returns the value after the operation.
func (nc *NibbleCounters) Inc(filterBit uint64) (uint8, error) {
	value, err := nc.Value(filterBit)
	if err != nil {
		return 0, err
	}
	if value < nibbleMax {
		value++
	}
	nc.store(filterBit, value)
	return value, nil
}

// Dec decrements the counter for filterBit, holding at 0 rather than
// wrapping. It returns the value after the operation.
func (nc *NibbleCounters) Dec(filterBit uint64) (uint8, error) {
	value, err := nc.Value(filterBit)
	if err != nil {
		return 0, err
	}
	if value > 0 {
		value--
	}
	nc.store(filterBit, value)
	return value, nil
}

// Value returns the current counter for filterBit.
func (nc *NibbleCounters) Value(filterBit uint64) (uint8, error) {
	if filterBit >= nc.nibbleCount {
		return 0, fmt.Errorf("%w: filter bit %d, filter has %d bits",
			ErrIndexOutOfRange, filterBit, nc.nibbleCount)
	}
	b := nc.counters[filterBit/2]
	if filterBit&1 == 1 {
		return b >> 4, nil
	}
	return b & nibbleMax, nil
}

func (nc *NibbleCounters) store(filterBit uint64, value uint8) {
	off := filterBit / 2
	if filterBit&1 == 1 {
		nc.counters[off] = nc.counters[off]&0x0f | value<<4
	} else {
		nc.counters[off] = nc.counters[off]&0xf0 | value
	}
}
