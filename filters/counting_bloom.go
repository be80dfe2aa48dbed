package filters

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// CountingFilter is a Bloom filter whose bits each carry a 4-bit counter,
// so members can be removed without rebuilding the filter.
//
// Lock order: cbMu is always acquired before the inner Filter's lock. The
// inner lock is only ever taken by calling Filter methods while cbMu is
// held, never the other way round.
//
// Counters saturate at 15. A bit shared by more than 15 insertions stays
// set correctly for membership, but later removals may clear it early.
type CountingFilter struct {
	cbMu     sync.Mutex
	filter   *Filter
	counters *NibbleCounters
}

// NewCounting creates a counting filter; parameters are as for New.
func NewCounting(m, k uint, keyBytes int) (*CountingFilter, error) {
	return NewCountingFromOptions(&Options{M: m, K: k, KeyBytes: keyBytes})
}

// NewCountingFromOptions creates a counting filter from opts.
func NewCountingFromOptions(opts *Options) (*CountingFilter, error) {
	f, err := NewFromOptions(opts)
	if err != nil {
		return nil, err
	}
	return &CountingFilter{
		filter:   f,
		counters: NewNibbleCounters(f.m),
	}, nil
}

// M returns the filter size exponent.
func (cf *CountingFilter) M() uint { return cf.filter.m }

// K returns the number of selectors per key.
func (cf *CountingFilter) K() uint { return cf.filter.k }

// KeyBytes returns the length of keys accepted by the filter.
func (cf *CountingFilter) KeyBytes() int { return cf.filter.keyBytes }

// Capacity returns the number of bits in the filter.
func (cf *CountingFilter) Capacity() uint64 { return cf.filter.filterBits }

// Len returns the insertion count, less successful removals.
func (cf *CountingFilter) Len() uint64 { return cf.filter.Len() }

// FalsePositives returns the approximate false positive rate for n
// members, or for the current count when n is zero.
func (cf *CountingFilter) FalsePositives(n uint64) float64 {
	return cf.filter.FalsePositives(n)
}

// FalsePositivesFor returns the approximate false positive rate for
// exactly n members.
func (cf *CountingFilter) FalsePositivesFor(n uint64) float64 {
	return cf.filter.FalsePositivesFor(n)
}

// KeyHash returns the digest tag stored with the filter; see Filter.KeyHash.
func (cf *CountingFilter) KeyHash() uint8 { return cf.filter.KeyHash() }

// SetKeyHash records which digest produces this filter's keys.
func (cf *CountingFilter) SetKeyHash(id uint8) { cf.filter.SetKeyHash(id) }

// IsMember reports whether key may be in the set.
func (cf *CountingFilter) IsMember(key []byte) (bool, error) {
	return cf.filter.IsMember(key)
}

// Clear empties the filter and zeroes every counter.
func (cf *CountingFilter) Clear() {
	cf.cbMu.Lock()
	defer cf.cbMu.Unlock()
	cf.filter.Clear()
	cf.counters.Clear()
}

// Counter returns the counter value behind a filter bit.
func (cf *CountingFilter) Counter(filterBit uint64) (uint8, error) {
	cf.cbMu.Lock()
	defer cf.cbMu.Unlock()
	return cf.counters.Value(filterBit)
}

// Insert adds key to the set and increments the counter of each of its
// bits. Counter overflow is ignored.
func (cf *CountingFilter) Insert(key []byte) error {
	ks, err := NewKeySelector(key, cf)
	if err != nil {
		return err
	}

	cf.cbMu.Lock()
	defer cf.cbMu.Unlock()

	if err := cf.filter.InsertSelector(ks); err != nil {
		return err
	}
	for _, bit := range ks.FilterBits() {
		value, err := cf.counters.Inc(bit)
		if err != nil {
			return err
		}
		if value == nibbleMax {
			logger("CountingFilter.Insert", logrus.Fields{"filter_bit": bit}).Debug("Nibble counter saturated")
		}
	}
	return nil
}

// Remove takes key out of the set. Each of its counters is decremented and
// any bit whose counter reaches zero is cleared. Removing a key that is not
// a member does nothing.
func (cf *CountingFilter) Remove(key []byte) error {
	ks, err := NewKeySelector(key, cf)
	if err != nil {
		return err
	}

	present, err := cf.filter.IsMemberSelector(ks)
	if err != nil {
		return err
	}
	if !present {
		logger("CountingFilter.Remove").Debug("Key not in filter, nothing to remove")
		return nil
	}

	cf.cbMu.Lock()
	defer cf.cbMu.Unlock()

	// Another Remove may have won the race for the lock.
	present, err = cf.filter.IsMemberSelector(ks)
	if err != nil || !present {
		return err
	}

	for i, bit := range ks.FilterBits() {
		value, err := cf.counters.Dec(bit)
		if err != nil {
			return err
		}
		if value == 0 {
			cf.filter.clearBit(ks.byteSel[i], ks.bitSel[i])
		}
	}
	cf.filter.decrementCount()
	return nil
}
