package filters

import (
	"fmt"
	"math"
	"sync"

	"github.com/sirupsen/logrus"
)

// Filter is a Bloom filter for sets of fixed-length keys, usually SHA
// digests.
//
// The filter holds 2^m bits. A key is added by setting k bits chosen by
// slicing the key itself into k m-bit fields (see KeySelector), so the k
// "hash functions" are free as long as keys are good pseudo-random values.
// The false positive rate after n insertions is
//
//	f = (1 - e^(-kn/2^m))^k
//
// All operations on the bit array and insertion count are serialised by a
// single mutex covering the whole structure. Parameter getters are
// lock-free since the parameters never change after New.
type Filter struct {
	m        uint
	k        uint
	keyBytes int

	filterBits  uint64
	filterBytes uint64

	mu      sync.Mutex
	bits    []byte
	count   uint64
	keyHash uint8
}

// New creates a filter of 2^m bits using k selectors per key and accepting
// keys of keyBytes bytes. If k*m exceeds the key length in bits, k is
// reduced to the number of m-bit fields the key can supply.
func New(m, k uint, keyBytes int) (*Filter, error) {
	return NewFromOptions(&Options{M: m, K: k, KeyBytes: keyBytes})
}

// NewFromOptions creates a filter from opts; see New.
func NewFromOptions(opts *Options) (*Filter, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	k := effectiveK(opts.M, opts.K, opts.KeyBytes)
	if k < MinK {
		return nil, fmt.Errorf("%w: %d-byte keys are too short for m = %d",
			ErrInvalidParameter, opts.KeyBytes, opts.M)
	}
	if k != opts.K {
		logger("NewFromOptions", logrus.Fields{
			"m":           opts.M,
			"requested_k": opts.K,
			"k":           k,
			"key_bytes":   opts.KeyBytes,
		}).Debug("Reduced selector count to fit key length")
	}

	filterBits := uint64(1) << opts.M
	filterBytes := (filterBits + 7) / 8
	return &Filter{
		m:           opts.M,
		k:           k,
		keyBytes:    opts.KeyBytes,
		filterBits:  filterBits,
		filterBytes: filterBytes,
		bits:        make([]byte, filterBytes),
	}, nil
}

// M returns the filter size exponent.
func (f *Filter) M() uint { return f.m }

// K returns the number of selectors per key, after any reduction in New.
func (f *Filter) K() uint { return f.k }

// KeyBytes returns the length of keys accepted by the filter.
func (f *Filter) KeyBytes() int { return f.keyBytes }

// Capacity returns the number of bits in the filter, 2^m.
func (f *Filter) Capacity() uint64 { return f.filterBits }

// KeyHash returns the caller-defined tag naming the digest that produces
// this filter's keys, or 0 if none was set. It is kept in snapshots.
func (f *Filter) KeyHash() uint8 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.keyHash
}

// SetKeyHash records which digest produces this filter's keys.
func (f *Filter) SetKeyHash(id uint8) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keyHash = id
}

// Len returns the number of Insert calls since creation or the last Clear.
// Inserting the same key twice counts twice.
func (f *Filter) Len() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count
}

// Clear zeroes the bit array and the insertion count.
func (f *Filter) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.doClear()
}

// doClear is the unsynchronized body of Clear.
func (f *Filter) doClear() {
	clear(f.bits)
	f.count = 0
}

// Insert adds key to the set.
func (f *Filter) Insert(key []byte) error {
	ks, err := NewKeySelector(key, f)
	if err != nil {
		return err
	}
	return f.InsertSelector(ks)
}

// InsertSelector adds the key behind a selector derived for this filter.
func (f *Filter) InsertSelector(ks *KeySelector) error {
	if err := f.checkSelector(ks); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setBits(ks)
	f.count++
	return nil
}

// IsMember reports whether key may be in the set. False means the key was
// certainly never inserted.
func (f *Filter) IsMember(key []byte) (bool, error) {
	ks, err := NewKeySelector(key, f)
	if err != nil {
		return false, err
	}
	return f.IsMemberSelector(ks)
}

// IsMemberSelector is IsMember for a precomputed selector.
func (f *Filter) IsMemberSelector(ks *KeySelector) (bool, error) {
	if err := f.checkSelector(ks); err != nil {
		return false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.isMember(ks), nil
}

// checkSelector rejects selectors derived against other parameters, whose
// byte indices may fall outside this filter.
func (f *Filter) checkSelector(ks *KeySelector) error {
	if ks == nil {
		return fmt.Errorf("%w: key selector may not be nil", ErrInvalidKey)
	}
	if !ks.matches(f) {
		return fmt.Errorf("%w: selector derived for m=%d k=%d key bytes=%d, filter has m=%d k=%d key bytes=%d",
			ErrInvalidParameter, ks.m, ks.K(), len(ks.key), f.m, f.k, f.keyBytes)
	}
	return nil
}

// FalsePositives returns the approximate false positive rate for n set
// members. An n of zero means the current insertion count.
func (f *Filter) FalsePositives(n uint64) float64 {
	if n == 0 {
		n = f.Len()
	}
	return falsePositiveRate(f.m, f.k, n)
}

// FalsePositivesFor returns the approximate false positive rate for
// exactly n members; n == 0 gives 0.
func (f *Filter) FalsePositivesFor(n uint64) float64 {
	return falsePositiveRate(f.m, f.k, n)
}

func falsePositiveRate(m, k uint, n uint64) float64 {
	kf := float64(k)
	return math.Pow(1-math.Exp(-kf*float64(n)/math.Ldexp(1, int(m))), kf)
}

func (f *Filter) setBits(ks *KeySelector) {
	for i := range ks.bitSel {
		f.bits[ks.byteSel[i]] |= 1 << ks.bitSel[i]
	}
}

func (f *Filter) isMember(ks *KeySelector) bool {
	for i := range ks.bitSel {
		if f.bits[ks.byteSel[i]]&(1<<ks.bitSel[i]) == 0 {
			return false
		}
	}
	return true
}

// clearBit zeroes one filter bit. Takes the filter lock.
func (f *Filter) clearBit(byteIdx uint64, bit uint8) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bits[byteIdx] &^= 1 << bit
}

// decrementCount lowers the insertion count, stopping at zero. Takes the
// filter lock.
func (f *Filter) decrementCount() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.count > 0 {
		f.count--
	}
}
