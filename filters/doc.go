// Package filters implements Bloom filters over fixed-length keys that are
// already cryptographic digests.
//
// Because the keys are good pseudo-random values, no hashing is done
// inside the filter. A KeySelector slices each key into k fields of m bits;
// the low 3 bits of a field select a bit within a byte and the remaining
// m-3 bits select one of the 2^(m-3) bytes of a 2^m-bit filter.
//
// # Plain filters
//
//	f, err := filters.New(20, 8, 20) // 2^20 bits, 8 selectors, SHA-1 keys
//	if err != nil {
//	    return err
//	}
//	digest := sha1.Sum(data)
//	_ = f.Insert(digest[:])
//	ok, _ := f.IsMember(digest[:])
//
// If k*m exceeds the key length in bits, k is quietly reduced to the number
// of fields the key can supply.
//
// # Counting filters
//
// CountingFilter adds a 4-bit saturating counter per bit (NibbleCounters),
// which makes Remove possible. A bit is cleared only when its counter drops
// to zero.
//
// # Snapshots
//
// Both filter types implement encoding.BinaryMarshaler and
// encoding.BinaryUnmarshaler. Snapshots carry a 32-byte header and a
// trailing CRC-32 and can be written to disk with WriteFile.
//
// # Thread Safety
//
// Filter guards its bit array and count with one mutex. CountingFilter adds
// a second mutex that is always taken before the inner Filter's lock.
// NibbleCounters on its own is not synchronised.
package filters
