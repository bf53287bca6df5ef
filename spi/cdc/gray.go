// Package cdc provides the cross-domain synchronization primitive of the
// controller: a ring of slots guarded by gray-coded position counters, so
// that a counter snapshot taken from the other timing domain is off by at
// most one increment and never torn.
package cdc

// grayEncode converts a binary counter value to its gray code. Consecutive
// values differ by exactly one bit.
func grayEncode(x uint32) uint32 {
	return x ^ (x >> 1)
}

// grayDecode converts a gray code back to the binary counter value.
func grayDecode(g uint32) uint32 {
	b := g
	for shift := uint(1); shift < 32; shift <<= 1 {
		b ^= b >> shift
	}

	return b
}
