package hashtree

import "math/bits"

// Log2Uint64 computes floor(log base 2) of num. num must be non zero.
func Log2Uint64(num uint64) uint64 {
	return uint64(bits.Len64(num) - 1)
}

// AllOnes is true when num is of the form 2^k - 1, including zero.
func AllOnes(num uint64) bool {
	return num&(num+1) == 0
}

// lowBitsSet is true when the d least significant bits of n are all 1.
func lowBitsSet(n, d uint64) bool {
	mask := uint64(1)<<d - 1
	return n&mask == mask
}

// lowBitsClear is true when the d least significant bits of n are all 0.
func lowBitsClear(n, d uint64) bool {
	mask := uint64(1)<<d - 1
	return n&mask == 0
}

func isZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}
