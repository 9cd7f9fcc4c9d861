// SPDX-License-Identifier: MIT

// Package bitint holds the power-of-two helpers used to size FFT frames.
// None of them allocate or branch on platform word size beyond math/bits.
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of two >= n, and 1 for n <= 0.
// Subtracting one first keeps exact powers of two unchanged:
//
//	n    n-1    bits.Len  result
//	8    0111   3         8
//	9    1000   4         16
func NextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}

// IsPowerOfTwo reports whether n is a positive power of two.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// Log2 returns floor(log2(n)) for n > 0, and -1 otherwise.
func Log2(n int) int {
	if n <= 0 {
		return -1
	}
	return bits.Len(uint(n)) - 1
}
