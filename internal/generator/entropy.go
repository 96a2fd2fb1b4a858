package generator

import "math"

// StrengthThreshold is the advisory strength, in bits, below which a
// password is reported as weak.
const StrengthThreshold = 128.0

// Entropy returns length*log2(poolSize) bits, or 0 when the pool has at
// most one character.
func Entropy(poolSize, length int) float64 {
	if poolSize <= 1 {
		return 0.0
	}
	return float64(length) * math.Log2(float64(poolSize))
}
