package generator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEntropy(t *testing.T) {
	assert.InDelta(t, 16*math.Log2(94), Entropy(94, 16), 1e-9)
	assert.InDelta(t, 20.0, Entropy(2, 20), 1e-9)
	assert.InDelta(t, 5*math.Log2(84), Entropy(84, 5), 1e-9)
}

func TestEntropy_DegeneratePool(t *testing.T) {
	for _, length := range []int{0, 1, 5, 100} {
		assert.Equal(t, 0.0, Entropy(1, length))
		assert.Equal(t, 0.0, Entropy(0, length))
		assert.Equal(t, 0.0, Entropy(-3, length))
	}
}

func TestEntropy_Threshold(t *testing.T) {
	// 94 symbols need 20 characters to pass 128 bits
	assert.Less(t, Entropy(94, 19), StrengthThreshold)
	assert.Greater(t, Entropy(94, 20), StrengthThreshold)
}
