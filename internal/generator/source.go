package generator

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
)

var errInvalidBound = errors.New("random bound must be positive")

// Source yields uniform random integers in [0, n).
type Source interface {
	Intn(n int) (int, error)
}

// SecureSource draws from crypto/rand.
type SecureSource struct{}

// Intn returns a uniform random int in [0, n).
func (SecureSource) Intn(n int) (int, error) {
	if n <= 0 {
		return 0, errInvalidBound
	}
	idx, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("failed to generate random number: %w", err)
	}
	return int(idx.Int64()), nil
}
