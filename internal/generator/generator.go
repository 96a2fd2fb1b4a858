package generator

import (
	"fmt"
)

// MinLength is the shortest password that can hold one character of each
// mandatory class plus one free character. Shorter requests are raised to it.
const MinLength = 5

// Password is a generated password. It is a value; nothing mutates it after
// Generate returns.
type Password struct {
	Text      string
	Requested int // length asked for before normalization
	PoolSize  int
	Entropy   float64
}

// Length returns the number of characters in the password.
func (p Password) Length() int {
	return len(p.Text)
}

// Adjusted reports whether the requested length was raised to MinLength.
func (p Password) Adjusted() bool {
	return p.Requested != len(p.Text)
}

// Weak reports whether the entropy falls below threshold bits.
func (p Password) Weak(threshold float64) bool {
	return p.Entropy < threshold
}

// EffectiveLength applies the MinLength floor.
func EffectiveLength(length int) int {
	if length < MinLength {
		return MinLength
	}
	return length
}

// Generator produces passwords from a Source.
type Generator struct {
	src Source
}

// New creates a Generator. A nil source means SecureSource.
func New(src Source) *Generator {
	if src == nil {
		src = SecureSource{}
	}
	return &Generator{src: src}
}

// Generate returns a password of EffectiveLength(length) characters drawn from
// pool, containing at least one character of every mandatory class.
func (g *Generator) Generate(length int, pool *Pool) (Password, error) {
	if !pool.valid() {
		return Password{}, ErrInsufficientChars
	}

	effective := EffectiveLength(length)
	chars := make([]byte, 0, effective)

	// One from each mandatory class first, the rest from the whole alphabet
	for _, class := range pool.Classes() {
		c, err := g.pick(class)
		if err != nil {
			return Password{}, err
		}
		chars = append(chars, c)
	}
	for len(chars) < effective {
		c, err := g.pick(pool.Alphabet)
		if err != nil {
			return Password{}, err
		}
		chars = append(chars, c)
	}

	if err := g.shuffle(chars); err != nil {
		return Password{}, err
	}

	return Password{
		Text:      string(chars),
		Requested: length,
		PoolSize:  pool.Size(),
		Entropy:   Entropy(pool.Size(), effective),
	}, nil
}

// GenerateWith builds the pool from exclusions and generates a password.
func (g *Generator) GenerateWith(length int, exclusions string) (Password, error) {
	pool, err := BuildPool(exclusions)
	if err != nil {
		return Password{}, err
	}
	return g.Generate(length, pool)
}

func (g *Generator) pick(set string) (byte, error) {
	idx, err := g.src.Intn(len(set))
	if err != nil {
		return 0, fmt.Errorf("failed to pick character: %w", err)
	}
	if idx < 0 || idx >= len(set) {
		return 0, fmt.Errorf("random source returned %d outside [0, %d)", idx, len(set))
	}
	return set[idx], nil
}

// shuffle is a Fisher-Yates shuffle driven by the generator's source.
func (g *Generator) shuffle(chars []byte) error {
	for i := len(chars) - 1; i > 0; i-- {
		j, err := g.src.Intn(i + 1)
		if err != nil {
			return fmt.Errorf("failed to shuffle password: %w", err)
		}
		if j < 0 || j > i {
			return fmt.Errorf("random source returned %d outside [0, %d]", j, i)
		}
		chars[i], chars[j] = chars[j], chars[i]
	}
	return nil
}
