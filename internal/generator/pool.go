package generator

import (
	"errors"
	"strings"
)

// Base character classes. Together they form the base charset, in this order.
const (
	Lowercase   = "abcdefghijklmnopqrstuvwxyz"
	Uppercase   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	Digits      = "0123456789"
	Punctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

	Charset = Lowercase + Uppercase + Digits + Punctuation
)

// ErrInsufficientChars is returned when exclusions leave the pool unable to
// supply every mandatory character class.
var ErrInsufficientChars = errors.New("insufficient characters: at least one uppercase, lowercase, digit and symbol must remain")

// Pool is the filtered alphabet together with its mandatory sub-alphabets.
type Pool struct {
	Alphabet string
	Upper    string
	Lower    string
	Digits   string
	Symbols  string
}

// BuildPool filters the base charset against exclusions.
// It fails with ErrInsufficientChars instead of returning a partial pool.
func BuildPool(exclusions string) (*Pool, error) {
	excluded := make(map[rune]bool, len(exclusions))
	for _, c := range exclusions {
		excluded[c] = true
	}

	pool := &Pool{
		Alphabet: removeChars(Charset, excluded),
		Upper:    removeChars(Uppercase, excluded),
		Lower:    removeChars(Lowercase, excluded),
		Digits:   removeChars(Digits, excluded),
		Symbols:  removeChars(Punctuation, excluded),
	}
	if !pool.valid() {
		return nil, ErrInsufficientChars
	}
	return pool, nil
}

// Size returns the number of characters in the alphabet.
func (p *Pool) Size() int {
	if p == nil {
		return 0
	}
	return len(p.Alphabet)
}

// Classes returns the mandatory sub-alphabets in a fixed order.
func (p *Pool) Classes() []string {
	return []string{p.Upper, p.Lower, p.Digits, p.Symbols}
}

func (p *Pool) valid() bool {
	if p == nil || p.Alphabet == "" {
		return false
	}
	for _, class := range p.Classes() {
		if class == "" {
			return false
		}
	}
	return true
}

// removeChars keeps the characters of s that are not excluded, preserving order.
func removeChars(s string, excluded map[rune]bool) string {
	var result strings.Builder
	result.Grow(len(s))
	for _, c := range s {
		if !excluded[c] {
			result.WriteRune(c)
		}
	}
	return result.String()
}
