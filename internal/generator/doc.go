// Package generator builds character pools and generates passwords for pwvault.
//
// Every generated password contains at least one uppercase letter, one
// lowercase letter, one digit and one symbol. The remaining characters are
// drawn uniformly from the whole pool, and the result is shuffled so the
// mandatory characters do not sit at predictable positions.
//
// All randomness comes from a Source. SecureSource, the default, is backed by
// crypto/rand; tests substitute deterministic sources.
package generator
