// Package storage provides the on-disk formats of a pwvault vault.
//
// A vault directory holds three files:
//   - key file: 16-byte salt followed by the base64url derived key, written once
//   - log file: append-only sequence of base64url ciphertext entries, one per line
//   - index: BBolt database with non-secret bookkeeping (vault ID, entry offsets,
//     sizes, hashes and timestamps) so status works without a passphrase
//
// Every file is opened, used and closed within a single call. All access goes
// through a security.PathValidator rooted at the vault directory.
//
// Concurrent use of one vault by several processes is not supported; only the
// index gets BBolt's own file lock.
package storage
