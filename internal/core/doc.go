// Package core provides the pwvault vault operations.
//
// Core operations include:
//   - Authenticate: first run creates the key file from a new master
//     passphrase; later runs allow three unlock attempts
//   - Unlock: a single non-interactive attempt (environment, keyring)
//   - Save: encrypt a Record and append it to the log
//   - Records: decrypt every saved Record in append order
//   - Status: inspect the vault without a passphrase
//
// A Capability is only obtainable through authentication and must be passed
// to Save and Records. Callers Close it when the session ends.
package core
