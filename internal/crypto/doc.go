// Package crypto provides cryptographic operations for pwvault.
//
// Key derivation uses PBKDF2-HMAC-SHA256 with:
//   - 16-byte random salt (stored unencrypted in the key file)
//   - 480,000 iterations
//   - 32-byte output, carried around as 44 bytes of base64url text
//
// Encryption uses AES-256-GCM with:
//   - the decoded 32-byte derived key
//   - 12-byte random nonce per encryption operation
//   - Authenticated encryption prevents tampering with individual entries
//
// Memory safety:
//   - Use ClearBytes() to zero sensitive data after use
//   - Call Encryptor.Destroy() when done with encryption operations
package crypto
