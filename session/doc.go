// Package session provides the refresh token ledger: the authoritative
// record of which refresh tokens are currently valid, independent of their
// cryptographic validity.
//
// # Implementations
//
//   - [MemoryLedger] keeps records in process memory. A restart revokes every
//     session; use it for tests and single-instance development.
//   - [RedisLedger] persists records in Redis with a TTL matching the token
//     expiry, using a compact versioned binary record.
//
// Records are keyed by the SHA-256 of the token so the ledger never stores a
// usable credential.
//
// # Architecture boundaries
//
// This package owns persistence and expiry of ledger records. It does NOT
// parse tokens or decide rotation policy; the Engine serializes rotation and
// uses the removed flag returned by Revoke to detect lost races.
//
// # What this package must NOT do
//
//   - Import goShare or jwt (no upward imports).
//   - Store plaintext tokens.
package session
