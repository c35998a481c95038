// Package stores provides the short-lived OTP challenge stores behind the
// password-reset flow: a Redis-backed store and an in-process one with the
// same semantics.
//
// # Design
//
// The Redis store persists a versioned, binary-encoded record per email with
// a TTL. Consume runs inside a WATCH/MULTI optimistic transaction with
// bounded retry, so one challenge is consumed at most once even when two
// verifications race. The memory store holds its lock for the whole
// consumption for the same effect.
//
// Codes are never stored in plaintext: callers pass a hash to Put and a
// MatchFunc to Consume, so this package does not know the hashing scheme.
//
// # What this package must NOT do
//
//   - Import goShare or any sibling internal package.
//   - Generate codes, send them, or log them.
package stores
