// Package rate provides the fixed-window request limiter in front of the
// unauthenticated auth endpoints (login, register, reset and OTP).
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Keys are
// <prefix>:<scope>:<key>, where scope names the endpoint and key is usually
// the client IP. Without a Redis client the counters live in process memory.
//
// # What this package must NOT do
//
//   - Make authentication decisions; lockout accounting lives in the engine.
//   - Be imported outside the goShare module.
package rate
