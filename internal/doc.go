// Package internal contains helper utilities that are intentionally private to goShare,
// such as OTP generation.
//
// # Sub-packages
//
//   - app — assembles and runs the server from a config
//   - config — layered service configuration (defaults, .env, JSON, flags)
//   - httpapi — net/http handlers for the auth, user and admin routes
//   - logging — context-aware structured logger over log/slog
//   - rate — fixed-window limiter for the auth endpoints
//   - stores — Redis and in-memory OTP challenge stores
//
// # What this package must NOT do
//
//   - Export types that appear in the public goShare API.
//   - Be imported by any package outside the goShare module.
package internal
