// Package goShare provides the identity and session core of a file-sharing
// service: registration, password login with lockout, rotating refresh
// tokens tracked in a ledger, OTP-based password reset, and bearer-token
// authentication for every other request.
//
// The package is designed for concurrent server workloads: Engine methods are safe to call
// from multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// goShare is the public surface. It exposes [Engine], [Builder], [Config], the
// [CredentialStore] and [OTPStore] contracts, and value types (LoginResult,
// Identity, MetricsSnapshot). The refresh ledger lives in package session,
// token signing in package jwt, hashing in package password. Persistent
// stores, the HTTP surface, the event gateway and file handling are
// separate packages that depend on goShare, never the other way round.
//
// # Errors
//
// Every failure returned by an Engine method matches one of the exported
// sentinels under errors.Is. [Kind] maps an error to a stable code and
// [Message] to text that is safe to show to the end user; internal causes
// are never part of that text.
//
// # Storage
//
// Without Redis the ledger and OTP store are process-local. Sessions and
// pending resets then do not survive a restart and are not shared between
// replicas.
package goShare
