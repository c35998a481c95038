// Package password implements password hashing and verification with bcrypt.
//
// # Output format
//
// Hashes are standard bcrypt modular-crypt strings:
//
//	$2a$<cost>$<22-char salt><31-char hash>
//
// The [Bcrypt] hasher reports whether a stored hash was produced with a
// different cost through [Bcrypt.NeedsRehash], so the caller can re-hash on
// the next successful login.
//
// # Architecture boundaries
//
// This package owns hashing and verification only. Which errors count as
// "wrong password" and which count as infrastructure failures is decided
// here; how they are surfaced to users is decided by the Engine.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords. Callers supply plaintext and receive hashes.
//   - Import any other goShare package.
//   - Log plaintext passwords.
package password
