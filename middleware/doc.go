// Package middleware exposes the HTTP guards of goShare.
//
// # Guards
//
//   - [RequireAuth] reads "Authorization: Bearer <token>", resolves the
//     caller through [goShare.Engine.AuthenticateRequest] and stores it in
//     the request context.
//   - [RequireAdmin] admits only identities with the admin role.
//
// Rejections are JSON bodies of the form {"message": "..."}.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does not
// parse tokens or read the datastore itself.
package middleware
