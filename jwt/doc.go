// Package jwt issues and verifies the HS256 tokens used by goShare: access,
// refresh and password-reset tokens, each tagged with a kind claim that
// verification checks against the expected context.
package jwt
