// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TaskTrack Contributors

// Package auth provides authentication primitives for TaskTrack.
//
// # Domain Types
//
// Users should be created through NewUser, which validates the name and
// normalizes the email. Direct struct initialization bypasses validation.
// Repository implementations receive pre-validated users.
//
// # Sessions
//
// Sessions are stateless: TokenService issues HS256-signed tokens carrying the
// user ID and an expiry, and verifies them without touching storage. The
// signing key is an immutable SigningKey built once at startup. Tokens are
// never revoked server-side; logging out only clears the client cookie.
//
// # Services
//
// Service coordinates registration, login and session resolution on top of a
// UserRepository, a PasswordHasher and a TokenService.
package auth
