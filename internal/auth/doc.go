// Package auth provides token issuing, token verification, and password
// hashing for underbudget-auth.
//
// # Tokens
//
// Access tokens are HS256 JWTs carrying sub (user ID), jti (unique token ID),
// iat and exp. An Issuer mints them; it has no storage side effects, so the
// caller records each token in the registry before handing it out.
//
// A Verifier checks tokens in a fixed order:
//
//  1. structure (ErrMalformed)
//  2. signature (ErrInvalidSignature)
//  3. expiry (ErrExpired)
//  4. registry state (ErrRevoked, ErrUnknownToken), or ErrUnavailable when
//     the registry cannot be reached
//
// The first three checks are pure. The last one consults the token registry,
// optionally short-circuited by a denylist of known-revoked IDs.
//
// Both Issuer and Verifier share one SigningKey, built once at startup and
// never printed or logged.
//
// # Request Authentication
//
// HTTPAuthMiddleware and UnaryInterceptor verify bearer tokens and attach the
// resulting Principal to the request context:
//
//	p := auth.FromContext(r.Context())
//
// Every verification failure produces the same client-facing response; the
// specific reason is only logged.
//
// # Passwords
//
// PasswordHasher wraps bcrypt. Inputs are pre-hashed with SHA-256 so
// passwords up to MaxPasswordBytes are fully significant. Burn compares
// against a dummy digest so logins for unknown users cost the same as logins
// with a wrong password.
package auth
