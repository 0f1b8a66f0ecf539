// Package accounts implements user registration, password login, and the
// per-user access token lifecycle (listing and revocation).
//
// Service methods take the verified caller as an explicit *auth.Principal
// rather than reading it from ambient state. Errors are the sentinels in
// errors.go plus validate.Errors for rejected registration input.
//
// Login issues a token and then records it in the token registry. If the
// record cannot be written the login fails and the token is never returned.
// Revocation takes effect for every verification that starts after it
// commits; requests already past verification are not interrupted.
package accounts
