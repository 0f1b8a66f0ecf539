// Package denylist caches revoked access token IDs in memory so the token
// verifier can reject them without querying the token registry.
package denylist
