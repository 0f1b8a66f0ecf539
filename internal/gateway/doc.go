// Package gateway serves the underbudget auth API.
//
// # Overview
//
// Gateway wires the store, signing key, verifier, denylist, and account
// service together and exposes them over HTTP and, optionally, gRPC.
// Listeners are plain TCP or, when tailscale is enabled, tsnet.
//
// # HTTP API
//
//	POST   /api/users           register        201 {userId}
//	POST   /api/authenticate    log in          201 {token}
//	GET    /api/users/me        current user    200 {id,name,email,created,lastUpdated}
//	GET    /api/tokens          active tokens   200 {tokens:[{jwtId,issued,expires,source}]}
//	DELETE /api/tokens/{jwtId}  revoke token    200
//	GET    /health              store ping      200 OK
//
// Every authentication failure returns the same 401 body. Validation errors
// return 400 with per-field messages. Storage outages return 503. Login
// attempts are rate limited per client address and return 429 when exceeded.
//
// # gRPC
//
// underbudget.auth.v1.TokenService is served when server.grpc_addr is set
// (or on :50051 of the tailnet node). Verify is public so sibling backends
// can check bearer tokens; WhoAmI requires a bearer token in the
// "authorization" metadata.
//
// # Background Work
//
// A janitor prunes registry records that expired more than
// auth.token_retention ago, every auth.prune_interval.
package gateway
