// ABOUTME: HTTP middleware for bearer token authentication on API endpoints
// ABOUTME: Verifies the Authorization header and adds the principal to the request context

package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
)

// Authenticator resolves a bearer token to a principal. *Verifier implements it.
type Authenticator interface {
	Verify(ctx context.Context, token string) (*Principal, error)
}

// Uniform bodies; the specific failure reason only goes to the log.
const (
	unauthorizedBody = `{"message":"Unauthorized"}` + "\n"
	unavailableBody  = `{"message":"Service Unavailable"}` + "\n"
)

// extractBearerToken extracts a bearer token from the Authorization header.
// Returns the token and a failure reason (empty if successful).
func extractBearerToken(authHeader string) (string, string) {
	if authHeader == "" {
		return "", "missing_header"
	}
	scheme, token, ok := strings.Cut(authHeader, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", "invalid_header"
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", "empty_token"
	}
	return token, ""
}

// WriteUnauthorized writes the single 401 response used for every authentication failure.
func WriteUnauthorized(w http.ResponseWriter) {
	writeBody(w, http.StatusUnauthorized, unauthorizedBody)
}

// WriteUnavailable writes a 503 response for storage outages during verification.
func WriteUnavailable(w http.ResponseWriter) {
	writeBody(w, http.StatusServiceUnavailable, unavailableBody)
}

func writeBody(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

// logHTTPAuthFailure logs an authentication failure with the remote address.
func logHTTPAuthFailure(logger *slog.Logger, r *http.Request, reason string, err error) {
	if logger == nil {
		return
	}
	attrs := []any{"reason", reason, "remote_addr", r.RemoteAddr, "path", r.URL.Path}
	if err != nil {
		attrs = append(attrs, "error", err)
	}
	logger.Warn("auth failure", attrs...)
}

// HTTPAuthMiddleware creates an HTTP middleware that requires a valid bearer token.
// Every failure yields the same 401 body, except registry outages which yield 503.
func HTTPAuthMiddleware(verifier Authenticator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, reason := extractBearerToken(r.Header.Get("Authorization"))
			if reason != "" {
				logHTTPAuthFailure(logger, r, reason, nil)
				WriteUnauthorized(w)
				return
			}

			principal, err := verifier.Verify(r.Context(), token)
			if err != nil {
				logHTTPAuthFailure(logger, r, Reason(err), err)
				if errors.Is(err, ErrUnavailable) {
					WriteUnavailable(w)
					return
				}
				WriteUnauthorized(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

// OptionalAuthMiddleware attaches a principal when a valid bearer token is
// present and otherwise lets the request through anonymously.
func OptionalAuthMiddleware(verifier Authenticator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, reason := extractBearerToken(r.Header.Get("Authorization"))
			if reason != "" {
				next.ServeHTTP(w, r) // Continue as anonymous
				return
			}

			principal, err := verifier.Verify(r.Context(), token)
			if err != nil {
				logHTTPAuthFailure(logger, r, Reason(err), err)
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}
