// ABOUTME: HTTP API for registration, authentication, identity, and token management
// ABOUTME: Routes are registered on a method-aware ServeMux with bearer auth where required

package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"time"

	"github.com/vimofthevine/underbudget-auth/internal/accounts"
	"github.com/vimofthevine/underbudget-auth/internal/auth"
	"github.com/vimofthevine/underbudget-auth/internal/validate"
)

// maxRequestBody caps JSON request bodies.
const maxRequestBody = 64 << 10

// RegisterRequest is the body of POST /api/users.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterResponse is returned when a user is created.
type RegisterResponse struct {
	UserID string `json:"userId"`
}

// AuthenticateRequest is the body of POST /api/authenticate.
// Email and Name are optional; see accounts.Service.Login.
type AuthenticateRequest struct {
	Email    string `json:"email,omitempty"`
	Name     string `json:"name,omitempty"`
	Password string `json:"password"`
	Source   string `json:"source"`
}

// AuthenticateResponse carries a newly issued bearer token.
type AuthenticateResponse struct {
	Token string `json:"token"`
}

// UserResponse describes the authenticated user.
type UserResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Created     time.Time `json:"created"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// TokenResponse describes one active token.
type TokenResponse struct {
	JwtID   string    `json:"jwtId"`
	Issued  time.Time `json:"issued"`
	Expires time.Time `json:"expires"`
	Source  string    `json:"source"`
}

// TokenListResponse is the body of GET /api/tokens.
type TokenListResponse struct {
	Tokens []TokenResponse `json:"tokens"`
}

func (g *Gateway) routes() http.Handler {
	mux := http.NewServeMux()
	authLogger := g.logger.With("component", "auth")
	requireAuth := auth.HTTPAuthMiddleware(g.verifier, authLogger)
	optionalAuth := auth.OptionalAuthMiddleware(g.verifier, authLogger)

	mux.HandleFunc("GET /health", g.handleHealth)

	mux.HandleFunc("POST /api/users", g.handleRegister)
	mux.Handle("POST /api/authenticate", g.limiter.Middleware(optionalAuth(http.HandlerFunc(g.handleAuthenticate))))
	mux.Handle("GET /api/users/me", requireAuth(http.HandlerFunc(g.handleWhoAmI)))
	mux.Handle("GET /api/tokens", requireAuth(http.HandlerFunc(g.handleListTokens)))
	mux.Handle("DELETE /api/tokens/{jwtId}", requireAuth(http.HandlerFunc(g.handleRevokeToken)))

	return mux
}

// decodeBody reads a JSON request body into v, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeMessage(w, http.StatusRequestEntityTooLarge)
			return false
		}
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			writeJSON(w, http.StatusBadRequest, validationResponse{
				Message: "Validation Failed",
				Errors:  validate.Errors{{Field: typeErr.Field, Message: typeMismatchMessage(typeErr.Type)}},
			})
			return false
		}
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: "Malformed request body"})
		return false
	}
	return true
}

func typeMismatchMessage(t reflect.Type) string {
	if t != nil && t.Kind() == reflect.String {
		return "must be a string"
	}
	return "has an invalid type"
}

func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), g.config.Auth.RegistryTimeout)
	defer cancel()

	if err := g.store.Ping(ctx); err != nil {
		g.logger.Warn("health check failed", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("unavailable"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (g *Gateway) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeBody(w, r, &req) {
		return
	}

	u, err := g.accounts.Register(r.Context(), accounts.RegisterRequest{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		g.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, RegisterResponse{UserID: u.ID})
}

// handleAuthenticate issues a token. A bearer token on the request, when
// valid, identifies the account for password re-entry.
func (g *Gateway) handleAuthenticate(w http.ResponseWriter, r *http.Request) {
	var req AuthenticateRequest
	if !decodeBody(w, r, &req) {
		return
	}

	issued, err := g.accounts.Login(r.Context(), accounts.LoginRequest{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
		Source:   req.Source,
	}, auth.FromContext(r.Context()))
	if err != nil {
		if errors.Is(err, accounts.ErrInvalidCredentials) {
			g.logger.Warn("login failed", "remote_addr", r.RemoteAddr)
		}
		g.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, AuthenticateResponse{Token: issued.Token})
}

func (g *Gateway) handleWhoAmI(w http.ResponseWriter, r *http.Request) {
	u, err := g.accounts.WhoAmI(r.Context(), auth.FromContext(r.Context()))
	if err != nil {
		g.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, UserResponse{
		ID:          u.ID,
		Name:        u.Name,
		Email:       u.Email,
		Created:     u.CreatedAt,
		LastUpdated: u.UpdatedAt,
	})
}

func (g *Gateway) handleListTokens(w http.ResponseWriter, r *http.Request) {
	tokens, err := g.accounts.ListTokens(r.Context(), auth.FromContext(r.Context()))
	if err != nil {
		g.writeError(w, r, err)
		return
	}

	resp := TokenListResponse{Tokens: make([]TokenResponse, 0, len(tokens))}
	for _, t := range tokens {
		resp.Tokens = append(resp.Tokens, TokenResponse{
			JwtID:   t.ID,
			Issued:  t.IssuedAt,
			Expires: t.ExpiresAt,
			Source:  t.Source,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (g *Gateway) handleRevokeToken(w http.ResponseWriter, r *http.Request) {
	err := g.accounts.RevokeToken(r.Context(), auth.FromContext(r.Context()), r.PathValue("jwtId"))
	if err != nil {
		g.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}
