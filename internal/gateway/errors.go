// ABOUTME: Maps account and verification errors onto HTTP status codes and JSON bodies
// ABOUTME: Every authentication failure produces the same 401 body

package gateway

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/vimofthevine/underbudget-auth/internal/accounts"
	"github.com/vimofthevine/underbudget-auth/internal/auth"
	"github.com/vimofthevine/underbudget-auth/internal/validate"
)

// messageResponse is the body of every non-validation error.
type messageResponse struct {
	Message string `json:"message"`
}

// validationResponse is the 400 body for rejected input.
type validationResponse struct {
	Message string          `json:"message"`
	Errors  validate.Errors `json:"errors"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Debug("writing response body failed", "error", err)
	}
}

func writeMessage(w http.ResponseWriter, status int) {
	writeJSON(w, status, messageResponse{Message: http.StatusText(status)})
}

// writeError writes the response for err and logs anything unexpected.
func (g *Gateway) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verrs validate.Errors
	switch {
	case errors.As(err, &verrs):
		writeJSON(w, http.StatusBadRequest, validationResponse{Message: "Validation Failed", Errors: verrs})
	case errors.Is(err, accounts.ErrInvalidCredentials),
		errors.Is(err, accounts.ErrUnauthenticated):
		auth.WriteUnauthorized(w)
	case errors.Is(err, accounts.ErrForbidden):
		writeMessage(w, http.StatusForbidden)
	case errors.Is(err, accounts.ErrNotFound):
		writeMessage(w, http.StatusNotFound)
	case errors.Is(err, accounts.ErrUnavailable):
		g.logger.Error("request failed", "path", r.URL.Path, "error", err)
		auth.WriteUnavailable(w)
	default:
		g.logger.Error("unhandled request error", "path", r.URL.Path, "error", err)
		writeMessage(w, http.StatusInternalServerError)
	}
}
