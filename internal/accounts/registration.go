// ABOUTME: Registration input rules for names, emails, and passwords
// ABOUTME: Each field is an ordered list of predicates evaluated before any store write

package accounts

import (
	"regexp"
	"strings"

	"github.com/vimofthevine/underbudget-auth/internal/auth"
	"github.com/vimofthevine/underbudget-auth/internal/validate"
)

// Registration limits.
const (
	MinNameLength     = 4
	MaxNameLength     = 30
	MinPasswordLength = 12
	MaxSourceLength   = 128
)

var namePattern = regexp.MustCompile(`^[A-Za-z0-9_\- ]+$`)

var (
	nameRules = []validate.Rule{
		validate.Required(),
		validate.MinLength(MinNameLength),
		validate.MaxLength(MaxNameLength),
		validate.Matches(namePattern, "may only contain letters, numbers, spaces, underscores, and dashes"),
	}
	emailRules = []validate.Rule{
		validate.Required(),
		validate.Email(),
	}
	passwordRules = []validate.Rule{
		validate.Required(),
		validate.MinLength(MinPasswordLength),
		validate.MaxBytes(auth.MaxPasswordBytes),
	}
)

// RegisterRequest is the input to Register.
type RegisterRequest struct {
	Name     string
	Email    string
	Password string
}

// normalize trims the name and lower-cases the email. Passwords are used verbatim.
func (r RegisterRequest) normalize() RegisterRequest {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = normalizeEmail(r.Email)
	return r
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r RegisterRequest) validate() error {
	return validate.Check(
		validate.Field{Name: "name", Value: r.Name, Rules: nameRules},
		validate.Field{Name: "email", Value: r.Email, Rules: emailRules},
		validate.Field{Name: "password", Value: r.Password, Rules: passwordRules},
	)
}
