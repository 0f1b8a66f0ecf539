// ABOUTME: Field validation built from ordered lists of pure predicate rules
// ABOUTME: Collects one error per failing field so clients see every problem at once

package validate

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"
)

// FieldError describes why a single input field was rejected.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Errors is the full set of field errors for one input, in field order.
type Errors []FieldError

func (e Errors) Error() string {
	parts := make([]string, len(e))
	for i, fe := range e {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Rule checks a value and returns a message when it is not acceptable.
type Rule func(value string) (message string, ok bool)

// Field binds a named value to the rules that apply to it, evaluated in order.
type Field struct {
	Name  string
	Value string
	Rules []Rule
}

// Check evaluates every field. Rules for a field stop at the first failure;
// fields never short-circuit each other. Returns nil or an Errors value.
func Check(fields ...Field) error {
	var errs Errors
	for _, f := range fields {
		for _, rule := range f.Rules {
			if msg, ok := rule(f.Value); !ok {
				errs = append(errs, FieldError{Field: f.Name, Message: msg})
				break
			}
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Required rejects empty or whitespace-only values.
func Required() Rule {
	return func(v string) (string, bool) {
		if strings.TrimSpace(v) == "" {
			return "is required", false
		}
		return "", true
	}
}

// MinLength rejects values with fewer than n characters.
func MinLength(n int) Rule {
	return func(v string) (string, bool) {
		if utf8.RuneCountInString(v) < n {
			return fmt.Sprintf("must be at least %d characters", n), false
		}
		return "", true
	}
}

// MaxLength rejects values with more than n characters.
func MaxLength(n int) Rule {
	return func(v string) (string, bool) {
		if utf8.RuneCountInString(v) > n {
			return fmt.Sprintf("must be at most %d characters", n), false
		}
		return "", true
	}
}

// MaxBytes rejects values longer than n bytes.
func MaxBytes(n int) Rule {
	return func(v string) (string, bool) {
		if len(v) > n {
			return fmt.Sprintf("must be at most %d bytes", n), false
		}
		return "", true
	}
}

// Matches rejects values that do not match re, reporting msg.
func Matches(re *regexp.Regexp, msg string) Rule {
	return func(v string) (string, bool) {
		if !re.MatchString(v) {
			return msg, false
		}
		return "", true
	}
}

// Email rejects values that are not a bare address (no display name or brackets).
func Email() Rule {
	return func(v string) (string, bool) {
		addr, err := mail.ParseAddress(v)
		if err != nil || addr.Address != v || !strings.Contains(addr.Address[strings.LastIndex(addr.Address, "@")+1:], ".") {
			return "must be a valid email address", false
		}
		return "", true
	}
}
