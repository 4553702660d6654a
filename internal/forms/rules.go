package forms

import (
	"context"
	"fmt"
	"net/mail"
	"path/filepath"
	"strings"

	"inkwell/internal/repository"
)

// Required fails on empty or whitespace-only values.
func Required() Rule {
	return func(_ context.Context, value string, _ map[string]string) string {
		if strings.TrimSpace(value) == "" {
			return "This field is required."
		}
		return ""
	}
}

// Length fails outside [min, max] characters.
func Length(min, max int) Rule {
	return func(_ context.Context, value string, _ map[string]string) string {
		n := len([]rune(value))
		if n < min || n > max {
			return fmt.Sprintf("Field must be between %d and %d characters long.", min, max)
		}
		return ""
	}
}

// Email fails when the value is not a syntactically valid address.
func Email() Rule {
	return func(_ context.Context, value string, _ map[string]string) string {
		addr, err := mail.ParseAddress(value)
		if err != nil || addr.Address != value {
			return "Invalid email address."
		}
		return ""
	}
}

// EqualTo fails when the value differs from another field's value.
func EqualTo(other, label string) Rule {
	return func(_ context.Context, value string, values map[string]string) string {
		if value != values[other] {
			return fmt.Sprintf("Field must be equal to %s.", label)
		}
		return ""
	}
}

// FileAllowed fails when a non-empty filename does not carry one of the
// allowed extensions. An empty value passes; the upload is optional.
func FileAllowed(exts ...string) Rule {
	allowed := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		allowed["."+strings.ToLower(strings.TrimPrefix(e, "."))] = struct{}{}
	}
	return func(_ context.Context, value string, _ map[string]string) string {
		if value == "" {
			return ""
		}
		ext := strings.ToLower(filepath.Ext(value))
		if _, ok := allowed[ext]; !ok {
			return fmt.Sprintf("File does not have an approved extension: %s.", strings.Join(exts, ", "))
		}
		return ""
	}
}

// UniqueUsername fails when a different account already holds the name.
// exempt is the current user's own name on account-update forms.
func UniqueUsername(users repository.UserRepository, exempt string) Rule {
	return func(ctx context.Context, value string, _ map[string]string) string {
		if value == "" || value == exempt {
			return ""
		}
		existing, err := users.GetByUsername(ctx, value)
		if err != nil {
			return "Could not verify username availability. Please try again."
		}
		if existing != nil {
			return "That username is taken. Please choose a different one."
		}
		return ""
	}
}

// UniqueEmail fails when a different account already holds the address.
func UniqueEmail(users repository.UserRepository, exempt string) Rule {
	return func(ctx context.Context, value string, _ map[string]string) string {
		if value == "" || value == exempt {
			return ""
		}
		existing, err := users.GetByEmail(ctx, value)
		if err != nil {
			return "Could not verify email availability. Please try again."
		}
		if existing != nil {
			return "That email is taken. Please choose a different one."
		}
		return ""
	}
}
