// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TaskTrack Contributors

package auth

import (
	"context"
	"net/mail"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/tasktrack/tasktrack/pkg/errutil"
)

// Registration constraints.
const (
	MinNameLength     = 2
	MaxNameLength     = 50
	MinPasswordLength = 8
	// MaxPasswordBytes is bcrypt's input limit.
	MaxPasswordBytes = 72
)

// User represents a registered account.
type User struct {
	ID           ulid.ULID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// NewUser creates a validated User with a fresh ID. The email is normalized.
func NewUser(name, email, passwordHash string) (*User, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	email = NormalizeEmail(email)
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if passwordHash == "" {
		return nil, oops.Code("USER_INVALID_HASH").Errorf("password hash cannot be empty")
	}

	now := time.Now().UTC()
	return &User{
		ID:           ulid.Make(),
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// RegisterInput is the registration request body.
type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate returns the first invalid field, checked in name, email, password order.
func (in RegisterInput) Validate() error {
	if err := ValidateName(in.Name); err != nil {
		return err
	}
	if err := ValidateEmail(NormalizeEmail(in.Email)); err != nil {
		return err
	}
	return ValidatePassword(in.Password)
}

// LoginInput is the login request body.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate returns the first invalid field.
func (in LoginInput) Validate() error {
	if err := ValidateEmail(NormalizeEmail(in.Email)); err != nil {
		return err
	}
	if in.Password == "" {
		return errutil.Invalid("password", "Password is required")
	}
	return nil
}

// NormalizeEmail trims and lower-cases an email so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateName checks the display name length.
func ValidateName(name string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	if n < MinNameLength {
		return errutil.Invalid("name", "Name must be at least 2 characters")
	}
	if n > MaxNameLength {
		return errutil.Invalid("name", "Name must be at most 50 characters")
	}
	return nil
}

// ValidateEmail accepts a bare address such as "john@example.com".
// Display-name forms ("John <john@example.com>") are rejected.
func ValidateEmail(email string) error {
	if email == "" {
		return errutil.Invalid("email", "Email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@")+1:], ".") {
		return errutil.Invalid("email", "Invalid email address")
	}
	return nil
}

// ValidatePassword enforces the password policy:
// - at least MinPasswordLength characters
// - at most MaxPasswordBytes bytes
// - at least one letter and one digit
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return errutil.Invalid("password", "Password must be at least 8 characters")
	}
	if len(password) > MaxPasswordBytes {
		return errutil.Invalid("password", "Password must be at most 72 bytes")
	}

	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return errutil.Invalid("password", "Password must contain at least one letter and one number")
	}
	return nil
}

// UserRepository manages user persistence.
type UserRepository interface {
	// Create stores a new user. Returns ErrEmailTaken if the email is in use.
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id ulid.ULID) (*User, error)

	// GetByEmail retrieves a user by email (case-insensitive).
	// Returns ErrNotFound if no user has the given email.
	GetByEmail(ctx context.Context, email string) (*User, error)
}
