// Package auth implements the account flows of the grants backend (login,
// registration, password recovery) and keeps the resulting bearer token
// between runs.
package auth

import (
	"strings"
	"time"

	"grant-portal/internal/common/validation"
)

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type User struct {
	ID        string `json:"_id,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role,omitempty"`
}

func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// loginResponse accepts both the flat shape ({token, _id, firstName, ...})
// and the nested one ({token, user: {...}} or {token, admin: {...}}).
type loginResponse struct {
	Token string `json:"token"`
	User
	Nested *User `json:"user,omitempty"`
	Admin  *User `json:"admin,omitempty"`
}

func (r loginResponse) user() User {
	switch {
	case r.Nested != nil:
		return *r.Nested
	case r.Admin != nil:
		return *r.Admin
	}
	return r.User
}

// Session is a logged in user and their bearer token.
type Session struct {
	Token     string    `json:"token"`
	User      User      `json:"user"`
	Admin     bool      `json:"admin"`
	ExpiresAt time.Time `json:"expiresAt,omitempty"`
}

// Expired reports whether the token's exp claim has passed. A session
// without an expiry never expires locally.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// RegistrationForm is the account sign-up form.
type RegistrationForm struct {
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Email           string `json:"email"`
	PrimaryPhone    string `json:"primaryPhone"`
	MobilePhone     string `json:"mobilePhone"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// Validate returns a message per invalid field; an empty map means the
// form may be sent.
func (f RegistrationForm) Validate() map[string]string {
	errs := map[string]string{}

	nameRule := func(field, label, value string) {
		switch {
		case validation.IsBlank(value):
			errs[field] = label + " is required"
		case !validation.MinLength(value, 2):
			errs[field] = label + " must be at least 2 characters long"
		}
	}
	nameRule("firstName", "First name", f.FirstName)
	nameRule("lastName", "Last name", f.LastName)

	switch {
	case f.Email == "":
		errs["email"] = "Email is required"
	case !validEmail(f.Email):
		errs["email"] = "Please enter a valid email address"
	}

	if f.PrimaryPhone == "" {
		errs["primaryPhone"] = "Primary phone is required"
	} else if ok, msg := validation.IsValidUSPhone(f.PrimaryPhone); !ok {
		errs["primaryPhone"] = msg
	}
	if f.MobilePhone != "" {
		if ok, msg := validation.IsValidUSPhone(f.MobilePhone); !ok {
			errs["mobilePhone"] = msg
		}
	}

	if f.Password == "" {
		errs["password"] = "Password is required"
	} else if ok, msg := validation.IsStrongPassword(f.Password); !ok {
		errs["password"] = msg
	}

	switch {
	case f.ConfirmPassword == "":
		errs["confirmPassword"] = "Please confirm your password"
	case f.ConfirmPassword != f.Password:
		errs["confirmPassword"] = "Passwords must match exactly"
	}

	return errs
}

// Normalized trims names and email and reduces phone numbers to digits,
// the shape the backend stores.
func (f RegistrationForm) Normalized() RegistrationForm {
	out := f
	out.FirstName = strings.TrimSpace(f.FirstName)
	out.LastName = strings.TrimSpace(f.LastName)
	out.Email = strings.TrimSpace(f.Email)
	out.PrimaryPhone = validation.DigitsOnly(f.PrimaryPhone)
	out.MobilePhone = validation.DigitsOnly(f.MobilePhone)
	return out
}

func validEmail(v string) bool {
	ok, _ := validation.IsValidEmail(v)
	return ok
}
