package model

import (
	"regexp"
	"unicode/utf8"
)

const (
	MinLoginIDLen  = 8
	MaxLoginIDLen  = 20
	MinPasswordLen = 6
)

var (
	mobilePattern = regexp.MustCompile(`^[0-9]{10}$`)
	emailPattern  = regexp.MustCompile(`^\S+@\S+\.\S+$`)
)

// Validate checks params against the user schema and returns a
// *ValidationError listing every failed field, or nil.
func (params *CreateUserParams) Validate() error {
	verr := &ValidationError{}

	required := []struct {
		field string
		value string
	}{
		{"firstName", params.FirstName},
		{"lastName", params.LastName},
		{"mobile", params.Mobile},
		{"email", params.Email},
		{"loginId", params.LoginID},
		{"password", params.Password},
	}
	missing := map[string]bool{}
	for _, r := range required {
		if r.value == "" {
			verr.Add(r.field, "Path `"+r.field+"` is required.")
			missing[r.field] = true
		}
	}

	if !missing["mobile"] && !mobilePattern.MatchString(params.Mobile) {
		verr.Add("mobile", "Mobile number must be 10 digits")
	}
	if !missing["email"] && !emailPattern.MatchString(params.Email) {
		verr.Add("email", "Invalid email format")
	}
	if !missing["loginId"] {
		if n := utf8.RuneCountInString(params.LoginID); n < MinLoginIDLen || n > MaxLoginIDLen {
			verr.Add("loginId", "Login ID must be between 8 and 20 characters")
		}
	}
	if !missing["password"] && !ValidPassword(params.Password) {
		verr.Add("password", "Password must be at least 6 characters long, contain 1 uppercase letter, 1 lowercase letter, and 1 special character")
	}

	if len(verr.Fields) > 0 {
		return verr
	}
	return nil
}

// ValidPassword reports whether password has at least six characters, an
// ASCII lowercase letter, an ASCII uppercase letter and a non-word character.
func ValidPassword(password string) bool {
	if utf8.RuneCountInString(password) < MinPasswordLen {
		return false
	}

	hasLower, hasUpper, hasSymbol := false, false, false
	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= '0' && r <= '9', r == '_':
		default:
			hasSymbol = true
		}
	}
	return hasLower && hasUpper && hasSymbol
}
