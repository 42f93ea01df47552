package httpapi

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/sujinchoi3/my-todolist/internal/common"
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const minPasswordLength = 8

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r signupRequest) validate() []common.FieldError {
	var errs []common.FieldError
	if !emailRe.MatchString(r.Email) {
		errs = append(errs, common.FieldError{Field: "email", Message: "Invalid email format."})
	}
	if msg := checkPassword(r.Password); msg != "" {
		errs = append(errs, common.FieldError{Field: "password", Message: msg})
	}
	if strings.TrimSpace(r.Name) == "" {
		errs = append(errs, common.FieldError{Field: "name", Message: "Name is required."})
	}
	return errs
}

func (r loginRequest) validate() []common.FieldError {
	var errs []common.FieldError
	if !emailRe.MatchString(r.Email) {
		errs = append(errs, common.FieldError{Field: "email", Message: "Invalid email format."})
	}
	if r.Password == "" {
		errs = append(errs, common.FieldError{Field: "password", Message: "Password is required."})
	}
	return errs
}

// checkPassword requires at least 8 characters with an ASCII letter and a
// digit. It returns "" for an acceptable password.
func checkPassword(p string) string {
	if utf8.RuneCountInString(p) < minPasswordLength {
		return "Password must be at least 8 characters."
	}
	var letter, digit bool
	for _, c := range p {
		switch {
		case c >= '0' && c <= '9':
			digit = true
		case (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z'):
			letter = true
		}
	}
	if !letter || !digit {
		return "Password must contain at least one letter and one digit."
	}
	return ""
}
