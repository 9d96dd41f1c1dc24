// Package signup implements the two-step signup form: its schema, the step
// controller, the form state machine and the live component that renders it.
package signup

import (
	"regexp"

	"github.com/gabrielmiguelok/livesignup/pkg/forms"
)

// Field names, as posted by the browser and as json keys of Input.
const (
	FieldName     = "name"
	FieldEmail    = "email"
	FieldPhone    = "phone"
	FieldRole     = "role"
	FieldPassword = "password"
	FieldConfirm  = "confirm"
)

// Roles a user may pick.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Input is one signup attempt. Its validate tags are the schema; rules run
// left to right and the first failure is reported.
type Input struct {
	Name     string `json:"name" validate:"min=2"`
	Email    string `json:"email" validate:"email"`
	Phone    string `json:"phone" validate:"len=11,krmobile"`
	Role     string `json:"role" validate:"oneof=admin user"`
	Password string `json:"password" validate:"min=8,signuppw"`
	Confirm  string `json:"confirm" validate:"min=8,signuppw"`
}

// StepOneFields must all be dirty and valid before the form advances.
var StepOneFields = []string{FieldName, FieldEmail, FieldPhone, FieldRole}

// StepTwoFields are shown once the form advanced.
var StepTwoFields = []string{FieldPassword, FieldConfirm}

// messageKeys maps "field.tag" or "tag" to an i18n key.
var messageKeys = map[string]string{
	"name.min":       "signup.name.min",
	"email.email":    "signup.email.invalid",
	"phone.len":      "signup.phone.length",
	"phone.krmobile": "signup.phone.pattern",
	"role.oneof":     "signup.role.required",
	"password.min":   "signup.password.min",
	"confirm.min":    "signup.password.min",
	"signuppw":       "signup.password.pattern",
}

var mobilePattern = regexp.MustCompile(`^010\d{8}$`)

// IsMobile reports whether s is an 11 digit Korean mobile number starting
// with 010.
func IsMobile(s string) bool {
	return mobilePattern.MatchString(s)
}

const passwordSpecials = "@$!%*?&"

// IsPassword reports whether s has at least 8 characters drawn from ASCII
// letters, digits and @$!%*?&, with at least one of each class.
func IsPassword(s string) bool {
	if len(s) < 8 {
		return false
	}
	var letter, digit, special bool
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			letter = true
		case r >= '0' && r <= '9':
			digit = true
		case isSpecial(r):
			special = true
		default:
			return false
		}
	}
	return letter && digit && special
}

func isSpecial(r rune) bool {
	for _, s := range passwordSpecials {
		if r == s {
			return true
		}
	}
	return false
}

// NewSchema builds the signup schema on a fresh validation engine.
// Error messages of the returned schema are i18n keys.
func NewSchema() (*forms.Schema, error) {
	engine := forms.NewEngine()
	if err := engine.RegisterFunc("krmobile", IsMobile); err != nil {
		return nil, err
	}
	if err := engine.RegisterFunc("signuppw", IsPassword); err != nil {
		return nil, err
	}
	return forms.NewSchema(engine, Input{}, messageKeys)
}

// MustSchema is NewSchema for package initialisation.
func MustSchema() *forms.Schema {
	s, err := NewSchema()
	if err != nil {
		panic(err)
	}
	return s
}
