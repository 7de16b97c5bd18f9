package httpapi

import (
	"errors"
	"unicode"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// LoginRequest is the body of POST /api/user/login.
type LoginRequest struct {
	Email    string `json:"Email"`
	Password string `json:"Password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required.Error("Email is required."),
			is.Email.Error("Invalid email."),
		),
		validation.Field(
			&r.Password,
			validation.Required.Error("Password is required"),
			validation.Length(6, 50).Error("Password must be at least 6 characters long"),
			validation.By(passwordComplexity),
		),
	)
}

// RegisterRequest is the body of POST /api/user/register.
type RegisterRequest struct {
	EmailAddress    string `json:"EmailAddress"`
	Password        string `json:"Password"`
	ConfirmPassword string `json:"ConfirmPassword"`
	FullName        string `json:"FullName"`
	Role            string `json:"Role"`
}

// Validate will validate the payload
func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.EmailAddress,
			validation.Required.Error("Email is required"),
			is.Email.Error("Invalid email address."),
		),
		validation.Field(
			&r.Password,
			validation.Required.Error("Password is required"),
			validation.Length(6, 50).Error("Password must be at least 6 characters long"),
			validation.By(passwordComplexity),
		),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required.Error("Confirm password required."),
			validation.By(stringEquals(r.Password, "Passwords do not match.")),
		),
		validation.Field(
			&r.FullName,
			validation.Required.Error("Full name is required."),
			validation.RuneLength(0, 100).Error("Name cannot be more than 100 characters long."),
		),
		validation.Field(
			&r.Role,
			validation.Required.Error("Role is required"),
		),
	)
}

var errPasswordComplexity = errors.New("Password must contain at least one uppercase letter, one lowercase letter, one number, and one special character.")

// passwordComplexity requires a lower case letter, an upper case letter, a digit and a
// character that is none of those.
func passwordComplexity(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	var lower, upper, digit, special bool
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z':
			lower = true
		case c >= 'A' && c <= 'Z':
			upper = true
		case unicode.IsDigit(c):
			digit = true
		default:
			special = true
		}
	}
	if !lower || !upper || !digit || !special {
		return errPasswordComplexity
	}
	return nil
}

func stringEquals(want, message string) validation.RuleFunc {
	return func(value interface{}) error {
		s, _ := value.(string)
		if s != want {
			return errors.New(message)
		}
		return nil
	}
}
