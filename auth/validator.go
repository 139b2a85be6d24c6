package auth

import (
	"chat-relay/errors"
	stderrors "errors"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type RegisterRequest struct {
	Login    string  `json:"login" validate:"required,min=2,max=16,alphanum"`
	Password string  `json:"password" validate:"required,min=8,max=32,printascii"`
	Name     string  `json:"name" validate:"required,max=32"`
	Email    *string `json:"email" validate:"omitempty,email"`
}

// Normalize trims the name and treats an empty email as absent.
func (r RegisterRequest) Normalize() RegisterRequest {
	r.Name = strings.TrimSpace(r.Name)
	if r.Email != nil {
		email := strings.TrimSpace(*r.Email)
		if email == "" {
			r.Email = nil
		} else {
			r.Email = &email
		}
	}
	return r
}

// ValidateRegister returns the sentinel error of the first offending field.
func ValidateRegister(req RegisterRequest) error {
	if err := validate.Struct(req); err != nil {
		var fieldErrors validator.ValidationErrors
		if stderrors.As(err, &fieldErrors) && len(fieldErrors) > 0 {
			return fieldError(fieldErrors[0].Field())
		}
		return err
	}
	// printascii accepts the space character
	if strings.ContainsFunc(req.Password, unicode.IsSpace) {
		return errors.ErrInvalidPassword
	}
	return nil
}

// ValidateName checks a display name for guests and renames.
func ValidateName(name string) error {
	if err := validate.Var(strings.TrimSpace(name), "required,max=32"); err != nil {
		return errors.ErrInvalidName
	}
	return nil
}

func fieldError(field string) error {
	switch field {
	case "Login":
		return errors.ErrInvalidLogin
	case "Password":
		return errors.ErrInvalidPassword
	case "Name":
		return errors.ErrInvalidName
	case "Email":
		return errors.ErrInvalidEmail
	}
	return errors.ErrInvalidCredentials
}
