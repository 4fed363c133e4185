package handlers

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type signupForm struct {
	Email    string `form:"email" validate:"required,email,max=254"`
	Password string `form:"password" validate:"required"`
}

type credentialsForm struct {
	Email    string `form:"email"`
	Password string `form:"password"`
}

// validationMessages turns validator errors into one message per field in
// declaration order.
func validationMessages(err error) []string {
	ve, ok := err.(validator.ValidationErrors)
	if !ok {
		return []string{err.Error()}
	}

	messages := make([]string, 0, len(ve))
	for _, fe := range ve {
		messages = append(messages, formatFieldError(fe))
	}
	return messages
}

func formatFieldError(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s: this field is required.", field)
	case "email":
		return "Enter a valid email address."
	case "max":
		return fmt.Sprintf("%s: must have at most %s characters.", field, fe.Param())
	default:
		return fmt.Sprintf("%s: failed validation (%s).", field, fe.Tag())
	}
}

// validEmail reports whether value looks like an email address.
func validEmail(value string) bool {
	return validate.Var(value, "required,email") == nil
}

// formValues flattens posted values, keeping the first value per key.
func formValues(values url.Values) map[string]string {
	out := make(map[string]string, len(values))
	for k, v := range values {
		if len(v) > 0 && k != "csrf_token" {
			out[k] = strings.TrimSpace(v[0])
		}
	}
	return out
}
