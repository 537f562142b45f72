package utils

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var mobilePattern = regexp.MustCompile(`^\+?[0-9]{10,15}$`)

// Validate is the shared request validator. It knows the custom "mobile" tag.
var Validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("mobile", func(fl validator.FieldLevel) bool {
		return IsValidMobile(fl.Field().String())
	}); err != nil {
		panic(fmt.Sprintf("register mobile validation: %v", err))
	}
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// IsValidMobile reports whether value looks like a phone number once normalized.
func IsValidMobile(value string) bool {
	return mobilePattern.MatchString(NormalizeMobile(value))
}

// IsValidEmail reports whether value is a syntactically valid email address.
func IsValidEmail(value string) bool {
	return Validate.Var(value, "required,email") == nil
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// NormalizeMobile strips formatting characters from a phone number.
func NormalizeMobile(value string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')', '.':
			return -1
		}
		return r
	}, strings.TrimSpace(value))
}

// ValidationMessage flattens validator errors into one client-facing sentence.
func ValidationMessage(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}

	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if idx := strings.Index(field, "."); idx >= 0 {
			field = field[idx+1:]
		}
		switch fe.Tag() {
		case "required":
			parts = append(parts, fmt.Sprintf("%s is required", field))
		case "email":
			parts = append(parts, fmt.Sprintf("%s must be a valid email", field))
		case "mobile":
			parts = append(parts, fmt.Sprintf("%s must be a valid mobile number", field))
		case "oneof":
			parts = append(parts, fmt.Sprintf("%s must be one of [%s]", field, fe.Param()))
		case "min", "gte":
			parts = append(parts, fmt.Sprintf("%s must be at least %s", field, fe.Param()))
		default:
			parts = append(parts, fmt.Sprintf("%s is invalid (%s)", field, fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}
