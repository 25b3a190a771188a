package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		return fieldLabel(field.Name)
	})
	return v
}

// validateInput runs the `validate` rules of an input struct and reports the
// first broken rule as a VALIDATION_ERROR.
func validateInput(in interface{}) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		return ValidationFailure(fieldErrs)
	}
	return err
}

// ValidationFailure turns validator output, from this package or from gin
// binding, into a VALIDATION_ERROR worded after the first failing field.
func ValidationFailure(fieldErrs validator.ValidationErrors) *Error {
	if len(fieldErrs) == 0 {
		return &Error{Kind: ErrInvalidInput, Code: CodeValidation, Message: "The given data was invalid."}
	}
	return &Error{
		Kind:    ErrInvalidInput,
		Code:    CodeValidation,
		Message: ruleMessage(fieldErrs[0]),
		Cause:   fieldErrs,
	}
}

func ruleMessage(fe validator.FieldError) string {
	label := strings.ToLower(strings.ReplaceAll(fe.Field(), "_", " "))
	text := fe.Kind() == reflect.String
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("The %s field is required.", label)
	case "email":
		return fmt.Sprintf("The %s must be a valid email address.", label)
	case "oneof":
		return fmt.Sprintf("The selected %s is invalid.", label)
	case "max", "lte":
		if text {
			return fmt.Sprintf("The %s may not be greater than %s characters.", label, fe.Param())
		}
		return fmt.Sprintf("The %s may not be greater than %s.", label, fe.Param())
	case "min", "gte":
		if text {
			return fmt.Sprintf("The %s must be at least %s characters.", label, fe.Param())
		}
		return fmt.Sprintf("The %s must be at least %s.", label, fe.Param())
	default:
		return fmt.Sprintf("The %s is invalid.", label)
	}
}

// fieldLabel spells a Go field name as words: TicketID becomes "ticket id".
func fieldLabel(name string) string {
	runes := []rune(name)
	var b strings.Builder
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prevLower := unicode.IsLower(runes[i-1])
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if prevLower || (unicode.IsUpper(runes[i-1]) && nextLower) {
				b.WriteByte(' ')
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	return &trimmed
}
