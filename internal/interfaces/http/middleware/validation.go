package middleware

import (
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/clinicware/backend/internal/interfaces/http/dto"
)

// SetupValidator makes binding errors report the wire-level field name
// (json tag, falling back to form tag) instead of the Go struct field
func SetupValidator() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = strings.SplitN(field.Tag.Get("form"), ",", 2)[0]
		}
		return name
	})
}

// ValidationDetails converts a binding error into per-field details.
// Returns nil when err is not a validator error, so callers can fall
// back to a plain bad-request message.
func ValidationDetails(err error) []dto.ValidationDetail {
	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return nil
	}

	details := make([]dto.ValidationDetail, 0, len(validationErrs))
	for _, fieldErr := range validationErrs {
		details = append(details, dto.ValidationDetail{
			Field:   fieldErr.Field(),
			Message: fieldMessage(fieldErr),
		})
	}
	return details
}

var plainValidationMessages = map[string]string{
	"required": "This field is required",
	"email":    "Invalid email format",
	"uuid":     "Invalid UUID format",
	"url":      "Invalid URL format",
	"numeric":  "Must be numeric",
	"alphanum": "Must be alphanumeric",
	"alpha":    "Must contain only letters",
}

func fieldMessage(e validator.FieldError) string {
	if msg, ok := plainValidationMessages[e.Tag()]; ok {
		return msg
	}

	switch e.Tag() {
	case "min":
		return boundMessage("Must be at least ", e)
	case "max":
		return boundMessage("Must be at most ", e)
	case "len":
		return "Must be exactly " + e.Param() + " characters"
	case "oneof":
		return "Must be one of: " + e.Param()
	case "gte":
		return "Must be greater than or equal to " + e.Param()
	case "lte":
		return "Must be less than or equal to " + e.Param()
	case "gt":
		return "Must be greater than " + e.Param()
	case "lt":
		return "Must be less than " + e.Param()
	default:
		return "Invalid value"
	}
}

// boundMessage spells out the unit for string bounds, where min/max
// count characters rather than compare values
func boundMessage(prefix string, e validator.FieldError) string {
	if e.Type().Kind() == reflect.String {
		return prefix + e.Param() + " characters"
	}
	return prefix + e.Param()
}
