// internal/utils/validator.go
package utils

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

var (
	uintTextPattern    = regexp.MustCompile(`^[0-9]+$`)
	decimalTextPattern = regexp.MustCompile(`^([0-9]+(\.[0-9]*)?|\.[0-9]+)$`)
)

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(jsonFieldName)
	validate.RegisterValidation("uint_text", validateUintText)
	validate.RegisterValidation("decimal_text", validateDecimalText)
}

func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}

// jsonFieldName reports fields by their JSON name so messages match the
// request body the client sent.
func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return fld.Name
	}
	return name
}

func validateUintText(fl validator.FieldLevel) bool {
	return uintTextPattern.MatchString(fl.Field().String())
}

// decimal_text accepts plain decimals only; exponent notation is rejected.
func validateDecimalText(fl validator.FieldLevel) bool {
	return decimalTextPattern.MatchString(fl.Field().String())
}

// Validation tags for common fields
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

func GetValidationErrors(err error) []ValidationError {
	var validationErrors []ValidationError

	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		for _, e := range validationErrs {
			validationErrors = append(validationErrors, ValidationError{
				Field:   e.Field(),
				Tag:     e.Tag(),
				Message: getValidationMessage(e),
			})
		}
	}

	return validationErrors
}

func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return e.Field() + " is required"
	case "min":
		return e.Field() + " must be at least " + e.Param()
	case "max":
		return e.Field() + " must be at most " + e.Param() + " characters"
	case "latitude":
		return e.Field() + " must be a latitude between -90 and 90"
	case "longitude":
		return e.Field() + " must be a longitude between -180 and 180"
	case "uint_text":
		return e.Field() + " must be a non-negative integer"
	case "decimal_text":
		return e.Field() + " must be a plain decimal number"
	default:
		return e.Field() + " is invalid"
	}
}
