package validator

import (
	"errors"
	"fmt"

	"anoa.com/attachments/pkg/apperror"
	"github.com/go-playground/validator/v10"
)

// FormatValidationError turns binding errors into field-scoped InvalidInput
// errors joined together. prefix is prepended to every property name.
func FormatValidationError(prefix string, err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return apperror.InvalidInput(prefix, err.Error())
	}

	var errs []error
	for _, fieldError := range validationErrors {
		property := getFieldName(fieldError.Field())
		if prefix != "" {
			property = prefix + "." + property
		}
		errs = append(errs, apperror.InvalidInput(property, getFieldErrorMessage(fieldError)))
	}
	return errors.Join(errs...)
}

func getFieldErrorMessage(fe validator.FieldError) string {
	field := getFieldName(fe.Field())

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		if fe.Type().String() == "string" {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if fe.Type().String() == "string" {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s is not valid", field)
	}
}

func getFieldName(field string) string {
	fieldNames := map[string]string{
		"Filename":      "filename",
		"Path":          "path",
		"Mimetype":      "mimetype",
		"Size":          "size",
		"ParentID":      "parentId",
		"ParentType":    "parentType",
		"ParentSubtype": "parentSubtype",
	}

	if name, ok := fieldNames[field]; ok {
		return name
	}
	return field
}
