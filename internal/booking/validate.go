package booking

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// NewValidator returns a validator that reports fields by their json names.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0] //nolint:gomnd
		if name == "-" || name == "" {
			return strings.ToLower(field.Name)
		}

		return name
	})

	return v
}

// Validate checks s against its validate tags and returns an *InputError
// describing every failed field.
func Validate(v *validator.Validate, s any) error {
	if inputErr := validationToInputError(v.Struct(s)); inputErr != nil {
		return inputErr
	}

	return nil
}

func validationToInputError(err error) *InputError {
	if err == nil {
		return nil
	}

	inputErr := newInputError()

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		inputErr.addError("input", err.Error())

		return inputErr
	}

	for _, fe := range validationErrs {
		msg := fe.Tag()
		if fe.Param() != "" {
			msg += "=" + fe.Param()
		}

		inputErr.addError(fe.Field(), "failed on "+msg)
	}

	return inputErr
}
