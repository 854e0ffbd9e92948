package validate

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

// SingleLine rejects values that would break the line-oriented catalog file.
const SingleLine = "singleline"

type CustomValidator struct {
	validator *validator.Validate
}

func NewCustomValidator() *CustomValidator {
	return &CustomValidator{validator: New()}
}

func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

func New() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation(SingleLine, func(fl validator.FieldLevel) bool { //nolint:errcheck
		return !strings.ContainsAny(fl.Field().String(), "\r\n")
	})
	return v
}
