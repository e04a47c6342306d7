package handler

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// CustomValidator adapts go-playground/validator to echo's Validator
// interface so request structs can declare `validate` tags and handlers
// can call c.Validate(&req) after binding.
type CustomValidator struct {
	validate *validator.Validate
}

// NewValidator builds the validator used by the whole server.
func NewValidator() *CustomValidator {
	return &CustomValidator{validate: validator.New()}
}

// Validate implements echo.Validator.  Failures are turned into a 400
// directly so handlers can `return c.Validate(&req)` without wrapping.
func (v *CustomValidator) Validate(i interface{}) error {
	if err := v.validate.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}
