package handlers

import (
	"github.com/go-playground/validator/v10"

	"github.com/localmarket/tokens-backend/internal/plans"
)

// RegisterValidators adds the "planid" rule (a catalog plan id, any case)
// to v. The router installs it on gin's binding engine.
func RegisterValidators(v *validator.Validate) error {
	return v.RegisterValidation("planid", func(fl validator.FieldLevel) bool {
		_, ok := plans.Lookup(fl.Field().String())
		return ok
	})
}
