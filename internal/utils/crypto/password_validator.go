package crypto

import (
	"github.com/go-playground/validator/v10"
)

func passwordRule(fl validator.FieldLevel) bool {
	return IsStrong(fl.Field().String())
}

// RegisterPasswordValidator registers the "password" tag. Registering twice
// is not an error.
func RegisterPasswordValidator(v *validator.Validate) error {
	err := v.RegisterValidation("password", passwordRule)
	if err != nil && err.Error() == "validator: tag 'password' already exists" {
		return nil
	}
	return err
}
