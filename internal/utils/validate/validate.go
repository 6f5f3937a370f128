// Package validate builds the request validator shared by all handlers.
package validate

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"noteflow/internal/apperr"
	"noteflow/internal/utils/crypto"

	"github.com/go-playground/validator/v10"
)

// New returns a validator that reports json field names and knows the
// "password" rule.
func New() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "query"} {
			name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return f.Name
	})
	_ = crypto.RegisterPasswordValidator(v)
	return v
}

// Struct validates req and turns the first failure into an InvalidArgument
// error with a readable message.
func Struct(ctx context.Context, v *validator.Validate, req any) error {
	err := v.StructCtx(ctx, req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperr.Wrap(apperr.ErrInvalidArgument, "invalid request", err)
	}

	fe := verrs[0]
	if fe.Tag() == "password" {
		return apperr.New(apperr.ErrInvalidArgument, crypto.ErrPasswordStrength.Error())
	}
	return apperr.New(apperr.ErrInvalidArgument, describe(fe))
}

func describe(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "min", "max", "gte", "lte":
		return fmt.Sprintf("%s failed %s=%s", field, fe.Tag(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid (%s)", field, fe.Tag())
	}
}
