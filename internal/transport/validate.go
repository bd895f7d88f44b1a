package transport

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var cardExpiryRe = regexp.MustCompile(`^(0[1-9]|1[0-2])/\d{2}$`)

func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("card_expiry", func(fl validator.FieldLevel) bool {
		return cardExpiryRe.MatchString(fl.Field().String())
	})
	return v
}

// EchoValidator plugs the validator into echo.Context.Validate.
type EchoValidator struct {
	V *validator.Validate
}

func (ev *EchoValidator) Validate(i any) error {
	return ev.V.Struct(i)
}

// FieldErrors flattens validator errors into field -> message pairs.
func FieldErrors(err error) map[string]string {
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return nil
	}
	out := make(map[string]string, len(ves))
	for _, fe := range ves {
		out[fe.Field()] = fieldMessage(fe)
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "len":
		return fmt.Sprintf("must be exactly %s characters", fe.Param())
	case "number", "numeric":
		return "must contain digits only"
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be a valid URL"
	case "card_expiry":
		return "must be in MM/YY format"
	default:
		return "is invalid"
	}
}
