package validator

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/fjod/undhyu/internal/domain"
	"github.com/go-playground/validator/v10"
)

var (
	emailRegex   = regexp.MustCompile(`\S+@\S+\.\S+`)
	pincodeRegex = regexp.MustCompile(`^\d{6}$`)
	nonDigits    = regexp.MustCompile(`\D`)
)

// messages maps field and failed tag to the text shown next to the field.
var messages = map[string]map[string]string{
	domain.FieldFirstName: {"filled": "First name is required"},
	domain.FieldEmail:     {"filled": "Email is required", "shopper_email": "Email is invalid"},
	domain.FieldPhone:     {"filled": "Phone number is required", "in_phone": "Phone number must be 10 digits"},
	domain.FieldAddress:   {"filled": "Address is required"},
	domain.FieldCity:      {"filled": "City is required"},
	domain.FieldPincode:   {"filled": "Pincode is required", "in_pincode": "Pincode must be 6 digits"},
}

// Customer validates delivery forms.
type Customer struct {
	validate *validator.Validate
}

func New() *Customer {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	registerCustomValidations(v)
	return &Customer{validate: v}
}

func registerCustomValidations(v *validator.Validate) {
	v.RegisterValidation("filled", validateFilled)
	v.RegisterValidation("shopper_email", validateEmail)
	v.RegisterValidation("in_phone", validatePhone)
	v.RegisterValidation("in_pincode", validatePincode)
}

// Validate returns one message per invalid field, or nil when the form is complete.
func (c *Customer) Validate(info domain.CustomerInfo) map[string]string {
	err := c.validate.Struct(info)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return map[string]string{"form": err.Error()}
	}

	out := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		out[fe.Field()] = message(fe.Field(), fe.Tag())
	}
	return out
}

func message(field, tag string) string {
	if msg, ok := messages[field][tag]; ok {
		return msg
	}
	return field + " is invalid"
}

func validateFilled(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

func validateEmail(fl validator.FieldLevel) bool {
	return emailRegex.MatchString(fl.Field().String())
}

// validatePhone accepts any formatting as long as exactly ten digits remain.
func validatePhone(fl validator.FieldLevel) bool {
	return len(nonDigits.ReplaceAllString(fl.Field().String(), "")) == 10
}

func validatePincode(fl validator.FieldLevel) bool {
	return pincodeRegex.MatchString(strings.TrimSpace(fl.Field().String()))
}
