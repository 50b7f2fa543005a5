package validation

import (
	"errors"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"loan-service/internal/apperror"
)

const (
	// MaxIntegerDigits matches the integer part of a decimal(18,2) column.
	MaxIntegerDigits = 16
	maxScale         = 18
	maxCoefficient   = 128 // bits

	outOfRange = "out-of-range"
)

// Money reports whether d fits a decimal(18,2) column before any rounding.
// Only the exponent and coefficient size are inspected, so huge exponents
// such as 1e5000000 are rejected without being expanded.
func Money(d decimal.Decimal) bool {
	exp := int(d.Exponent())
	if exp < -maxScale || exp > maxScale {
		return false
	}
	if d.Coefficient().BitLen() > maxCoefficient {
		return false
	}
	return d.NumDigits()+exp <= MaxIntegerDigits
}

// Validator evaluates every rule of a request struct and reports all failures at once.
type Validator struct{ v *validator.Validate }

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// report json names, not Go field names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	// decimals are validated through their canonical string form, which is only
	// rendered once the value is known to be small
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		d, ok := field.Interface().(decimal.Decimal)
		if !ok || !Money(d) {
			return outOfRange
		}
		return d.String()
	}, decimal.Decimal{})

	_ = v.RegisterValidation("money", func(fl validator.FieldLevel) bool {
		return fl.Field().String() != outOfRange
	})
	_ = v.RegisterValidation("decimal_gt", func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		if err != nil {
			return false
		}
		p, err := decimal.NewFromString(fl.Param())
		if err != nil {
			return false
		}
		return d.GreaterThan(p)
	})
	// max 2 decimal places
	_ = v.RegisterValidation("dec2", func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		if err != nil {
			return false
		}
		return d.Equal(d.Truncate(2))
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})

	return &Validator{v: v}
}

// Struct returns nil, an *apperror.ValidationError, or the validator's own error
// when s is not a struct.
func (cv *Validator) Struct(s any) error {
	err := cv.v.Struct(s)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	return &apperror.ValidationError{Fields: ToFieldErrors(ve)}
}

// Validate lets the validator back echo's Context.Validate.
func (cv *Validator) Validate(i any) error { return cv.Struct(i) }

// ToFieldErrors maps validator.ValidationErrors to readable messages.
func ToFieldErrors(err error) []apperror.FieldError {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return []apperror.FieldError{{Field: "_", Message: err.Error()}}
	}
	out := make([]apperror.FieldError, 0, len(ve))
	for _, e := range ve {
		field := e.Field()
		switch e.Tag() {
		case "required":
			out = append(out, apperror.FieldError{Field: field, Message: "is required"})
		case "notblank":
			out = append(out, apperror.FieldError{Field: field, Message: "must not be blank"})
		case "money":
			out = append(out, apperror.FieldError{Field: field, Message: "must be a decimal with at most " + strconv.Itoa(MaxIntegerDigits) + " integer digits"})
		case "decimal_gt":
			out = append(out, apperror.FieldError{Field: field, Message: "must be greater than " + e.Param()})
		case "dec2":
			out = append(out, apperror.FieldError{Field: field, Message: "must have at most 2 decimal places"})
		case "email":
			out = append(out, apperror.FieldError{Field: field, Message: "must be a valid email address"})
		case "min":
			out = append(out, apperror.FieldError{Field: field, Message: "must be at least " + e.Param() + " characters"})
		case "max":
			out = append(out, apperror.FieldError{Field: field, Message: "must be at most " + e.Param() + " characters"})
		default:
			out = append(out, apperror.FieldError{Field: field, Message: e.Tag() + " validation failed"})
		}
	}
	return out
}
