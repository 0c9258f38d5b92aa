// Package validator turns untrusted request input into typed values. All
// failures are *apperr.Error values of kind validation naming the field.
package validator

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"forumshop/internal/apperr"
	"forumshop/internal/money"

	playground "github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

const (
	CodeMissingField     = "missing_field"
	CodeInvalidFormat    = "invalid_format"
	CodeInvalidRange     = "invalid_range"
	CodeUnknownParameter = "unknown_parameter"
)

var (
	ErrMissingField     = apperr.New(apperr.KindValidation, CodeMissingField, "Missing required field")
	ErrInvalidFormat    = apperr.New(apperr.KindValidation, CodeInvalidFormat, "Invalid format")
	ErrInvalidRange     = apperr.New(apperr.KindValidation, CodeInvalidRange, "Value out of range")
	ErrUnknownParameter = apperr.New(apperr.KindValidation, CodeUnknownParameter, "Unknown parameter")
)

func MissingField(field string) *apperr.Error {
	return ErrMissingField.WithField(field).WithMessage("Missing required field: %s", field)
}

func InvalidFormat(field, expected string) *apperr.Error {
	return ErrInvalidFormat.WithField(field).WithMessage("Invalid %s: must be %s", field, expected)
}

func InvalidRange(field, format string, args ...any) *apperr.Error {
	return ErrInvalidRange.WithField(field).WithMessage("Invalid %s: %s", field, fmt.Sprintf(format, args...))
}

// Value is a scalar sent either as a JSON number or as a string, as forum
// forms do.
type Value struct {
	raw string
	set bool
}

func NewValue(raw string) Value {
	trimmed := strings.TrimSpace(raw)
	return Value{raw: trimmed, set: trimmed != ""}
}

func (v *Value) UnmarshalJSON(data []byte) error {
	text := strings.TrimSpace(string(data))
	if text == "null" {
		*v = Value{}
		return nil
	}
	if strings.HasPrefix(text, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = NewValue(s)
		return nil
	}
	*v = NewValue(text)
	return nil
}

func (v Value) Missing() bool { return !v.set }

func (v Value) String() string { return v.raw }

// Int parses a required integer field.
func Int(field string, v Value) (int64, error) {
	if v.Missing() {
		return 0, MissingField(field)
	}
	n, err := strconv.ParseInt(v.raw, 10, 64)
	if err != nil {
		return 0, InvalidFormat(field, "an integer")
	}
	return n, nil
}

// ID parses a required positive identifier.
func ID(field string, v Value) (int64, error) {
	n, err := Int(field, v)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, InvalidRange(field, "must be a positive integer")
	}
	return n, nil
}

// Quantity parses a required non-negative integer.
func Quantity(field string, v Value) (int64, error) {
	n, err := Int(field, v)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, InvalidRange(field, "must not be negative")
	}
	return n, nil
}

// Amount parses a required non-negative credit or price amount.
func Amount(field string, v Value) (decimal.Decimal, error) {
	if v.Missing() {
		return decimal.Zero, MissingField(field)
	}
	amount, err := money.Parse(v.raw)
	switch {
	case errors.Is(err, money.ErrNegativeAmount):
		return decimal.Zero, InvalidRange(field, "must not be negative")
	case errors.Is(err, money.ErrTooManyDecimals):
		return decimal.Zero, InvalidRange(field, "at most two decimal places")
	case err != nil:
		return decimal.Zero, InvalidFormat(field, "a number")
	}
	return amount, nil
}

// Bool parses an optional boolean, accepting 1/0 as the forum sends them.
func Bool(field string, v Value, fallback bool) (bool, error) {
	if v.Missing() {
		return fallback, nil
	}
	b, err := strconv.ParseBool(strings.ToLower(v.raw))
	if err != nil {
		return false, InvalidFormat(field, "a boolean")
	}
	return b, nil
}

var disallowedText = regexp.MustCompile(`[^A-Za-z0-9 .,'!?&()\-]`)

// Sanitize drops characters outside the free-text allow list and trims.
func Sanitize(s string) string {
	return strings.TrimSpace(disallowedText.ReplaceAllString(s, ""))
}

// Text sanitizes a required free-text field and checks its length.
func Text(field, raw string, minLen, maxLen int) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", MissingField(field)
	}
	clean := Sanitize(raw)
	if n := len([]rune(clean)); n < minLen || n > maxLen {
		return "", InvalidRange(field, "length must be between %d and %d characters", minLen, maxLen)
	}
	return clean, nil
}

func Name(raw string) (string, error) {
	return Text("name", raw, 1, 100)
}

func Description(raw string) (string, error) {
	return Text("description", raw, 1, 500)
}

// NonEmpty rejects empty array fields.
func NonEmpty(field string, n int) error {
	if n == 0 {
		return MissingField(field).WithMessage("%s must be a non-empty array", field)
	}
	return nil
}

// Index names one element of an array field, e.g. items[2].quantity.
func Index(field string, i int, sub string) string {
	name := fmt.Sprintf("%s[%d]", field, i)
	if sub != "" {
		name += "." + sub
	}
	return name
}

var (
	structValidator *playground.Validate
	structOnce      sync.Once
)

func instance() *playground.Validate {
	structOnce.Do(func() {
		v := playground.New(playground.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return field.Name
			}
			return name
		})
		structValidator = v
	})
	return structValidator
}

// Struct applies `validate` tags and reports the first failing field by its
// JSON path.
func Struct(s any) error {
	err := instance().Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrors playground.ValidationErrors
	if !errors.As(err, &fieldErrors) || len(fieldErrors) == 0 {
		return ErrInvalidFormat.Wrap(err)
	}
	return fromFieldError(fieldErrors[0])
}

func fromFieldError(fe playground.FieldError) *apperr.Error {
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required":
		if fe.Kind() == reflect.Slice {
			return MissingField(field).WithMessage("%s must be a non-empty array", field)
		}
		return MissingField(field)
	case "min":
		if fe.Kind() == reflect.Slice {
			return MissingField(field).WithMessage("%s must be a non-empty array", field)
		}
		return InvalidRange(field, "must be at least %s", fe.Param())
	case "max":
		return InvalidRange(field, "must be at most %s", fe.Param())
	case "gt":
		return InvalidRange(field, "must be greater than %s", fe.Param())
	case "gte":
		return InvalidRange(field, "must be at least %s", fe.Param())
	case "lte":
		return InvalidRange(field, "must be at most %s", fe.Param())
	default:
		return InvalidFormat(field, "valid")
	}
}
