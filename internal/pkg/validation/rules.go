package validation

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/yigit/tuitiontrack/internal/domain"
)

// Validation rule patterns
var (
	// Phone numbers are exactly ten digits, no country code.
	PhonePattern = `^\d{10}$`

	// Person names are Unicode letters and spaces. Combining marks are allowed
	// so Indic vowel signs pass.
	PersonNamePattern = `^[\p{L}\p{M} ]+$`

	NameMinLength = 2
	NameMaxLength = 100
)

// CompiledPatterns caches compiled regex patterns
var CompiledPatterns = struct {
	Phone      *regexp.Regexp
	PersonName *regexp.Regexp
}{
	Phone:      regexp.MustCompile(PhonePattern),
	PersonName: regexp.MustCompile(PersonNamePattern),
}

// IsPhone reports a ten digit number.
func IsPhone(s string) bool {
	return CompiledPatterns.Phone.MatchString(s)
}

// IsPersonName reports letters and spaces with at least one letter.
func IsPersonName(s string) bool {
	return strings.TrimSpace(s) != "" && CompiledPatterns.PersonName.MatchString(s)
}

// RegisterRules adds the custom tags used by the form DTOs:
// phone10, personname, hhmm and weekdays.
func RegisterRules(v *validator.Validate) error {
	rules := map[string]validator.Func{
		"phone10": func(fl validator.FieldLevel) bool {
			return IsPhone(fl.Field().String())
		},
		"personname": func(fl validator.FieldLevel) bool {
			return IsPersonName(fl.Field().String())
		},
		"hhmm": func(fl validator.FieldLevel) bool {
			_, err := domain.ParseClockTime(fl.Field().String())
			return err == nil
		},
		"weekdays": func(fl validator.FieldLevel) bool {
			codes, ok := fl.Field().Interface().([]string)
			if !ok {
				_, err := domain.ParseDaySet(fl.Field().String())
				return err == nil
			}
			_, err := domain.DaySetFromCodes(codes)
			return err == nil
		},
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("register %s: %w", tag, err)
		}
	}
	return nil
}

// FieldMessage turns a failed rule into the sentence shown next to the form
// field.
func FieldMessage(label string, e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return label + " is required"
	case "min":
		if e.Kind() != reflect.String {
			return label + " is required"
		}
		return fmt.Sprintf("%s must be at least %s characters", label, e.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", label, e.Param())
	case "len":
		return fmt.Sprintf("%s must be %s characters", label, e.Param())
	case "phone10":
		return label + " must be a 10-digit number"
	case "personname":
		return label + " can only contain letters and spaces"
	case "hhmm":
		return label + " must be in HH:MM format"
	case "weekdays":
		return label + " contains an unknown weekday"
	case "datetime":
		return label + " must be a date (YYYY-MM-DD)"
	case "url":
		return label + " must be a valid link"
	case "oneof":
		return label + " must be one of: " + e.Param()
	case "numeric":
		return label + " must contain digits only"
	default:
		return label + " is invalid"
	}
}

// StringValidation is a small builder for checks done outside form binding.
type StringValidation struct {
	Value    string
	MinLen   int
	MaxLen   int
	Required bool
	Pattern  *regexp.Regexp
}

// NewStringValidation creates a new string validation
func NewStringValidation(value string) *StringValidation {
	return &StringValidation{
		Value:    value,
		Required: true,
	}
}

// WithMinLength sets minimum length in characters
func (v *StringValidation) WithMinLength(min int) *StringValidation {
	v.MinLen = min
	return v
}

// WithMaxLength sets maximum length in characters
func (v *StringValidation) WithMaxLength(max int) *StringValidation {
	v.MaxLen = max
	return v
}

// WithPattern sets regex pattern
func (v *StringValidation) WithPattern(pattern *regexp.Regexp) *StringValidation {
	v.Pattern = pattern
	return v
}

// WithRequired sets if field is required
func (v *StringValidation) WithRequired(required bool) *StringValidation {
	v.Required = required
	return v
}

// Validate performs validation
func (v *StringValidation) Validate() bool {
	if v.Required && v.Value == "" {
		return false
	}
	if !v.Required && v.Value == "" {
		return true
	}

	n := utf8.RuneCountInString(v.Value)
	if v.MinLen > 0 && n < v.MinLen {
		return false
	}
	if v.MaxLen > 0 && n > v.MaxLen {
		return false
	}
	if v.Pattern != nil && !v.Pattern.MatchString(v.Value) {
		return false
	}
	return true
}
