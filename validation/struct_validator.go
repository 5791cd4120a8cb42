package validation

import (
	stderrors "errors"
	"reflect"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/kbukum/flowkit/errors"
)

// structs is shared; validator caches struct metadata per type.
var structs = sync.OnceValue(func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(fieldName)
	return v
})

// fieldName reports a field by its mapstructure or json key so messages
// name the same key a user wrote in YAML or JSON.
func fieldName(f reflect.StructField) string {
	for _, tag := range []string{"mapstructure", "json"} {
		name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
		if name != "" && name != "-" {
			return name
		}
	}
	return toSnakeCase(f.Name)
}

// Validate checks input that arrived from outside the process. Failures
// are INVALID_INPUT.
func Validate(s any) error {
	return check(s, errors.ErrCodeInvalidInput)
}

// ValidateConfig checks configuration. Failures are INVALID_CONFIG.
func ValidateConfig(s any) error {
	return check(s, errors.ErrCodeInvalidConfig)
}

func check(s any, code errors.ErrorCode) error {
	err := structs().Struct(s)
	if err == nil {
		return nil
	}
	var fails validator.ValidationErrors
	if !stderrors.As(err, &fails) {
		return newAppError(code, "validation failed: "+err.Error(), nil)
	}

	v := NewWithCode(code)
	for _, fe := range fails {
		v.AddError(fe.Field(), describe(fe))
	}
	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

var templates = map[string]string{
	"required": "is required",
	"min":      "must be at least %s",
	"gte":      "must be at least %s",
	"max":      "must be at most %s",
	"lte":      "must be at most %s",
	"gt":       "must be greater than %s",
	"oneof":    "must be one of: %s",
	"dive":     "contains an invalid element",
}

func describe(fe validator.FieldError) string {
	tmpl, ok := templates[fe.Tag()]
	if !ok {
		return "is invalid"
	}
	return strings.Replace(tmpl, "%s", fe.Param(), 1)
}

func toSnakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
