// Package validation validates configuration and external input.
//
// Struct tag validation uses go-playground/validator; programmatic
// validation collects field errors and converts them to a single AppError.
//
// # Struct Tag Validation
//
//	type Options struct {
//	    MaxParallelism int `validate:"gte=1"`
//	}
//	err := validation.ValidateConfig(opts)
//
// # Programmatic Validation
//
//	v := validation.New()
//	v.Required("stages[0].name", name)
//	err := v.Validate()
package validation
