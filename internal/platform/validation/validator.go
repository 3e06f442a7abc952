// Package validation decodes JSON request bodies into typed values and checks
// their `validate` struct tags.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/oapi-codegen/nullable"

	"github.com/eilgug/profile-api/internal/apperr"
)

// Checker is implemented by payloads with rules that struct tags cannot
// express. It runs after the tag rules and its violations are appended.
type Checker interface {
	Check() []apperr.Violation
}

// Validator is safe for concurrent use. Build one at startup and share it.
type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonFieldName)

	// Unspecified and null values are reported as nil pointers so that
	// `omitempty` skips them; a present value is checked like a *T.
	v.RegisterCustomTypeFunc(nullableValue[string], nullable.Nullable[string]{})
	v.RegisterCustomTypeFunc(nullableValue[int], nullable.Nullable[int]{})
	v.RegisterCustomTypeFunc(nullableValue[bool], nullable.Nullable[bool]{})

	return &Validator{validate: v}
}

// Validate checks value against its tags. Violations come back as a single
// apperr Validation error listing every failing field in declaration order.
func (v *Validator) Validate(value any) error {
	var violations []apperr.Violation

	if isStruct(value) {
		err := v.validate.Struct(value)
		var fieldErrs validator.ValidationErrors
		switch {
		case err == nil:
		case errors.As(err, &fieldErrs):
			violations = make([]apperr.Violation, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				violations = append(violations, apperr.Violation{Field: fieldPath(fe), Rule: describe(fe)})
			}
		default:
			return apperr.Internal("request validation failed", err)
		}
	}

	if c, ok := value.(Checker); ok {
		violations = append(violations, c.Check()...)
	}
	if len(violations) > 0 {
		return apperr.Validation(violations)
	}
	return nil
}

func isStruct(value any) bool {
	rv := reflect.ValueOf(value)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return false
		}
		rv = rv.Elem()
	}
	return rv.Kind() == reflect.Struct
}

func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return f.Name
	default:
		return name
	}
}

func nullableValue[T any](field reflect.Value) any {
	n, ok := field.Interface().(nullable.Nullable[T])
	if !ok || !n.IsSpecified() || n.IsNull() {
		return (*T)(nil)
	}
	val := n.MustGet()
	return &val
}

// fieldPath drops the top-level struct name from the namespace, so nested
// fields read as "address.city".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return fe.Field()
}

func describe(fe validator.FieldError) string {
	param := fe.Param()
	isString := fe.Kind() == reflect.String

	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if isString {
			return fmt.Sprintf("length must be at least %s", param)
		}
		return fmt.Sprintf("must be at least %s", param)
	case "max":
		if isString {
			return fmt.Sprintf("length must be at most %s", param)
		}
		return fmt.Sprintf("must be at most %s", param)
	case "len":
		return fmt.Sprintf("length must be exactly %s", param)
	case "url", "http_url", "uri":
		return "must be a valid URL"
	case "email":
		return "must be a valid email address"
	case "uuid", "uuid4":
		return "must be a valid UUID"
	case "oneof":
		return "must be one of: " + strings.Join(strings.Fields(param), ", ")
	}
	if param != "" {
		return fmt.Sprintf("failed %s=%s", fe.Tag(), param)
	}
	return "failed " + fe.Tag()
}
