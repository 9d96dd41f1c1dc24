package forms

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrUnknownField is returned when a value is bound to a field the schema
// does not declare.
var ErrUnknownField = errors.New("forms: unknown field")

// FieldError is a failed rule on one field.
type FieldError struct {
	Field string

	// Tag is the validator tag that failed, e.g. "min" or "email".
	Tag string

	Param string

	// Message is the message key for the failure.
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Errors maps field names to their first failing rule.
type Errors map[string]FieldError

func (e Errors) Error() string {
	parts := make([]string, 0, len(e))
	for _, name := range e.Fields() {
		parts = append(parts, e[name].Error())
	}
	return strings.Join(parts, "; ")
}

// Has reports whether field failed.
func (e Errors) Has(field string) bool {
	_, ok := e[field]
	return ok
}

// Fields returns the failing field names in sorted order.
func (e Errors) Fields() []string {
	names := make([]string, 0, len(e))
	for name := range e {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Engine evaluates validation tags. It owns one validator instance so parsed
// tags are cached across calls. Register custom rules before first use.
type Engine struct {
	validate *validator.Validate
}

// NewEngine creates an engine that reports struct fields by their json name.
func NewEngine() *Engine {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	return &Engine{validate: v}
}

// RegisterFunc adds a custom tag backed by a string predicate.
func (e *Engine) RegisterFunc(tag string, fn func(string) bool) error {
	err := e.validate.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
		return fn(fl.Field().String())
	})
	if err != nil {
		return fmt.Errorf("forms: register %q: %w", tag, err)
	}
	return nil
}

// Var validates a single value against a tag list. It returns the first
// failing rule, or nil.
func (e *Engine) Var(value string, tags string) validator.FieldError {
	if tags == "" {
		return nil
	}
	err := e.validate.Var(value, tags)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return verrs[0]
	}
	return nil
}

// Struct validates a tagged struct and returns the raw validator failures.
func (e *Engine) Struct(v any) (validator.ValidationErrors, error) {
	err := e.validate.Struct(v)
	if err == nil {
		return nil, nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return verrs, nil
	}
	return nil, fmt.Errorf("forms: validate struct: %w", err)
}
