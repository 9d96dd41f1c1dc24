package forms

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Schema is the set of per-field rules of one struct type. Rules come from
// the struct's validate tags and fields are named by their json tags, so the
// same struct validates as a whole and field by field.
type Schema struct {
	engine   *Engine
	fields   []string
	tags     map[string]string
	messages map[string]string
}

// NewSchema derives a schema from prototype, which must be a struct or a
// pointer to one. messages maps "field.tag" or "tag" to a message key.
func NewSchema(engine *Engine, prototype any, messages map[string]string) (*Schema, error) {
	t := reflect.TypeOf(prototype)
	if t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("forms: schema prototype must be a struct, got %T", prototype)
	}

	s := &Schema{
		engine:   engine,
		tags:     make(map[string]string),
		messages: make(map[string]string, len(messages)),
	}
	for k, v := range messages {
		s.messages[k] = v
	}

	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		name := strings.SplitN(sf.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			continue
		}
		if name == "" {
			name = sf.Name
		}
		s.fields = append(s.fields, name)
		s.tags[name] = sf.Tag.Get("validate")
	}

	return s, nil
}

// Fields returns the field names in declaration order.
func (s *Schema) Fields() []string {
	out := make([]string, len(s.fields))
	copy(out, s.fields)
	return out
}

// Has reports whether the schema declares field.
func (s *Schema) Has(field string) bool {
	_, ok := s.tags[field]
	return ok
}

// ValidateField checks one value. Rules run in tag order and the first
// failure is returned. Fields outside the schema carry no rules.
func (s *Schema) ValidateField(field, value string) *FieldError {
	fe := s.engine.Var(value, s.tags[field])
	if fe == nil {
		return nil
	}
	out := s.convert(field, fe)
	return &out
}

// Validate checks every schema field of values. Missing values validate as
// empty strings.
func (s *Schema) Validate(values map[string]string) Errors {
	errs := make(Errors)
	for _, name := range s.fields {
		if fe := s.ValidateField(name, values[name]); fe != nil {
			errs[name] = *fe
		}
	}
	return errs
}

// ValidateStruct checks a populated struct of the schema's type.
func (s *Schema) ValidateStruct(v any) (Errors, error) {
	verrs, err := s.engine.Struct(v)
	if err != nil {
		return nil, err
	}
	errs := make(Errors, len(verrs))
	for _, fe := range verrs {
		name := fe.Field()
		if _, seen := errs[name]; seen {
			continue
		}
		errs[name] = s.convert(name, fe)
	}
	return errs, nil
}

func (s *Schema) convert(field string, fe validator.FieldError) FieldError {
	return FieldError{
		Field:   field,
		Tag:     fe.Tag(),
		Param:   fe.Param(),
		Message: s.message(field, fe.Tag()),
	}
}

func (s *Schema) message(field, tag string) string {
	if m, ok := s.messages[field+"."+tag]; ok {
		return m
	}
	if m, ok := s.messages[tag]; ok {
		return m
	}
	return tag
}
