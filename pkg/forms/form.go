package forms

import (
	"encoding/json"
	"fmt"
)

// FieldState tracks one field of a live form.
type FieldState struct {
	Value string

	// Dirty is set while the value differs from its initial value.
	Dirty bool

	// Touched is set once the field lost focus.
	Touched bool

	// Checked is set once the field has been validated and its result
	// shown. Later changes revalidate immediately.
	Checked bool

	Err *FieldError
}

// Form holds the in-memory state of one form instance against a schema.
// It is not safe for concurrent use; a live view owns its form.
type Form struct {
	schema  *Schema
	initial map[string]string
	states  map[string]*FieldState
}

// NewForm creates an empty form. initial values are optional.
func NewForm(schema *Schema, initial map[string]string) *Form {
	f := &Form{
		schema:  schema,
		initial: make(map[string]string),
		states:  make(map[string]*FieldState),
	}
	for k, v := range initial {
		f.initial[k] = v
	}
	f.Reset()
	return f
}

// Schema returns the form's schema.
func (f *Form) Schema() *Schema {
	return f.schema
}

// Reset restores initial values and clears all flags and errors.
func (f *Form) Reset() {
	for _, name := range f.schema.Fields() {
		f.states[name] = &FieldState{Value: f.initial[name]}
	}
}

// Set stores a value. A field that was already checked is revalidated.
func (f *Form) Set(name, value string) error {
	st, ok := f.states[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	st.Value = value
	st.Dirty = value != f.initial[name]
	if st.Checked {
		st.Err = f.schema.ValidateField(name, value)
	}
	return nil
}

// Touch marks a field as blurred and validates it.
func (f *Form) Touch(name string) (*FieldError, error) {
	st, ok := f.states[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	st.Touched = true
	return f.check(name, st), nil
}

// Bind stores every known value of values. Unknown keys are ignored.
func (f *Form) Bind(values map[string]string) {
	for name, v := range values {
		if _, ok := f.states[name]; ok {
			_ = f.Set(name, v)
		}
	}
}

// Check validates the named fields, or every field when none are given,
// records the results and reports whether all passed.
func (f *Form) Check(names ...string) bool {
	if len(names) == 0 {
		names = f.schema.Fields()
	}
	ok := true
	for _, name := range names {
		st, known := f.states[name]
		if !known {
			ok = false
			continue
		}
		if f.check(name, st) != nil {
			ok = false
		}
	}
	return ok
}

func (f *Form) check(name string, st *FieldState) *FieldError {
	st.Checked = true
	st.Err = f.schema.ValidateField(name, st.Value)
	return st.Err
}

// Ready reports whether every named field is dirty and currently valid,
// without recording anything.
func (f *Form) Ready(names ...string) bool {
	for _, name := range names {
		st, ok := f.states[name]
		if !ok || !st.Dirty {
			return false
		}
		if f.schema.ValidateField(name, st.Value) != nil {
			return false
		}
	}
	return true
}

// State returns a copy of a field's state.
func (f *Form) State(name string) (FieldState, bool) {
	st, ok := f.states[name]
	if !ok {
		return FieldState{}, false
	}
	return *st, true
}

// Value returns a field's current value.
func (f *Form) Value(name string) string {
	if st, ok := f.states[name]; ok {
		return st.Value
	}
	return ""
}

// Values returns a copy of all current values.
func (f *Form) Values() map[string]string {
	out := make(map[string]string, len(f.states))
	for name, st := range f.states {
		out[name] = st.Value
	}
	return out
}

// Error returns the recorded error of a field, if any.
func (f *Form) Error(name string) *FieldError {
	if st, ok := f.states[name]; ok {
		return st.Err
	}
	return nil
}

// Errors returns all recorded errors.
func (f *Form) Errors() Errors {
	errs := make(Errors)
	for name, st := range f.states {
		if st.Err != nil {
			errs[name] = *st.Err
		}
	}
	return errs
}

// Decode copies the current values into dst, a pointer to a struct whose
// json tags match the schema.
func (f *Form) Decode(dst any) error {
	data, err := json.Marshal(f.Values())
	if err != nil {
		return fmt.Errorf("forms: encode values: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("forms: decode values: %w", err)
	}
	return nil
}
