package signup

import (
	"errors"
	"fmt"

	"github.com/gabrielmiguelok/livesignup/pkg/forms"
)

var (
	// ErrPasswordMismatch is returned by Submit when password and confirm
	// are both valid but differ.
	ErrPasswordMismatch = errors.New("signup: password confirmation does not match")

	// ErrStepIncomplete is returned by Next when a step-one field is
	// untouched or invalid.
	ErrStepIncomplete = errors.New("signup: step one is incomplete")

	// ErrSubmitUnreachable is returned by Submit outside Step2Active.
	ErrSubmitUnreachable = errors.New("signup: submit is only available on step two")
)

// FieldInvalidError reports the fields that failed validation on submit.
type FieldInvalidError struct {
	Errors forms.Errors
}

func (e *FieldInvalidError) Error() string {
	return "signup: invalid fields: " + e.Errors.Error()
}

// Form is the state of one signup form: field values and errors, the active
// step, the mismatch notice and the last accepted input. It is owned by a
// single live component and is not safe for concurrent use.
type Form struct {
	fields   *forms.Form
	stepper  Stepper
	mismatch bool
	accepted *Input
}

// NewForm returns an empty form in Step1Active.
func NewForm(schema *forms.Schema) *Form {
	return &Form{fields: forms.NewForm(schema, nil)}
}

// Step returns the active step.
func (f *Form) Step() Step {
	return f.stepper.Current()
}

// Change stores a value typed into field. The field is revalidated only if
// it was validated before.
func (f *Form) Change(field, value string) error {
	return f.fields.Set(field, value)
}

// Blur marks field as touched and validates it.
func (f *Form) Blur(field string) (*forms.FieldError, error) {
	return f.fields.Touch(field)
}

// Next advances to Step2Active when every step-one field is dirty and valid
// and reports whether the step changed. Otherwise the step is unchanged,
// every step-one field is validated so its error shows, and
// ErrStepIncomplete is returned. Next on step two is a no-op.
func (f *Form) Next() (bool, error) {
	if f.stepper.Current() != Step1Active {
		return false, nil
	}
	if f.stepper.Advance(f.fields.Ready(StepOneFields...)) {
		return true, nil
	}
	f.fields.Check(StepOneFields...)
	return false, ErrStepIncomplete
}

// Back returns to Step1Active.
func (f *Form) Back() {
	f.stepper.Back()
}

// Submit binds values over the current state and validates every field.
// It fails with *FieldInvalidError when any field is invalid and with
// ErrPasswordMismatch when password and confirm differ. On success the input
// is recorded as accepted and returned; any earlier accepted input is
// dropped first. Fields and step are never reset.
func (f *Form) Submit(values map[string]string) (Input, error) {
	if f.stepper.Current() != Step2Active {
		return Input{}, ErrSubmitUnreachable
	}
	f.accepted = nil

	f.fields.Bind(values)
	if !f.fields.Check() {
		return Input{}, &FieldInvalidError{Errors: f.fields.Errors()}
	}

	if f.fields.Value(FieldPassword) != f.fields.Value(FieldConfirm) {
		f.mismatch = true
		return Input{}, ErrPasswordMismatch
	}

	var in Input
	if err := f.fields.Decode(&in); err != nil {
		return Input{}, fmt.Errorf("signup: decode input: %w", err)
	}
	f.mismatch = false
	f.accepted = &in
	return in, nil
}

// Field returns the state of one field.
func (f *Form) Field(name string) forms.FieldState {
	st, _ := f.fields.State(name)
	return st
}

// Values returns every current value.
func (f *Form) Values() map[string]string {
	return f.fields.Values()
}

// Errors returns the errors currently shown.
func (f *Form) Errors() forms.Errors {
	return f.fields.Errors()
}

// Mismatch reports whether the password mismatch notice is showing.
func (f *Form) Mismatch() bool {
	return f.mismatch
}

// DismissMismatch hides the password mismatch notice.
func (f *Form) DismissMismatch() {
	f.mismatch = false
}

// Accepted returns the last accepted input while the result is showing.
func (f *Form) Accepted() (Input, bool) {
	if f.accepted == nil {
		return Input{}, false
	}
	return *f.accepted, true
}

// DismissResult hides the accepted input.
func (f *Form) DismissResult() {
	f.accepted = nil
}
