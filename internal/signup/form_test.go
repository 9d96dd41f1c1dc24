package signup

import (
	"errors"
	"testing"
)

func fillStepOne(t *testing.T, f *Form, values map[string]string) {
	t.Helper()
	for _, name := range StepOneFields {
		if err := f.Change(name, values[name]); err != nil {
			t.Fatalf("Change(%q) error = %v", name, err)
		}
		if _, err := f.Blur(name); err != nil {
			t.Fatalf("Blur(%q) error = %v", name, err)
		}
	}
}

func advancedForm(t *testing.T) *Form {
	t.Helper()
	f := NewForm(MustSchema())
	fillStepOne(t, f, validValues())
	if advanced, err := f.Next(); err != nil || !advanced {
		t.Fatalf("Next() = %v, %v", advanced, err)
	}
	return f
}

func TestForm_ChangeValidatesOnlyAfterBlur(t *testing.T) {
	f := NewForm(MustSchema())

	if err := f.Change(FieldName, "홍"); err != nil {
		t.Fatal(err)
	}
	if st := f.Field(FieldName); !st.Dirty || st.Err != nil {
		t.Errorf("after change: dirty=%v err=%v, want dirty and no error", st.Dirty, st.Err)
	}

	fe, err := f.Blur(FieldName)
	if err != nil {
		t.Fatal(err)
	}
	if fe == nil || fe.Message != "signup.name.min" {
		t.Fatalf("Blur() = %v, want signup.name.min", fe)
	}

	// Checked fields revalidate on every change.
	if err := f.Change(FieldName, "홍길동"); err != nil {
		t.Fatal(err)
	}
	if st := f.Field(FieldName); st.Err != nil {
		t.Errorf("error not cleared after valid change: %v", st.Err)
	}
}

func TestForm_ChangeUnknownField(t *testing.T) {
	f := NewForm(MustSchema())
	if err := f.Change("nickname", "x"); err == nil {
		t.Error("Change() on unknown field should fail")
	}
}

func TestForm_NextRefusedWhenStepOneIncomplete(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(map[string]string)
		field  string
	}{
		{"empty name", func(v map[string]string) { v[FieldName] = "" }, FieldName},
		{"short name", func(v map[string]string) { v[FieldName] = "홍" }, FieldName},
		{"bad email", func(v map[string]string) { v[FieldEmail] = "hello" }, FieldEmail},
		{"short phone", func(v map[string]string) { v[FieldPhone] = "123" }, FieldPhone},
		{"wrong prefix", func(v map[string]string) { v[FieldPhone] = "01912345678" }, FieldPhone},
		{"no role", func(v map[string]string) { v[FieldRole] = "" }, FieldRole},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewForm(MustSchema())
			values := validValues()
			tt.mutate(values)
			fillStepOne(t, f, values)

			_, err := f.Next()
			if !errors.Is(err, ErrStepIncomplete) {
				t.Fatalf("Next() error = %v, want ErrStepIncomplete", err)
			}
			if f.Step() != Step1Active {
				t.Errorf("step = %v, want step1", f.Step())
			}
			if !f.Errors().Has(tt.field) {
				t.Errorf("errors %v lack %q", f.Errors(), tt.field)
			}
		})
	}
}

func TestForm_NextOnPristineFormShowsEveryStepOneError(t *testing.T) {
	f := NewForm(MustSchema())

	if _, err := f.Next(); !errors.Is(err, ErrStepIncomplete) {
		t.Fatalf("Next() error = %v, want ErrStepIncomplete", err)
	}
	for _, name := range StepOneFields {
		if !f.Errors().Has(name) {
			t.Errorf("expected eager error on %q", name)
		}
	}
	for _, name := range StepTwoFields {
		if f.Errors().Has(name) {
			t.Errorf("step two field %q should not be validated by next", name)
		}
	}
}

func TestForm_NextAdvancesOncePerClick(t *testing.T) {
	f := advancedForm(t)

	if f.Step() != Step2Active {
		t.Fatalf("step = %v, want step2", f.Step())
	}
	if advanced, err := f.Next(); err != nil || advanced {
		t.Errorf("Next() on step two = %v, %v, want no transition", advanced, err)
	}
	if f.Step() != Step2Active {
		t.Errorf("step = %v, want step2", f.Step())
	}

	f.Back()
	if f.Step() != Step1Active {
		t.Fatalf("Back() left step = %v", f.Step())
	}
	if advanced, err := f.Next(); err != nil || !advanced || f.Step() != Step2Active {
		t.Errorf("Next() after back: advanced=%v err=%v step=%v", advanced, err, f.Step())
	}
}

func TestForm_SubmitAccepted(t *testing.T) {
	f := advancedForm(t)

	in, err := f.Submit(validValues())
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	want := Input{
		Name: "홍길동", Email: "hello@devcamp.com", Phone: "01012345678",
		Role: RoleUser, Password: "abc123!@", Confirm: "abc123!@",
	}
	if in != want {
		t.Errorf("Submit() = %+v, want %+v", in, want)
	}
	if len(f.Errors()) != 0 {
		t.Errorf("errors after accept: %v", f.Errors())
	}
	if f.Mismatch() {
		t.Error("mismatch notice shown on accept")
	}
	if got, ok := f.Accepted(); !ok || got != want {
		t.Errorf("Accepted() = %+v, %v", got, ok)
	}
	if f.Step() != Step2Active {
		t.Errorf("submit changed step to %v", f.Step())
	}
	if f.Field(FieldName).Value != "홍길동" {
		t.Error("fields were cleared after submit")
	}

	f.DismissResult()
	if _, ok := f.Accepted(); ok {
		t.Error("result still showing after dismiss")
	}
}

func TestForm_SubmitPasswordMismatch(t *testing.T) {
	f := advancedForm(t)
	values := validValues()
	values[FieldConfirm] = "different1!"

	_, err := f.Submit(values)
	if !errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("Submit() error = %v, want ErrPasswordMismatch", err)
	}
	if f.Step() != Step2Active {
		t.Errorf("step = %v, want step2", f.Step())
	}
	if !f.Mismatch() {
		t.Error("mismatch notice not shown")
	}
	if _, ok := f.Accepted(); ok {
		t.Error("mismatched input was accepted")
	}
	if f.Field(FieldConfirm).Value != "different1!" || f.Field(FieldPassword).Value != "abc123!@" {
		t.Error("fields were cleared after mismatch")
	}

	f.DismissMismatch()
	if f.Mismatch() {
		t.Error("notice still shown after dismiss")
	}
}

func TestForm_SubmitInvalidField(t *testing.T) {
	f := advancedForm(t)
	values := validValues()
	values[FieldPassword] = "short"
	values[FieldConfirm] = "short"

	_, err := f.Submit(values)
	var invalid *FieldInvalidError
	if !errors.As(err, &invalid) {
		t.Fatalf("Submit() error = %v, want *FieldInvalidError", err)
	}
	if !invalid.Errors.Has(FieldPassword) || !invalid.Errors.Has(FieldConfirm) {
		t.Errorf("errors = %v, want password and confirm", invalid.Errors)
	}
	if f.Mismatch() {
		t.Error("invalid fields must not raise the mismatch notice")
	}
}

func TestForm_FailedSubmitDropsEarlierResult(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(map[string]string)
	}{
		{"invalid field", func(v map[string]string) { v[FieldEmail] = "hello" }},
		{"password mismatch", func(v map[string]string) { v[FieldConfirm] = "different1!" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := advancedForm(t)
			if _, err := f.Submit(validValues()); err != nil {
				t.Fatalf("first Submit() error = %v", err)
			}

			values := validValues()
			tt.mutate(values)
			if _, err := f.Submit(values); err == nil {
				t.Fatal("second Submit() should fail")
			}
			if _, ok := f.Accepted(); ok {
				t.Error("earlier result still showing after a failed submit")
			}
		})
	}
}

func TestForm_SubmitUnreachableOnStepOne(t *testing.T) {
	f := NewForm(MustSchema())

	_, err := f.Submit(validValues())
	if !errors.Is(err, ErrSubmitUnreachable) {
		t.Fatalf("Submit() error = %v, want ErrSubmitUnreachable", err)
	}
	if f.Step() != Step1Active {
		t.Errorf("step = %v, want step1", f.Step())
	}
	if _, ok := f.Accepted(); ok {
		t.Error("input accepted from step one")
	}
}
