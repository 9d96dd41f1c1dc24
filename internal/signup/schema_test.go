package signup

import "testing"

func validValues() map[string]string {
	return map[string]string{
		FieldName:     "홍길동",
		FieldEmail:    "hello@devcamp.com",
		FieldPhone:    "01012345678",
		FieldRole:     RoleUser,
		FieldPassword: "abc123!@",
		FieldConfirm:  "abc123!@",
	}
}

func TestSchema_ValidInputPassesEveryField(t *testing.T) {
	schema := MustSchema()

	for name, value := range validValues() {
		if fe := schema.ValidateField(name, value); fe != nil {
			t.Errorf("ValidateField(%q, %q) = %v, want nil", name, value, fe)
		}
	}

	if errs := schema.Validate(validValues()); len(errs) != 0 {
		t.Errorf("Validate() = %v, want no errors", errs)
	}

	in := Input{
		Name: "홍길동", Email: "hello@devcamp.com", Phone: "01012345678",
		Role: RoleAdmin, Password: "abc123!@", Confirm: "abc123!@",
	}
	errs, err := schema.ValidateStruct(in)
	if err != nil {
		t.Fatalf("ValidateStruct() error = %v", err)
	}
	if len(errs) != 0 {
		t.Errorf("ValidateStruct() = %v, want no errors", errs)
	}
}

func TestSchema_FieldRules(t *testing.T) {
	schema := MustSchema()

	tests := []struct {
		field string
		value string
		key   string
	}{
		{FieldName, "", "signup.name.min"},
		{FieldName, "홍", "signup.name.min"},
		{FieldName, "홍길", ""},
		{FieldEmail, "", "signup.email.invalid"},
		{FieldEmail, "hello", "signup.email.invalid"},
		{FieldPhone, "123", "signup.phone.length"},
		{FieldPhone, "010123456789", "signup.phone.length"},
		{FieldPhone, "01112345678", "signup.phone.pattern"},
		{FieldPhone, "010-1234-56", "signup.phone.pattern"},
		{FieldPhone, "01012345678", ""},
		{FieldRole, "", "signup.role.required"},
		{FieldRole, "owner", "signup.role.required"},
		{FieldRole, RoleAdmin, ""},
		{FieldPassword, "", "signup.password.min"},
		{FieldPassword, "ab1!", "signup.password.min"},
		{FieldPassword, "abcdefgh", "signup.password.pattern"},
		{FieldPassword, "abcd1234", "signup.password.pattern"},
		{FieldPassword, "abcd!@#$", "signup.password.pattern"},
		{FieldPassword, "abc 123!@", "signup.password.pattern"},
		{FieldPassword, "abc123!#", "signup.password.pattern"},
		{FieldPassword, "different1!", ""},
		{FieldConfirm, "short1!", "signup.password.min"},
		{FieldConfirm, "Passw0rd?", ""},
	}

	for _, tt := range tests {
		t.Run(tt.field+"/"+tt.value, func(t *testing.T) {
			fe := schema.ValidateField(tt.field, tt.value)
			if tt.key == "" {
				if fe != nil {
					t.Errorf("got error %q, want valid", fe.Message)
				}
				return
			}
			if fe == nil {
				t.Fatalf("got valid, want %q", tt.key)
			}
			if fe.Message != tt.key {
				t.Errorf("Message = %q, want %q", fe.Message, tt.key)
			}
		})
	}
}

func TestIsPassword(t *testing.T) {
	tests := map[string]bool{
		"abc123!@":  true,
		"A1&aaaaa":  true,
		"abc123!":   false,
		"12345678!": false,
		"비밀번호123!@": false,
	}
	for in, want := range tests {
		if got := IsPassword(in); got != want {
			t.Errorf("IsPassword(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestCataloguesCoverEveryMessageKey(t *testing.T) {
	for _, key := range messageKeys {
		if _, ok := Korean[key]; !ok {
			t.Errorf("Korean catalogue lacks %q", key)
		}
		if _, ok := English[key]; !ok {
			t.Errorf("English catalogue lacks %q", key)
		}
	}
	for key := range Korean {
		if _, ok := English[key]; !ok {
			t.Errorf("English catalogue lacks %q", key)
		}
	}
}
