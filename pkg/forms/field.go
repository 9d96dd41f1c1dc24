package forms

// FieldType identifies the HTML input type of a form field.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldEmail    FieldType = "email"
	FieldPassword FieldType = "password"
	FieldTel      FieldType = "tel"
	FieldSelect   FieldType = "select"
)

// Field describes how a schema field is presented. Label, Placeholder and
// Option labels are message keys, translated at render time.
type Field struct {
	// Name matches the schema field name.
	Name string

	Type FieldType

	Label string

	Placeholder string

	// Options are the choices of a select field.
	Options []Option

	// Autocomplete is the HTML autocomplete hint.
	Autocomplete string

	// InputMode is the HTML inputmode hint.
	InputMode string
}

// Option represents a select option.
type Option struct {
	Value string
	Label string
}

// FieldOption configures a Field.
type FieldOption func(*Field)

// NewField creates a new field.
func NewField(name string, fieldType FieldType, label string, opts ...FieldOption) Field {
	f := Field{
		Name:  name,
		Type:  fieldType,
		Label: label,
	}
	for _, opt := range opts {
		opt(&f)
	}
	return f
}

// WithPlaceholder sets the placeholder.
func WithPlaceholder(placeholder string) FieldOption {
	return func(f *Field) {
		f.Placeholder = placeholder
	}
}

// WithAutocomplete sets the autocomplete attribute.
func WithAutocomplete(value string) FieldOption {
	return func(f *Field) {
		f.Autocomplete = value
	}
}

// WithInputMode sets the inputmode attribute.
func WithInputMode(mode string) FieldOption {
	return func(f *Field) {
		f.InputMode = mode
	}
}

// TextField creates a text field.
func TextField(name, label string, opts ...FieldOption) Field {
	return NewField(name, FieldText, label, opts...)
}

// EmailField creates an email field.
func EmailField(name, label string, opts ...FieldOption) Field {
	opts = append([]FieldOption{WithAutocomplete("email")}, opts...)
	return NewField(name, FieldEmail, label, opts...)
}

// TelField creates a telephone field.
func TelField(name, label string, opts ...FieldOption) Field {
	opts = append([]FieldOption{WithAutocomplete("tel"), WithInputMode("numeric")}, opts...)
	return NewField(name, FieldTel, label, opts...)
}

// PasswordField creates a password field.
func PasswordField(name, label string, opts ...FieldOption) Field {
	opts = append([]FieldOption{WithAutocomplete("new-password")}, opts...)
	return NewField(name, FieldPassword, label, opts...)
}

// SelectField creates a select field.
func SelectField(name, label string, options []Option, opts ...FieldOption) Field {
	f := NewField(name, FieldSelect, label, opts...)
	f.Options = options
	return f
}

// IsSelect reports whether the field renders as a select element.
func (f Field) IsSelect() bool {
	return f.Type == FieldSelect
}
