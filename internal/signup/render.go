package signup

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/gabrielmiguelok/livesignup/pkg/core"
	"github.com/gabrielmiguelok/livesignup/pkg/forms"
)

// Presentation of every schema field. Labels and placeholders are i18n keys.
var (
	stepOneInputs = []forms.Field{
		forms.TextField(FieldName, "signup.label.name",
			forms.WithPlaceholder("signup.placeholder.name"),
			forms.WithAutocomplete("name")),
		forms.EmailField(FieldEmail, "signup.label.email",
			forms.WithPlaceholder("signup.placeholder.email")),
		forms.TelField(FieldPhone, "signup.label.phone",
			forms.WithPlaceholder("signup.placeholder.phone")),
		forms.SelectField(FieldRole, "signup.label.role", []forms.Option{
			{Value: RoleAdmin, Label: "signup.role.admin"},
			{Value: RoleUser, Label: "signup.role.user"},
		}, forms.WithPlaceholder("signup.placeholder.role")),
	}

	stepTwoInputs = []forms.Field{
		forms.PasswordField(FieldPassword, "signup.label.password"),
		forms.PasswordField(FieldConfirm, "signup.label.confirm"),
	}
)

// Render implements core.Component.
func (c *Live) Render(ctx context.Context) core.Renderer {
	return core.RendererFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, c.renderBody())
		return err
	})
}

// Title returns the localized page title.
func (c *Live) Title() string {
	return c.loc.T("signup.title")
}

// Lang returns the locale the component renders in.
func (c *Live) Lang() string {
	return c.loc.Locale()
}

func (c *Live) renderBody() string {
	var sb strings.Builder
	step := c.form.Step()

	sb.WriteString(`<main class="signup">` + "\n")
	sb.WriteString(`<section class="card">` + "\n")
	sb.WriteString(`<header class="card-header">` + "\n")
	sb.WriteString(fmt.Sprintf("<h1 class=\"card-title\">%s</h1>\n", c.text("signup.title")))
	sb.WriteString(fmt.Sprintf("<p class=\"card-description\">%s</p>\n", c.text("signup.description")))
	sb.WriteString("</header>\n")

	sb.WriteString(`<form class="card-body" lv-submit="submit" novalidate>` + "\n")
	sb.WriteString(`<div class="steps">` + "\n")
	sb.WriteString(c.renderStep(1, stepOneInputs, step == Step1Active, stepOneOffset(step)))
	sb.WriteString(c.renderStep(2, stepTwoInputs, step == Step2Active, stepTwoOffset(step)))
	sb.WriteString("</div>\n")

	if step == Step2Active {
		sb.WriteString(c.renderStepOneNotice())
	}
	sb.WriteString(`<div class="actions">` + "\n")
	if step == Step1Active {
		sb.WriteString(fmt.Sprintf("<button type=\"button\" class=\"btn btn-primary\" lv-click=\"next\">%s</button>\n",
			c.text("signup.button.next")))
	} else {
		sb.WriteString(fmt.Sprintf("<button type=\"submit\" class=\"btn btn-primary\">%s</button>\n",
			c.text("signup.button.submit")))
		sb.WriteString(fmt.Sprintf("<button type=\"button\" class=\"btn btn-ghost\" lv-click=\"back\">%s</button>\n",
			c.text("signup.button.back")))
	}
	sb.WriteString("</div>\n")
	sb.WriteString("</form>\n")
	sb.WriteString("</section>\n")

	if c.form.Mismatch() {
		sb.WriteString(c.renderToast())
	}
	if in, ok := c.form.Accepted(); ok {
		sb.WriteString(c.renderResult(in))
	}

	sb.WriteString("</main>\n")
	return sb.String()
}

// stepOneOffset and stepTwoOffset slide the groups side by side: the active
// group sits at 0%, the other one a full width away.
func stepOneOffset(s Step) int { return int(s) * -100 }

func stepTwoOffset(s Step) int { return (1 - int(s)) * 100 }

// renderStepOneNotice names the step-one fields whose errors are hidden
// behind the inactive group, so a failed submit on step two is not silent.
func (c *Live) renderStepOneNotice() string {
	var labels []string
	for _, f := range stepOneInputs {
		if c.form.Field(f.Name).Err != nil {
			labels = append(labels, c.text(f.Label))
		}
	}
	if len(labels) == 0 {
		return ""
	}
	return fmt.Sprintf("<p class=\"field-error step-notice\" role=\"alert\">%s: %s</p>\n",
		c.text("signup.step_one.invalid"), strings.Join(labels, ", "))
}

func (c *Live) renderStep(n int, fields []forms.Field, active bool, offset int) string {
	var sb strings.Builder

	class := "step"
	if active {
		class += " is-active"
	}
	inert := ""
	if !active {
		inert = ` inert aria-hidden="true"`
	}
	sb.WriteString(fmt.Sprintf("<fieldset class=\"%s\" data-step=\"%d\" style=\"transform: translateX(%d%%)\"%s>\n",
		class, n, offset, inert))
	for _, f := range fields {
		sb.WriteString(c.renderField(f))
	}
	sb.WriteString("</fieldset>\n")
	return sb.String()
}

func (c *Live) renderField(f forms.Field) string {
	var sb strings.Builder
	st := c.form.Field(f.Name)
	id := "signup-" + f.Name
	errID := id + "-error"

	invalid := ""
	if st.Err != nil {
		invalid = fmt.Sprintf(` aria-invalid="true" aria-describedby="%s"`, errID)
	}

	sb.WriteString(`<div class="field">` + "\n")
	sb.WriteString(fmt.Sprintf("<label for=\"%s\">%s</label>\n", id, c.text(f.Label)))

	if f.IsSelect() {
		sb.WriteString(fmt.Sprintf("<select id=\"%s\" name=\"%s\" lv-change=\"change\" lv-blur=\"blur\"%s>\n",
			id, f.Name, invalid))
		selected := ""
		if st.Value == "" {
			selected = " selected"
		}
		sb.WriteString(fmt.Sprintf("<option value=\"\" disabled%s>%s</option>\n", selected, c.text(f.Placeholder)))
		for _, opt := range f.Options {
			selected = ""
			if opt.Value == st.Value {
				selected = " selected"
			}
			sb.WriteString(fmt.Sprintf("<option value=\"%s\"%s>%s</option>\n",
				html.EscapeString(opt.Value), selected, c.text(opt.Label)))
		}
		sb.WriteString("</select>\n")
	} else {
		var attrs strings.Builder
		if f.Placeholder != "" {
			attrs.WriteString(fmt.Sprintf(` placeholder="%s"`, c.text(f.Placeholder)))
		}
		if f.Autocomplete != "" {
			attrs.WriteString(fmt.Sprintf(` autocomplete="%s"`, f.Autocomplete))
		}
		if f.InputMode != "" {
			attrs.WriteString(fmt.Sprintf(` inputmode="%s"`, f.InputMode))
		}
		// Secrets are never echoed into markup; the browser keeps them.
		if f.Type != forms.FieldPassword {
			attrs.WriteString(fmt.Sprintf(` value="%s"`, html.EscapeString(st.Value)))
		}
		sb.WriteString(fmt.Sprintf("<input id=\"%s\" name=\"%s\" type=\"%s\"%s lv-change=\"change\" lv-blur=\"blur\"%s>\n",
			id, f.Name, f.Type, attrs.String(), invalid))
	}

	if st.Err != nil {
		sb.WriteString(fmt.Sprintf("<p class=\"field-error\" id=\"%s\">%s</p>\n", errID, c.text(st.Err.Message)))
	}
	sb.WriteString("</div>\n")
	return sb.String()
}

func (c *Live) renderToast() string {
	return fmt.Sprintf(`<div class="toast toast-destructive" role="alert">
<p class="toast-title">%s</p>
<button type="button" class="toast-close" lv-click="dismiss_toast" aria-label="%s">&times;</button>
</div>
`, c.text("signup.password.mismatch"), c.text("signup.button.close"))
}

func (c *Live) renderResult(in Input) string {
	data, err := json.MarshalIndent(in, "", "  ")
	if err != nil {
		data = []byte(err.Error())
	}
	return fmt.Sprintf(`<div class="result" role="dialog" aria-modal="true">
<h2>%s</h2>
<pre>%s</pre>
<button type="button" class="btn btn-primary" lv-click="dismiss_result">%s</button>
</div>
`, c.text("signup.result.title"), html.EscapeString(string(data)), c.text("signup.button.close"))
}

func (c *Live) text(key string) string {
	return html.EscapeString(c.loc.T(key))
}
