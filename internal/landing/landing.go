// Package landing serves the static landing page linking to the signup form.
package landing

import (
	"fmt"
	"html"
	"io"
	"net/http"

	"github.com/gabrielmiguelok/livesignup/internal/theme"
	"github.com/gabrielmiguelok/livesignup/internal/website"
	"github.com/gabrielmiguelok/livesignup/pkg/i18n"
)

// SignupPath is the target of the landing link.
const SignupPath = "/signup"

// Handler renders the landing page. It expects i18n.Middleware upstream;
// without it keys are shown untranslated.
func Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		loc := i18n.FromContext(r.Context())

		cfg := website.DefaultPageConfig()
		cfg.Title = loc.T("landing.title")
		cfg.Language = loc.Locale()
		cfg.Theme = string(theme.FromRequest(r))
		cfg.Path = r.URL.Path
		cfg.ThemeLabels = ThemeLabels(loc)

		body := fmt.Sprintf(`<main class="landing">
<h1>%s</h1>
<a class="btn btn-primary" href="%s">%s</a>
</main>`, html.EscapeString(loc.T("landing.title")), SignupPath, html.EscapeString(loc.T("landing.link")))

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, website.RenderDocument(cfg, "", body))
	})
}

// ThemeLabels returns the localized theme switcher labels.
func ThemeLabels(loc i18n.Localizer) map[string]string {
	return map[string]string{
		"label":  loc.T("theme.label"),
		"light":  loc.T("theme.light"),
		"dark":   loc.T("theme.dark"),
		"system": loc.T("theme.system"),
	}
}
