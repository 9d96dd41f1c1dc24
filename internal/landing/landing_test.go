package landing

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gabrielmiguelok/livesignup/internal/signup"
	"github.com/gabrielmiguelok/livesignup/internal/theme"
	"github.com/gabrielmiguelok/livesignup/pkg/i18n"
)

func serve(r *http.Request) *httptest.ResponseRecorder {
	h := i18n.Middleware(signup.NewTranslator("ko"), "")(Handler())
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestLanding(t *testing.T) {
	w := serve(httptest.NewRequest("GET", "/", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{
		`<a class="btn btn-primary" href="/signup">회원가입</a>`,
		`data-theme="system"`,
		`lang="ko"`,
		"시스템",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body lacks %q", want)
		}
	}
}

func TestLanding_ThemeCookieAndLocale(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.AddCookie(&http.Cookie{Name: theme.CookieName, Value: "dark"})
	r.Header.Set("Accept-Language", "en")

	body := serve(r).Body.String()
	if !strings.Contains(body, `data-theme="dark"`) {
		t.Error("theme cookie not applied")
	}
	if !strings.Contains(body, ">Sign up</a>") {
		t.Error("English link text missing")
	}
}

func TestLanding_NotFound(t *testing.T) {
	if w := serve(httptest.NewRequest("GET", "/missing", nil)); w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}
