package theme

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Preference
		ok   bool
	}{
		{"light", Light, true},
		{" Dark ", Dark, true},
		{"system", System, true},
		{"", "", false},
		{"sepia", "", false},
	}
	for _, tt := range tests {
		got, ok := Parse(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Parse(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestFromRequest(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	if got := FromRequest(r); got != System {
		t.Errorf("no cookie: got %q, want system", got)
	}

	r.AddCookie(&http.Cookie{Name: CookieName, Value: "dark"})
	if got := FromRequest(r); got != Dark {
		t.Errorf("dark cookie: got %q", got)
	}

	r = httptest.NewRequest("GET", "/", nil)
	r.AddCookie(&http.Cookie{Name: CookieName, Value: "neon"})
	if got := FromRequest(r); got != System {
		t.Errorf("bad cookie: got %q, want system", got)
	}
}

func TestHandler(t *testing.T) {
	h := Handler(false)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/theme?value=dark&next=/signup", nil))

	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/signup" {
		t.Errorf("Location = %q, want /signup", loc)
	}
	cookies := w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != CookieName || cookies[0].Value != "dark" {
		t.Errorf("cookies = %v", cookies)
	}
	if !cookies[0].HttpOnly {
		t.Error("cookie should be HttpOnly")
	}
}

func TestHandler_Rejects(t *testing.T) {
	h := Handler(false)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/theme?value=neon", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown theme: status = %d, want 400", w.Code)
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("POST", "/theme?value=dark", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST: status = %d, want 405", w.Code)
	}
}

func TestSafeNext(t *testing.T) {
	tests := map[string]string{
		"/signup":            "/signup",
		"":                   "/",
		"https://evil.test/": "/",
		"//evil.test/":       "/",
		`/\evil.test`:        "/",
		"signup":             "/",
	}
	for in, want := range tests {
		if got := SafeNext(in); got != want {
			t.Errorf("SafeNext(%q) = %q, want %q", in, got, want)
		}
	}
}
