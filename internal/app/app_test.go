package app

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/gabrielmiguelok/livesignup/internal/config"
	"github.com/gabrielmiguelok/livesignup/internal/signup"
	"github.com/gabrielmiguelok/livesignup/pkg/audit"
	"github.com/gabrielmiguelok/livesignup/pkg/protocol"
)

type recordingHandoff struct {
	mu  sync.Mutex
	got []signup.Input
}

func (h *recordingHandoff) Accept(ctx context.Context, in signup.Input) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.got = append(h.got, in)
	return nil
}

func (h *recordingHandoff) inputs() []signup.Input {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]signup.Input(nil), h.got...)
}

func testConfig(t *testing.T, env map[string]string) *config.Config {
	t.Helper()

	base := map[string]string{"APP_ENV": "test", "RATE_LIMIT_RPS": "0"}
	for k, v := range env {
		base[k] = v
	}
	cfg, err := config.FromLookup(func(key string) string { return base[key] })
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	return cfg
}

func newServer(t *testing.T, cfg *config.Config, handoff signup.Handoff) (*App, *httptest.Server) {
	t.Helper()

	a, err := New(cfg, Deps{Handoff: handoff, Version: "test"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	srv := httptest.NewServer(a.Handler)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = a.Router.Sessions().CloseAll(ctx)
		srv.Close()
		_ = a.Close()
	})
	return a, srv
}

func get(t *testing.T, client *http.Client, url string, header http.Header) (*http.Response, string) {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatal(err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, string(body)
}

func TestApp_Landing(t *testing.T) {
	_, srv := newServer(t, testConfig(t, nil), nil)

	resp, body := get(t, srv.Client(), srv.URL+"/", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !strings.Contains(body, `href="/signup"`) || !strings.Contains(body, "회원가입") {
		t.Errorf("landing page missing signup link:\n%s", body)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}
	if resp.Header.Get("Content-Security-Policy") == "" {
		t.Error("missing Content-Security-Policy")
	}

	resp, _ = get(t, srv.Client(), srv.URL+"/nowhere", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown path status = %d", resp.StatusCode)
	}
}

func TestApp_SignupPage(t *testing.T) {
	_, srv := newServer(t, testConfig(t, nil), nil)

	resp, body := get(t, srv.Client(), srv.URL+SignupPath, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	for _, want := range []string{
		`<html lang="ko"`,
		"<title>계정을 생성합니다",
		`id="lv-root"`,
		`data-lv-path="/signup"`,
		`<script src="/_live/live.js" defer></script>`,
		`class="step is-active" data-step="1"`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("signup page missing %q", want)
		}
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "no-store" {
		t.Errorf("Cache-Control = %q", cc)
	}

	_, body = get(t, srv.Client(), srv.URL+SignupPath, http.Header{"Accept-Language": {"en-US,en;q=0.9"}})
	if !strings.Contains(body, `<html lang="en"`) || !strings.Contains(body, "Create an account") {
		t.Error("English page not negotiated from Accept-Language")
	}
}

func TestApp_ForcedLocale(t *testing.T) {
	_, srv := newServer(t, testConfig(t, map[string]string{"LOCALE": "en"}), nil)

	_, body := get(t, srv.Client(), srv.URL+SignupPath, http.Header{"Accept-Language": {"ko"}})
	if !strings.Contains(body, "Create an account") {
		t.Error("LOCALE=en did not override Accept-Language")
	}
}

func TestApp_Theme(t *testing.T) {
	_, srv := newServer(t, testConfig(t, nil), nil)

	client := srv.Client()
	client.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }

	resp, _ := get(t, client, srv.URL+"/theme?value=dark&next=/signup", nil)
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/signup" {
		t.Errorf("Location = %q", loc)
	}
	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "theme" {
			cookie = c
		}
	}
	if cookie == nil || cookie.Value != "dark" {
		t.Fatalf("theme cookie = %v", cookie)
	}

	_, body := get(t, client, srv.URL+SignupPath, http.Header{"Cookie": {cookie.Name + "=" + cookie.Value}})
	if !strings.Contains(body, `data-theme="dark"`) {
		t.Error("theme cookie not applied to the signup page")
	}
}

func TestApp_ClientScript(t *testing.T) {
	_, srv := newServer(t, testConfig(t, nil), nil)

	resp, body := get(t, srv.Client(), srv.URL+"/_live/live.js", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !strings.Contains(body, "phx_join") {
		t.Error("client script not served")
	}
}

func TestApp_HealthAndMetrics(t *testing.T) {
	_, srv := newServer(t, testConfig(t, nil), nil)

	for _, path := range []string{"/healthz", "/readyz", "/health"} {
		resp, _ := get(t, srv.Client(), srv.URL+path, nil)
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s status = %d", path, resp.StatusCode)
		}
	}

	get(t, srv.Client(), srv.URL+SignupPath, nil)
	_, body := get(t, srv.Client(), srv.URL+"/metrics", nil)
	if !strings.Contains(body, `livesignup_http_requests_total{`) {
		t.Errorf("metrics missing request counter:\n%s", body)
	}
	if !strings.Contains(body, "go_goroutines") {
		t.Error("metrics missing runtime collector")
	}
}

func TestApp_MetricsDisabled(t *testing.T) {
	_, srv := newServer(t, testConfig(t, map[string]string{"METRICS_ENABLED": "false"}), nil)

	resp, _ := get(t, srv.Client(), srv.URL+"/metrics", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestApp_RateLimit(t *testing.T) {
	_, srv := newServer(t, testConfig(t, map[string]string{"RATE_LIMIT_RPS": "1"}), nil)

	resp, _ := get(t, srv.Client(), srv.URL+"/", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("first status = %d", resp.StatusCode)
	}
	resp, _ = get(t, srv.Client(), srv.URL+"/", nil)
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("second status = %d, want 429", resp.StatusCode)
	}
}

type liveConn struct {
	t     *testing.T
	conn  *websocket.Conn
	codec protocol.Codec
	ref   int
}

func dialLive(t *testing.T, srv *httptest.Server) *liveConn {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + SignupPath
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.CloseNow() })

	codec, _ := protocol.CodecFor("")
	return &liveConn{t: t, conn: conn, codec: codec}
}

// push sends one event and returns its reply plus the HTML of the last
// render that preceded it, if any.
func (c *liveConn) push(event string, payload map[string]any) (*protocol.Message, string) {
	c.t.Helper()

	c.ref++
	ref := strings.Repeat("r", c.ref)
	data, err := c.codec.Encode(&protocol.Message{Ref: ref, Topic: "lv", Event: event, Payload: payload})
	if err != nil {
		c.t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.conn.Write(ctx, websocket.MessageText, data); err != nil {
		c.t.Fatalf("write %s: %v", event, err)
	}

	var html string
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			c.t.Fatalf("read after %s: %v", event, err)
		}
		msg, err := c.codec.Decode(data)
		if err != nil {
			c.t.Fatal(err)
		}
		switch {
		case msg.Event == protocol.EventRender:
			html, _ = msg.Payload["html"].(string)
		case msg.Event == protocol.EventReply && msg.Ref == ref:
			return msg, html
		}
	}
}

func replyStatus(msg *protocol.Message) string {
	s, _ := msg.Payload["status"].(string)
	return s
}

func TestApp_LiveSignupFlow(t *testing.T) {
	handoff := &recordingHandoff{}
	_, srv := newServer(t, testConfig(t, nil), handoff)
	c := dialLive(t, srv)

	reply, _ := c.push(protocol.EventJoin, nil)
	if replyStatus(reply) != protocol.StatusOK {
		t.Fatalf("join status = %q", replyStatus(reply))
	}
	resp, _ := reply.Payload["response"].(map[string]any)
	if html, _ := resp["html"].(string); !strings.Contains(html, `data-step="1"`) {
		t.Fatalf("join html missing step one:\n%s", html)
	}

	// Advancing before step one is filled is refused and shows errors.
	_, html := c.push(signup.EventNext, nil)
	if !strings.Contains(html, "field-error") || !strings.Contains(html, `class="step is-active" data-step="1"`) {
		t.Fatalf("empty next did not stay on step one with errors:\n%s", html)
	}

	for _, kv := range [][2]string{
		{signup.FieldName, "홍길동"},
		{signup.FieldEmail, "hello@devcamp.com"},
		{signup.FieldPhone, "01012345678"},
		{signup.FieldRole, signup.RoleUser},
	} {
		reply, _ := c.push(signup.EventChange, map[string]any{"field": kv[0], "value": kv[1]})
		if replyStatus(reply) != protocol.StatusOK {
			t.Fatalf("change %s status = %q", kv[0], replyStatus(reply))
		}
	}

	_, html = c.push(signup.EventNext, nil)
	if !strings.Contains(html, `class="step is-active" data-step="2"`) {
		t.Fatalf("next did not advance:\n%s", html)
	}

	reply, html = c.push(signup.EventSubmit, map[string]any{
		signup.FieldName:     "홍길동",
		signup.FieldEmail:    "hello@devcamp.com",
		signup.FieldPhone:    "01012345678",
		signup.FieldRole:     signup.RoleUser,
		signup.FieldPassword: "abc123!@",
		signup.FieldConfirm:  "abc123!@",
	})
	if replyStatus(reply) != protocol.StatusOK {
		t.Fatalf("submit status = %q", replyStatus(reply))
	}
	if !strings.Contains(html, `class="result"`) {
		t.Fatalf("submit did not render the result:\n%s", html)
	}

	got := handoff.inputs()
	if len(got) != 1 || got[0].Email != "hello@devcamp.com" || got[0].Role != signup.RoleUser {
		t.Errorf("handoff got %+v", got)
	}
}

func TestApp_LiveUnknownEvent(t *testing.T) {
	_, srv := newServer(t, testConfig(t, nil), nil)
	c := dialLive(t, srv)

	c.push(protocol.EventJoin, nil)
	reply, _ := c.push("explode", nil)
	if replyStatus(reply) != protocol.StatusError {
		t.Errorf("unknown event status = %q", replyStatus(reply))
	}
}

func TestNewLogger(t *testing.T) {
	var sb strings.Builder
	cfg := testConfig(t, map[string]string{"LOG_FORMAT": "json", "LOG_LEVEL": "debug"})

	logger, err := NewLogger(cfg, &sb)
	if err != nil {
		t.Fatal(err)
	}
	logger.Debug("hello")
	if !strings.Contains(sb.String(), `"msg":"hello"`) {
		t.Errorf("json log = %q", sb.String())
	}

	cfg.LogLevel = "loud"
	if _, err := NewLogger(cfg, &sb); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestOpenAudit(t *testing.T) {
	l, err := OpenAudit("")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := l.(audit.NopLogger); !ok {
		t.Errorf("OpenAudit(\"\") = %T", l)
	}

	path := filepath.Join(t.TempDir(), "audit.log")
	l, err = OpenAudit(path)
	if err != nil {
		t.Fatal(err)
	}
	l.Log(audit.Event{
		EventType: audit.EventSubmissionAccepted,
		Severity:  audit.SeverityInfo,
		Details:   map[string]any{"email": "a@b.co", "password": "abc123!@"},
	})
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), audit.EventSubmissionAccepted) {
		t.Errorf("audit file = %q", data)
	}
	if strings.Contains(string(data), "abc123!@") {
		t.Error("audit file contains a password")
	}
}
