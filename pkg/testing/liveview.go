// Package testing drives live components without a browser or a WebSocket.
// Import it under an alias, e.g. lvtest.
package testing

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/gabrielmiguelok/livesignup/pkg/core"
	"github.com/google/uuid"
)

// Event is one event pushed through the harness.
type Event struct {
	Name    string
	Payload map[string]any
}

// LiveViewTest provides a testing harness for LiveView components.
type LiveViewTest struct {
	t         testing.TB
	component core.Component
	transport *MockTransport
	socket    *core.Socket
	ctx       context.Context
	params    core.Params
	session   core.Session
	rendered  string
	events    []Event
}

// MountOption configures the test mount.
type MountOption func(*LiveViewTest)

// WithParams sets mount parameters.
func WithParams(params core.Params) MountOption {
	return func(lvt *LiveViewTest) {
		lvt.params = params
	}
}

// WithSession sets session data.
func WithSession(session core.Session) MountOption {
	return func(lvt *LiveViewTest) {
		lvt.session = session
	}
}

// Mount connects comp to a mock transport, mounts and renders it. The
// component is terminated when the test ends.
func Mount(t testing.TB, comp core.Component, opts ...MountOption) *LiveViewTest {
	t.Helper()

	lvt := &LiveViewTest{
		t:         t,
		component: comp,
		transport: NewMockTransport(),
		params:    core.Params{},
		session:   core.Session{},
	}
	for _, opt := range opts {
		opt(lvt)
	}

	lvt.socket = core.NewSocket("test-"+uuid.NewString()[:8], comp.Name(), lvt.transport)
	if aware, ok := comp.(core.SocketAware); ok {
		aware.SetSocket(lvt.socket)
	}
	lvt.ctx = core.BuildContext(context.Background(), lvt.socket, lvt.session, lvt.params)

	if err := comp.Mount(lvt.ctx, lvt.params, lvt.session); err != nil {
		t.Fatalf("Mount failed: %v", err)
	}
	lvt.render()

	t.Cleanup(lvt.Close)
	return lvt
}

// Change sends a change event for one field.
func (lvt *LiveViewTest) Change(field, value string) *LiveViewTest {
	lvt.t.Helper()
	return lvt.must("change", map[string]any{"field": field, "value": value})
}

// Blur sends a blur event for one field.
func (lvt *LiveViewTest) Blur(field string) *LiveViewTest {
	lvt.t.Helper()
	return lvt.must("blur", map[string]any{"field": field})
}

// Fill changes and blurs every field of values.
func (lvt *LiveViewTest) Fill(values map[string]string) *LiveViewTest {
	lvt.t.Helper()
	for field, value := range values {
		lvt.Change(field, value).Blur(field)
	}
	return lvt
}

// Click sends a payload-less event, as bound by lv-click.
func (lvt *LiveViewTest) Click(event string) *LiveViewTest {
	lvt.t.Helper()
	return lvt.must(event, nil)
}

// Submit sends a submit event carrying data.
func (lvt *LiveViewTest) Submit(data map[string]string) *LiveViewTest {
	lvt.t.Helper()
	payload := make(map[string]any, len(data))
	for k, v := range data {
		payload[k] = v
	}
	return lvt.must("submit", payload)
}

// Push sends an event and returns the component's error instead of
// failing the test.
func (lvt *LiveViewTest) Push(event string, payload map[string]any) error {
	lvt.events = append(lvt.events, Event{Name: event, Payload: payload})
	if err := lvt.component.HandleEvent(lvt.ctx, event, payload); err != nil {
		return err
	}
	lvt.render()
	return nil
}

func (lvt *LiveViewTest) must(event string, payload map[string]any) *LiveViewTest {
	lvt.t.Helper()
	if err := lvt.Push(event, payload); err != nil {
		lvt.t.Errorf("HandleEvent(%q) failed: %v", event, err)
	}
	return lvt
}

// SendInfo delivers msg to HandleInfo directly.
func (lvt *LiveViewTest) SendInfo(msg any) *LiveViewTest {
	lvt.t.Helper()
	if err := lvt.component.HandleInfo(lvt.ctx, msg); err != nil {
		lvt.t.Errorf("HandleInfo failed: %v", err)
		return lvt
	}
	lvt.render()
	return lvt
}

// AwaitInfo waits for the next message the component scheduled on its
// socket, delivers it and re-renders. It fails the test after timeout.
func (lvt *LiveViewTest) AwaitInfo(timeout time.Duration) *LiveViewTest {
	lvt.t.Helper()
	select {
	case msg := <-lvt.socket.Info():
		return lvt.SendInfo(msg)
	case <-time.After(timeout):
		lvt.t.Errorf("no info message within %s", timeout)
		return lvt
	}
}

func (lvt *LiveViewTest) render() {
	lvt.t.Helper()
	var buf bytes.Buffer
	if err := lvt.component.Render(lvt.ctx).Render(lvt.ctx, &buf); err != nil {
		lvt.t.Fatalf("Render failed: %v", err)
	}
	lvt.rendered = buf.String()
}

// Rendered returns the current rendered HTML.
func (lvt *LiveViewTest) Rendered() string {
	return lvt.rendered
}

// HTML returns assertions over the current rendered HTML.
func (lvt *LiveViewTest) HTML() *HTMLAssert {
	return NewHTMLAssert(lvt.t, lvt.rendered)
}

// AssertText verifies the rendered output contains text.
func (lvt *LiveViewTest) AssertText(text string) *LiveViewTest {
	lvt.t.Helper()
	if !strings.Contains(lvt.rendered, text) {
		lvt.t.Errorf("Text not found: %q\nRendered HTML:\n%s", text, lvt.rendered)
	}
	return lvt
}

// AssertNoText verifies the rendered output does not contain text.
func (lvt *LiveViewTest) AssertNoText(text string) *LiveViewTest {
	lvt.t.Helper()
	if strings.Contains(lvt.rendered, text) {
		lvt.t.Errorf("Text should not exist: %q", text)
	}
	return lvt
}

// Socket returns the socket the component was given.
func (lvt *LiveViewTest) Socket() *core.Socket {
	return lvt.socket
}

// Transport returns the mock transport behind the socket.
func (lvt *LiveViewTest) Transport() *MockTransport {
	return lvt.transport
}

// Component returns the component under test.
func (lvt *LiveViewTest) Component() core.Component {
	return lvt.component
}

// Events returns all events that were pushed.
func (lvt *LiveViewTest) Events() []Event {
	return lvt.events
}

// Close terminates the component and closes its socket. It is safe to call
// more than once.
func (lvt *LiveViewTest) Close() {
	if !lvt.socket.IsConnected() {
		return
	}
	_ = lvt.component.Terminate(lvt.ctx, core.TerminateNormal)
	_ = lvt.socket.Close()
}
