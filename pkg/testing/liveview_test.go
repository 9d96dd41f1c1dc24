package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/gabrielmiguelok/livesignup/pkg/core"
)

type tick struct{}

// counter is a minimal component exercising events, infos and sockets.
type counter struct {
	core.BaseComponent
	n          int
	label      string
	terminated bool
}

func (c *counter) Name() string { return "counter" }

func (c *counter) Mount(ctx context.Context, params core.Params, session core.Session) error {
	c.label = params.GetDefault("label", "count")
	return nil
}

func (c *counter) HandleEvent(ctx context.Context, event string, payload map[string]any) error {
	switch event {
	case "inc":
		c.n++
	case "later":
		c.Socket().SendInfoAfter(10*time.Millisecond, tick{})
	case "boom":
		return errors.New("boom")
	}
	return nil
}

func (c *counter) HandleInfo(ctx context.Context, msg any) error {
	if _, ok := msg.(tick); ok {
		c.n += 10
	}
	return nil
}

func (c *counter) Render(ctx context.Context) core.Renderer {
	return core.RendererFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<p class="value big" id="n">%s=%d</p>`, c.label, c.n)
		return err
	})
}

func (c *counter) Terminate(ctx context.Context, reason core.TerminateReason) error {
	c.terminated = true
	return nil
}

func TestLiveViewTest_EventsAndRender(t *testing.T) {
	c := &counter{}
	lvt := Mount(t, c, WithParams(core.Params{"label": "clicks"}))

	lvt.AssertText("clicks=0").Click("inc").Click("inc").AssertText("clicks=2")
	lvt.HTML().HasElement("p", `id="n"`).HasClass("value").HasClass("big").HasID("n")
	lvt.HTML().NoElement("p", `id="other"`)

	if len(lvt.Events()) != 2 {
		t.Errorf("Events() = %d, want 2", len(lvt.Events()))
	}
	if c.Socket() != lvt.Socket() {
		t.Error("component did not receive the harness socket")
	}
}

func TestLiveViewTest_PushReturnsError(t *testing.T) {
	lvt := Mount(t, &counter{})
	if err := lvt.Push("boom", nil); err == nil {
		t.Error("Push() should return the component error")
	}
	lvt.AssertNoText("=1")
}

func TestLiveViewTest_AwaitInfo(t *testing.T) {
	lvt := Mount(t, &counter{})
	lvt.Click("later").AwaitInfo(time.Second).AssertText("count=10")
}

func TestLiveViewTest_CloseTerminates(t *testing.T) {
	c := &counter{}
	lvt := Mount(t, c)
	lvt.Close()
	lvt.Close()

	if !c.terminated {
		t.Error("Terminate was not called")
	}
	if lvt.Socket().IsConnected() {
		t.Error("socket still connected after Close")
	}
	if err := lvt.Socket().Push("x", nil); !errors.Is(err, core.ErrSocketClosed) {
		t.Errorf("Push after close error = %v, want ErrSocketClosed", err)
	}
}

func TestMockTransport(t *testing.T) {
	m := NewMockTransport()
	s := core.NewSocket("s1", "topic", m)

	if err := s.Push("render", map[string]any{"html": "<p>"}); err != nil {
		t.Fatal(err)
	}
	if !m.SentEvent("render") || m.SentEvent("other") {
		t.Error("SentEvent mismatch")
	}

	m.SetError(errors.New("down"))
	if err := s.Push("render", nil); !errors.Is(err, core.ErrSendFailed) {
		t.Errorf("Push error = %v, want ErrSendFailed", err)
	}
	m.SetError(nil)

	if len(m.Sent()) != 1 {
		t.Errorf("Sent() = %d messages, want 1", len(m.Sent()))
	}
}
