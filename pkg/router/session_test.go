package router

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gabrielmiguelok/livesignup/pkg/core"
)

func TestSessionManager_Limit(t *testing.T) {
	m := NewSessionManager(&SessionConfig{MaxSessions: 2, SessionTTL: time.Minute})

	a := NewLiveViewSession(&counter{}, nil, nil)
	b := NewLiveViewSession(&counter{}, nil, nil)
	for _, s := range []*LiveViewSession{a, b} {
		if err := m.Add(s); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	if !m.Full() {
		t.Error("manager should be full")
	}
	if err := m.Add(NewLiveViewSession(&counter{}, nil, nil)); !errors.Is(err, ErrSessionLimit) {
		t.Errorf("Add over the cap = %v", err)
	}

	m.Remove(a.ID)
	if m.Full() || m.Count() != 1 {
		t.Errorf("after Remove: full=%v count=%d", m.Full(), m.Count())
	}
	if got, ok := m.Get(b.ID); !ok || got != b {
		t.Error("Get lost a session")
	}
}

func TestSessionManager_Unlimited(t *testing.T) {
	m := NewSessionManager(&SessionConfig{})
	for i := 0; i < 50; i++ {
		if err := m.Add(NewLiveViewSession(&counter{}, nil, nil)); err != nil {
			t.Fatal(err)
		}
	}
	if m.Full() {
		t.Error("a zero cap means unlimited")
	}
}

func TestSessionManager_Cleanup(t *testing.T) {
	m := NewSessionManager(&SessionConfig{SessionTTL: time.Minute})

	idle := NewLiveViewSession(&counter{}, nil, nil)
	idle.lastActivity.Store(time.Now().Add(-time.Hour).UnixNano())
	busy := NewLiveViewSession(&counter{}, nil, nil)
	_ = m.Add(idle)
	_ = m.Add(busy)

	if n := m.Cleanup(); n != 1 {
		t.Fatalf("Cleanup closed %d sessions", n)
	}
	if _, ok := m.Get(idle.ID); ok {
		t.Error("idle session still registered")
	}
	if idle.Reason() != core.TerminateTimeout {
		t.Errorf("idle reason = %v", idle.Reason())
	}
	if busy.Reason() != core.TerminateNormal {
		t.Errorf("busy reason = %v", busy.Reason())
	}
}

func TestLiveViewSession_CloseKeepsFirstReason(t *testing.T) {
	s := NewLiveViewSession(&counter{}, nil, nil)
	s.close(core.TerminateShutdown)
	s.close(core.TerminateTimeout)

	if s.Reason() != core.TerminateShutdown {
		t.Errorf("reason = %v", s.Reason())
	}
}

func TestSessionManager_CloseAllTimeout(t *testing.T) {
	m := NewSessionManager(nil)
	// Without a transport nothing removes the session, so CloseAll waits
	// for the deadline.
	_ = m.Add(NewLiveViewSession(&counter{}, nil, nil))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if err := m.CloseAll(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("CloseAll = %v", err)
	}
}
