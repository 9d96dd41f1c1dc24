package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func pass(context.Context) error { return nil }

func fail(context.Context) error { return errors.New("down") }

func TestChecker_Aggregate(t *testing.T) {
	tests := []struct {
		name  string
		build func(hc *Checker)
		want  Status
		ready int
	}{
		{
			name:  "no checks",
			build: func(hc *Checker) {},
			want:  StatusHealthy,
			ready: http.StatusOK,
		},
		{
			name:  "all pass",
			build: func(hc *Checker) {
				hc.AddCriticalCheck("live_sessions", pass, time.Second)
				hc.AddCheck("memory", pass, time.Second)
			},
			want:  StatusHealthy,
			ready: http.StatusOK,
		},
		{
			name:  "optional check fails",
			build: func(hc *Checker) {
				hc.AddCriticalCheck("live_sessions", pass, time.Second)
				hc.AddCheck("memory", fail, time.Second)
			},
			want:  StatusDegraded,
			ready: http.StatusOK,
		},
		{
			name:  "critical check fails",
			build: func(hc *Checker) {
				hc.AddCriticalCheck("live_sessions", fail, time.Second)
				hc.AddCheck("memory", pass, time.Second)
			},
			want:  StatusUnhealthy,
			ready: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc := NewChecker()
			tt.build(hc)

			if got := hc.Check(context.Background()).Status; got != tt.want {
				t.Errorf("Check status = %s, want %s", got, tt.want)
			}

			w := httptest.NewRecorder()
			hc.ReadinessHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
			if w.Code != tt.ready {
				t.Errorf("readiness = %d, want %d", w.Code, tt.ready)
			}
		})
	}
}

func TestChecker_FailureRecorded(t *testing.T) {
	hc := NewChecker()
	hc.AddCheck("memory", fail, time.Second)

	res := hc.Check(context.Background()).Checks["memory"]
	if res.Status != StatusUnhealthy || res.Error != "down" {
		t.Errorf("result = %+v", res)
	}
}

func TestChecker_Timeout(t *testing.T) {
	hc := NewChecker()
	hc.AddCheck("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	}, 20*time.Millisecond)

	start := time.Now()
	res := hc.Check(context.Background()).Checks["slow"]
	if res.Status != StatusUnhealthy {
		t.Errorf("timed out check status = %s", res.Status)
	}
	if time.Since(start) > time.Second {
		t.Error("Check did not honour the timeout")
	}
}

func TestChecker_Handlers(t *testing.T) {
	hc := NewChecker()
	hc.SetVersion("v1.2.3")
	hc.AddCriticalCheck("live_sessions", fail, time.Second)

	// Liveness ignores checks.
	w := httptest.NewRecorder()
	hc.LivenessHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	var live map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &live); err != nil {
		t.Fatal(err)
	}
	if w.Code != http.StatusOK || live["status"] != "alive" {
		t.Errorf("liveness = %d %v", w.Code, live)
	}

	// The detailed view always answers 200.
	w = httptest.NewRecorder()
	hc.HealthHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	var status HealthStatus
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatal(err)
	}
	if w.Code != http.StatusOK || status.Status != StatusUnhealthy || status.Version != "v1.2.3" {
		t.Errorf("health = %d %+v", w.Code, status)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}
}

func TestHealthCheck_ShuttingDown(t *testing.T) {
	hc := NewChecker()
	hc.AddCriticalCheck("ping", func(ctx context.Context) error { return nil }, time.Second)

	hc.SetShuttingDown()

	w := httptest.NewRecorder()
	hc.ReadinessHandler().ServeHTTP(w, httptest.NewRequest("GET", "/readyz", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 while shutting down, got %d", w.Code)
	}

	// Liveness is unaffected.
	w = httptest.NewRecorder()
	hc.LivenessHandler().ServeHTTP(w, httptest.NewRequest("GET", "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 from liveness, got %d", w.Code)
	}
}

func TestSessionCapacityCheck(t *testing.T) {
	current := 50
	check := SessionCapacityCheck(func() int { return current }, 100)

	if err := check(context.Background()); err != nil {
		t.Errorf("Should pass when under capacity: %v", err)
	}

	current = 100
	err := check(context.Background())
	if err == nil {
		t.Fatal("Should fail when at capacity")
	}

	hc := NewChecker()
	hc.AddCheck("sessions", check, time.Second)
	status := hc.Check(context.Background())

	if status.Status != StatusDegraded {
		t.Errorf("Expected degraded, got %s", status.Status)
	}
	if status.Checks["sessions"].Details["max"] != 100 {
		t.Errorf("Expected details to carry max, got %v", status.Checks["sessions"].Details)
	}
}

func TestMemoryCheck(t *testing.T) {
	if err := MemoryCheck(0)(context.Background()); err != nil {
		t.Errorf("Zero limit should disable the check: %v", err)
	}
	if err := MemoryCheck(1)(context.Background()); err == nil {
		t.Error("One byte limit should fail")
	}
}
