package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jaakkos/helmpanel/internal/app"
	"github.com/jaakkos/helmpanel/internal/domain"
	"github.com/jaakkos/helmpanel/internal/render"
)

type mockPanel struct {
	mu      sync.Mutex
	status  app.Status
	clicks  []string
	outcome app.Outcome
	err     error
}

func (m *mockPanel) Status() app.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

func (m *mockPanel) Interact(_ context.Context, target string) (app.Outcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clicks = append(m.clicks, target)
	return m.outcome, m.err
}

func newTestHandler() (*http.ServeMux, *mockPanel, *render.Board) {
	panel := &mockPanel{
		status: app.Status{
			Subsystem: "reef",
			Active:    true,
			View:      domain.NewViewState(),
			Controls:  []string{"captain/mode/fill", "panel/action/live-update"},
		},
		outcome: app.OutcomeSent,
	}
	board := render.NewBoard()
	h := NewHandler(panel, board)
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return mux, panel, board
}

func TestAPIView(t *testing.T) {
	mux, _, board := newTestHandler()
	board.Apply([]domain.Directive{
		{Kind: domain.DirMode, Worker: "captain", Target: "fill", Mode: domain.ModeView{State: domain.PresentReady, Entry: true}},
		{Kind: domain.DirStop, Worker: "captain", On: true},
		{Kind: domain.DirAck, Target: "reef_click"},
	})

	req := httptest.NewRequest("GET", "/api/view", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var snap ViewSnapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatalf("json decode: %v", err)
	}
	if snap.Subsystem != "reef" || !snap.Active || !snap.View.Locked {
		t.Errorf("snapshot = %+v", snap)
	}
	if snap.Timestamp == "" {
		t.Error("expected timestamp")
	}
	captain, ok := snap.Board.Worker("captain")
	if !ok || !captain.StopLit {
		t.Fatalf("board = %+v", snap.Board)
	}
	if m, _ := captain.Mode("fill"); !m.Entry {
		t.Errorf("fill = %+v, want entry", m)
	}
	if snap.Board.Panel.LastAck != "reef_click" || snap.LastAckAge != "just now" {
		t.Errorf("ack = %q (%q)", snap.Board.Panel.LastAck, snap.LastAckAge)
	}
}

func TestAPIControls(t *testing.T) {
	mux, _, _ := newTestHandler()
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", "/api/controls", nil))

	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var snap ControlsSnapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatalf("json decode: %v", err)
	}
	if len(snap.Controls) != 2 || snap.Controls[0] != "captain/mode/fill" {
		t.Errorf("controls = %v", snap.Controls)
	}
}

func TestAPIClick(t *testing.T) {
	mux, panel, _ := newTestHandler()
	req := httptest.NewRequest("POST", "/api/click", strings.NewReader(`{"target":"captain/mode/fill"}`))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != 200 {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp ClickResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json decode: %v", err)
	}
	if resp.Outcome != app.OutcomeSent || resp.Target != "captain/mode/fill" {
		t.Errorf("response = %+v", resp)
	}
	if len(panel.clicks) != 1 || panel.clicks[0] != "captain/mode/fill" {
		t.Errorf("clicks = %v", panel.clicks)
	}
}

func TestAPIClick_Errors(t *testing.T) {
	tests := []struct {
		name   string
		method string
		body   string
		err    error
		want   int
	}{
		{"get", "GET", "", nil, http.StatusMethodNotAllowed},
		{"bad json", "POST", "{", nil, http.StatusBadRequest},
		{"missing target", "POST", `{}`, nil, http.StatusBadRequest},
		{"unknown control", "POST", `{"target":"x"}`, fmt.Errorf("%w %q", app.ErrUnknownControl, "x"), http.StatusNotFound},
		{"inactive", "POST", `{"target":"captain/mode/fill"}`, app.ErrInactive, http.StatusConflict},
		{"stopped", "POST", `{"target":"captain/mode/fill"}`, app.ErrStopped, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux, panel, _ := newTestHandler()
			panel.err = tt.err
			req := httptest.NewRequest(tt.method, "/api/click", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", w.Code, tt.want, w.Body.String())
			}
			var body map[string]string
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil || body["error"] == "" {
				t.Errorf("expected error body, got %q", w.Body.String())
			}
		})
	}
}

func TestAPIClick_Preflight(t *testing.T) {
	mux, panel, _ := newTestHandler()
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("OPTIONS", "/api/click", nil))
	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Methods"); !strings.Contains(got, "POST") {
		t.Errorf("allow methods = %q", got)
	}
	if len(panel.clicks) != 0 {
		t.Error("preflight clicked")
	}
}

func TestDashboardPage(t *testing.T) {
	mux, _, _ := newTestHandler()
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", "/dashboard", nil))
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Header().Get("Content-Type"), "text/html") {
		t.Errorf("content type = %q", w.Header().Get("Content-Type"))
	}
	if !strings.Contains(w.Body.String(), "/api/click") {
		t.Error("page should post clicks to /api/click")
	}
}

func TestRelTime(t *testing.T) {
	now := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		at   time.Time
		want string
	}{
		{time.Time{}, "never"},
		{now, "just now"},
		{now.Add(-5 * time.Second), "5s ago"},
		{now.Add(-3 * time.Minute), "3m ago"},
		{now.Add(-2 * time.Hour), "2h ago"},
		{now.Add(-48 * time.Hour), "Oct 12 12:00"},
	}
	for _, tt := range tests {
		if got := relTime(tt.at, now); got != tt.want {
			t.Errorf("relTime(%v) = %q, want %q", tt.at, got, tt.want)
		}
	}
}
