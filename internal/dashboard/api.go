// Package dashboard provides a local web dashboard and JSON API for
// watching the panel and striking its controls.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/jaakkos/helmpanel/internal/app"
	"github.com/jaakkos/helmpanel/internal/domain"
	"github.com/jaakkos/helmpanel/internal/render"
)

// ViewSnapshot is the JSON response from /api/view.
type ViewSnapshot struct {
	Timestamp   string           `json:"timestamp"`
	Subsystem   string           `json:"subsystem"`
	Active      bool             `json:"active"`
	View        domain.ViewState `json:"view"`
	LockPending bool             `json:"lock_pending"`
	LastAckAge  string           `json:"last_ack_age,omitempty"`
	Board       render.View      `json:"board"`
}

// ControlsSnapshot is the JSON response from /api/controls.
type ControlsSnapshot struct {
	Subsystem string   `json:"subsystem"`
	Controls  []string `json:"controls"`
}

// ClickRequest is the body of POST /api/click.
type ClickRequest struct {
	Target string `json:"target"`
}

// ClickResponse reports what a click did.
type ClickResponse struct {
	Target  string      `json:"target"`
	Outcome app.Outcome `json:"outcome"`
}

// PanelController is implemented by app.Panel.
type PanelController interface {
	Status() app.Status
	Interact(ctx context.Context, target string) (app.Outcome, error)
}

// BoardReader is implemented by render.Board.
type BoardReader interface {
	View() render.View
}

// Handler holds dependencies for dashboard HTTP handlers.
type Handler struct {
	panel   PanelController
	board   BoardReader
	timeout time.Duration
	now     func() time.Time
}

// HandlerOption configures the dashboard handler.
type HandlerOption func(*Handler)

// WithClickTimeout bounds how long a click waits for the panel loop.
func WithClickTimeout(d time.Duration) HandlerOption {
	return func(h *Handler) { h.timeout = d }
}

// NewHandler creates a dashboard handler.
func NewHandler(panel PanelController, board BoardReader, opts ...HandlerOption) *Handler {
	h := &Handler{panel: panel, board: board, timeout: 5 * time.Second, now: time.Now}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes adds dashboard routes to the given mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/view", h.handleAPIView)
	mux.HandleFunc("/api/controls", h.handleAPIControls)
	mux.HandleFunc("/api/click", h.handleAPIClick)
	mux.HandleFunc("/dashboard", h.handleDashboard)
	mux.HandleFunc("/dashboard/", h.handleDashboard)
}

func (h *Handler) handleAPIView(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET required")
		return
	}

	now := h.now()
	st := h.panel.Status()
	board := h.board.View()
	snap := ViewSnapshot{
		Timestamp:   now.Format(time.RFC3339),
		Subsystem:   st.Subsystem,
		Active:      st.Active,
		View:        st.View,
		LockPending: st.LockPending,
		Board:       board,
	}
	if board.Panel.LastAck != "" {
		snap.LastAckAge = relTime(board.Panel.LastAckAt, now)
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) handleAPIControls(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET required")
		return
	}
	st := h.panel.Status()
	writeJSON(w, http.StatusOK, ControlsSnapshot{Subsystem: st.Subsystem, Controls: st.Controls})
}

func (h *Handler) handleAPIClick(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	if r.Method == http.MethodOptions {
		w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	var req ClickRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	if req.Target == "" {
		writeError(w, http.StatusBadRequest, "target is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	outcome, err := h.panel.Interact(ctx, req.Target)
	switch {
	case errors.Is(err, app.ErrUnknownControl):
		writeError(w, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, app.ErrInactive):
		writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ClickResponse{Target: req.Target, Outcome: outcome})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func relTime(t time.Time, now time.Time) string {
	if t.IsZero() {
		return "never"
	}
	d := now.Sub(t)
	switch {
	case d < time.Second:
		return "just now"
	case d < time.Minute:
		return strconv.Itoa(int(d.Seconds())) + "s ago"
	case d < time.Hour:
		return strconv.Itoa(int(d.Minutes())) + "m ago"
	case d < 24*time.Hour:
		return strconv.Itoa(int(d.Hours())) + "h ago"
	default:
		return t.Format("Jan 2 15:04")
	}
}
