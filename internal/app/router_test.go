package app

import (
	"encoding/json"
	"errors"
	"log"
	"strings"
	"testing"

	"github.com/jaakkos/helmpanel/internal/domain"
)

const routedSnapshot = `{"status": {"workers": [{"name": "captain", "active": {"mode": "none"}}]}}`

func TestRouter_Reply(t *testing.T) {
	tests := []struct {
		name    string
		reply   domain.Reply
		wantOK  bool
		wantLog string
	}{
		{"reply tag", domain.Reply{Tag: "reef_status", Payload: json.RawMessage(routedSnapshot)}, true, "reply reef_status: 1 workers"},
		{"ok with status", domain.Reply{Tag: domain.TagOK, Payload: json.RawMessage(routedSnapshot)}, true, "reply ok: 1 workers"},
		{"ok without status", domain.Reply{Tag: domain.TagOK, Payload: json.RawMessage(`{}`)}, false, ""},
		{"nop", domain.Reply{Tag: domain.TagNop}, false, ""},
		{"timeout", domain.TimeoutReply(), false, "reef_click timeout: no reply"},
		{"error", domain.ErrorReply(errors.New("refused")), false, "reef_click error: refused"},
		{"error payload", domain.Reply{Tag: domain.TagError, Payload: json.RawMessage(`{"reason":"x"}`)}, false, `error: {"reason":"x"}`},
		{"unexpected", domain.Reply{Tag: "garage_status"}, false, "unexpected reply tag"},
		{"reply tag not an object", domain.Reply{Tag: "reef_status", Payload: json.RawMessage(`[1]`)}, false, "not a JSON object"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf strings.Builder
			r := NewRouter("reef_status", false, log.New(&buf, "", 0))
			snap, ok := r.Reply("reef_click", tt.reply)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && (len(snap.Workers) != 1 || snap.Workers[0].Name != "captain") {
				t.Errorf("snapshot = %+v", snap)
			}
			if tt.wantLog == "" && buf.Len() != 0 {
				t.Errorf("unexpected log: %s", buf.String())
			}
			if tt.wantLog != "" && !strings.Contains(buf.String(), tt.wantLog) {
				t.Errorf("log = %q, want %q", buf.String(), tt.wantLog)
			}
		})
	}
}

func TestRouter_Broadcast(t *testing.T) {
	var buf strings.Builder
	r := NewRouter("reef", false, log.New(&buf, "", 0))

	if _, ok := r.Broadcast(json.RawMessage(`{"liveUpdate": true}`)); ok {
		t.Error("broadcast without status should be dropped")
	}
	snap, ok := r.Broadcast(json.RawMessage(`{"liveUpdate": true, "status": {"workers": []}}`))
	if !ok || !snap.Broadcast {
		t.Errorf("snapshot = %+v, ok=%v", snap, ok)
	}
	if buf.Len() != 0 {
		t.Errorf("broadcasts logged without debug: %s", buf.String())
	}

	r = NewRouter("reef", true, log.New(&buf, "", 0))
	r.Broadcast(json.RawMessage(`{"status": {"workers": []}}`))
	if !strings.Contains(buf.String(), "Router: broadcast") {
		t.Errorf("debug should log broadcasts, got %q", buf.String())
	}
}
