package snapshot

import (
	"errors"
	"testing"

	"github.com/jaakkos/helmpanel/internal/domain"
)

func TestDecode_FullSnapshot(t *testing.T) {
	payload := []byte(`{
		"liveUpdate": true,
		"status": {"workers": [{
			"name": "captain",
			"active": {"mode": "fill", "step": "pump_up", "action": "run"},
			"firstMode": "fill",
			"ready": true,
			"status": "ok",
			"modes": [{"mode": "fill", "status": "running"}, {"mode": "drain", "status": "none"}],
			"subWorkers": [{"name": "pump", "ready": true, "status": true}]
		}]},
		"ui": {"worker": "captain", "liveUpdate": false, "modesLocked": false}
	}`)

	snap, err := Decode(payload)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !snap.Broadcast {
		t.Error("liveUpdate=true should mark the snapshot as a broadcast")
	}
	if len(snap.Workers) != 1 {
		t.Fatalf("len(Workers) = %d, want 1", len(snap.Workers))
	}
	w := snap.Workers[0]
	if w.Name != "captain" || w.ActiveMode != "fill" || w.ActiveStep != "pump_up" || w.ActiveAction != "run" {
		t.Errorf("unexpected worker identity/active: %+v", w)
	}
	if !w.Ready || w.Status == nil || *w.Status != "ok" {
		t.Errorf("ready/status not decoded: %+v", w)
	}
	if len(w.Modes) != 2 || w.Modes[0].Status != domain.ModeRunning || w.Modes[1].Status != domain.ModeNone {
		t.Errorf("modes not decoded: %+v", w.Modes)
	}
	if len(w.SubWorkers) != 1 || !w.SubWorkers[0].Ready || !w.SubWorkers[0].Status {
		t.Errorf("subworkers not decoded: %+v", w.SubWorkers)
	}
	if snap.UI == nil {
		t.Fatal("ui section lost")
	}
	if snap.UI.ModesLocked {
		t.Error("modesLocked=false should be kept")
	}
	if snap.UI.LiveUpdate == nil || *snap.UI.LiveUpdate {
		t.Errorf("ui.liveUpdate = %v, want false", snap.UI.LiveUpdate)
	}
}

func TestDecode_Defaults(t *testing.T) {
	payload := []byte(`{"status": {"workers": [{"name": "captain", "subWorkers": [{"name": "pump"}]}]}, "ui": {}}`)

	snap, err := Decode(payload)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if snap.Broadcast {
		t.Error("absent liveUpdate should not mark a broadcast")
	}
	w := snap.Workers[0]
	if w.ActiveMode != domain.ActiveNone {
		t.Errorf("ActiveMode = %q, want none", w.ActiveMode)
	}
	if w.Ready {
		t.Error("ready should default to false")
	}
	if w.Status != nil {
		t.Errorf("status should default to nil, got %q", *w.Status)
	}
	if w.SubWorkers[0].Ready || w.SubWorkers[0].Status {
		t.Errorf("subworker flags should default to false: %+v", w.SubWorkers[0])
	}
	if snap.UI == nil || !snap.UI.ModesLocked {
		t.Error("modesLocked should default to true when ui is present")
	}
	if snap.UI.LiveUpdate != nil {
		t.Error("absent ui.liveUpdate should stay nil")
	}
}

func TestDecode_NoUISection(t *testing.T) {
	snap, err := Decode([]byte(`{"status": {"workers": []}}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if snap.UI != nil {
		t.Errorf("UI = %+v, want nil", snap.UI)
	}
}

func TestDecode_MalformedPartsDropped(t *testing.T) {
	tests := []struct {
		name        string
		payload     string
		wantWorkers int
		wantModes   int
	}{
		{"status not an object", `{"status": 7}`, 0, 0},
		{"workers not an array", `{"status": {"workers": "captain"}}`, 0, 0},
		{"worker without name", `{"status": {"workers": [{"active": {"mode": "fill"}}]}}`, 0, 0},
		{"worker not an object", `{"status": {"workers": [42, {"name": "captain"}]}}`, 1, 0},
		{"modes not an array", `{"status": {"workers": [{"name": "captain", "modes": {"fill": 1}}]}}`, 1, 0},
		{"bad mode entry", `{"status": {"workers": [{"name": "captain", "modes": ["fill", {"mode": "drain"}]}]}}`, 1, 1},
		{"active wrong type", `{"status": {"workers": [{"name": "captain", "active": "fill"}]}}`, 1, 0},
		{"ready wrong type", `{"status": {"workers": [{"name": "captain", "ready": "yes"}]}}`, 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap, err := Decode([]byte(tt.payload))
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if len(snap.Workers) != tt.wantWorkers {
				t.Fatalf("len(Workers) = %d, want %d", len(snap.Workers), tt.wantWorkers)
			}
			if tt.wantWorkers > 0 {
				w := snap.Workers[len(snap.Workers)-1]
				if len(w.Modes) != tt.wantModes {
					t.Errorf("len(Modes) = %d, want %d", len(w.Modes), tt.wantModes)
				}
				if w.ActiveMode != domain.ActiveNone {
					t.Errorf("ActiveMode = %q, want none", w.ActiveMode)
				}
				if w.Ready {
					t.Error("mistyped ready should default to false")
				}
			}
		})
	}
}

func TestDecode_NotObject(t *testing.T) {
	for _, payload := range []string{`[]`, `"x"`, `null`, `{`} {
		if _, err := Decode([]byte(payload)); !errors.Is(err, ErrNotObject) {
			t.Errorf("Decode(%s) err = %v, want ErrNotObject", payload, err)
		}
	}
}

func TestHasStatus(t *testing.T) {
	if !HasStatus([]byte(`{"status": {}}`)) {
		t.Error("expected status section to be detected")
	}
	if HasStatus([]byte(`{"opts": "x"}`)) {
		t.Error("payload without status reported as snapshot")
	}
	if HasStatus([]byte(`nope`)) {
		t.Error("invalid JSON reported as snapshot")
	}
}
