package app

import (
	"testing"

	"github.com/jaakkos/helmpanel/internal/domain"
)

func TestDispatcher_Resolve(t *testing.T) {
	d := NewDispatcher(testLayout())
	tests := []struct {
		target string
		wantID string
		wantOK bool
	}{
		{"captain/mode/fill", "captain/mode/fill", true},
		{"captain/mode/fill/icon/svg", "captain/mode/fill", true},
		{"/captain/device/pump/", "captain/device/pump", true},
		{"captain/subworker/first_mate/label", "captain/subworker/first_mate", true},
		{"panel/action/live-update", "panel/action/live-update", true},
		{"captain/mode", "", false},
		{"captain", "", false},
		{"first_mate/mode/clean", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			id, _, ok := d.Resolve(tt.target)
			if ok != tt.wantOK || id != tt.wantID {
				t.Errorf("Resolve(%q) = %q, %v; want %q, %v", tt.target, id, ok, tt.wantID, tt.wantOK)
			}
		})
	}
}

func TestDispatcher_CommandIsFreshAndStamped(t *testing.T) {
	d := NewDispatcher(testLayout())
	_, c, _ := d.Resolve("captain/device/pump")

	first := d.Command(c)
	first.Value = true
	second := d.Command(c)

	want := domain.Command{Subsystem: "reef", Device: "pump", Worker: "captain"}
	if second != want {
		t.Errorf("command = %+v, want %+v", second, want)
	}
}

func TestDispatcher_Controls(t *testing.T) {
	ids := NewDispatcher(testLayout()).Controls()
	want := []string{
		"captain/action/manual-control",
		"captain/action/stop",
		"captain/action/unlock-modes",
		"captain/device/pump",
		"captain/mode/drain",
		"captain/mode/fill",
		"captain/mode/mix",
		"captain/subworker/first_mate",
		"panel/action/live-update",
	}
	if len(ids) != len(want) {
		t.Fatalf("controls = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("controls[%d] = %q, want %q", i, ids[i], want[i])
		}
	}
}

func TestNeedsManualControl(t *testing.T) {
	tests := []struct {
		name string
		cmd  domain.Command
		want bool
	}{
		{"device", domain.Command{Device: "pump"}, true},
		{"subworker", domain.Command{SubWorker: "first_mate"}, true},
		{"mode", domain.Command{Mode: "fill"}, false},
		{"action", domain.Command{Action: ActionStop}, false},
		{"empty", domain.Command{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := needsManualControl(tt.cmd); got != tt.want {
				t.Errorf("needsManualControl(%+v) = %v, want %v", tt.cmd, got, tt.want)
			}
		})
	}
}
