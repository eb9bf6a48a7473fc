package app

import (
	"sort"
	"strings"

	"github.com/jaakkos/helmpanel/internal/domain"
)

// Actions handled by the panel itself before anything is sent.
const (
	ActionUnlockModes   = "unlock-modes"
	ActionLockModes     = "lock-modes"
	ActionManualControl = "manual-control"
	ActionLiveUpdate    = "live-update"
	ActionStop          = "stop"
)

// Events pushed besides the subsystem click event.
const (
	EventPageLoaded = "page_loaded"
	EventBroadcast  = "broadcast"
)

// Dispatcher resolves struck controls against the capability map built
// once per activation and turns them into commands.
type Dispatcher struct {
	subsystem string
	caps      map[string]domain.Capability
}

// NewDispatcher resolves every control of layout up front.
func NewDispatcher(layout domain.Layout) *Dispatcher {
	return &Dispatcher{subsystem: layout.Subsystem, caps: layout.Capabilities()}
}

// Resolve finds the control enclosing target by walking its path upward:
// "captain/mode/fill/icon" resolves to "captain/mode/fill".
func (d *Dispatcher) Resolve(target string) (id string, c domain.Capability, ok bool) {
	id = strings.Trim(target, "/")
	for id != "" {
		if c, ok = d.caps[id]; ok {
			return id, c, true
		}
		i := strings.LastIndex(id, "/")
		if i < 0 {
			break
		}
		id = id[:i]
	}
	return "", domain.Capability{}, false
}

// Command builds a fresh command for a capability, stamped with the
// subsystem.
func (d *Dispatcher) Command(c domain.Capability) domain.Command {
	return domain.Command{
		Subsystem: d.subsystem,
		Action:    c.Action,
		Mode:      c.Mode,
		Device:    c.Device,
		SubWorker: c.SubWorker,
		Worker:    c.Worker,
	}
}

// Controls lists every control id, sorted.
func (d *Dispatcher) Controls() []string {
	ids := make([]string, 0, len(d.caps))
	for id := range d.caps {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// needsManualControl reports whether a command drives a device or
// sub-worker directly, which is only allowed under manual control.
func needsManualControl(cmd domain.Command) bool {
	return cmd.Action == "" && cmd.Mode == "" && (cmd.Device != "" || cmd.SubWorker != "")
}
