// Package domain holds panel entities: workers, modes, snapshots, view state
// and the render directives produced by projection.
// It has no dependencies on other packages.
package domain

// ModeStatus is the server-reported status of a mode.
type ModeStatus string

const (
	ModeNone     ModeStatus = "none"
	ModeRunning  ModeStatus = "running"
	ModeHolding  ModeStatus = "holding"
	ModeFinished ModeStatus = "finished"
)

// ParseModeStatus maps a wire value onto the closed status set.
// Anything unrecognized (including "") is ModeNone.
func ParseModeStatus(s string) ModeStatus {
	switch ModeStatus(s) {
	case ModeRunning, ModeHolding, ModeFinished:
		return ModeStatus(s)
	}
	return ModeNone
}

// Idle sentinels for Worker.ActiveMode.
const (
	ActiveNone    = "none"
	ActiveAllStop = "all_stop"
)

// IsIdleSentinel reports whether an active mode means the worker is idle.
func IsIdleSentinel(activeMode string) bool {
	return activeMode == ActiveNone || activeMode == ActiveAllStop
}

// Mode is a named operating state of a worker.
type Mode struct {
	Name   string     `json:"mode"`
	Status ModeStatus `json:"status"`
}

// SubWorkerRef is a device or subordinate worker owned by a worker.
type SubWorkerRef struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Status bool   `json:"status"`
}

// Worker is one controllable unit in a snapshot.
type Worker struct {
	Name         string         `json:"name"`
	ActiveMode   string         `json:"active_mode"`
	ActiveStep   string         `json:"active_step,omitempty"`
	ActiveAction string         `json:"active_action,omitempty"`
	FirstMode    string         `json:"first_mode"`
	Ready        bool           `json:"ready"`
	Status       *string        `json:"status"` // nil when the server sent none
	Modes        []Mode         `json:"modes"`
	SubWorkers   []SubWorkerRef `json:"subworkers"`
}

// UIFlags carries the server's view of panel flags.
type UIFlags struct {
	Worker      string `json:"worker,omitempty"`
	LiveUpdate  *bool  `json:"live_update,omitempty"`
	ModesLocked bool   `json:"modes_locked"`
}

// Snapshot is a fully-defaulted inbound status message.
type Snapshot struct {
	Broadcast bool     `json:"broadcast"` // carried liveUpdate=true at top level
	Workers   []Worker `json:"workers"`
	UI        *UIFlags `json:"ui,omitempty"` // nil when the message had no ui section
}

// ViewState is the client-local, session-scoped panel state.
type ViewState struct {
	Locked        bool `json:"locked"`
	ManualControl bool `json:"manualControl"`
	LiveUpdate    bool `json:"liveUpdate"`
}

// NewViewState returns the state a panel starts with: modes locked,
// manual control and live update off.
func NewViewState() ViewState {
	return ViewState{Locked: true}
}

// ViewState field keys for session storage lookups.
const (
	FieldLocked        = "locked"
	FieldManualControl = "manualControl"
	FieldLiveUpdate    = "liveUpdate"
)

// Field returns a single ViewState flag by key. ok is false for unknown keys.
func (v ViewState) Field(key string) (value bool, ok bool) {
	switch key {
	case FieldLocked:
		return v.Locked, true
	case FieldManualControl:
		return v.ManualControl, true
	case FieldLiveUpdate:
		return v.LiveUpdate, true
	}
	return false, false
}

// Command is an outbound intent built fresh for every interaction.
type Command struct {
	Subsystem string `json:"subsystem"`
	Action    string `json:"action,omitempty"`
	Mode      string `json:"mode,omitempty"`
	Device    string `json:"device,omitempty"`
	SubWorker string `json:"subworker,omitempty"`
	Worker    string `json:"worker"`
	Value     any    `json:"value,omitempty"`
}
