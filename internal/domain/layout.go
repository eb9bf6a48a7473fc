package domain

import "strings"

// SubWorkerKind says which Command field a sub-worker click fills.
type SubWorkerKind string

const (
	KindDevice    SubWorkerKind = "device"
	KindSubWorker SubWorkerKind = "worker"
)

// SubWorkerSpec declares one sub-worker control.
type SubWorkerSpec struct {
	Name string        `json:"name"`
	Kind SubWorkerKind `json:"kind"`
}

// WorkerLayout is the vocabulary the view was built with for one worker.
type WorkerLayout struct {
	Name       string          `json:"name"`
	FirstMode  string          `json:"first_mode"`
	Modes      []string        `json:"modes"`
	SubWorkers []SubWorkerSpec `json:"subworkers"`
	Actions    []string        `json:"actions"`
}

// HasMode reports whether the view knows how to display mode.
func (w WorkerLayout) HasMode(mode string) bool {
	for _, m := range w.Modes {
		if m == mode {
			return true
		}
	}
	return false
}

// HasSubWorker reports whether the view has a control for the sub-worker.
func (w WorkerLayout) HasSubWorker(name string) bool {
	for _, s := range w.SubWorkers {
		if s.Name == name {
			return true
		}
	}
	return false
}

// EntryMode picks the mode offered when the worker is idle: the snapshot's
// firstMode, then the layout's first_mode, then the first listed mode.
func (w WorkerLayout) EntryMode(snapshotFirst string) string {
	if snapshotFirst != "" {
		return snapshotFirst
	}
	if w.FirstMode != "" {
		return w.FirstMode
	}
	if len(w.Modes) > 0 {
		return w.Modes[0]
	}
	return ""
}

// Layout is the full control vocabulary of one subsystem view.
type Layout struct {
	Subsystem string         `json:"subsystem"`
	Workers   []WorkerLayout `json:"workers"`
	Actions   []string       `json:"actions"` // panel-level actions, e.g. live-update
}

// Worker returns the layout for a worker name.
func (l Layout) Worker(name string) (WorkerLayout, bool) {
	for _, w := range l.Workers {
		if w.Name == name {
			return w, true
		}
	}
	return WorkerLayout{}, false
}

// Capability is what a control does when struck.
type Capability struct {
	Action    string `json:"action,omitempty"`
	Mode      string `json:"mode,omitempty"`
	Device    string `json:"device,omitempty"`
	SubWorker string `json:"subworker,omitempty"`
	Worker    string `json:"worker,omitempty"`
}

// PanelScope is the worker segment of panel-level control ids.
const PanelScope = "panel"

// ControlID joins path segments into a control id.
func ControlID(parts ...string) string {
	return strings.Join(parts, "/")
}

// Capabilities resolves every control id in the layout to its capability.
func (l Layout) Capabilities() map[string]Capability {
	caps := make(map[string]Capability)
	for _, w := range l.Workers {
		for _, m := range w.Modes {
			caps[ControlID(w.Name, "mode", m)] = Capability{Worker: w.Name, Mode: m}
		}
		for _, s := range w.SubWorkers {
			if s.Kind == KindSubWorker {
				caps[ControlID(w.Name, "subworker", s.Name)] = Capability{Worker: w.Name, SubWorker: s.Name}
				continue
			}
			caps[ControlID(w.Name, "device", s.Name)] = Capability{Worker: w.Name, Device: s.Name}
		}
		for _, a := range w.Actions {
			caps[ControlID(w.Name, "action", a)] = Capability{Worker: w.Name, Action: a}
		}
	}
	for _, a := range l.Actions {
		caps[ControlID(PanelScope, "action", a)] = Capability{Worker: l.PrimaryWorker(), Action: a}
	}
	return caps
}

// PrimaryWorker names the worker panel-level commands are addressed to:
// the first worker of the layout, or the subsystem when there is none.
func (l Layout) PrimaryWorker() string {
	if len(l.Workers) > 0 {
		return l.Workers[0].Name
	}
	return l.Subsystem
}
