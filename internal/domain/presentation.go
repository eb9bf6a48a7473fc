package domain

// ModePresentation is how a single mode control is shown.
type ModePresentation string

const (
	PresentActive   ModePresentation = "active"
	PresentFinished ModePresentation = "finished"
	PresentDisabled ModePresentation = "disabled"
	PresentReady    ModePresentation = "ready"
)

// ModeView is the projected look of one mode control.
type ModeView struct {
	State     ModePresentation `json:"state"`
	Active    bool             `json:"active"`
	Completed bool             `json:"completed"`
	Disabled  bool             `json:"disabled"`
	Entry     bool             `json:"entry,omitempty"` // the idle worker's single entry point
}

// SubWorkerState is the derived look of a sub-worker.
type SubWorkerState string

const (
	SubWorkerOffline SubWorkerState = "offline"
	SubWorkerIdle    SubWorkerState = "idle"
	SubWorkerActive  SubWorkerState = "active"
)

// SubWorkerStateOf derives the presentation of a sub-worker.
func SubWorkerStateOf(ref SubWorkerRef) SubWorkerState {
	switch {
	case !ref.Ready:
		return SubWorkerOffline
	case ref.Status:
		return SubWorkerActive
	default:
		return SubWorkerIdle
	}
}

// WorkerView is the projected look of one worker.
type WorkerView struct {
	Modes      map[string]ModeView       `json:"modes"`
	SubWorkers map[string]SubWorkerState `json:"subworkers"`
	StopLit    bool                      `json:"stop_lit"`
	Ready      bool                      `json:"ready"`
	ActiveMode string                    `json:"active_mode"`
}

// NewWorkerView returns an empty worker view with maps allocated.
func NewWorkerView() *WorkerView {
	return &WorkerView{
		Modes:      make(map[string]ModeView),
		SubWorkers: make(map[string]SubWorkerState),
	}
}

// Presentation is the projected look of every worker, keyed by name.
type Presentation map[string]*WorkerView

// Clone returns a deep copy so projections never alias their input.
func (p Presentation) Clone() Presentation {
	out := make(Presentation, len(p))
	for name, wv := range p {
		if wv == nil {
			continue
		}
		c := NewWorkerView()
		c.StopLit = wv.StopLit
		c.Ready = wv.Ready
		c.ActiveMode = wv.ActiveMode
		for k, v := range wv.Modes {
			c.Modes[k] = v
		}
		for k, v := range wv.SubWorkers {
			c.SubWorkers[k] = v
		}
		out[name] = c
	}
	return out
}

// DirectiveKind names a render instruction.
type DirectiveKind string

const (
	DirMode          DirectiveKind = "mode"
	DirSubWorker     DirectiveKind = "subworker"
	DirStop          DirectiveKind = "stop"
	DirWorkerReady   DirectiveKind = "worker_ready"
	DirLockIcon      DirectiveKind = "lock_icon"
	DirManualControl DirectiveKind = "manual_control"
	DirLiveUpdate    DirectiveKind = "live_update"
	DirLiveEnabled   DirectiveKind = "live_update_enabled"
	DirPulse         DirectiveKind = "pulse"
	DirAck           DirectiveKind = "ack"
)

// Directive tells the renderer to change one element.
// Target is the mode or sub-worker name for DirMode/DirSubWorker and the
// command event for DirAck.
type Directive struct {
	Kind      DirectiveKind  `json:"kind"`
	Worker    string         `json:"worker,omitempty"`
	Target    string         `json:"target,omitempty"`
	Mode      ModeView       `json:"mode"`
	SubWorker SubWorkerState `json:"subworker,omitempty"`
	On        bool           `json:"on"`
}
