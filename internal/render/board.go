// Package render applies projector directives to concrete views: an
// in-memory Board read by the dashboard and MCP tools, and a Terminal that
// draws the board with lipgloss.
package render

import (
	"sync"
	"time"

	"github.com/jaakkos/helmpanel/internal/domain"
)

// WorkerView is the rendered look of one worker.
type WorkerView struct {
	Name       string          `json:"name"`
	Modes      []ModeCell      `json:"modes"`
	SubWorkers []SubWorkerCell `json:"subworkers"`
	StopLit    bool            `json:"stop_lit"`
	Ready      bool            `json:"ready"`
}

// ModeCell is one mode control in render order.
type ModeCell struct {
	Name string `json:"name"`
	domain.ModeView
}

// SubWorkerCell is one device or sub-worker control in render order.
type SubWorkerCell struct {
	Name  string                `json:"name"`
	State domain.SubWorkerState `json:"state"`
}

// PanelView holds the panel-wide affordances.
type PanelView struct {
	LockOpen      bool      `json:"lock_open"`
	ManualControl bool      `json:"manual_control"`
	LiveUpdate    bool      `json:"live_update"`
	LiveEnabled   bool      `json:"live_update_enabled"`
	Pulses        int       `json:"pulses"`
	LastAck       string    `json:"last_ack,omitempty"`
	LastAckAt     time.Time `json:"last_ack_at"`
}

// View is a copy of the whole board.
type View struct {
	Workers []WorkerView `json:"workers"`
	Panel   PanelView    `json:"panel"`
}

// Worker returns the rendered worker by name.
func (v View) Worker(name string) (WorkerView, bool) {
	for _, w := range v.Workers {
		if w.Name == name {
			return w, true
		}
	}
	return WorkerView{}, false
}

// Mode returns the rendered mode of the worker.
func (w WorkerView) Mode(name string) (domain.ModeView, bool) {
	for _, m := range w.Modes {
		if m.Name == name {
			return m.ModeView, true
		}
	}
	return domain.ModeView{}, false
}

type workerState struct {
	modes      map[string]domain.ModeView
	modeOrder  []string
	subWorkers map[string]domain.SubWorkerState
	subOrder   []string
	stopLit    bool
	ready      bool
}

// Board is a concurrency-safe presentation model fed by directives.
// Workers and modes keep the order in which they were first rendered.
type Board struct {
	mu      sync.RWMutex
	workers map[string]*workerState
	order   []string
	panel   PanelView
	now     func() time.Time
}

// NewBoard creates an empty board.
func NewBoard() *Board {
	return &Board{workers: make(map[string]*workerState), now: time.Now}
}

// Apply implements app.Renderer.
func (b *Board) Apply(directives []domain.Directive) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, d := range directives {
		b.apply(d)
	}
}

func (b *Board) apply(d domain.Directive) {
	switch d.Kind {
	case domain.DirMode:
		w := b.worker(d.Worker)
		if _, ok := w.modes[d.Target]; !ok {
			w.modeOrder = append(w.modeOrder, d.Target)
		}
		w.modes[d.Target] = d.Mode
	case domain.DirSubWorker:
		w := b.worker(d.Worker)
		if _, ok := w.subWorkers[d.Target]; !ok {
			w.subOrder = append(w.subOrder, d.Target)
		}
		w.subWorkers[d.Target] = d.SubWorker
	case domain.DirStop:
		b.worker(d.Worker).stopLit = d.On
	case domain.DirWorkerReady:
		b.worker(d.Worker).ready = d.On
	case domain.DirLockIcon:
		b.panel.LockOpen = d.On
	case domain.DirManualControl:
		b.panel.ManualControl = d.On
	case domain.DirLiveUpdate:
		b.panel.LiveUpdate = d.On
	case domain.DirLiveEnabled:
		b.panel.LiveEnabled = d.On
	case domain.DirPulse:
		b.panel.Pulses++
	case domain.DirAck:
		b.panel.LastAck = d.Target
		b.panel.LastAckAt = b.now()
	}
}

func (b *Board) worker(name string) *workerState {
	w, ok := b.workers[name]
	if !ok {
		w = &workerState{
			modes:      make(map[string]domain.ModeView),
			subWorkers: make(map[string]domain.SubWorkerState),
		}
		b.workers[name] = w
		b.order = append(b.order, name)
	}
	return w
}

// Reset implements app.Renderer: the board is cleared before a view is
// rebuilt from scratch.
func (b *Board) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.workers = make(map[string]*workerState)
	b.order = nil
	b.panel = PanelView{}
}

// View returns a copy of the board.
func (b *Board) View() View {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v := View{Workers: make([]WorkerView, 0, len(b.order)), Panel: b.panel}
	for _, wname := range b.order {
		w := b.workers[wname]
		wv := WorkerView{
			Name:       wname,
			Modes:      make([]ModeCell, 0, len(w.modeOrder)),
			SubWorkers: make([]SubWorkerCell, 0, len(w.subOrder)),
			StopLit:    w.stopLit,
			Ready:      w.ready,
		}
		for _, m := range w.modeOrder {
			wv.Modes = append(wv.Modes, ModeCell{Name: m, ModeView: w.modes[m]})
		}
		for _, name := range w.subOrder {
			wv.SubWorkers = append(wv.SubWorkers, SubWorkerCell{Name: name, State: w.subWorkers[name]})
		}
		v.Workers = append(v.Workers, wv)
	}
	return v
}
