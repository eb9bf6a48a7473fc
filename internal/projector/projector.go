// Package projector reduces status snapshots into panel presentations.
//
// Project is a pure function: it reads the previous presentation, never
// mutates it, and returns the next presentation plus the render directives
// that turn the old look into the new one. Applying the same snapshot to
// the same previous presentation always yields the same result, so
// out-of-order or duplicated snapshots are harmless.
package projector

import (
	"github.com/jaakkos/helmpanel/internal/domain"
)

// ModeViewFor is the presentation table for a single mode.
//
//	running, holding -> active (lock ignored)
//	finished         -> finished, disabled marker mirrors locked
//	none             -> disabled when locked, ready otherwise
func ModeViewFor(status domain.ModeStatus, locked bool) domain.ModeView {
	switch status {
	case domain.ModeRunning, domain.ModeHolding:
		return domain.ModeView{State: domain.PresentActive, Active: true}
	case domain.ModeFinished:
		return domain.ModeView{State: domain.PresentFinished, Completed: true, Disabled: locked}
	default:
		if locked {
			return domain.ModeView{State: domain.PresentDisabled, Disabled: true}
		}
		return domain.ModeView{State: domain.PresentReady}
	}
}

// entryView is the distinguished ready look of an idle worker's first mode.
func entryView() domain.ModeView {
	return domain.ModeView{State: domain.PresentReady, Entry: true}
}

func disabledView() domain.ModeView {
	return domain.ModeView{State: domain.PresentDisabled, Disabled: true}
}

// Project applies snap to prev. Workers, modes and sub-workers the layout
// does not know are skipped. Every layout mode of a reported worker is
// re-projected: an idle worker shows only its entry point, a busy one
// shows its active mode plus the statuses it reports.
func Project(prev domain.Presentation, snap domain.Snapshot, locked bool, layout domain.Layout) (domain.Presentation, []domain.Directive) {
	next := prev.Clone()
	var directives []domain.Directive
	seen := make(map[string]bool, len(snap.Workers))

	for _, w := range snap.Workers {
		wl, ok := layout.Worker(w.Name)
		if !ok || seen[w.Name] {
			continue
		}
		seen[w.Name] = true

		before := prev[w.Name]
		after := projectWorker(before, w, wl, locked)
		next[w.Name] = after
		directives = append(directives, diffWorker(before, after, wl)...)
	}
	return next, directives
}

func projectWorker(before *domain.WorkerView, w domain.Worker, wl domain.WorkerLayout, locked bool) *domain.WorkerView {
	after := domain.NewWorkerView()
	if before != nil {
		for k, v := range before.Modes {
			after.Modes[k] = v
		}
		for k, v := range before.SubWorkers {
			after.SubWorkers[k] = v
		}
	}
	after.Ready = w.Ready
	after.ActiveMode = w.ActiveMode
	after.StopLit = domain.IsIdleSentinel(w.ActiveMode)

	if after.StopLit {
		entry := w.FirstMode
		if !wl.HasMode(entry) {
			entry = wl.EntryMode("")
		}
		for _, m := range wl.Modes {
			if m == entry {
				after.Modes[m] = entryView()
			} else {
				after.Modes[m] = disabledView()
			}
		}
	} else {
		// A busy worker offers no entry point: modes the snapshot omits
		// fall back to the none look and the active mode is lit.
		for _, m := range wl.Modes {
			after.Modes[m] = ModeViewFor(domain.ModeNone, locked)
		}
		if wl.HasMode(w.ActiveMode) {
			after.Modes[w.ActiveMode] = ModeViewFor(domain.ModeRunning, locked)
		}
		done := make(map[string]bool, len(w.Modes))
		for _, m := range w.Modes {
			if !wl.HasMode(m.Name) || done[m.Name] {
				continue
			}
			done[m.Name] = true
			after.Modes[m.Name] = ModeViewFor(m.Status, locked)
		}
	}

	done := make(map[string]bool, len(w.SubWorkers))
	for _, s := range w.SubWorkers {
		if !wl.HasSubWorker(s.Name) || done[s.Name] {
			continue
		}
		done[s.Name] = true
		after.SubWorkers[s.Name] = domain.SubWorkerStateOf(s)
	}
	return after
}

// diffWorker lists what changed between two looks of a worker, in layout
// order. A nil before means nothing has been rendered yet.
func diffWorker(before, after *domain.WorkerView, wl domain.WorkerLayout) []domain.Directive {
	var out []domain.Directive
	fresh := before == nil
	if fresh {
		before = domain.NewWorkerView()
	}

	for _, m := range wl.Modes {
		v, ok := after.Modes[m]
		if !ok {
			continue
		}
		if old, had := before.Modes[m]; fresh || !had || old != v {
			out = append(out, domain.Directive{Kind: domain.DirMode, Worker: wl.Name, Target: m, Mode: v})
		}
	}
	for _, s := range wl.SubWorkers {
		v, ok := after.SubWorkers[s.Name]
		if !ok {
			continue
		}
		if old, had := before.SubWorkers[s.Name]; fresh || !had || old != v {
			out = append(out, domain.Directive{Kind: domain.DirSubWorker, Worker: wl.Name, Target: s.Name, SubWorker: v})
		}
	}
	if fresh || before.StopLit != after.StopLit {
		out = append(out, domain.Directive{Kind: domain.DirStop, Worker: wl.Name, On: after.StopLit})
	}
	if fresh || before.Ready != after.Ready {
		out = append(out, domain.Directive{Kind: domain.DirWorkerReady, Worker: wl.Name, On: after.Ready})
	}
	return out
}

// Reveal clears every disabled marker so an operator can inspect locked
// modes. Active, completed and entry markers are kept.
func Reveal(prev domain.Presentation, layout domain.Layout) (domain.Presentation, []domain.Directive) {
	return reveal(prev, layout, true)
}

// RevealBusy is Reveal restricted to workers that are not idle, so the
// idle entry-point rule survives a server-side unlock.
func RevealBusy(prev domain.Presentation, layout domain.Layout) (domain.Presentation, []domain.Directive) {
	return reveal(prev, layout, false)
}

func reveal(prev domain.Presentation, layout domain.Layout, idle bool) (domain.Presentation, []domain.Directive) {
	next := prev.Clone()
	var directives []domain.Directive
	for _, wl := range layout.Workers {
		wv, ok := next[wl.Name]
		if !ok || (wv.StopLit && !idle) {
			continue
		}
		for _, m := range wl.Modes {
			v, ok := wv.Modes[m]
			if !ok || !v.Disabled {
				continue
			}
			v.Disabled = false
			if v.State == domain.PresentDisabled {
				v.State = domain.PresentReady
			}
			wv.Modes[m] = v
			directives = append(directives, domain.Directive{Kind: domain.DirMode, Worker: wl.Name, Target: m, Mode: v})
		}
	}
	return next, directives
}

// Full lists directives that render p from scratch, in layout order.
func Full(p domain.Presentation, layout domain.Layout) []domain.Directive {
	var out []domain.Directive
	for _, wl := range layout.Workers {
		if wv, ok := p[wl.Name]; ok {
			out = append(out, diffWorker(nil, wv, wl)...)
		}
	}
	return out
}
