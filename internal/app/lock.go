package app

import (
	"github.com/jaakkos/helmpanel/internal/domain"
	"github.com/jaakkos/helmpanel/internal/projector"
)

// LockController owns the optimistic mode lock. Unlocking is local and
// immediate; locking is a request the server confirms or refuses through
// the modesLocked flag of a later snapshot.
type LockController struct {
	pending bool // a lock request awaits the server's verdict
}

// Pending reports whether a lock request is unconfirmed.
func (l *LockController) Pending() bool {
	return l.pending
}

// Toggle handles the unlock-modes control. It returns the next
// presentation, the directives to render and, when locking, the command
// to send. Unlocking sends nothing.
func (l *LockController) Toggle(view *domain.ViewState, pres domain.Presentation, layout domain.Layout, cmd domain.Command) (domain.Presentation, []domain.Directive, *domain.Command) {
	if view.Locked {
		view.Locked = false
		l.pending = false
		next, directives := projector.Reveal(pres, layout)
		return next, append(directives, lockIcon(false)), nil
	}

	// Disabled markers come back with the next snapshot, not here.
	view.Locked = true
	l.pending = true
	cmd.Action = ActionLockModes
	return pres, []domain.Directive{lockIcon(true)}, &cmd
}

// Reconcile applies a snapshot's modesLocked flag and reports whether the
// view's lock changed. While a lock request is pending the flag settles it
// either way. Otherwise only a server-side unlock is taken: a local reveal
// is never undone by a routine snapshot.
func (l *LockController) Reconcile(view *domain.ViewState, modesLocked bool) bool {
	before := view.Locked
	switch {
	case l.pending:
		l.pending = false
		view.Locked = modesLocked
	case !modesLocked:
		view.Locked = false
	}
	return view.Locked != before
}

// ToggleManualControl flips the manual-control flag and stamps the new
// value on the command that reports it.
func ToggleManualControl(view *domain.ViewState, cmd domain.Command) (domain.Directive, domain.Command) {
	view.ManualControl = !view.ManualControl
	cmd.Value = view.ManualControl
	return domain.Directive{Kind: domain.DirManualControl, On: view.ManualControl}, cmd
}

// lockIcon shows the lock closed when locked.
func lockIcon(locked bool) domain.Directive {
	return domain.Directive{Kind: domain.DirLockIcon, On: !locked}
}
