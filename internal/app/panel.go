package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/jaakkos/helmpanel/internal/domain"
	"github.com/jaakkos/helmpanel/internal/projector"
)

var (
	// ErrUnknownControl is returned when an interaction matches no control.
	ErrUnknownControl = errors.New("no control for target")
	// ErrInactive is returned when interacting before the page is loaded.
	ErrInactive = errors.New("subsystem view not active")
	// ErrStopped is returned once the panel loop has exited.
	ErrStopped = errors.New("panel stopped")
)

// Outcome says what an interaction did.
type Outcome string

const (
	OutcomeSent    Outcome = "sent"    // a command was pushed
	OutcomeLocal   Outcome = "local"   // handled in the view only
	OutcomeIgnored Outcome = "ignored" // dropped, e.g. device click without manual control
)

const eventQueueSize = 64

// Panel is one subsystem view. All view state is owned by a single loop
// goroutine: interactions, replies, broadcasts, timer ticks and layout
// reloads are queued and run one at a time, so nothing is mutated
// concurrently. Pushes run off-loop and queue their replies back.
type Panel struct {
	channel  Channel
	store    ViewStore
	renderer Renderer
	policy   Policy
	logger   *log.Logger

	router *Router
	live   *LiveUpdateScheduler

	events   chan func()
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
	runCtx   context.Context

	// loop-owned
	active       bool
	view         domain.ViewState
	presentation domain.Presentation
	layout       domain.Layout
	dispatcher   *Dispatcher
	lock         LockController
	last         *domain.Snapshot

	// published copy for readers outside the loop
	mu  sync.RWMutex
	pub Status
}

// Status is a read-only copy of the panel's state.
type Status struct {
	Subsystem   string           `json:"subsystem"`
	Active      bool             `json:"active"`
	View        domain.ViewState `json:"view"`
	Controls    []string         `json:"controls"`
	LockPending bool             `json:"lock_pending"`
}

// NewPanel creates a panel. Run must be started before using it.
func NewPanel(channel Channel, store ViewStore, renderer Renderer, policy Policy, logger *log.Logger) *Panel {
	p := &Panel{
		channel:      channel,
		store:        store,
		renderer:     renderer,
		policy:       policy,
		logger:       logger,
		router:       NewRouter(policy.ReplyTag(), policy.DebugBroadcasts(), logger),
		events:       make(chan func(), eventQueueSize),
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
		runCtx:       context.Background(),
		view:         domain.NewViewState(),
		presentation: domain.Presentation{},
	}
	p.live = NewLiveUpdateScheduler(p.queuePulse, logger, WithLiveUpdateInterval(policy.LiveUpdateInterval()))
	p.loadLayout()
	p.publish()
	return p
}

// Run processes queued events until ctx is cancelled or Stop is called.
func (p *Panel) Run(ctx context.Context) {
	defer close(p.doneCh)
	p.runCtx = ctx
	p.logger.Printf("Panel: %s running", p.policy.Subsystem())
	for {
		select {
		case <-ctx.Done():
			p.live.Stop()
			p.logger.Println("Panel: stopped (context cancelled)")
			return
		case <-p.stopCh:
			p.live.Stop()
			p.logger.Println("Panel: stopped")
			return
		case fn := <-p.events:
			fn()
			p.publish()
		}
	}
}

// Stop ends the loop and waits for it to exit.
func (p *Panel) Stop() {
	p.stopOnce.Do(func() { close(p.stopCh) })
	<-p.doneCh
}

// Status returns the last published state.
func (p *Panel) Status() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s := p.pub
	s.Controls = append([]string(nil), p.pub.Controls...)
	return s
}

// PageLoaded activates the view when page is this panel's subsystem:
// stored view state is restored, the live-update button enabled, and the
// server asked for a first snapshot. Other pages are ignored.
func (p *Panel) PageLoaded(ctx context.Context, page string) error {
	return p.call(ctx, func() error {
		if page != p.policy.Subsystem() {
			return nil
		}
		p.activate()
		return nil
	})
}

// Deactivate leaves the view: the live-update timer is cancelled and the
// button disabled. View state stays in the session store.
func (p *Panel) Deactivate(ctx context.Context) error {
	return p.call(ctx, func() error {
		if !p.active {
			return nil
		}
		p.active = false
		p.live.Stop()
		p.saveView()
		p.renderer.Apply([]domain.Directive{{Kind: domain.DirLiveEnabled, On: false}})
		p.logger.Printf("Panel: %s deactivated", p.policy.Subsystem())
		return nil
	})
}

// Interact handles a strike on the control at (or enclosing) target.
func (p *Panel) Interact(ctx context.Context, target string) (Outcome, error) {
	var out Outcome
	err := p.call(ctx, func() error {
		var err error
		out, err = p.interact(target)
		return err
	})
	return out, err
}

// HandleBroadcast queues an unsolicited server push. It never blocks the
// transport: when the queue is full the snapshot is dropped and logged,
// and the next broadcast carries the full status again.
func (p *Panel) HandleBroadcast(payload json.RawMessage) {
	fn := func() {
		snap, ok := p.router.Broadcast(payload)
		if !ok {
			return
		}
		p.applySnapshot(snap, "")
	}
	select {
	case p.events <- fn:
	case <-p.doneCh:
	default:
		p.logger.Println("Panel: broadcast dropped (queue full)")
	}
}

// ReloadLayout re-resolves the control vocabulary from the policy and
// re-renders from the last snapshot.
func (p *Panel) ReloadLayout(ctx context.Context) error {
	return p.call(ctx, func() error {
		p.loadLayout()
		if !p.active {
			return nil
		}
		p.presentation = domain.Presentation{}
		p.renderer.Reset()
		p.renderer.Apply(p.flagDirectives())
		if p.last != nil {
			next, directives := projector.Project(p.presentation, *p.last, p.view.Locked, p.layout)
			p.presentation = next
			p.renderer.Apply(directives)
		}
		p.logger.Printf("Panel: layout reloaded (%d controls)", len(p.dispatcher.Controls()))
		return nil
	})
}

func (p *Panel) activate() {
	view, found, err := p.store.Get(p.policy.Subsystem())
	if err != nil {
		p.logger.Printf("Panel: load view state: %v", err)
		view = domain.NewViewState()
	} else if !found {
		view = domain.NewViewState()
	}
	p.view = view
	p.lock = LockController{}
	p.active = true
	p.loadLayout()
	p.presentation = domain.Presentation{}
	p.last = nil
	p.saveView()

	p.renderer.Reset()
	p.renderer.Apply(p.flagDirectives())
	if p.view.LiveUpdate {
		p.live.Start()
	}
	p.logger.Printf("Panel: %s activated (locked=%v manual=%v live=%v)",
		p.policy.Subsystem(), p.view.Locked, p.view.ManualControl, p.view.LiveUpdate)

	p.push(EventPageLoaded, map[string]string{"subsystem": p.policy.Subsystem()})
}

func (p *Panel) interact(target string) (Outcome, error) {
	if !p.active {
		return OutcomeIgnored, ErrInactive
	}
	id, c, ok := p.dispatcher.Resolve(target)
	if !ok {
		return OutcomeIgnored, fmt.Errorf("%w %q", ErrUnknownControl, target)
	}
	cmd := p.dispatcher.Command(c)

	switch cmd.Action {
	case ActionUnlockModes:
		next, directives, lockCmd := p.lock.Toggle(&p.view, p.presentation, p.layout, cmd)
		p.presentation = next
		p.saveView()
		p.renderer.Apply(directives)
		if lockCmd == nil {
			return OutcomeLocal, nil
		}
		p.push(p.policy.ClickEvent(), *lockCmd)
		return OutcomeSent, nil

	case ActionManualControl:
		d, manualCmd := ToggleManualControl(&p.view, cmd)
		p.saveView()
		p.renderer.Apply([]domain.Directive{d})
		p.push(p.policy.ClickEvent(), manualCmd)
		return OutcomeSent, nil

	case ActionLiveUpdate:
		p.setLiveUpdate(!p.view.LiveUpdate)
		cmd.Value = p.view.LiveUpdate
		p.push(p.policy.ClickEvent(), cmd)
		return OutcomeSent, nil
	}

	if needsManualControl(cmd) && !p.view.ManualControl {
		p.logger.Printf("Dispatcher: %s ignored: manual control is off", id)
		return OutcomeIgnored, nil
	}
	p.push(p.policy.ClickEvent(), cmd)
	return OutcomeSent, nil
}

// applySnapshot reconciles view flags from the ui section, projects and
// renders. event is the command the snapshot answers, "" for broadcasts.
func (p *Panel) applySnapshot(snap domain.Snapshot, event string) {
	if !p.active {
		return
	}
	p.last = &snap

	var directives []domain.Directive
	unlocked := false
	if snap.UI != nil {
		wasLocked := p.view.Locked
		if p.lock.Reconcile(&p.view, snap.UI.ModesLocked) {
			directives = append(directives, lockIcon(p.view.Locked))
			unlocked = wasLocked && !p.view.Locked
		}
		if snap.UI.LiveUpdate != nil && *snap.UI.LiveUpdate != p.view.LiveUpdate {
			p.setLiveUpdate(*snap.UI.LiveUpdate)
		}
		p.saveView()
	}

	next, projected := projector.Project(p.presentation, snap, p.view.Locked, p.layout)
	directives = append(directives, projected...)
	if unlocked {
		var revealed []domain.Directive
		next, revealed = projector.RevealBusy(next, p.layout)
		directives = append(directives, revealed...)
	}
	p.presentation = next

	if event != "" {
		directives = append(directives, domain.Directive{Kind: domain.DirAck, Target: event})
	}
	p.renderer.Apply(directives)
}

func (p *Panel) handleReply(event string, reply domain.Reply) {
	snap, ok := p.router.Reply(event, reply)
	if !ok {
		return
	}
	p.applySnapshot(snap, event)
}

func (p *Panel) setLiveUpdate(on bool) {
	p.view.LiveUpdate = on
	p.saveView()
	if on && p.active {
		p.live.Start()
	} else {
		p.live.Stop()
	}
	p.renderer.Apply([]domain.Directive{{Kind: domain.DirLiveUpdate, On: on}})
}

func (p *Panel) queuePulse() {
	fn := func() {
		if p.active && p.view.LiveUpdate {
			p.renderer.Apply([]domain.Directive{{Kind: domain.DirPulse, On: true}})
		}
	}
	// A pulse is cosmetic; drop it rather than wait on a full queue.
	select {
	case p.events <- fn:
	default:
	}
}

// push sends off-loop and queues the reply back onto the loop.
func (p *Panel) push(event string, payload any) {
	ctx := p.runCtx
	timeout := p.policy.CommandTimeout()
	go func() {
		reply := p.channel.Push(ctx, event, payload, timeout)
		p.post(func() { p.handleReply(event, reply) })
	}()
}

func (p *Panel) saveView() {
	if err := p.store.Put(p.policy.Subsystem(), p.view); err != nil {
		p.logger.Printf("Panel: save view state: %v", err)
	}
}

func (p *Panel) loadLayout() {
	p.layout = p.policy.Layout()
	p.dispatcher = NewDispatcher(p.layout)
}

func (p *Panel) flagDirectives() []domain.Directive {
	return []domain.Directive{
		lockIcon(p.view.Locked),
		{Kind: domain.DirManualControl, On: p.view.ManualControl},
		{Kind: domain.DirLiveUpdate, On: p.view.LiveUpdate},
		{Kind: domain.DirLiveEnabled, On: p.active},
	}
}

func (p *Panel) publish() {
	s := Status{
		Subsystem:   p.policy.Subsystem(),
		Active:      p.active,
		View:        p.view,
		Controls:    p.dispatcher.Controls(),
		LockPending: p.lock.Pending(),
	}
	p.mu.Lock()
	p.pub = s
	p.mu.Unlock()
}

// post queues fn on the loop. It gives up once the loop has exited.
func (p *Panel) post(fn func()) {
	select {
	case p.events <- fn:
	case <-p.doneCh:
	}
}

// call runs fn on the loop and waits for its result. Status reflects fn's
// effects by the time call returns.
func (p *Panel) call(ctx context.Context, fn func() error) error {
	result := make(chan error, 1)
	select {
	case p.events <- func() {
		err := fn()
		p.publish()
		result <- err
	}:
	case <-p.doneCh:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-result:
		return err
	case <-p.doneCh:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}
