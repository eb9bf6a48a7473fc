package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jaakkos/helmpanel/internal/domain"
)

type pushed struct {
	event   string
	payload any
}

// fakeChannel records pushes and answers with reply (nop when nil).
type fakeChannel struct {
	mu     sync.Mutex
	pushes []pushed
	reply  func(event string, payload any) domain.Reply
}

func (f *fakeChannel) Push(_ context.Context, event string, payload any, _ time.Duration) domain.Reply {
	f.mu.Lock()
	f.pushes = append(f.pushes, pushed{event: event, payload: payload})
	fn := f.reply
	f.mu.Unlock()
	if fn == nil {
		return domain.Reply{Tag: domain.TagNop}
	}
	return fn(event, payload)
}

func (f *fakeChannel) Pushes() []pushed {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]pushed(nil), f.pushes...)
}

// Commands returns the click commands pushed so far.
func (f *fakeChannel) Commands() []domain.Command {
	var out []domain.Command
	for _, p := range f.Pushes() {
		if cmd, ok := p.payload.(domain.Command); ok {
			out = append(out, cmd)
		}
	}
	return out
}

func (f *fakeChannel) setReply(fn func(event string, payload any) domain.Reply) {
	f.mu.Lock()
	f.reply = fn
	f.mu.Unlock()
}

// fakeRenderer records every directive applied since the last Reset.
type fakeRenderer struct {
	mu         sync.Mutex
	directives []domain.Directive
	resets     int
}

func (r *fakeRenderer) Apply(ds []domain.Directive) {
	r.mu.Lock()
	r.directives = append(r.directives, ds...)
	r.mu.Unlock()
}

func (r *fakeRenderer) Reset() {
	r.mu.Lock()
	r.directives = nil
	r.resets++
	r.mu.Unlock()
}

func (r *fakeRenderer) all() []domain.Directive {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Directive(nil), r.directives...)
}

func (r *fakeRenderer) resetCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resets
}

func (r *fakeRenderer) count(kind domain.DirectiveKind) int {
	n := 0
	for _, d := range r.all() {
		if d.Kind == kind {
			n++
		}
	}
	return n
}

// last returns the most recent directive of kind for worker/target.
func (r *fakeRenderer) last(kind domain.DirectiveKind, worker, target string) (domain.Directive, bool) {
	ds := r.all()
	for i := len(ds) - 1; i >= 0; i-- {
		d := ds[i]
		if d.Kind == kind && d.Worker == worker && d.Target == target {
			return d, true
		}
	}
	return domain.Directive{}, false
}

type fakeStore struct {
	mu     sync.Mutex
	states map[string]domain.ViewState
	puts   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{states: make(map[string]domain.ViewState)}
}

func (s *fakeStore) Get(subsystem string) (domain.ViewState, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.states[subsystem]
	if !ok {
		return domain.NewViewState(), false, nil
	}
	return v, true, nil
}

func (s *fakeStore) GetField(subsystem, key string) (bool, error) {
	v, _, _ := s.Get(subsystem)
	got, _ := v.Field(key)
	return got, nil
}

func (s *fakeStore) Put(subsystem string, v domain.ViewState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[subsystem] = v
	s.puts++
	return nil
}

func (s *fakeStore) Close() error { return nil }

type fakePolicy struct {
	mu       sync.Mutex
	layout   domain.Layout
	interval time.Duration
	debug    bool
}

func newFakePolicy() *fakePolicy {
	return &fakePolicy{layout: testLayout(), interval: time.Hour}
}

func (p *fakePolicy) Subsystem() string                 { return "reef" }
func (p *fakePolicy) ClickEvent() string                { return "reef_click" }
func (p *fakePolicy) ReplyTag() string                  { return "reef" }
func (p *fakePolicy) CommandTimeout() time.Duration     { return time.Second }
func (p *fakePolicy) LiveUpdateInterval() time.Duration { return p.interval }
func (p *fakePolicy) DebugBroadcasts() bool             { return p.debug }

func (p *fakePolicy) Layout() domain.Layout {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.layout
}

func (p *fakePolicy) setLayout(l domain.Layout) {
	p.mu.Lock()
	p.layout = l
	p.mu.Unlock()
}

func testLayout() domain.Layout {
	return domain.Layout{
		Subsystem: "reef",
		Workers: []domain.WorkerLayout{{
			Name:      "captain",
			FirstMode: "fill",
			Modes:     []string{"fill", "drain", "mix"},
			SubWorkers: []domain.SubWorkerSpec{
				{Name: "pump", Kind: domain.KindDevice},
				{Name: "first_mate", Kind: domain.KindSubWorker},
			},
			Actions: []string{ActionStop, ActionUnlockModes, ActionManualControl},
		}},
		Actions: []string{ActionLiveUpdate},
	}
}

func newTestLogger(w io.Writer) *log.Logger {
	return log.New(w, "", 0)
}

// syncBuffer is a log sink safe to read while the panel logs.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type harness struct {
	panel    *Panel
	channel  *fakeChannel
	renderer *fakeRenderer
	store    *fakeStore
	policy   *fakePolicy
	logs     *syncBuffer
}

func newHarness(t *testing.T, configure ...func(*harness)) *harness {
	t.Helper()
	h := &harness{
		channel:  &fakeChannel{},
		renderer: &fakeRenderer{},
		store:    newFakeStore(),
		policy:   newFakePolicy(),
		logs:     &syncBuffer{},
	}
	for _, c := range configure {
		c(h)
	}
	h.panel = NewPanel(h.channel, h.store, h.renderer, h.policy, newTestLogger(h.logs))
	ctx, cancel := context.WithCancel(context.Background())
	go h.panel.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-h.panel.doneCh
	})
	return h
}

func (h *harness) load(t *testing.T) {
	t.Helper()
	if err := h.panel.PageLoaded(context.Background(), "reef"); err != nil {
		t.Fatalf("PageLoaded: %v", err)
	}
}

func (h *harness) interact(t *testing.T, target string) Outcome {
	t.Helper()
	out, err := h.panel.Interact(context.Background(), target)
	if err != nil {
		t.Fatalf("Interact(%q): %v", target, err)
	}
	return out
}

// flush waits until every event queued so far has run.
func (h *harness) flush(t *testing.T) {
	t.Helper()
	if err := h.panel.call(context.Background(), func() error { return nil }); err != nil {
		t.Fatalf("flush: %v", err)
	}
}

func (h *harness) broadcast(t *testing.T, payload string) {
	t.Helper()
	h.panel.HandleBroadcast(json.RawMessage(payload))
	h.flush(t)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func (h *harness) waitLog(t *testing.T, substr string) {
	t.Helper()
	waitFor(t, "log "+substr, func() bool { return strings.Contains(h.logs.String(), substr) })
}

func snapshotReply(payload string) domain.Reply {
	return domain.Reply{Tag: "reef", Payload: json.RawMessage(payload)}
}
