package app

import (
	"log"
	"sync"
	"time"
)

const defaultLiveUpdateInterval = 5 * time.Second

// LiveUpdateScheduler pulses the live-update affordance on a fixed period
// while the feature is on. The pulse is cosmetic: it never requests data.
type LiveUpdateScheduler struct {
	interval time.Duration
	pulse    func()
	logger   *log.Logger

	mu     sync.Mutex
	stopCh chan struct{}
	doneCh chan struct{}
}

// LiveUpdateOption configures the scheduler.
type LiveUpdateOption func(*LiveUpdateScheduler)

// WithLiveUpdateInterval sets the pulse period.
func WithLiveUpdateInterval(d time.Duration) LiveUpdateOption {
	return func(s *LiveUpdateScheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// NewLiveUpdateScheduler creates a stopped scheduler that calls pulse on
// every tick once started.
func NewLiveUpdateScheduler(pulse func(), logger *log.Logger, opts ...LiveUpdateOption) *LiveUpdateScheduler {
	s := &LiveUpdateScheduler{
		interval: defaultLiveUpdateInterval,
		pulse:    pulse,
		logger:   logger,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Start begins pulsing. Starting a running scheduler does nothing.
func (s *LiveUpdateScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopCh != nil {
		return
	}
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	go s.loop(s.stopCh, s.doneCh)
	s.logger.Printf("LiveUpdate: started (interval=%s)", s.interval)
}

// Stop cancels the timer and waits for the loop to exit. Stopping a
// stopped scheduler does nothing.
func (s *LiveUpdateScheduler) Stop() {
	s.mu.Lock()
	stopCh, doneCh := s.stopCh, s.doneCh
	s.stopCh, s.doneCh = nil, nil
	s.mu.Unlock()
	if stopCh == nil {
		return
	}
	close(stopCh)
	<-doneCh
	s.logger.Println("LiveUpdate: stopped")
}

// Running reports whether the timer is active.
func (s *LiveUpdateScheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopCh != nil
}

// PulseOnce fires one pulse (for testing or manual trigger).
func (s *LiveUpdateScheduler) PulseOnce() {
	s.pulse()
}

func (s *LiveUpdateScheduler) loop(stopCh, doneCh chan struct{}) {
	defer close(doneCh)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			s.pulse()
		}
	}
}
