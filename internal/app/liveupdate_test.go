package app

import (
	"io"
	"log"
	"sync/atomic"
	"testing"
	"time"
)

func TestLiveUpdateScheduler_PulsesWhileRunning(t *testing.T) {
	var pulses atomic.Int32
	s := NewLiveUpdateScheduler(func() { pulses.Add(1) }, log.New(io.Discard, "", 0),
		WithLiveUpdateInterval(5*time.Millisecond))

	s.Start()
	s.Start()
	if !s.Running() {
		t.Fatal("scheduler should be running")
	}
	waitFor(t, "pulses", func() bool { return pulses.Load() >= 2 })

	s.Stop()
	s.Stop()
	if s.Running() {
		t.Fatal("scheduler should be stopped")
	}
	stopped := pulses.Load()
	time.Sleep(20 * time.Millisecond)
	if got := pulses.Load(); got != stopped {
		t.Errorf("pulsed after Stop: %d -> %d", stopped, got)
	}
}

func TestLiveUpdateScheduler_Restart(t *testing.T) {
	var pulses atomic.Int32
	s := NewLiveUpdateScheduler(func() { pulses.Add(1) }, log.New(io.Discard, "", 0),
		WithLiveUpdateInterval(5*time.Millisecond))
	s.Start()
	s.Stop()
	before := pulses.Load()
	s.Start()
	defer s.Stop()
	waitFor(t, "pulse after restart", func() bool { return pulses.Load() > before })
}

func TestLiveUpdateScheduler_IntervalOption(t *testing.T) {
	s := NewLiveUpdateScheduler(func() {}, log.New(io.Discard, "", 0), WithLiveUpdateInterval(0))
	if s.interval != defaultLiveUpdateInterval {
		t.Errorf("interval = %s, want default", s.interval)
	}
	s = NewLiveUpdateScheduler(func() {}, log.New(io.Discard, "", 0), WithLiveUpdateInterval(time.Second))
	if s.interval != time.Second {
		t.Errorf("interval = %s, want 1s", s.interval)
	}
}

func TestLiveUpdateScheduler_PulseOnce(t *testing.T) {
	n := 0
	s := NewLiveUpdateScheduler(func() { n++ }, log.New(io.Discard, "", 0))
	s.PulseOnce()
	if n != 1 || s.Running() {
		t.Errorf("n=%d running=%v, want 1 false", n, s.Running())
	}
}
