// Package scheduler fires sweep passes at a fixed interval and never lets
// two passes run at the same time.
package scheduler

import (
	"context"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
)

type State int32

const (
	Idle State = iota
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "idle"
}

// Ticker is the subset of time.Ticker the scheduler uses.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFunc creates the ticker driving the scheduler.
type TickerFunc func(d time.Duration) Ticker

type timeTicker struct{ t *time.Ticker }

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

func NewTimeTicker(d time.Duration) Ticker {
	return timeTicker{t: time.NewTicker(d)}
}

// PassFunc is one evaluation pass. A returned error is logged; the
// scheduler goes back to Idle either way.
type PassFunc func(ctx context.Context) error

type Option func(*Scheduler)

func WithTicker(f TickerFunc) Option {
	return func(s *Scheduler) { s.newTicker = f }
}

// WithDroppedHook is called for every trigger dropped because a pass was running.
func WithDroppedHook(f func()) Option {
	return func(s *Scheduler) { s.onDropped = f }
}

// WithRunOnStart runs a first pass as soon as the scheduler starts.
func WithRunOnStart() Option {
	return func(s *Scheduler) { s.runOnStart = true }
}

type Scheduler struct {
	interval   time.Duration
	pass       PassFunc
	newTicker  TickerFunc
	onDropped  func()
	runOnStart bool

	state atomic.Int32

	mu       sync.Mutex
	started  bool
	stopped  bool
	stopCh   chan struct{}
	loopDone chan struct{}
	passes   sync.WaitGroup
}

func New(interval time.Duration, pass PassFunc, opts ...Option) *Scheduler {
	s := &Scheduler{
		interval:  interval,
		pass:      pass,
		newTicker: NewTimeTicker,
		onDropped: func() {},
		stopCh:    make(chan struct{}),
		loopDone:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// Start begins firing at the configured interval. Calling it twice is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.started || s.stopped {
		s.mu.Unlock()
		return
	}
	s.started = true
	ticker := s.newTicker(s.interval)
	s.mu.Unlock()

	go s.loop(ticker)
	log.WithField("interval", s.interval).Info("🚀 Sweep scheduler started.")

	if s.runOnStart {
		s.Trigger()
	}
}

func (s *Scheduler) loop(ticker Ticker) {
	defer close(s.loopDone)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C():
			s.Trigger()
		}
	}
}

// Trigger starts a pass unless one is already running or the scheduler is
// stopped. A trigger that finds a pass running is dropped, not queued.
func (s *Scheduler) Trigger() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return false
	}
	if !s.state.CompareAndSwap(int32(Idle), int32(Running)) {
		log.Debug("Sweep still running, dropping trigger")
		s.onDropped()
		return false
	}

	s.passes.Add(1)
	go s.run()
	return true
}

func (s *Scheduler) run() {
	defer s.passes.Done()
	defer s.state.Store(int32(Idle))
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("🔥 Panic recovered in sweep pass: %v\n%s", r, debug.Stack())
		}
	}()

	// an in-flight pass is never cancelled from outside; it runs to completion
	if err := s.pass(context.Background()); err != nil {
		log.Errorf("❌ Sweep pass failed: %v", err)
	}
}

// Stop cancels the pending timer and waits for an in-flight pass to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	started := s.started
	s.mu.Unlock()

	close(s.stopCh)
	if started {
		<-s.loopDone
	}
	s.passes.Wait()
	log.Info("Sweep scheduler stopped.")
}
