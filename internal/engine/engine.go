package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/Dicklesworthstone/memwatch/internal/model"
	"github.com/Dicklesworthstone/memwatch/internal/sampler"
	"github.com/Dicklesworthstone/memwatch/internal/session"
)

var (
	// ErrNotRunning is returned for requests made while Run is not active.
	ErrNotRunning = errors.New("engine not running")
	// ErrAlreadyStarted is returned by a second call to Run.
	ErrAlreadyStarted = errors.New("engine already started")
)

// Status describes the logging session as last seen by the engine loop.
type Status struct {
	State    session.State
	Taken    int
	Planned  int
	Interval time.Duration
}

// Engine drives the sampler and the logging session from one goroutine.
// Scans and session samples never run concurrently; a slow scan delays the
// next tick of either timer instead of overlapping it.
type Engine struct {
	smp       *sampler.Sampler
	period    time.Duration
	newTicker TickerFunc
	now       func() time.Time
	logger    zerolog.Logger

	mu          sync.Mutex
	onSnapshot  []func(model.Snapshot)
	onAlert     []func(string)
	onLog       func(session.Result) error
	onLogFailed []func(error)

	cmds    chan func()
	started atomic.Bool
	running atomic.Bool
	ready   chan struct{}
	exited  chan struct{}
	status  atomic.Pointer[Status]

	// owned by the Run goroutine
	sess       *session.Session
	sessTicker Ticker
}

// Option configures an Engine.
type Option func(*Engine)

// WithPeriod sets the scan period (default sampler.DefaultInterval).
func WithPeriod(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.period = d
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(l zerolog.Logger) Option { return func(e *Engine) { e.logger = l } }

// WithClock sets the clock used to stamp session samples.
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// WithTicker replaces the ticker factory.
func WithTicker(f TickerFunc) Option { return func(e *Engine) { e.newTicker = f } }

func New(smp *sampler.Sampler, opts ...Option) *Engine {
	e := &Engine{
		smp:       smp,
		period:    sampler.DefaultInterval,
		newTicker: newRealTicker,
		now:       time.Now,
		logger:    zerolog.Nop(),
		cmds:      make(chan func()),
		ready:     make(chan struct{}),
		exited:    make(chan struct{}),
		sess:      session.New(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.status.Store(&Status{State: session.Idle})
	return e
}

// OnSnapshot registers fn to receive every published snapshot. Callbacks
// run on the engine goroutine and must not block.
func (e *Engine) OnSnapshot(fn func(model.Snapshot)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onSnapshot = append(e.onSnapshot, fn)
}

// OnAlert registers fn to receive alert messages.
func (e *Engine) OnAlert(fn func(string)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onAlert = append(e.onAlert, fn)
}

// OnLogComplete sets the hand-off for finalized logs. An error from fn is
// logged and reported to OnHandOffError subscribers; the session is reset
// either way and the content is not retried.
func (e *Engine) OnLogComplete(fn func(session.Result) error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onLog = fn
}

// OnHandOffError registers fn to be told about failed hand-offs.
func (e *Engine) OnHandOffError(fn func(error)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onLogFailed = append(e.onLogFailed, fn)
}

// ConfigureThreshold sets the alert threshold; <= 0 disables alerting.
func (e *Engine) ConfigureThreshold(percent int) {
	e.smp.ConfigureThreshold(percent)
	e.logger.Info().Int("threshold_percent", percent).Msg("alert threshold configured")
}

// Threshold returns the current alert threshold.
func (e *Engine) Threshold() int { return e.smp.Threshold() }

// Latest returns the most recent snapshot.
func (e *Engine) Latest() (model.Snapshot, bool) { return e.smp.Latest() }

// Ready is closed once Run has taken its first scan and accepts requests.
func (e *Engine) Ready() <-chan struct{} { return e.ready }

// Done is closed when Run returns.
func (e *Engine) Done() <-chan struct{} { return e.exited }

// SessionStatus returns the logging session status without blocking.
func (e *Engine) SessionStatus() Status { return *e.status.Load() }

// Run scans once immediately, then serves scan and session ticks until ctx
// is cancelled. Cancellation stops both timers and abandons any running
// session without hand-off. Run may be called only once.
func (e *Engine) Run(ctx context.Context) error {
	if !e.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	defer close(e.exited)

	e.scan(ctx)

	scanTicker := e.newTicker(e.period)
	defer scanTicker.Stop()
	defer e.stopSession()

	e.running.Store(true)
	defer e.running.Store(false)
	close(e.ready)
	e.logger.Info().Dur("period", e.period).Msg("engine started")

	for {
		select {
		case <-ctx.Done():
			if e.sess.State() == session.Running {
				e.logger.Warn().Int("samples_taken", e.sess.Taken()).Msg("logging session abandoned")
			}
			e.logger.Info().Msg("engine stopped")
			return nil
		case <-scanTicker.Chan():
			e.scan(ctx)
		case <-e.sessionChan():
			e.sample()
		case cmd := <-e.cmds:
			cmd()
		}
	}
}

// StartLoggingSession starts a session on the engine goroutine. It returns
// session.ErrAlreadyRunning, a validation error, or ErrNotRunning when
// rejected; the running session, if any, is unaffected by a rejection.
func (e *Engine) StartLoggingSession(ctx context.Context, req session.Request) error {
	var err error
	if callErr := e.call(ctx, func() { err = e.startSession(req) }); callErr != nil {
		return callErr
	}
	return err
}

// call runs fn on the engine goroutine and waits for it.
func (e *Engine) call(ctx context.Context, fn func()) error {
	if !e.running.Load() {
		return ErrNotRunning
	}
	done := make(chan struct{})
	select {
	case e.cmds <- func() { fn(); close(done) }:
	case <-e.exited:
		return ErrNotRunning
	case <-ctx.Done():
		return ctx.Err()
	}
	<-done
	return nil
}

func (e *Engine) scan(ctx context.Context) {
	snap, msg, alerted := e.smp.Scan(ctx)

	e.mu.Lock()
	snapFns := append([]func(model.Snapshot){}, e.onSnapshot...)
	alertFns := append([]func(string){}, e.onAlert...)
	e.mu.Unlock()

	for _, fn := range snapFns {
		fn(snap)
	}
	if !alerted {
		return
	}
	e.logger.Warn().Str("alert", msg).Msg("memory threshold exceeded")
	for _, fn := range alertFns {
		fn(msg)
	}
}

func (e *Engine) startSession(req session.Request) error {
	snap, _ := e.smp.Latest()
	if err := e.sess.Start(e.now(), req, snap); err != nil {
		e.logger.Info().Err(err).Msg("logging session rejected")
		return err
	}
	e.logger.Info().
		Dur("interval", req.Interval).
		Dur("duration", req.Duration).
		Int("samples_planned", e.sess.Planned()).
		Bool("targeted", req.Targeted).
		Msg("logging session started")

	if e.sess.State() == session.Completed {
		e.complete()
		return nil
	}
	e.sessTicker = e.newTicker(req.Interval)
	e.publishStatus()
	return nil
}

func (e *Engine) sample() {
	snap, _ := e.smp.Latest()
	if e.sess.Tick(e.now(), snap) {
		e.complete()
		return
	}
	e.publishStatus()
}

func (e *Engine) complete() {
	e.stopTicker()
	res, err := e.sess.Finish()
	e.publishStatus()
	if err != nil {
		e.logger.Error().Err(err).Msg("finalize logging session")
		return
	}
	e.logger.Info().Int("samples", res.Samples).Str("file", res.Filename).Msg("logging session completed")

	e.mu.Lock()
	handOff := e.onLog
	failFns := append([]func(error){}, e.onLogFailed...)
	e.mu.Unlock()

	if handOff == nil {
		e.logger.Warn().Msg("no log hand-off registered, session output discarded")
		return
	}
	if err := handOff(res); err != nil {
		e.logger.Error().Err(err).Str("file", res.Filename).Msg("log hand-off failed, output discarded")
		for _, fn := range failFns {
			fn(err)
		}
	}
}

func (e *Engine) stopSession() {
	e.stopTicker()
	e.sess.Abandon()
	e.publishStatus()
}

func (e *Engine) stopTicker() {
	if e.sessTicker != nil {
		e.sessTicker.Stop()
		e.sessTicker = nil
	}
}

// sessionChan is nil while no session timer is armed, which disables its select case.
func (e *Engine) sessionChan() <-chan time.Time {
	if e.sessTicker == nil {
		return nil
	}
	return e.sessTicker.Chan()
}

func (e *Engine) publishStatus() {
	e.status.Store(&Status{
		State:    e.sess.State(),
		Taken:    e.sess.Taken(),
		Planned:  e.sess.Planned(),
		Interval: e.sess.Interval(),
	})
}
