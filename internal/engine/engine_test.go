package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Dicklesworthstone/memwatch/internal/errors"
	"github.com/Dicklesworthstone/memwatch/internal/model"
	"github.com/Dicklesworthstone/memwatch/internal/sampler"
	"github.com/Dicklesworthstone/memwatch/internal/session"
	"github.com/Dicklesworthstone/memwatch/internal/source"
)

type manualTicker struct {
	d       time.Duration
	c       chan time.Time
	stopped atomic.Bool
}

func (m *manualTicker) Chan() <-chan time.Time { return m.c }
func (m *manualTicker) Stop()                  { m.stopped.Store(true) }

type tickers struct{ created chan *manualTicker }

func (ts *tickers) new(d time.Duration) Ticker {
	t := &manualTicker{d: d, c: make(chan time.Time)}
	ts.created <- t
	return t
}

func (ts *tickers) next(t *testing.T) *manualTicker {
	t.Helper()
	select {
	case tk := <-ts.created:
		return tk
	case <-time.After(2 * time.Second):
		t.Fatal("no ticker created")
		return nil
	}
}

func (ts *tickers) none(t *testing.T) {
	t.Helper()
	select {
	case tk := <-ts.created:
		t.Fatalf("unexpected ticker with period %s", tk.d)
	default:
	}
}

func fire(t *testing.T, tk *manualTicker) {
	t.Helper()
	select {
	case tk.c <- time.Now():
	case <-time.After(2 * time.Second):
		t.Fatal("engine did not accept tick")
	}
}

// recorder collects callback output from the engine goroutine.
type recorder struct {
	mu      sync.Mutex
	snaps   []model.Snapshot
	alerts  []string
	results []session.Result
	failed  []error
}

func (r *recorder) snapshot(s model.Snapshot) { r.mu.Lock(); r.snaps = append(r.snaps, s); r.mu.Unlock() }
func (r *recorder) alert(m string)            { r.mu.Lock(); r.alerts = append(r.alerts, m); r.mu.Unlock() }
func (r *recorder) failure(err error)         { r.mu.Lock(); r.failed = append(r.failed, err); r.mu.Unlock() }

func (r *recorder) counts() (snaps, alerts, results, failed int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snaps), len(r.alerts), len(r.results), len(r.failed)
}

type harness struct {
	e      *Engine
	src    *source.Fake
	ts     *tickers
	scan   *manualTicker
	rec    *recorder
	cancel context.CancelFunc
	errc   chan error
}

var clock = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func start(t *testing.T, handOff func(session.Result) error) *harness {
	t.Helper()
	src := source.NewFake(8_000_000, 1_000_000,
		source.FakeProcess{PID: 1, ResidentKB: 300, Name: "init"},
		source.FakeProcess{PID: 2, ResidentKB: 900, Name: "db"},
	)
	ts := &tickers{created: make(chan *manualTicker, 16)}
	e := New(sampler.New(src), WithTicker(ts.new), WithClock(func() time.Time { return clock }))

	h := &harness{e: e, src: src, ts: ts, rec: &recorder{}, errc: make(chan error, 1)}
	e.OnSnapshot(h.rec.snapshot)
	e.OnAlert(h.rec.alert)
	e.OnHandOffError(h.rec.failure)
	e.OnLogComplete(func(res session.Result) error {
		h.rec.mu.Lock()
		h.rec.results = append(h.rec.results, res)
		h.rec.mu.Unlock()
		if handOff != nil {
			return handOff(res)
		}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() { h.errc <- e.Run(ctx) }()
	t.Cleanup(cancel)

	h.scan = ts.next(t)
	require.Equal(t, sampler.DefaultInterval, h.scan.d)
	select {
	case <-e.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("engine not ready")
	}
	return h
}

// sync waits until the engine goroutine has handled everything sent before it.
func (h *harness) sync(t *testing.T) {
	t.Helper()
	require.NoError(t, h.e.call(context.Background(), func() {}))
}

func (h *harness) stop(t *testing.T) {
	t.Helper()
	h.cancel()
	select {
	case err := <-h.errc:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("engine did not stop")
	}
}

func req(interval, duration int) session.Request {
	return session.Request{Interval: time.Duration(interval) * time.Second, Duration: time.Duration(duration) * time.Second}
}

func TestRunScansImmediatelyAndOnEveryTick(t *testing.T) {
	h := start(t, nil)

	snaps, _, _, _ := h.rec.counts()
	assert.Equal(t, 1, snaps, "immediate scan before the first tick")
	latest, ok := h.e.Latest()
	require.True(t, ok)
	assert.Equal(t, int32(2), latest.Processes[0].PID)

	fire(t, h.scan)
	fire(t, h.scan)
	h.sync(t)

	snaps, _, _, _ = h.rec.counts()
	assert.Equal(t, 3, snaps)
	assert.Equal(t, 3, h.src.ScanCalls())
	h.stop(t)
	assert.True(t, h.scan.stopped.Load())
}

func TestAlertsOnEveryBreachingTick(t *testing.T) {
	h := start(t, nil)
	h.e.ConfigureThreshold(80)
	assert.Equal(t, 80, h.e.Threshold())

	fire(t, h.scan)
	fire(t, h.scan)
	h.sync(t)
	_, alerts, _, _ := h.rec.counts()
	assert.Equal(t, 2, alerts)

	h.e.ConfigureThreshold(90)
	fire(t, h.scan)
	h.sync(t)
	_, alerts, _, _ = h.rec.counts()
	assert.Equal(t, 2, alerts)

	h.rec.mu.Lock()
	assert.Equal(t, "Warning: Memory usage is at 87%, exceeding threshold of 80%!", h.rec.alerts[0])
	h.rec.mu.Unlock()
}

func TestLoggingSessionCompletes(t *testing.T) {
	h := start(t, nil)
	ctx := context.Background()

	require.NoError(t, h.e.StartLoggingSession(ctx, req(10, 25)))
	sessTicker := h.ts.next(t)
	assert.Equal(t, 10*time.Second, sessTicker.d)

	st := h.e.SessionStatus()
	assert.Equal(t, session.Running, st.State)
	assert.Equal(t, 1, st.Taken)
	assert.Equal(t, 2, st.Planned)

	scansBefore := h.src.ScanCalls()
	fire(t, sessTicker)
	h.sync(t)

	assert.Equal(t, scansBefore, h.src.ScanCalls(), "session reads the published snapshot")
	assert.True(t, sessTicker.stopped.Load())
	assert.Equal(t, session.Idle, h.e.SessionStatus().State)

	_, _, results, _ := h.rec.counts()
	require.Equal(t, 1, results)
	res := h.rec.results[0]
	assert.Equal(t, 2, res.Samples)
	assert.Equal(t, 2, strings.Count(res.Text, "] Sample "))
	assert.Contains(t, res.Text, "--- Logging complete: 2 samples")
	assert.Equal(t, "memory_log_20261019_120000.txt", res.Filename)
}

func TestLoggingSessionSingleSample(t *testing.T) {
	h := start(t, nil)

	require.NoError(t, h.e.StartLoggingSession(context.Background(), req(5, 5)))
	h.ts.none(t)

	_, _, results, _ := h.rec.counts()
	assert.Equal(t, 1, results)
	assert.Equal(t, session.Idle, h.e.SessionStatus().State)
}

func TestLoggingSessionRejectedWhenDurationTooShort(t *testing.T) {
	h := start(t, nil)

	err := h.e.StartLoggingSession(context.Background(), req(10, 5))

	var ve apperrors.ValidationError
	require.True(t, errors.As(err, &ve), "got %v", err)
	h.ts.none(t)
	assert.Equal(t, session.Idle, h.e.SessionStatus().State)
}

func TestLoggingSessionRejectedWhileRunning(t *testing.T) {
	h := start(t, nil)
	ctx := context.Background()

	require.NoError(t, h.e.StartLoggingSession(ctx, req(1, 3)))
	sessTicker := h.ts.next(t)
	fire(t, sessTicker)
	h.sync(t)

	err := h.e.StartLoggingSession(ctx, req(1, 1))
	assert.ErrorIs(t, err, session.ErrAlreadyRunning)
	h.ts.none(t)

	st := h.e.SessionStatus()
	assert.Equal(t, 2, st.Taken)
	assert.Equal(t, 3, st.Planned)
	assert.False(t, sessTicker.stopped.Load())
}

func TestHandOffFailureStillResets(t *testing.T) {
	h := start(t, func(session.Result) error { return errors.New("disk full") })
	ctx := context.Background()

	require.NoError(t, h.e.StartLoggingSession(ctx, req(1, 1)))

	_, _, results, failed := h.rec.counts()
	assert.Equal(t, 1, results)
	assert.Equal(t, 1, failed)
	assert.Equal(t, session.Idle, h.e.SessionStatus().State)

	require.NoError(t, h.e.StartLoggingSession(ctx, req(1, 2)), "a new session may start after a failed hand-off")
}

func TestCancelAbandonsSession(t *testing.T) {
	h := start(t, nil)

	require.NoError(t, h.e.StartLoggingSession(context.Background(), req(1, 10)))
	sessTicker := h.ts.next(t)

	h.stop(t)

	assert.True(t, sessTicker.stopped.Load())
	assert.Equal(t, session.Idle, h.e.SessionStatus().State)
	_, _, results, _ := h.rec.counts()
	assert.Equal(t, 0, results, "abandoned sessions are not handed off")

	err := h.e.StartLoggingSession(context.Background(), req(1, 1))
	assert.ErrorIs(t, err, ErrNotRunning)
}

func TestStartBeforeRun(t *testing.T) {
	e := New(sampler.New(source.NewFake(1, 1)))
	assert.ErrorIs(t, e.StartLoggingSession(context.Background(), req(1, 1)), ErrNotRunning)
	assert.Equal(t, session.Idle, e.SessionStatus().State)
}

func TestRunOnlyOnce(t *testing.T) {
	h := start(t, nil)
	assert.ErrorIs(t, h.e.Run(context.Background()), ErrAlreadyStarted)
	h.stop(t)

	select {
	case <-h.e.Done():
	default:
		t.Fatal("Done not closed after Run returned")
	}
}

func TestScanAndSessionTicksInterleave(t *testing.T) {
	h := start(t, nil)
	ctx := context.Background()

	require.NoError(t, h.e.StartLoggingSession(ctx, session.Request{
		Interval: time.Second,
		Duration: 3 * time.Second,
		PIDs:     []int32{1, 77},
		Targeted: true,
	}))
	sessTicker := h.ts.next(t)

	h.src.SetProcesses(source.FakeProcess{PID: 77, ResidentKB: 5, Name: "late"})
	fire(t, h.scan)
	fire(t, sessTicker)
	fire(t, h.scan)
	fire(t, sessTicker)
	h.sync(t)

	_, _, results, _ := h.rec.counts()
	require.Equal(t, 1, results)
	text := h.rec.results[0].Text
	assert.Contains(t, text, "PID 77 not found.", "first sample predates the process")
	assert.Contains(t, text, "late")
	assert.Contains(t, text, "PID 1 not found.", "init vanished after the rescan")
}
