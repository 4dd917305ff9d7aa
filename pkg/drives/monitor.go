package drives

import (
	"cmp"
	"context"
	"log/slog"
	"reflect"
	"slices"
	"sync"
	"time"
)

// DefaultPollInterval is the delay between detection passes.
const DefaultPollInterval = 3 * time.Second

// Monitor polls a Lister and reports snapshot changes.
//
// The change callback runs on the polling goroutine. After Stop or
// RequestStop returns no new callback starts, even if a detection pass was
// in flight. The callback must use RequestStop, not Stop, to end polling.
type Monitor struct {
	lister   Lister
	interval time.Duration
	logger   *slog.Logger

	mu         sync.Mutex
	onChange   func([]Drive)
	current    []Drive
	run        *pollRun
	watchRoots []string
	wake       chan struct{}
}

// pollRun is the state of one Start..Stop cycle.
type pollRun struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// NewMonitor creates a monitor. A non-positive interval uses DefaultPollInterval.
func NewMonitor(lister Lister, interval time.Duration, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Monitor{
		lister:   lister,
		interval: interval,
		logger:   logger,
		current:  []Drive{},
		wake:     make(chan struct{}, 1),
	}
}

// OnChange registers the callback invoked with each new snapshot.
func (m *Monitor) OnChange(fn func([]Drive)) {
	m.mu.Lock()
	m.onChange = fn
	m.mu.Unlock()
}

// WatchRoots makes the monitor re-poll early when entries under any of
// roots change. Takes effect on the next Start.
func (m *Monitor) WatchRoots(roots ...string) {
	m.mu.Lock()
	m.watchRoots = append([]string(nil), roots...)
	m.mu.Unlock()
}

// Start begins polling. Starting a running monitor is a no-op.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.run != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	run := &pollRun{cancel: cancel, done: make(chan struct{})}
	m.run = run

	go m.loop(ctx, run)
	if len(m.watchRoots) > 0 {
		go m.watch(ctx, m.watchRoots)
	}

	m.logger.Info("drive monitor started", "interval", m.interval)
	return nil
}

// Stop ends polling and waits for an in-flight detection pass, including
// a running change callback. Stopping an idle monitor is a no-op.
func (m *Monitor) Stop() {
	run := m.detach()
	if run == nil {
		return
	}
	<-run.done
	m.logger.Info("drive monitor stopped")
}

// RequestStop ends polling without waiting. It is safe to call from inside
// the change callback.
func (m *Monitor) RequestStop() {
	if m.detach() != nil {
		m.logger.Info("drive monitor stop requested")
	}
}

// detach cancels the current run and clears it. It returns nil when idle.
func (m *Monitor) detach() *pollRun {
	m.mu.Lock()
	defer m.mu.Unlock()

	run := m.run
	if run == nil {
		return nil
	}
	m.run = nil
	run.cancel()
	return run
}

// IsRunning returns whether the monitor is polling.
func (m *Monitor) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.run != nil
}

// Drives returns the latest snapshot.
func (m *Monitor) Drives() []Drive {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.current)
}

// Poke requests an immediate detection pass.
func (m *Monitor) Poke() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

func (m *Monitor) loop(ctx context.Context, run *pollRun) {
	defer close(run.done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		m.poll(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-m.wake:
		}
		if ctx.Err() != nil {
			return
		}
	}
}

// poll runs one detection pass and fires the callback on change.
func (m *Monitor) poll(ctx context.Context) {
	list, err := m.lister.List(ctx)
	if err != nil {
		m.logger.Warn("drive detection failed", "error", err)
		list = nil
	}
	list = normalize(list)

	m.mu.Lock()
	if ctx.Err() != nil {
		m.mu.Unlock()
		return
	}
	if reflect.DeepEqual(list, m.current) {
		m.mu.Unlock()
		return
	}
	m.current = list
	fn := m.onChange
	if fn == nil {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	m.logger.Info("drive list changed", "count", len(list))
	fn(slices.Clone(list))
}

func normalize(list []Drive) []Drive {
	out := make([]Drive, len(list))
	copy(out, list)
	slices.SortStableFunc(out, func(a, b Drive) int {
		if c := cmp.Compare(a.Path, b.Path); c != 0 {
			return c
		}
		return cmp.Compare(a.Device, b.Device)
	})
	return out
}
