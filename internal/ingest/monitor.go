package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/your-org/facewatch/internal/models"
	"github.com/your-org/facewatch/internal/observability"
)

// CycleFunc runs one sampling cycle for a monitored camera. It must be safe
// to call concurrently for different cameras.
type CycleFunc func(ctx context.Context, camera, streamURL string)

type monitor struct {
	streamURL string
	interval  time.Duration
	cancel    context.CancelFunc
	ticker    *time.Ticker

	// inFlight guards against overlapping cycles when one runs longer
	// than the interval; such ticks are skipped, not queued.
	inFlight atomic.Bool
}

// Manager owns the per-camera monitoring goroutines.
type Manager struct {
	cycle CycleFunc

	mu       sync.RWMutex
	monitors map[string]*monitor
}

func NewManager(cycle CycleFunc) *Manager {
	return &Manager{
		cycle:    cycle,
		monitors: make(map[string]*monitor),
	}
}

// Start begins periodic sampling for a camera. Starting a camera that is
// already monitored replaces the previous monitor with the new settings.
func (m *Manager) Start(camera, streamURL string, interval time.Duration) error {
	if camera == "" {
		return fmt.Errorf("%w: camera name required", models.ErrInvalidInput)
	}
	if streamURL == "" {
		return fmt.Errorf("%w: stream url required", models.ErrInvalidInput)
	}
	if interval <= 0 {
		return fmt.Errorf("%w: interval must be positive", models.ErrInvalidInput)
	}

	m.mu.Lock()
	if prev, exists := m.monitors[camera]; exists {
		prev.ticker.Stop()
		prev.cancel()
		delete(m.monitors, camera)
		observability.ActiveMonitors.Dec()
		slog.Info("replacing camera monitor", "camera", camera)
	}

	ctx, cancel := context.WithCancel(context.Background())
	mon := &monitor{
		streamURL: streamURL,
		interval:  interval,
		cancel:    cancel,
		ticker:    time.NewTicker(interval),
	}
	m.monitors[camera] = mon
	m.mu.Unlock()

	observability.ActiveMonitors.Inc()
	slog.Info("camera monitor started", "camera", camera, "interval", interval)

	go m.run(ctx, camera, mon)
	return nil
}

// Stop halts monitoring for a camera.
func (m *Manager) Stop(camera string) error {
	m.mu.Lock()
	mon, exists := m.monitors[camera]
	if !exists {
		m.mu.Unlock()
		return fmt.Errorf("monitor for camera %q: %w", camera, models.ErrNotFound)
	}
	delete(m.monitors, camera)
	m.mu.Unlock()

	mon.ticker.Stop()
	mon.cancel()
	observability.ActiveMonitors.Dec()
	slog.Info("camera monitor stopped", "camera", camera)
	return nil
}

// StopAll halts every active monitor.
func (m *Manager) StopAll() {
	for _, camera := range m.Active() {
		_ = m.Stop(camera)
	}
}

// Active returns the monitored camera names sorted alphabetically.
func (m *Manager) Active() []string {
	m.mu.RLock()
	cameras := make([]string, 0, len(m.monitors))
	for camera := range m.monitors {
		cameras = append(cameras, camera)
	}
	m.mu.RUnlock()

	sort.Strings(cameras)
	return cameras
}

// ActiveCount returns the number of running monitors.
func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.monitors)
}

func (m *Manager) run(ctx context.Context, camera string, mon *monitor) {
	// Sample once immediately so a new monitor produces results without
	// waiting for the first tick.
	go m.runCycle(ctx, camera, mon)

	for {
		select {
		case <-ctx.Done():
			return
		case <-mon.ticker.C:
			// A tick may already be buffered when Stop cancels the
			// context; never start a cycle after cancellation.
			if ctx.Err() != nil {
				return
			}
			go m.runCycle(ctx, camera, mon)
		}
	}
}

func (m *Manager) runCycle(ctx context.Context, camera string, mon *monitor) {
	if ctx.Err() != nil {
		return
	}
	if !mon.inFlight.CompareAndSwap(false, true) {
		slog.Debug("skipping overlapping cycle", "camera", camera)
		return
	}
	defer mon.inFlight.Store(false)

	defer func() {
		if r := recover(); r != nil {
			observability.CycleFailures.WithLabelValues(camera).Inc()
			slog.Error("monitor cycle panic", "camera", camera, "panic", r)
		}
	}()

	m.cycle(ctx, camera, mon.streamURL)
}
