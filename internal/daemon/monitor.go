package daemon

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/1broseidon/cursorsync/internal/cursor"
	"github.com/1broseidon/cursorsync/internal/platform"
)

// MonitorConfig holds configuration for the capture loop.
type MonitorConfig struct {
	Interval     time.Duration
	CacheEntries int
	Logger       *slog.Logger
}

// Status is a point-in-time view of what the monitor has observed.
type Status struct {
	Backend     string              `json:"backend"`
	Mode        cursor.IdentityMode `json:"identity_mode"`
	Identity    cursor.Identity     `json:"identity"`
	HasIdentity bool                `json:"has_identity"`
	Seed        int32               `json:"seed"`
	HasSeed     bool                `json:"has_seed"`
	Changes     uint64              `json:"changes"`
	LastChange  time.Time           `json:"last_change,omitempty"`
	LastError   string              `json:"last_error,omitempty"`
	CacheHits   uint64              `json:"cache_hits"`
	CacheMisses uint64              `json:"cache_misses"`
}

// Event is published to subscribers whenever the cursor identity changes.
type Event struct {
	Identity cursor.Identity `json:"identity"`
	Seed     int32           `json:"seed"`
	At       time.Time       `json:"at"`
}

// Monitor owns the only poller of a backend. It detects changes on a ticker,
// fingerprints new cursors, and serves extraction requests from a bitmap
// cache keyed by identity.
type Monitor struct {
	interval time.Duration
	logger   *slog.Logger

	// mu serializes every call into the backend.
	mu      sync.Mutex
	backend platform.Backend
	cache   *bitmapCache

	stateMu sync.RWMutex
	status  Status

	subsMu  sync.Mutex
	subs    map[int]chan Event
	nextSub int
}

// NewMonitor creates a monitor over backend. The caller keeps ownership of
// backend and closes it after the monitor.
func NewMonitor(cfg MonitorConfig, backend platform.Backend) (*Monitor, error) {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 33 * time.Millisecond
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cache, err := newBitmapCache(cfg.CacheEntries)
	if err != nil {
		return nil, err
	}

	return &Monitor{
		interval: interval,
		logger:   logger,
		backend:  backend,
		cache:    cache,
		status: Status{
			Backend: backend.Name(),
			Mode:    backend.Mode(),
		},
		subs: make(map[int]chan Event),
	}, nil
}

// Run starts the capture loop. Blocks until context is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.logger.Info("monitor started", "interval", m.interval, "backend", m.status.Backend, "identity", m.status.Mode)

	m.poll()
	for {
		select {
		case <-ctx.Done():
			m.logger.Info("monitor stopped")
			return
		case <-ticker.C:
			m.poll()
		}
	}
}

// PollNow runs a single capture pass.
func (m *Monitor) PollNow() {
	m.poll()
}

// poll performs a single capture pass.
func (m *Monitor) poll() {
	// Recover from panics to prevent crashing the daemon
	defer func() {
		if err := recover(); err != nil {
			m.logger.Error("monitor panic recovered", "error", err)
		}
	}()

	m.mu.Lock()
	if !m.backend.PollChanged() {
		m.mu.Unlock()
		return
	}
	id, err := m.backend.CurrentIdentity()
	if err != nil {
		// The seed has been consumed; forget it so the next tick retries.
		m.backend.Reset()
		m.mu.Unlock()
		m.logger.Debug("cursor unavailable", "error", err)
		m.setError(err)
		return
	}
	seed, hasSeed := m.backend.LastSeed()
	m.mu.Unlock()

	now := time.Now()
	m.stateMu.Lock()
	m.status.Seed, m.status.HasSeed = seed, hasSeed
	m.status.LastError = ""
	changed := !m.status.HasIdentity || m.status.Identity != id
	if changed {
		m.status.Identity = id
		m.status.HasIdentity = true
		m.status.Changes++
		m.status.LastChange = now
	}
	m.stateMu.Unlock()

	if !changed {
		return
	}
	m.logger.Debug("cursor changed", "identity", id, "seed", seed)
	m.publish(Event{Identity: id, Seed: seed, At: now})
}

// Status returns the latest observed state.
func (m *Monitor) Status() Status {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	st := m.status
	st.CacheHits, st.CacheMisses = m.cache.stats()
	return st
}

// Identity fingerprints the cursor currently displayed.
func (m *Monitor) Identity() (cursor.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.backend.CurrentIdentity()
}

// Extract returns the bitmap for expected if it is still the displayed
// cursor. A cached bitmap is returned only after the displayed cursor's
// identity has been re-checked. A stale request resets change detection so
// the next tick re-fingerprints; the old identity is never retried.
func (m *Monitor) Extract(expected cursor.Identity) (cursor.Data, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	actual, err := m.backend.CurrentIdentity()
	if err != nil {
		return cursor.Data{}, err
	}
	return m.extractLocked(expected, actual)
}

// ExtractCurrent returns the bitmap of whatever cursor is displayed. The
// backend lock is held throughout and the pixels come from a single handle,
// so a change mid-request never surfaces as a stale error.
func (m *Monitor) ExtractCurrent() (cursor.Data, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, err := m.backend.CurrentIdentity()
	if err != nil {
		return cursor.Data{}, err
	}
	seed := m.backend.CurrentSeed()
	key := cacheKey(m.backend.Mode(), id, seed)
	if data, ok := m.cache.get(key); ok {
		return data, nil
	}

	data, err := m.backend.ExtractCurrent()
	if err != nil {
		return cursor.Data{}, err
	}
	if data.Identity == id && m.backend.CurrentSeed() == seed {
		m.cache.put(key, data)
	}
	return data, nil
}

// extractLocked serves expected given the identity just fingerprinted. m.mu
// must be held.
func (m *Monitor) extractLocked(expected, actual cursor.Identity) (cursor.Data, error) {
	if actual != expected {
		m.backend.Reset()
		m.logger.Debug("extract rejected stale identity", "expected", expected, "actual", actual)
		return cursor.Data{}, &cursor.StaleError{Expected: expected, Actual: actual}
	}

	// Sampled identities collide for cursors that differ away from the
	// hotspot, so those entries are only valid for one seed generation.
	seed := m.backend.CurrentSeed()
	key := cacheKey(m.backend.Mode(), expected, seed)
	if data, ok := m.cache.get(key); ok {
		return data, nil
	}

	data, err := m.backend.Extract(expected)
	if err != nil {
		if errors.Is(err, cursor.ErrStaleCursor) {
			m.backend.Reset()
		}
		return cursor.Data{}, err
	}
	// A seed that moved mid-extract may have paired these pixels with the
	// wrong generation.
	if m.backend.CurrentSeed() == seed {
		m.cache.put(key, data)
	}
	return data, nil
}

// Position returns the pointer location.
func (m *Monitor) Position() (cursor.Point, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.backend.Position()
}

// Reset forgets the last seen seed and identity so the next tick reports a
// change. Cached bitmaps are dropped.
func (m *Monitor) Reset() {
	m.mu.Lock()
	m.backend.Reset()
	m.cache.clear()
	m.mu.Unlock()

	m.stateMu.Lock()
	m.status.HasIdentity = false
	m.status.Identity = 0
	m.status.HasSeed = false
	m.status.Seed = 0
	m.stateMu.Unlock()

	m.logger.Info("cursor state reset")
}

// Subscribe returns a channel of identity changes. Slow subscribers miss
// events rather than block the loop. Call cancel to unsubscribe.
func (m *Monitor) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 16)

	m.subsMu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = ch
	m.subsMu.Unlock()

	cancel := func() {
		m.subsMu.Lock()
		if _, ok := m.subs[id]; ok {
			delete(m.subs, id)
			close(ch)
		}
		m.subsMu.Unlock()
	}
	return ch, cancel
}

// Close releases the cache.
func (m *Monitor) Close() {
	m.subsMu.Lock()
	for id, ch := range m.subs {
		delete(m.subs, id)
		close(ch)
	}
	m.subsMu.Unlock()
	m.cache.close()
}

func (m *Monitor) publish(ev Event) {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	for _, ch := range m.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (m *Monitor) setError(err error) {
	m.stateMu.Lock()
	m.status.LastError = err.Error()
	m.stateMu.Unlock()
}
