package rate

import (
	"context"
	"sync"
	"time"
)

// OverflowKey is the shared bucket used once a Manager holds MaxKeys limiters.
const OverflowKey = "~overflow"

// Config defines the card-check budget of one caller.
type Config struct {
	PerSecond float64
	Burst     int

	// MaxKeys caps the number of per-key limiters. New keys beyond the cap
	// share the OverflowKey bucket. Zero means 1024.
	MaxKeys int
	// IdleTTL is how long an unused limiter is kept. Zero means 10 minutes.
	IdleTTL time.Duration
}

// Limiter implements a token bucket rate limiter.
type Limiter struct {
	mu     sync.Mutex
	tokens float64
	last   time.Time
	rate   float64
	burst  float64
	now    func() time.Time
}

func newLimiter(cfg Config, now func() time.Time) *Limiter {
	return &Limiter{
		tokens: float64(cfg.Burst),
		last:   now(),
		rate:   cfg.PerSecond,
		burst:  float64(cfg.Burst),
		now:    now,
	}
}

// Allow takes one token if available.
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.tokens += now.Sub(l.last).Seconds() * l.rate
	l.last = now
	if l.tokens > l.burst {
		l.tokens = l.burst
	}

	if l.tokens >= 1 {
		l.tokens--
		return true
	}
	return false
}

func (l *Limiter) idleSince(now time.Time) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return now.Sub(l.last)
}

// Manager holds one limiter per caller key, so one reader flooding guessed
// UIDs cannot starve the others. Callers must derive keys from something the
// client cannot choose freely (the remote IP or an allow-listed reader id).
type Manager struct {
	mu       sync.RWMutex
	limiters map[string]*Limiter
	defaults Config
	now      func() time.Time
}

func NewManager(defaults Config) *Manager {
	if defaults.MaxKeys <= 0 {
		defaults.MaxKeys = 1024
	}
	if defaults.IdleTTL <= 0 {
		defaults.IdleTTL = 10 * time.Minute
	}
	return &Manager{
		limiters: make(map[string]*Limiter),
		defaults: defaults,
		now:      time.Now,
	}
}

// GetLimiter returns the limiter of key, creating it if needed. Once the
// Manager is full, unknown keys get the shared overflow limiter.
func (m *Manager) GetLimiter(key string) *Limiter {
	m.mu.RLock()
	if lim, ok := m.limiters[key]; ok {
		m.mu.RUnlock()
		return lim
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	if lim, ok := m.limiters[key]; ok {
		return lim
	}
	if len(m.limiters) >= m.defaults.MaxKeys {
		m.pruneLocked()
	}
	if len(m.limiters) >= m.defaults.MaxKeys {
		key = OverflowKey
		if lim, ok := m.limiters[key]; ok {
			return lim
		}
	}
	lim := newLimiter(m.defaults, m.now)
	m.limiters[key] = lim
	return lim
}

// Allow reports whether key may perform one more check now.
func (m *Manager) Allow(key string) bool {
	return m.GetLimiter(key).Allow()
}

func (m *Manager) size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.limiters)
}

// Prune drops limiters unused for longer than IdleTTL.
func (m *Manager) Prune() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pruneLocked()
}

func (m *Manager) pruneLocked() {
	now := m.now()
	for k, lim := range m.limiters {
		if lim.idleSince(now) >= m.defaults.IdleTTL {
			delete(m.limiters, k)
		}
	}
}

// StartJanitor prunes idle limiters every interval until ctx is done.
func (m *Manager) StartJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.Prune()
		case <-ctx.Done():
			return
		}
	}
}
