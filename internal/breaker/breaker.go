// Package breaker tracks recent failures per provider and force-fails calls
// to providers that failed too often within a rolling window.
//
// The breaker has no half-open state: once the cooldown elapses the history
// is cleared and the next call goes through as a normal call.
package breaker

import (
	"sort"
	"sync"
	"time"
)

const (
	DefaultThreshold = 5
	DefaultWindow    = 60 * time.Second
	DefaultCooldown  = 60 * time.Second
)

type Config struct {
	Threshold int
	Window    time.Duration
	Cooldown  time.Duration
}

type state struct {
	failures  []time.Time
	openUntil time.Time
}

type Breaker struct {
	cfg Config
	now func() time.Time

	mu        sync.Mutex
	providers map[string]*state
}

type Option func(*Breaker)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(b *Breaker) { b.now = now }
}

func New(cfg Config, opts ...Option) *Breaker {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}
	b := &Breaker{
		cfg:       cfg,
		now:       time.Now,
		providers: make(map[string]*state),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Breaker) Config() Config { return b.cfg }

// IsOpen reports whether calls to provider must be rejected. An expired
// open state is cleared together with the failure history.
func (b *Breaker) IsOpen(provider string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.providers[provider]
	if !ok || s.openUntil.IsZero() {
		return false
	}
	if b.now().Before(s.openUntil) {
		return true
	}
	s.openUntil = time.Time{}
	s.failures = nil
	return false
}

// RecordFailure appends a failure and prunes the window. It returns true
// when this failure opened the circuit.
func (b *Breaker) RecordFailure(provider string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	s := b.stateLocked(provider)
	s.failures = append(s.failures, now)

	kept := s.failures[:0]
	for _, at := range s.failures {
		if now.Sub(at) < b.cfg.Window {
			kept = append(kept, at)
		}
	}
	s.failures = kept

	if len(s.failures) >= b.cfg.Threshold {
		wasOpen := !s.openUntil.IsZero() && now.Before(s.openUntil)
		s.openUntil = now.Add(b.cfg.Cooldown)
		return !wasOpen
	}
	return false
}

// RecordSuccess clears the failure history. It does not close an open circuit.
func (b *Breaker) RecordSuccess(provider string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if s, ok := b.providers[provider]; ok {
		s.failures = nil
	}
}

// Failures returns the number of failures currently inside the window.
func (b *Breaker) Failures(provider string) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.providers[provider]
	if !ok {
		return 0
	}
	return b.inWindowLocked(s, b.now())
}

func (b *Breaker) inWindowLocked(s *state, now time.Time) int {
	n := 0
	for _, at := range s.failures {
		if now.Sub(at) < b.cfg.Window {
			n++
		}
	}
	return n
}

type ProviderState struct {
	Provider  string    `json:"provider"`
	Failures  int       `json:"failures"`
	Open      bool      `json:"open"`
	OpenUntil time.Time `json:"open_until,omitzero"`
}

// Snapshot lists every provider the breaker has seen, sorted by name.
// It reads state without clearing expired circuits.
func (b *Breaker) Snapshot() []ProviderState {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	out := make([]ProviderState, 0, len(b.providers))
	for name, s := range b.providers {
		ps := ProviderState{Provider: name, Failures: b.inWindowLocked(s, now)}
		if !s.openUntil.IsZero() && now.Before(s.openUntil) {
			ps.Open = true
			ps.OpenUntil = s.openUntil
		}
		out = append(out, ps)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Provider < out[j].Provider })
	return out
}

func (b *Breaker) stateLocked(provider string) *state {
	s, ok := b.providers[provider]
	if !ok {
		s = &state{}
		b.providers[provider] = s
	}
	return s
}
