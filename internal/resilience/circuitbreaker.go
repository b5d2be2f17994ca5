// Package resilience provides circuit breaking and provider failover for
// the external collaborators (LLM extraction, transcription, embeddings).
//
// [Breaker] is a three-state circuit breaker (closed → open → half-open).
// [Group] composes several instances of one provider type, each behind its
// own breaker, so a failing primary is bypassed in favour of healthy
// fallbacks.
//
// All types are safe for concurrent use.
package resilience

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrOpen is returned by [Breaker.Do] while the breaker is open and the
// cooldown has not yet elapsed.
var ErrOpen = errors.New("circuit breaker is open")

// breakerState is the operating mode of a [Breaker].
type breakerState int

const (
	stateClosed breakerState = iota
	stateOpen
	stateHalfOpen
)

func (s breakerState) String() string {
	switch s {
	case stateClosed:
		return "closed"
	case stateOpen:
		return "open"
	case stateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig tunes a [Breaker]. Zero fields take defaults.
type BreakerConfig struct {
	// Name labels the breaker in log messages.
	Name string

	// FailureThreshold is how many consecutive failures open the breaker.
	// Default: 5.
	FailureThreshold int

	// Cooldown is how long the breaker stays open before allowing probes.
	// Default: 30s.
	Cooldown time.Duration

	// ProbeQuota is how many half-open probe calls may run, and how many
	// must succeed to close the breaker again. Default: 3.
	ProbeQuota int
}

// Breaker is a three-state circuit breaker.
type Breaker struct {
	name      string
	threshold int
	cooldown  time.Duration
	quota     int

	mu        sync.Mutex
	state     breakerState
	failures  int
	openedAt  time.Time
	probes    int
	probeOKs  int
}

// NewBreaker creates a closed [Breaker] from cfg.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	if cfg.ProbeQuota <= 0 {
		cfg.ProbeQuota = 3
	}
	return &Breaker{
		name:      cfg.Name,
		threshold: cfg.FailureThreshold,
		cooldown:  cfg.Cooldown,
		quota:     cfg.ProbeQuota,
	}
}

// Do runs fn when the breaker allows it. Open breakers reject with [ErrOpen]
// until the cooldown elapses; then a limited number of probes run half-open
// and the breaker closes once enough of them succeed. Any half-open failure
// re-opens immediately.
func (b *Breaker) Do(fn func() error) error {
	b.mu.Lock()
	switch b.state {
	case stateOpen:
		if time.Since(b.openedAt) < b.cooldown {
			b.mu.Unlock()
			return ErrOpen
		}
		b.state = stateHalfOpen
		b.probes = 0
		b.probeOKs = 0
		slog.Info("circuit breaker probing", "name", b.name)

	case stateHalfOpen:
		if b.probes >= b.quota {
			b.mu.Unlock()
			return ErrOpen
		}
	}

	probing := b.state == stateHalfOpen
	if probing {
		b.probes++
	}
	b.mu.Unlock()

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.onFailure(probing)
	} else {
		b.onSuccess(probing)
	}
	return err
}

// onFailure must be called with b.mu held.
func (b *Breaker) onFailure(probing bool) {
	if probing {
		b.state = stateOpen
		b.openedAt = time.Now()
		b.failures = b.threshold
		slog.Warn("circuit breaker re-opened after failed probe", "name", b.name)
		return
	}
	b.failures++
	if b.failures >= b.threshold {
		b.state = stateOpen
		b.openedAt = time.Now()
		slog.Warn("circuit breaker opened",
			"name", b.name, "consecutive_failures", b.failures)
	}
}

// onSuccess must be called with b.mu held.
func (b *Breaker) onSuccess(probing bool) {
	if probing {
		b.probeOKs++
		if b.probeOKs >= b.quota {
			b.state = stateClosed
			b.failures = 0
			slog.Info("circuit breaker closed after successful probes", "name", b.name)
		}
		return
	}
	b.failures = 0
}

// Healthy reports whether the breaker would currently admit a call.
func (b *Breaker) Healthy() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == stateOpen {
		return time.Since(b.openedAt) >= b.cooldown
	}
	return true
}

// Reset forces the breaker back to closed, clearing all counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = stateClosed
	b.failures = 0
	b.probes = 0
	b.probeOKs = 0
}
