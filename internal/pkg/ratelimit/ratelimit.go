// Package ratelimit caps requests per client address per logical endpoint.
// Counters live in process memory; each replica limits independently.
package ratelimit

import (
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/presswire-api/internal/config"
	"github.com/presswire-api/internal/pkg/clock"
)

const (
	// DefaultPolicy names the fallback entry in the policy table.
	DefaultPolicy = "default"

	blockMultiplier = 3
	blockDuration   = time.Hour
	sweepHorizon    = time.Hour
	sweepChance     = 0.01
)

// Decision is the outcome of one Check.
type Decision struct {
	Allowed    bool
	Permanent  bool // address is on the permanent blocklist
	Blocked    bool // address is serving a temporary block
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter int // whole seconds, set when denied
}

type window struct {
	count int
	start time.Time
}

// Limiter is safe for concurrent use.
type Limiter struct {
	mu        sync.Mutex
	policies  map[string]config.RateLimitPolicy
	permanent map[string]struct{}
	counters  map[string]*window
	blocked   map[string]time.Time
	now       clock.Func
	sweep     func() bool
}

// Option customises a Limiter.
type Option func(*Limiter)

// WithClock overrides the time source.
func WithClock(c clock.Func) Option { return func(l *Limiter) { l.now = c } }

// WithSweep overrides the housekeeping trigger, which by default fires on
// roughly one check in a hundred.
func WithSweep(fn func() bool) Option { return func(l *Limiter) { l.sweep = fn } }

// New builds a Limiter. policies must contain a "default" entry; a missing
// one falls back to 30 requests per minute.
func New(policies map[string]config.RateLimitPolicy, permanent []string, opts ...Option) *Limiter {
	l := &Limiter{
		policies:  make(map[string]config.RateLimitPolicy, len(policies)+1),
		permanent: make(map[string]struct{}, len(permanent)),
		counters:  make(map[string]*window),
		blocked:   make(map[string]time.Time),
		now:       clock.Real,
		sweep:     func() bool { return rand.Float64() < sweepChance },
	}
	for k, p := range policies {
		l.policies[k] = p
	}
	if _, ok := l.policies[DefaultPolicy]; !ok {
		l.policies[DefaultPolicy] = config.RateLimitPolicy{Requests: 30, Window: time.Minute}
	}
	for _, addr := range permanent {
		l.permanent[addr] = struct{}{}
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Policy returns the policy applied to endpoint.
func (l *Limiter) Policy(endpoint string) config.RateLimitPolicy {
	if p, ok := l.policies[endpoint]; ok {
		return p
	}
	return l.policies[DefaultPolicy]
}

// Check counts one request from addr against endpoint's policy.
func (l *Limiter) Check(addr, endpoint string) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	policy := l.Policy(endpoint)

	if _, ok := l.permanent[addr]; ok {
		return Decision{Permanent: true, Limit: policy.Requests}
	}

	if until, ok := l.blocked[addr]; ok {
		if now.Before(until) {
			return Decision{
				Blocked:    true,
				Limit:      policy.Requests,
				ResetAt:    until,
				RetryAfter: ceilSeconds(until.Sub(now)),
			}
		}
		delete(l.blocked, addr)
	}

	key := endpoint + "|" + addr
	w, ok := l.counters[key]
	if !ok || now.Sub(w.start) > policy.Window {
		w = &window{start: now}
		l.counters[key] = w
	}
	w.count++

	if l.sweep() {
		l.sweepLocked(now)
	}

	resetAt := w.start.Add(policy.Window)
	if w.count >= blockMultiplier*policy.Requests {
		l.blocked[addr] = now.Add(blockDuration)
	}
	if w.count > policy.Requests {
		return Decision{
			Limit:      policy.Requests,
			ResetAt:    resetAt,
			RetryAfter: ceilSeconds(resetAt.Sub(now)),
		}
	}
	return Decision{
		Allowed:   true,
		Limit:     policy.Requests,
		Remaining: policy.Requests - w.count,
		ResetAt:   resetAt,
	}
}

// sweepLocked drops counters and blocks past the housekeeping horizon. Caller holds mu.
func (l *Limiter) sweepLocked(now time.Time) {
	for k, w := range l.counters {
		if now.Sub(w.start) > sweepHorizon {
			delete(l.counters, k)
		}
	}
	for addr, until := range l.blocked {
		if !now.Before(until) {
			delete(l.blocked, addr)
		}
	}
}

// Size reports tracked counters and active blocks.
func (l *Limiter) Size() (counters, blocks int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.counters), len(l.blocked)
}

func ceilSeconds(d time.Duration) int {
	s := int(math.Ceil(d.Seconds()))
	if s < 1 {
		s = 1
	}
	return s
}
