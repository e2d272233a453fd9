package routing

import (
	"sync"
	"time"

	"github.com/upb/insight-gateway/backend/services/providers"
)

// Transition names the health state change applied after a failure.
type Transition string

const (
	TransitionNone             Transition = "none"
	TransitionRateLimitCooldown Transition = "rate_limit_cooldown"
	TransitionErrorCooldown    Transition = "error_cooldown"
	TransitionAuthDisable      Transition = "auth_disable"
	TransitionPaymentDisable   Transition = "payment_disable"
)

// HealthConfig holds the cooldown, disablement and quota parameters.
type HealthConfig struct {
	RateLimitCooldown time.Duration
	ErrorCooldown     time.Duration
	AuthDisable       time.Duration
	PaymentDisable    time.Duration
	QuotaWindow       time.Duration
	QuotaMax          int
}

// DefaultHealthConfig returns the standard parameters.
func DefaultHealthConfig() HealthConfig {
	return HealthConfig{
		RateLimitCooldown: 60 * time.Second,
		ErrorCooldown:     15 * time.Second,
		AuthDisable:       24 * time.Hour,
		PaymentDisable:    24 * time.Hour,
		QuotaWindow:       60 * time.Second,
		QuotaMax:          5,
	}
}

// providerHealth is the per-provider state. All fields are guarded by
// mu, including the quota event window.
type providerHealth struct {
	mu                  sync.Mutex
	cooldownUntil       time.Time
	disabledUntil       time.Time
	consecutiveFailures int
	lastError           string
	quotaEvents         []time.Time
}

// ProviderStatus is a point-in-time snapshot of one provider's health.
type ProviderStatus struct {
	Name                string     `json:"name"`
	Eligible            bool       `json:"eligible"`
	CooldownUntil       *time.Time `json:"cooldown_until,omitempty"`
	DisabledUntil       *time.Time `json:"disabled_until,omitempty"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	LastError           string     `json:"last_error,omitempty"`
}

// HealthTracker keeps cooldowns, disablements and the sliding quota
// window for every provider. State is process-local.
type HealthTracker struct {
	cfg HealthConfig
	now func() time.Time

	mu    sync.RWMutex
	state map[string]*providerHealth
}

// NewHealthTracker creates a tracker with the given parameters.
func NewHealthTracker(cfg HealthConfig) *HealthTracker {
	return &HealthTracker{
		cfg:   cfg,
		now:   time.Now,
		state: make(map[string]*providerHealth),
	}
}

// withClock overrides the time source. Used by tests.
func (t *HealthTracker) withClock(now func() time.Time) *HealthTracker {
	t.now = now
	return t
}

func (t *HealthTracker) get(name string) *providerHealth {
	t.mu.RLock()
	ph, ok := t.state[name]
	t.mu.RUnlock()
	if ok {
		return ph
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if ph, ok := t.state[name]; ok {
		return ph
	}
	ph = &providerHealth{}
	t.state[name] = ph
	return ph
}

// Eligible reports whether the provider may be attempted right now:
// both the cooldown and the disablement deadlines must have passed.
func (t *HealthTracker) Eligible(name string) bool {
	ph := t.get(name)
	ph.mu.Lock()
	defer ph.mu.Unlock()

	now := t.now()
	return !now.Before(ph.cooldownUntil) && !now.Before(ph.disabledUntil)
}

// RecordSuccess clears the cooldown and the failure counter. An active
// disablement is never cleared by a success.
func (t *HealthTracker) RecordSuccess(name string) {
	ph := t.get(name)
	ph.mu.Lock()
	defer ph.mu.Unlock()

	ph.cooldownUntil = time.Time{}
	ph.consecutiveFailures = 0
	ph.lastError = ""
}

// RecordFailure folds a classified failure into the provider's state
// and returns the transition applied. Deadlines only ever extend:
// a new deadline earlier than the current one is ignored.
func (t *HealthTracker) RecordFailure(name string, cerr *providers.ClassifiedError) Transition {
	ph := t.get(name)
	ph.mu.Lock()
	defer ph.mu.Unlock()

	ph.consecutiveFailures++
	ph.lastError = cerr.Error()

	now := t.now()
	switch {
	case cerr.StatusCode == 401 || cerr.StatusCode == 403:
		extendDeadline(&ph.disabledUntil, now.Add(t.cfg.AuthDisable))
		return TransitionAuthDisable
	case cerr.StatusCode == 402:
		extendDeadline(&ph.disabledUntil, now.Add(t.cfg.PaymentDisable))
		return TransitionPaymentDisable
	case cerr.StatusCode == 429:
		extendDeadline(&ph.cooldownUntil, now.Add(t.cfg.RateLimitCooldown))
		return TransitionRateLimitCooldown
	case cerr.Retryable:
		extendDeadline(&ph.cooldownUntil, now.Add(t.cfg.ErrorCooldown))
		return TransitionErrorCooldown
	default:
		// Non-retryable unknown failures abort the request but leave
		// the provider available for the next one.
		return TransitionNone
	}
}

// TryConsumeQuota admits the call if fewer than QuotaMax events fall
// inside the sliding window, appending the new event atomically with
// the check. QuotaMax <= 0 disables the quota.
func (t *HealthTracker) TryConsumeQuota(name string) bool {
	if t.cfg.QuotaMax <= 0 {
		return true
	}

	ph := t.get(name)
	ph.mu.Lock()
	defer ph.mu.Unlock()

	now := t.now()
	cutoff := now.Add(-t.cfg.QuotaWindow)

	kept := ph.quotaEvents[:0]
	for _, ev := range ph.quotaEvents {
		if ev.After(cutoff) {
			kept = append(kept, ev)
		}
	}
	ph.quotaEvents = kept

	if len(ph.quotaEvents) >= t.cfg.QuotaMax {
		return false
	}
	ph.quotaEvents = append(ph.quotaEvents, now)
	return true
}

// Snapshot returns the health of the named providers, in the given
// order. Unknown names report as eligible with empty state.
func (t *HealthTracker) Snapshot(names []string) []ProviderStatus {
	out := make([]ProviderStatus, 0, len(names))
	now := t.now()

	for _, name := range names {
		ph := t.get(name)
		ph.mu.Lock()
		status := ProviderStatus{
			Name:                name,
			Eligible:            !now.Before(ph.cooldownUntil) && !now.Before(ph.disabledUntil),
			ConsecutiveFailures: ph.consecutiveFailures,
			LastError:           ph.lastError,
		}
		if !ph.cooldownUntil.IsZero() {
			cu := ph.cooldownUntil
			status.CooldownUntil = &cu
		}
		if !ph.disabledUntil.IsZero() {
			du := ph.disabledUntil
			status.DisabledUntil = &du
		}
		ph.mu.Unlock()
		out = append(out, status)
	}
	return out
}

func extendDeadline(current *time.Time, candidate time.Time) {
	if candidate.After(*current) {
		*current = candidate
	}
}
