package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/echoverse/server/internal/utils/metrics"
)

// ProfileStore answers premium lookups. Unknown users are free tier.
type ProfileStore interface {
	IsPremium(ctx context.Context, userID string) (bool, error)
}

// Ledger is the durable usage log consulted and written during admission.
type Ledger interface {
	// CountToday returns the number of events for user+feature whose
	// timestamp falls on the UTC calendar day containing now.
	CountToday(ctx context.Context, userID string, feature Feature, now time.Time) (int, error)
	// Append inserts one usage event and returns its id.
	Append(ctx context.Context, userID string, feature Feature, premium bool) (int64, error)
}

// AuditRecorder queues usage events that never influence admission decisions.
// Premium traffic is recorded through it so a slow ledger cannot block
// premium requests.
type AuditRecorder interface {
	Record(userID string, feature Feature, premium bool)
}

// DayCounter is an optional fast day-count cache, maintained write-through.
// It serves diagnostic reads only; admission always counts from the ledger.
type DayCounter interface {
	Get(ctx context.Context, userID string, feature Feature, now time.Time) (int, error)
	Increment(ctx context.Context, userID string, feature Feature, now time.Time) (int, error)
}

// ErrCounterMiss is returned by DayCounter.Get when no counter exists for the
// requested day.
var ErrCounterMiss = errors.New("day counter miss")

// Admission is the successful outcome of CheckAndConsume. The usage event is
// durably recorded by the time it is returned.
type Admission struct {
	Feature   Feature
	Premium   bool
	Remaining int // free-tier uses remaining today; -1 for premium
}

// GuardConfig tunes the circuit breakers guarding store access.
type GuardConfig struct {
	FailureThreshold uint32
	RecoveryTimeout  time.Duration
}

// DefaultGuardConfig returns the default guard configuration.
func DefaultGuardConfig() *GuardConfig {
	return &GuardConfig{
		FailureThreshold: 5,
		RecoveryTimeout:  30 * time.Second,
	}
}

// Guard enforces per-user, per-feature daily quotas. The count-check and the
// event append execute as one serialized unit per (user, feature, UTC day)
// key, so concurrent requests cannot race past the limit. Callers perform
// extraction work only after CheckAndConsume returns, never under the
// admission lock.
type Guard struct {
	profiles ProfileStore
	ledger   Ledger
	recorder AuditRecorder
	counter  DayCounter // may be nil
	policy   *Policy
	locks    *keyedMutex
	logger   *zap.Logger
	metrics  *metrics.Metrics

	profileCB *gobreaker.CircuitBreaker[bool]
	storeCB   *gobreaker.CircuitBreaker[int64]

	now func() time.Time
}

// NewGuard creates a quota guard.
func NewGuard(
	profiles ProfileStore,
	ledger Ledger,
	recorder AuditRecorder,
	counter DayCounter,
	policy *Policy,
	cfg *GuardConfig,
	logger *zap.Logger,
	m *metrics.Metrics,
) *Guard {
	if cfg == nil {
		cfg = DefaultGuardConfig()
	}
	if policy == nil {
		policy = DefaultPolicy()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	trip := func(counts gobreaker.Counts) bool {
		return counts.ConsecutiveFailures >= cfg.FailureThreshold
	}
	// Caller-side cancellations say nothing about store health; they must not
	// open the breaker and shed healthy traffic.
	isSuccessful := func(err error) bool {
		return err == nil ||
			errors.Is(err, context.Canceled) ||
			errors.Is(err, context.DeadlineExceeded)
	}

	return &Guard{
		profiles: profiles,
		ledger:   ledger,
		recorder: recorder,
		counter:  counter,
		policy:   policy,
		locks:    newKeyedMutex(),
		logger:   logger,
		metrics:  m,
		profileCB: gobreaker.NewCircuitBreaker[bool](gobreaker.Settings{
			Name:         "quota-profiles",
			MaxRequests:  1,
			Timeout:      cfg.RecoveryTimeout,
			ReadyToTrip:  trip,
			IsSuccessful: isSuccessful,
		}),
		storeCB: gobreaker.NewCircuitBreaker[int64](gobreaker.Settings{
			Name:         "quota-ledger",
			MaxRequests:  1,
			Timeout:      cfg.RecoveryTimeout,
			ReadyToTrip:  trip,
			IsSuccessful: isSuccessful,
		}),
		now: time.Now,
	}
}

// CheckAndConsume decides whether one operation of the given feature is
// permitted for the user and, if so, records the usage event before
// returning. Denials leave no state behind.
//
// Usage is charged on admission: if the caller's extraction work later fails
// or is cancelled, the recorded event is not rolled back.
func (g *Guard) CheckAndConsume(ctx context.Context, userID string, feature Feature) (*Admission, error) {
	if !feature.IsValid() {
		g.countDecision(feature, "rejected")
		return nil, ErrUnknownFeature
	}

	premium, err := g.profileCB.Execute(func() (bool, error) {
		return g.profiles.IsPremium(ctx, userID)
	})
	if err != nil {
		// Fail closed: an unreachable profile store must not grant
		// unmetered access.
		g.countDecision(feature, "unavailable")
		return nil, fmt.Errorf("%w: premium lookup: %v", ErrStoreUnavailable, err)
	}

	if premium {
		// Premium bypasses counting entirely. The event is still appended
		// for audit, asynchronously, off the admission path.
		g.recorder.Record(userID, feature, true)
		g.countDecision(feature, "admitted_premium")
		return &Admission{Feature: feature, Premium: true, Remaining: -1}, nil
	}

	now := g.now().UTC()
	key := admissionKey(userID, feature, now)
	g.locks.Lock(key)
	defer g.locks.Unlock(key)

	count64, err := g.storeCB.Execute(func() (int64, error) {
		n, err := g.ledger.CountToday(ctx, userID, feature, now)
		return int64(n), err
	})
	if err != nil {
		g.countDecision(feature, "unavailable")
		return nil, fmt.Errorf("%w: count today: %v", ErrStoreUnavailable, err)
	}
	count := int(count64)

	limit := g.policy.Limit(feature)
	if count >= limit {
		g.countDecision(feature, "denied")
		g.logger.Info("quota exceeded",
			zap.String("user_id", userID),
			zap.String("feature", feature.String()),
			zap.Int("limit", limit),
			zap.Int("count", count),
		)
		return nil, &QuotaExceededError{
			Feature: feature,
			Limit:   limit,
			Count:   count,
			ResetAt: nextUTCMidnight(now),
		}
	}

	if _, err := g.storeCB.Execute(func() (int64, error) {
		return g.ledger.Append(ctx, userID, feature, false)
	}); err != nil {
		g.countDecision(feature, "unavailable")
		return nil, fmt.Errorf("%w: append event: %v", ErrStoreUnavailable, err)
	}

	if g.counter != nil {
		if _, err := g.counter.Increment(ctx, userID, feature, now); err != nil {
			// The counter is a diagnostic cache; the ledger already holds
			// the authoritative event.
			g.logger.Warn("day counter increment failed", zap.Error(err))
		}
	}

	g.countDecision(feature, "admitted")
	return &Admission{Feature: feature, Remaining: limit - count - 1}, nil
}

// Remaining reports how many free-tier operations the user has left today for
// the feature, or -1 for premium users. It prefers the day counter cache and
// falls back to the ledger.
func (g *Guard) Remaining(ctx context.Context, userID string, feature Feature) (int, error) {
	if !feature.IsValid() {
		return 0, ErrUnknownFeature
	}

	premium, err := g.profileCB.Execute(func() (bool, error) {
		return g.profiles.IsPremium(ctx, userID)
	})
	if err != nil {
		return 0, fmt.Errorf("%w: premium lookup: %v", ErrStoreUnavailable, err)
	}
	if premium {
		return -1, nil
	}

	now := g.now().UTC()
	count := -1
	if g.counter != nil {
		if n, err := g.counter.Get(ctx, userID, feature, now); err == nil {
			count = n
			g.countCache(true)
		} else if !errors.Is(err, ErrCounterMiss) {
			g.logger.Warn("day counter read failed", zap.Error(err))
		} else {
			g.countCache(false)
		}
	}
	if count < 0 {
		n, err := g.storeCB.Execute(func() (int64, error) {
			c, err := g.ledger.CountToday(ctx, userID, feature, now)
			return int64(c), err
		})
		if err != nil {
			return 0, fmt.Errorf("%w: count today: %v", ErrStoreUnavailable, err)
		}
		count = int(n)
	}

	remaining := g.policy.Limit(feature) - count
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

func (g *Guard) countDecision(feature Feature, outcome string) {
	if g.metrics != nil {
		g.metrics.RecordAdmission(feature.String(), outcome)
	}
}

func (g *Guard) countCache(hit bool) {
	if g.metrics == nil {
		return
	}
	if hit {
		g.metrics.RecordCacheHit("day_counter")
	} else {
		g.metrics.RecordCacheMiss("day_counter")
	}
}

func admissionKey(userID string, feature Feature, now time.Time) string {
	return userID + "|" + feature.String() + "|" + now.Format("2006-01-02")
}

func nextUTCMidnight(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)
}
