package quota

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// --- fakes ---

type fakeProfiles struct {
	premium map[string]bool
	err     error
}

func (p *fakeProfiles) IsPremium(_ context.Context, userID string) (bool, error) {
	if p.err != nil {
		return false, p.err
	}
	return p.premium[userID], nil
}

type memLedger struct {
	mu        sync.Mutex
	events    []memEvent
	countErr  error
	appendErr error
}

type memEvent struct {
	userID  string
	feature Feature
	premium bool
	ts      time.Time
}

func (l *memLedger) CountToday(_ context.Context, userID string, feature Feature, now time.Time) (int, error) {
	if l.countErr != nil {
		return 0, l.countErr
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	day := now.UTC().Format("2006-01-02")
	n := 0
	for _, e := range l.events {
		if e.userID == userID && e.feature == feature && e.ts.UTC().Format("2006-01-02") == day {
			n++
		}
	}
	return n, nil
}

func (l *memLedger) Append(_ context.Context, userID string, feature Feature, premium bool) (int64, error) {
	if l.appendErr != nil {
		return 0, l.appendErr
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, memEvent{userID, feature, premium, time.Now().UTC()})
	return int64(len(l.events)), nil
}

func (l *memLedger) appendAt(userID string, feature Feature, premium bool, ts time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, memEvent{userID, feature, premium, ts})
}

func (l *memLedger) total() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

type captureRecorder struct {
	mu      sync.Mutex
	entries []memEvent
}

func (r *captureRecorder) Record(userID string, feature Feature, premium bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, memEvent{userID: userID, feature: feature, premium: premium})
}

func (r *captureRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

type memCounter struct {
	mu      sync.Mutex
	counts  map[string]int
	getErr  error
	incrErr error
}

func newMemCounter() *memCounter {
	return &memCounter{counts: make(map[string]int)}
}

func (c *memCounter) key(userID string, feature Feature, now time.Time) string {
	return userID + "|" + feature.String() + "|" + now.UTC().Format("2006-01-02")
}

func (c *memCounter) Get(_ context.Context, userID string, feature Feature, now time.Time) (int, error) {
	if c.getErr != nil {
		return 0, c.getErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.counts[c.key(userID, feature, now)]
	if !ok {
		return 0, ErrCounterMiss
	}
	return n, nil
}

func (c *memCounter) Increment(_ context.Context, userID string, feature Feature, now time.Time) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := c.key(userID, feature, now)
	c.counts[k]++
	if c.incrErr != nil {
		return c.counts[k], c.incrErr
	}
	return c.counts[k], nil
}

func newTestGuard(t *testing.T, profiles ProfileStore, ledger Ledger, recorder AuditRecorder, counter DayCounter) *Guard {
	t.Helper()
	return NewGuard(profiles, ledger, recorder, counter, DefaultPolicy(), nil, zap.NewNop(), nil)
}

// --- tests ---

func TestCheckAndConsume_FreeUserWithinLimit(t *testing.T) {
	ledger := &memLedger{}
	g := newTestGuard(t, &fakeProfiles{}, ledger, &captureRecorder{}, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		adm, err := g.CheckAndConsume(ctx, "u1", FeatureFileUpload)
		require.NoError(t, err)
		assert.False(t, adm.Premium)
		assert.Equal(t, 3-i-1, adm.Remaining)
	}

	_, err := g.CheckAndConsume(ctx, "u1", FeatureFileUpload)
	qe, ok := IsQuotaExceeded(err)
	require.True(t, ok)
	assert.Equal(t, FeatureFileUpload, qe.Feature)
	assert.Equal(t, 3, qe.Limit)
	assert.Equal(t, 3, qe.Count)
	assert.Equal(t, 3, ledger.total(), "denial appends nothing")
}

func TestCheckAndConsume_DenialLeavesNoState(t *testing.T) {
	ledger := &memLedger{}
	counter := newMemCounter()
	g := newTestGuard(t, &fakeProfiles{}, ledger, &captureRecorder{}, counter)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := g.CheckAndConsume(ctx, "u1", FeatureVoiceUpload)
		require.NoError(t, err)
	}
	_, err := g.CheckAndConsume(ctx, "u1", FeatureVoiceUpload)
	_, ok := IsQuotaExceeded(err)
	require.True(t, ok)

	assert.Equal(t, 2, ledger.total())
	n, err := counter.Get(ctx, "u1", FeatureVoiceUpload, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 2, n, "counter unchanged by denial")
}

func TestCheckAndConsume_ConcurrentRacersAdmitExactlyLimit(t *testing.T) {
	ledger := &memLedger{}
	g := newTestGuard(t, &fakeProfiles{}, ledger, &captureRecorder{}, nil)
	ctx := context.Background()

	const racers = 25 // text_input free limit is 5
	var admitted, denied atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := g.CheckAndConsume(ctx, "u1", FeatureTextInput)
			switch {
			case err == nil:
				admitted.Add(1)
			default:
				if _, ok := IsQuotaExceeded(err); ok {
					denied.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(5), admitted.Load())
	assert.Equal(t, int64(racers-5), denied.Load())
	assert.Equal(t, 5, ledger.total())
}

func TestCheckAndConsume_PremiumBypassesCounting(t *testing.T) {
	ledger := &memLedger{}
	recorder := &captureRecorder{}
	g := newTestGuard(t, &fakeProfiles{premium: map[string]bool{"vip": true}}, ledger, recorder, nil)
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		adm, err := g.CheckAndConsume(ctx, "vip", FeatureVoiceUpload)
		require.NoError(t, err)
		assert.True(t, adm.Premium)
		assert.Equal(t, -1, adm.Remaining)
	}
	assert.Equal(t, 0, ledger.total(), "premium path never touches the ledger synchronously")
	assert.Equal(t, 50, recorder.count(), "premium usage is queued for audit")
}

func TestCheckAndConsume_UnknownFeature(t *testing.T) {
	ledger := &memLedger{}
	g := newTestGuard(t, &fakeProfiles{}, ledger, &captureRecorder{}, nil)

	_, err := g.CheckAndConsume(context.Background(), "u1", Feature("video_upload"))
	assert.ErrorIs(t, err, ErrUnknownFeature)
	assert.Equal(t, 0, ledger.total())
}

func TestCheckAndConsume_DayBoundaryResetsAllowance(t *testing.T) {
	ledger := &memLedger{}
	g := newTestGuard(t, &fakeProfiles{}, ledger, &captureRecorder{}, nil)

	day1 := time.Date(2026, 8, 27, 23, 50, 0, 0, time.UTC)
	for i := 0; i < 2; i++ {
		ledger.appendAt("u1", FeatureVoiceUpload, false, day1)
	}

	g.now = func() time.Time { return day1 }
	_, err := g.CheckAndConsume(context.Background(), "u1", FeatureVoiceUpload)
	qe, ok := IsQuotaExceeded(err)
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC), qe.ResetAt)

	// Ten minutes later it is a new UTC day and the allowance is fresh.
	g.now = func() time.Time { return day1.Add(10 * time.Minute) }
	adm, err := g.CheckAndConsume(context.Background(), "u1", FeatureVoiceUpload)
	require.NoError(t, err)
	assert.Equal(t, 1, adm.Remaining)
}

func TestCheckAndConsume_FailsClosedWhenProfileStoreDown(t *testing.T) {
	g := newTestGuard(t, &fakeProfiles{err: errors.New("db down")}, &memLedger{}, &captureRecorder{}, nil)

	_, err := g.CheckAndConsume(context.Background(), "u1", FeatureTextInput)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestCheckAndConsume_FailsClosedWhenLedgerDown(t *testing.T) {
	ledger := &memLedger{countErr: errors.New("connection refused")}
	g := newTestGuard(t, &fakeProfiles{}, ledger, &captureRecorder{}, nil)

	_, err := g.CheckAndConsume(context.Background(), "u1", FeatureTextInput)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestCheckAndConsume_FailsClosedWhenAppendFails(t *testing.T) {
	ledger := &memLedger{appendErr: errors.New("write timeout")}
	g := newTestGuard(t, &fakeProfiles{}, ledger, &captureRecorder{}, nil)

	_, err := g.CheckAndConsume(context.Background(), "u1", FeatureTextInput)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.Equal(t, 0, ledger.total())
}

func TestCheckAndConsume_CircuitOpensAfterConsecutiveFailures(t *testing.T) {
	ledger := &memLedger{countErr: errors.New("connection refused")}
	g := newTestGuard(t, &fakeProfiles{}, ledger, &captureRecorder{}, nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := g.CheckAndConsume(ctx, "u1", FeatureTextInput)
		assert.ErrorIs(t, err, ErrStoreUnavailable)
	}

	// The breaker is open now; the ledger stops being called but callers
	// still see the same unavailable error.
	ledger.countErr = nil
	_, err := g.CheckAndConsume(ctx, "u1", FeatureTextInput)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.Equal(t, 0, ledger.total())
}

func TestCheckAndConsume_CancellationsDoNotTripBreaker(t *testing.T) {
	ledger := &memLedger{countErr: context.Canceled}
	g := newTestGuard(t, &fakeProfiles{}, ledger, &captureRecorder{}, nil)
	ctx := context.Background()

	// A burst of caller cancellations, well past the failure threshold.
	for i := 0; i < 10; i++ {
		_, err := g.CheckAndConsume(ctx, "u1", FeatureTextInput)
		assert.ErrorIs(t, err, ErrStoreUnavailable)
	}

	// The store was healthy all along; the next request must pass.
	ledger.countErr = nil
	adm, err := g.CheckAndConsume(ctx, "u1", FeatureTextInput)
	require.NoError(t, err)
	assert.Equal(t, 4, adm.Remaining)
}

func TestCheckAndConsume_CounterFailureDoesNotBlockAdmission(t *testing.T) {
	counter := newMemCounter()
	counter.getErr = errors.New("redis down")
	ledger := &memLedger{}
	g := newTestGuard(t, &fakeProfiles{}, ledger, &captureRecorder{}, counter)

	adm, err := g.CheckAndConsume(context.Background(), "u1", FeatureImageUpload)
	require.NoError(t, err)
	assert.Equal(t, 2, adm.Remaining)
}

func TestCheckAndConsume_CounterExpiryFailureIsLogged(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	counter := newMemCounter()
	counter.incrErr = errors.New("set counter expiry: connection reset")
	g := NewGuard(&fakeProfiles{}, &memLedger{}, &captureRecorder{}, counter, DefaultPolicy(), nil, zap.New(core), nil)

	adm, err := g.CheckAndConsume(context.Background(), "u1", FeatureTextInput)
	require.NoError(t, err, "a failing counter never blocks admission")
	assert.Equal(t, 4, adm.Remaining)
	assert.Equal(t, 1, logs.FilterMessage("day counter increment failed").Len())
}

func TestRemaining(t *testing.T) {
	ledger := &memLedger{}
	counter := newMemCounter()
	g := newTestGuard(t, &fakeProfiles{premium: map[string]bool{"vip": true}}, ledger, &captureRecorder{}, counter)
	ctx := context.Background()

	t.Run("premium is unlimited", func(t *testing.T) {
		n, err := g.Remaining(ctx, "vip", FeatureTextInput)
		require.NoError(t, err)
		assert.Equal(t, -1, n)
	})

	t.Run("counter miss falls back to ledger", func(t *testing.T) {
		ledger.appendAt("u1", FeatureTextInput, false, time.Now().UTC())
		n, err := g.Remaining(ctx, "u1", FeatureTextInput)
		require.NoError(t, err)
		assert.Equal(t, 4, n)
	})

	t.Run("counter hit serves the read", func(t *testing.T) {
		now := time.Now()
		for i := 0; i < 3; i++ {
			counter.Increment(ctx, "u2", FeatureFileUpload, now)
		}
		n, err := g.Remaining(ctx, "u2", FeatureFileUpload)
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	})

	t.Run("never negative", func(t *testing.T) {
		now := time.Now()
		for i := 0; i < 10; i++ {
			counter.Increment(ctx, "u3", FeatureVoiceUpload, now)
		}
		n, err := g.Remaining(ctx, "u3", FeatureVoiceUpload)
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	})

	t.Run("unknown feature", func(t *testing.T) {
		_, err := g.Remaining(ctx, "u1", Feature("bogus"))
		assert.ErrorIs(t, err, ErrUnknownFeature)
	})
}

func TestNextUTCMidnight(t *testing.T) {
	now := time.Date(2026, 12, 31, 23, 59, 59, 0, time.UTC)
	assert.Equal(t, time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), nextUTCMidnight(now))
}
