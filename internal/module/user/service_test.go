package user

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memRepo struct {
	mu       sync.Mutex
	profiles map[string]*Profile
	plans    []*Plan
}

func newMemRepo() *memRepo {
	return &memRepo{profiles: make(map[string]*Profile)}
}

func (r *memRepo) CreateIfAbsent(_ context.Context, p *Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.profiles[p.UserID]; !ok {
		cp := *p
		r.profiles[p.UserID] = &cp
	}
	return nil
}

func (r *memRepo) GetByID(_ context.Context, userID string) (*Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[userID]
	if !ok {
		return nil, ErrProfileNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *memRepo) SetPremium(_ context.Context, userID string, premium bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[userID]
	if !ok {
		return ErrProfileNotFound
	}
	p.IsPremium = premium
	return nil
}

func (r *memRepo) ListPlans(_ context.Context) ([]*Plan, error) {
	return r.plans, nil
}

func (r *memRepo) SeedPlans(_ context.Context, plans []*Plan) error {
	r.plans = plans
	return nil
}

func TestService_Register(t *testing.T) {
	svc := NewService(newMemRepo(), zap.NewNop())
	ctx := context.Background()

	t.Run("creates profile", func(t *testing.T) {
		p, err := svc.Register(ctx, "alice", false)
		require.NoError(t, err)
		assert.Equal(t, "alice", p.UserID)
		assert.False(t, p.IsPremium)
	})

	t.Run("idempotent and keeps the stored tier", func(t *testing.T) {
		_, err := svc.Register(ctx, "bob", true)
		require.NoError(t, err)

		p, err := svc.Register(ctx, "bob", false)
		require.NoError(t, err)
		assert.True(t, p.IsPremium, "second registration must not overwrite the flag")
	})

	t.Run("rejects blank id", func(t *testing.T) {
		_, err := svc.Register(ctx, "   ", false)
		assert.ErrorIs(t, err, ErrInvalidUserID)
	})
}

func TestService_IsPremium(t *testing.T) {
	svc := NewService(newMemRepo(), zap.NewNop())
	ctx := context.Background()

	_, err := svc.Register(ctx, "vip", true)
	require.NoError(t, err)

	premium, err := svc.IsPremium(ctx, "vip")
	require.NoError(t, err)
	assert.True(t, premium)

	// Unknown users are free tier, not an error.
	premium, err = svc.IsPremium(ctx, "stranger")
	require.NoError(t, err)
	assert.False(t, premium)
}

func TestService_SetPremium(t *testing.T) {
	svc := NewService(newMemRepo(), zap.NewNop())
	ctx := context.Background()

	_, err := svc.Register(ctx, "carol", false)
	require.NoError(t, err)

	require.NoError(t, svc.SetPremium(ctx, "carol", true))
	premium, err := svc.IsPremium(ctx, "carol")
	require.NoError(t, err)
	assert.True(t, premium)

	assert.ErrorIs(t, svc.SetPremium(ctx, "ghost", true), ErrProfileNotFound)
	assert.ErrorIs(t, svc.SetPremium(ctx, "", true), ErrInvalidUserID)
}

func TestDefaultPlans(t *testing.T) {
	plans := DefaultPlans()
	require.Len(t, plans, 3)
	assert.Equal(t, "free", plans[0].ID)
	assert.Equal(t, "pro", plans[1].ID)
	assert.Equal(t, "premium", plans[2].ID)
	for _, p := range plans {
		assert.True(t, p.Active)
		assert.NotEmpty(t, p.Features)
	}
}
