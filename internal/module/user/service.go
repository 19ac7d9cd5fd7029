package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Service provides profile management operations. It satisfies
// quota.ProfileStore for the quota guard.
type Service struct {
	repo   Repository
	logger *zap.Logger
}

// NewService creates a new profile service.
func NewService(repo Repository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, logger: logger}
}

// Register creates a profile if one does not exist. Registration is
// idempotent: re-registering an existing id is a no-op and never changes the
// stored premium flag, whatever value the second call carries.
func (s *Service) Register(ctx context.Context, userID string, isPremium bool) (*Profile, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrInvalidUserID
	}

	profile := &Profile{UserID: userID, IsPremium: isPremium}
	if err := s.repo.CreateIfAbsent(ctx, profile); err != nil {
		return nil, fmt.Errorf("register profile: %w", err)
	}

	// Return the stored profile, which may predate this call.
	stored, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	s.logger.Info("user registered",
		zap.String("user_id", stored.UserID),
		zap.Bool("is_premium", stored.IsPremium),
	)
	return stored, nil
}

// IsPremium reports whether the user has a premium account. Unknown users
// default to the free tier; that is policy, not an error.
func (s *Service) IsPremium(ctx context.Context, userID string) (bool, error) {
	profile, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			return false, nil
		}
		return false, err
	}
	return profile.IsPremium, nil
}

// SetPremium updates the premium flag of an existing profile. This is the
// admin/upgrade path; registration never modifies the flag.
func (s *Service) SetPremium(ctx context.Context, userID string, premium bool) error {
	if strings.TrimSpace(userID) == "" {
		return ErrInvalidUserID
	}
	if err := s.repo.SetPremium(ctx, userID, premium); err != nil {
		return err
	}
	s.logger.Info("premium flag updated",
		zap.String("user_id", userID),
		zap.Bool("is_premium", premium),
	)
	return nil
}

// ListPlans returns the active plan catalog for display.
func (s *Service) ListPlans(ctx context.Context) ([]*Plan, error) {
	return s.repo.ListPlans(ctx)
}
