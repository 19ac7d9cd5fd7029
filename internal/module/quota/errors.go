package quota

import (
	"errors"
	"fmt"
	"time"
)

// Module errors.
var (
	// ErrUnknownFeature is returned for feature names outside the closed
	// enumeration, before any ledger access.
	ErrUnknownFeature = errors.New("unknown feature")

	// ErrStoreUnavailable is returned when the profile store or ledger is
	// unreachable. Admission fails closed on this condition.
	ErrStoreUnavailable = errors.New("quota store unavailable")
)

// QuotaExceededError is returned when a free-tier user has exhausted the daily
// limit for a feature. It is terminal for the day: the caller must not retry
// before ResetAt.
type QuotaExceededError struct {
	Feature Feature
	Limit   int
	Count   int
	ResetAt time.Time
}

// Error implements the error interface.
func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("daily free limit reached for %s: %d/%d used, resets at %s",
		e.Feature, e.Count, e.Limit, e.ResetAt.Format(time.RFC3339))
}

// IsQuotaExceeded reports whether err is a quota denial, and returns the
// typed detail if so.
func IsQuotaExceeded(err error) (*QuotaExceededError, bool) {
	var qe *QuotaExceededError
	if errors.As(err, &qe) {
		return qe, true
	}
	return nil, false
}
