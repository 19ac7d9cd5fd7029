package quota

import "fmt"

// Policy maps each feature to its free-tier daily limit. Premium accounts are
// never checked against it.
type Policy struct {
	limits map[Feature]int
}

// NewPolicy creates a policy from per-feature limits keyed by wire name.
// Unknown feature names fail with ErrUnknownFeature so a typo in configuration
// surfaces at startup instead of silently metering nothing.
func NewPolicy(limits map[string]int) (*Policy, error) {
	m := make(map[Feature]int, len(limits))
	for name, limit := range limits {
		f, err := ParseFeature(name)
		if err != nil {
			return nil, err
		}
		if limit < 0 {
			return nil, fmt.Errorf("limit for %s must not be negative: %d", name, limit)
		}
		m[f] = limit
	}
	return &Policy{limits: m}, nil
}

// DefaultPolicy returns the stock free-tier limits.
func DefaultPolicy() *Policy {
	return &Policy{limits: map[Feature]int{
		FeatureTextInput:   5,
		FeatureFileUpload:  3,
		FeatureImageUpload: 3,
		FeatureVoiceUpload: 2,
	}}
}

// Limit returns the free-tier daily limit for a feature.
//
// A feature absent from the policy has a limit of 0: no free usage at all.
// This is deliberate, inherited behavior — an unlisted feature is closed to
// the free tier rather than unmetered.
func (p *Policy) Limit(f Feature) int {
	return p.limits[f]
}
