package quota

// Feature identifies a meterable operation kind. The set is closed: anything
// outside it is rejected at parse time, before any ledger access.
type Feature string

const (
	FeatureTextInput   Feature = "text_input"
	FeatureFileUpload  Feature = "file_upload"
	FeatureImageUpload Feature = "image_upload"
	FeatureVoiceUpload Feature = "voice_upload"
)

// Features returns all known features.
func Features() []Feature {
	return []Feature{
		FeatureTextInput,
		FeatureFileUpload,
		FeatureImageUpload,
		FeatureVoiceUpload,
	}
}

// IsValid checks if the feature is one of the closed enumeration.
func (f Feature) IsValid() bool {
	switch f {
	case FeatureTextInput, FeatureFileUpload, FeatureImageUpload, FeatureVoiceUpload:
		return true
	default:
		return false
	}
}

// String returns the wire name of the feature.
func (f Feature) String() string {
	return string(f)
}

// ParseFeature converts a wire name into a Feature. Unknown names fail with
// ErrUnknownFeature.
func ParseFeature(s string) (Feature, error) {
	f := Feature(s)
	if !f.IsValid() {
		return "", ErrUnknownFeature
	}
	return f, nil
}
