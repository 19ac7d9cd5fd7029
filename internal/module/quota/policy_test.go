package quota

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFeature(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Feature
		wantErr bool
	}{
		{name: "text input", input: "text_input", want: FeatureTextInput},
		{name: "file upload", input: "file_upload", want: FeatureFileUpload},
		{name: "image upload", input: "image_upload", want: FeatureImageUpload},
		{name: "voice upload", input: "voice_upload", want: FeatureVoiceUpload},
		{name: "unknown", input: "video_upload", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "case sensitive", input: "TEXT_INPUT", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFeature(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownFeature)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFeatures(t *testing.T) {
	fs := Features()
	assert.Len(t, fs, 4)
	for _, f := range fs {
		assert.True(t, f.IsValid())
	}
	assert.False(t, Feature("bogus").IsValid())
}

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, 5, p.Limit(FeatureTextInput))
	assert.Equal(t, 3, p.Limit(FeatureFileUpload))
	assert.Equal(t, 3, p.Limit(FeatureImageUpload))
	assert.Equal(t, 2, p.Limit(FeatureVoiceUpload))
}

func TestNewPolicy(t *testing.T) {
	t.Run("valid limits", func(t *testing.T) {
		p, err := NewPolicy(map[string]int{"text_input": 10, "voice_upload": 1})
		require.NoError(t, err)
		assert.Equal(t, 10, p.Limit(FeatureTextInput))
		assert.Equal(t, 1, p.Limit(FeatureVoiceUpload))
	})

	t.Run("absent feature has zero allowance", func(t *testing.T) {
		p, err := NewPolicy(map[string]int{"text_input": 10})
		require.NoError(t, err)
		assert.Equal(t, 0, p.Limit(FeatureFileUpload))
	})

	t.Run("unknown feature name rejected", func(t *testing.T) {
		_, err := NewPolicy(map[string]int{"video_upload": 3})
		assert.ErrorIs(t, err, ErrUnknownFeature)
	})

	t.Run("negative limit rejected", func(t *testing.T) {
		_, err := NewPolicy(map[string]int{"text_input": -1})
		assert.Error(t, err)
	})
}

func TestQuotaExceededError(t *testing.T) {
	err := &QuotaExceededError{Feature: FeatureTextInput, Limit: 5, Count: 5}
	assert.Contains(t, err.Error(), "text_input")
	assert.Contains(t, err.Error(), "5/5")

	qe, ok := IsQuotaExceeded(err)
	assert.True(t, ok)
	assert.Equal(t, 5, qe.Limit)

	_, ok = IsQuotaExceeded(ErrUnknownFeature)
	assert.False(t, ok)
}
