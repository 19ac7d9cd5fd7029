package extract

import (
	"net/http"

	"github.com/echoverse/server/internal/module/quota"
	"github.com/echoverse/server/internal/shared/config"
)

// NewDefaultRegistry wires the standard extractor set from configuration:
// document parsing for file uploads, OCR for images, transcription for voice.
// Text input needs no extractor and has no entry here.
func NewDefaultRegistry(cfg *config.ExtractConfig, client *http.Client) *Registry {
	r := NewRegistry()
	r.Register(quota.FeatureFileUpload, NewFileExtractor())
	r.Register(quota.FeatureImageUpload, NewImageExtractor(cfg.OCRLanguages))
	r.Register(quota.FeatureVoiceUpload, NewVoiceExtractor(VoiceConfig{
		BaseURL: cfg.TranscribeBaseURL,
		APIKey:  cfg.TranscribeAPIKey,
		Model:   cfg.TranscribeModel,
		Timeout: cfg.TranscribeTimeout,
	}, client))
	return r
}
