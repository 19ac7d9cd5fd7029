package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"
)

// audioExtensions are the formats the transcription API accepts.
var audioExtensions = map[string]struct{}{
	".wav":  {},
	".mp3":  {},
	".m4a":  {},
	".mp4":  {},
	".ogg":  {},
	".flac": {},
	".webm": {},
}

// VoiceConfig configures the transcription client.
type VoiceConfig struct {
	// BaseURL of an OpenAI-compatible API, e.g. "https://api.openai.com/v1".
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// VoiceExtractor transcribes uploaded audio for the voice_upload feature by
// calling an OpenAI-compatible /audio/transcriptions endpoint.
type VoiceExtractor struct {
	cfg    VoiceConfig
	client *http.Client
}

// NewVoiceExtractor creates a transcription extractor. A nil client gets a
// default one bound to the configured timeout.
func NewVoiceExtractor(cfg VoiceConfig, client *http.Client) *VoiceExtractor {
	if cfg.Model == "" {
		cfg.Model = "whisper-1"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &VoiceExtractor{cfg: cfg, client: client}
}

// Extract returns the transcript of the audio upload.
func (e *VoiceExtractor) Extract(ctx context.Context, filename string, data []byte) (string, error) {
	if _, ok := audioExtensions[strings.ToLower(filepath.Ext(filename))]; !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filename)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	if err := writer.WriteField("model", e.cfg.Model); err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}

	url := strings.TrimRight(e.cfg.BaseURL, "/") + "/audio/transcriptions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if e.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.cfg.APIKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcription request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("transcription returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return out.Text, nil
}
