// Package intake is the public operation surface of the service. It
// orchestrates registration, quota admission, blob persistence and content
// extraction; transport layers call into it and stay free of business rules.
package intake

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/echoverse/server/internal/module/extract"
	"github.com/echoverse/server/internal/module/quota"
	"github.com/echoverse/server/internal/module/storage"
	"github.com/echoverse/server/internal/module/user"
	"github.com/echoverse/server/internal/utils/metrics"
)

// ErrEmptyText is returned when text input carries no content.
var ErrEmptyText = errors.New("text must not be empty")

// featureCategories maps each upload feature to its blob partition.
var featureCategories = map[quota.Feature]storage.Category{
	quota.FeatureFileUpload:  storage.CategoryFiles,
	quota.FeatureImageUpload: storage.CategoryImages,
	quota.FeatureVoiceUpload: storage.CategoryAudio,
}

// Result is the outcome of an accepted operation.
type Result struct {
	// Text extracted from the submission.
	Text string

	// Key identifies the stored blob; empty for text input.
	Key string

	// Admission that let the operation through.
	Admission *quota.Admission
}

// Service wires the modules together behind one API.
type Service struct {
	users      *user.Service
	guard      *quota.Guard
	blobs      storage.Store
	extractors *extract.Registry
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

// NewService creates the intake service.
func NewService(
	users *user.Service,
	guard *quota.Guard,
	blobs storage.Store,
	extractors *extract.Registry,
	logger *zap.Logger,
	m *metrics.Metrics,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		users:      users,
		guard:      guard,
		blobs:      blobs,
		extractors: extractors,
		logger:     logger,
		metrics:    m,
	}
}

// RegisterUser creates a profile if absent. Idempotent.
func (s *Service) RegisterUser(ctx context.Context, userID string, isPremium bool) (*user.Profile, error) {
	return s.users.Register(ctx, userID, isPremium)
}

// IsPremium reports the user's tier. Unknown users are free tier.
func (s *Service) IsPremium(ctx context.Context, userID string) (bool, error) {
	return s.users.IsPremium(ctx, userID)
}

// CheckAndConsume exposes the quota guard directly for callers that meter
// work the service does not host itself.
func (s *Service) CheckAndConsume(ctx context.Context, userID string, feature quota.Feature) (*quota.Admission, error) {
	return s.guard.CheckAndConsume(ctx, userID, feature)
}

// Remaining reports the user's free-tier allowance left today, -1 for premium.
func (s *Service) Remaining(ctx context.Context, userID string, feature quota.Feature) (int, error) {
	return s.guard.Remaining(ctx, userID, feature)
}

// ListPlans returns the subscription plan catalog.
func (s *Service) ListPlans(ctx context.Context) ([]*user.Plan, error) {
	return s.users.ListPlans(ctx)
}

// SubmitText accepts a text submission against the text_input quota. The text
// passes through unchanged; metering is the whole point.
func (s *Service) SubmitText(ctx context.Context, userID, text string) (*Result, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	adm, err := s.guard.CheckAndConsume(ctx, userID, quota.FeatureTextInput)
	if err != nil {
		return nil, err
	}

	s.logger.Info("text accepted",
		zap.String("request_id", uuid.NewString()),
		zap.String("user_id", userID),
		zap.Int("chars", len(text)),
		zap.Int("remaining", adm.Remaining),
	)
	return &Result{Text: text, Admission: adm}, nil
}

// UploadFile accepts a document upload (pdf, docx, txt) against the
// file_upload quota and returns its extracted text.
func (s *Service) UploadFile(ctx context.Context, userID, filename string, data []byte) (*Result, error) {
	return s.upload(ctx, userID, quota.FeatureFileUpload, filename, data)
}

// UploadImage accepts an image upload against the image_upload quota and
// returns its OCR text.
func (s *Service) UploadImage(ctx context.Context, userID, filename string, data []byte) (*Result, error) {
	return s.upload(ctx, userID, quota.FeatureImageUpload, filename, data)
}

// UploadVoice accepts an audio upload against the voice_upload quota and
// returns its transcript.
func (s *Service) UploadVoice(ctx context.Context, userID, filename string, data []byte) (*Result, error) {
	return s.upload(ctx, userID, quota.FeatureVoiceUpload, filename, data)
}

// Download returns a stored blob by category and key.
func (s *Service) Download(ctx context.Context, category storage.Category, key string) ([]byte, error) {
	return s.blobs.Load(ctx, category, key)
}

// upload is the shared admit-save-extract pipeline. Admission comes first and
// is charged even if storage or extraction later fails; denials leave nothing
// behind. Extension validation happens at extract time, after admission,
// matching the upstream behavior.
func (s *Service) upload(ctx context.Context, userID string, feature quota.Feature, filename string, data []byte) (*Result, error) {
	requestID := uuid.NewString()
	category := featureCategories[feature]

	adm, err := s.guard.CheckAndConsume(ctx, userID, feature)
	if err != nil {
		return nil, err
	}

	key, err := s.blobs.Save(ctx, category, filename, data)
	if err != nil {
		s.logger.Error("blob save failed",
			zap.String("request_id", requestID),
			zap.String("user_id", userID),
			zap.String("feature", feature.String()),
			zap.Error(err),
		)
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.RecordBlobWrite(string(category), len(data))
	}

	start := time.Now()
	text, err := s.extractors.Extract(ctx, feature, filename, data)
	if err != nil {
		s.recordExtraction(feature, extractionStatus(err), start)
		s.logger.Warn("extraction failed",
			zap.String("request_id", requestID),
			zap.String("user_id", userID),
			zap.String("feature", feature.String()),
			zap.String("key", key),
			zap.Error(err),
		)
		return nil, err
	}
	s.recordExtraction(feature, "ok", start)

	s.logger.Info("upload accepted",
		zap.String("request_id", requestID),
		zap.String("user_id", userID),
		zap.String("feature", feature.String()),
		zap.String("key", key),
		zap.Int("bytes", len(data)),
		zap.Int("remaining", adm.Remaining),
	)
	return &Result{Text: text, Key: key, Admission: adm}, nil
}

func (s *Service) recordExtraction(feature quota.Feature, status string, start time.Time) {
	if s.metrics != nil {
		s.metrics.RecordExtraction(feature.String(), status, time.Since(start))
	}
}

func extractionStatus(err error) string {
	if errors.Is(err, extract.ErrUnsupportedFormat) {
		return "unsupported"
	}
	return "error"
}
