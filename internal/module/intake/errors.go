package intake

import (
	"errors"

	"github.com/echoverse/server/internal/module/extract"
	"github.com/echoverse/server/internal/module/quota"
	"github.com/echoverse/server/internal/module/storage"
	"github.com/echoverse/server/internal/module/user"
	apperrors "github.com/echoverse/server/internal/shared/errors"
)

// TranslateError maps module errors onto shared application errors carrying a
// stable code and an advisory HTTP status. Transports call this at the
// boundary; inside the modules everything stays sentinel-based.
func TranslateError(err error) *apperrors.AppError {
	if err == nil {
		return nil
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	if qe, ok := quota.IsQuotaExceeded(err); ok {
		return apperrors.QuotaExceeded(qe.Error())
	}

	switch {
	case errors.Is(err, quota.ErrUnknownFeature):
		return apperrors.UnknownFeature(err.Error())
	case errors.Is(err, quota.ErrStoreUnavailable):
		return apperrors.StoreUnavailable("usage store unavailable", err)
	case errors.Is(err, extract.ErrUnsupportedFormat):
		return apperrors.UnsupportedFormat(err.Error())
	case errors.Is(err, extract.ErrNoExtractor):
		return apperrors.ExtractionError("no extractor available", err)
	case errors.Is(err, storage.ErrBlobNotFound):
		return apperrors.NotFound("blob")
	case errors.Is(err, storage.ErrInvalidBlobKey):
		return apperrors.BadRequest(err.Error())
	case errors.Is(err, user.ErrProfileNotFound):
		return apperrors.NotFound("profile")
	case errors.Is(err, user.ErrInvalidUserID), errors.Is(err, ErrEmptyText):
		return apperrors.BadRequest(err.Error())
	default:
		return apperrors.Internal("operation failed", err)
	}
}
