package extract

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// imageExtensions are the formats Tesseract can ingest directly.
var imageExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".bmp":  {},
	".tiff": {},
	".tif":  {},
	".gif":  {},
	".webp": {},
}

// ImageExtractor runs OCR over uploaded images for the image_upload feature.
type ImageExtractor struct {
	languages []string
}

// NewImageExtractor creates an OCR extractor. Languages are Tesseract
// language codes; an empty slice falls back to English.
func NewImageExtractor(languages []string) *ImageExtractor {
	if len(languages) == 0 {
		languages = []string{"eng"}
	}
	return &ImageExtractor{languages: languages}
}

// Extract returns the text recognized in the image.
func (e *ImageExtractor) Extract(ctx context.Context, filename string, data []byte) (string, error) {
	if _, ok := imageExtensions[strings.ToLower(filepath.Ext(filename))]; !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filename)
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(e.languages...); err != nil {
		return "", fmt.Errorf("set ocr languages: %w", err)
	}
	if err := client.SetImageFromBytes(data); err != nil {
		return "", fmt.Errorf("load image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("run ocr: %w", err)
	}
	return strings.TrimSpace(text), nil
}
