package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/otiai10/gosseract/v2"

	"github.com/joseph-ayodele/leaflet-scanner/internal/common"
)

type Config struct {
	Language    string // default "pol"
	TessdataDir string
}

// Tesseract implements Engine using the gosseract client. A fresh client is
// created per call so concurrent workers never share one.
type Tesseract struct {
	cfg           Config
	logger        *slog.Logger
	clientFactory func() *gosseract.Client
}

func NewTesseract(cfg Config, logger *slog.Logger) *Tesseract {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Language == "" {
		cfg.Language = "pol"
	}
	return &Tesseract{cfg: cfg, logger: logger, clientFactory: gosseract.NewClient}
}

// Recognize runs tesseract over one preprocessed image and returns the
// recognized text.
func (t *Tesseract) Recognize(ctx context.Context, png []byte, language string) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	if language == "" {
		language = t.cfg.Language
	}
	start := time.Now()

	c := t.clientFactory()
	defer c.Close()

	if t.cfg.TessdataDir != "" {
		if err := c.SetTessdataPrefix(t.cfg.TessdataDir); err != nil {
			return "", common.WrapError(err, "set tessdata prefix")
		}
	}
	if err := c.SetLanguage(language); err != nil {
		return "", common.WrapError(err, "set language")
	}
	if err := c.SetImageFromBytes(png); err != nil {
		return "", fmt.Errorf("set image: %w", common.ErrRecognition)
	}

	text, err := c.Text()
	if err != nil {
		t.logger.Error("ocr.recognize", "language", language, "error", err,
			"duration_ms", time.Since(start).Milliseconds())
		return "", fmt.Errorf("recognize text: %w", common.ErrRecognition)
	}

	text = strings.TrimSpace(text)
	t.logger.Debug("ocr.recognize", "language", language, "bytes", len(text),
		"duration_ms", time.Since(start).Milliseconds())
	return text, nil
}
