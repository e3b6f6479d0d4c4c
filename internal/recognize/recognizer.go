package recognize

import (
	"context"
	"unicode"

	"go.uber.org/zap"

	"github.com/sariahshoe/coldcase-ingest/internal/ingest"
)

// Config tunes the composite recognizer.
type Config struct {
	OCR OCRConfig
	// MinTextChars is the floor below which a text-layer result is assumed
	// to be a scan artifact and the document is re-run through OCR.
	MinTextChars int
	// MinPrintableRatio rejects text layers dominated by garbage glyphs.
	MinPrintableRatio float64
}

// Recognizer tries the cheap PDF text layer first and falls back to OCR
// when the layer is missing or too poor to trust.
type Recognizer struct {
	textLayer *TextLayer
	ocr       *OCR
	cfg       Config
	logger    *zap.Logger
}

var _ ingest.Recognizer = (*Recognizer)(nil)

// New builds the composite recognizer.
func New(cfg Config, logger *zap.Logger) *Recognizer {
	if cfg.MinTextChars <= 0 {
		cfg.MinTextChars = 200
	}
	if cfg.MinPrintableRatio <= 0 {
		cfg.MinPrintableRatio = 0.85
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recognizer{
		textLayer: &TextLayer{},
		ocr:       NewOCR(cfg.OCR),
		cfg:       cfg,
		logger:    logger,
	}
}

// Recognize implements ingest.Recognizer.
func (r *Recognizer) Recognize(ctx context.Context, document []byte) (string, error) {
	text, err := r.textLayer.Recognize(ctx, document)
	if err == nil && r.usable(text) {
		return text, nil
	}
	if err != nil {
		r.logger.Debug("text layer unavailable, using ocr", zap.Error(err))
	} else {
		r.logger.Debug("text layer below quality floor, using ocr",
			zap.Int("chars", len(text)),
		)
	}
	return r.ocr.Recognize(ctx, document)
}

func (r *Recognizer) usable(text string) bool {
	runes := []rune(text)
	if len(runes) < r.cfg.MinTextChars {
		return false
	}
	return printableRatio(runes) >= r.cfg.MinPrintableRatio
}

// printableRatio measures how much of the text is legible. Control runes,
// the replacement character, and Private Use Area glyphs (unmapped embedded
// fonts) count as garbage.
func printableRatio(runes []rune) float64 {
	if len(runes) == 0 {
		return 1.0
	}
	printable := 0
	for _, r := range runes {
		if r >= 0xE000 && r <= 0xF8FF || r == 0xFFFD {
			continue
		}
		if unicode.IsPrint(r) || r == '\n' || r == '\r' || r == '\t' {
			printable++
		}
	}
	return float64(printable) / float64(len(runes))
}
