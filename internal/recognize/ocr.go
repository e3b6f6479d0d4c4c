package recognize

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
)

// OCRConfig names the external binaries the OCR path shells out to.
type OCRConfig struct {
	// RasterBinary renders the first PDF page to an image (pdftoppm).
	RasterBinary string
	// OCRBinary recognizes text from that image (tesseract).
	OCRBinary string
	// Languages is passed to the OCR engine's -l flag.
	Languages string
	// DPI for rasterization. Scanned summaries need 300 for legible glyphs.
	DPI int
}

func (c *OCRConfig) applyDefaults() {
	if c.RasterBinary == "" {
		c.RasterBinary = "pdftoppm"
	}
	if c.OCRBinary == "" {
		c.OCRBinary = "tesseract"
	}
	if c.Languages == "" {
		c.Languages = "eng"
	}
	if c.DPI <= 0 {
		c.DPI = 300
	}
}

// OCR recognizes scanned documents by rasterizing the first page and
// running it through the external OCR engine. Both child processes are
// bound to the caller's context, so canceling a lead kills them.
type OCR struct {
	cfg OCRConfig
}

// NewOCR builds the OCR adapter.
func NewOCR(cfg OCRConfig) *OCR {
	cfg.applyDefaults()
	return &OCR{cfg: cfg}
}

// Recognize converts the document's first page to a best-effort string.
func (o *OCR) Recognize(ctx context.Context, document []byte) (string, error) {
	workDir, err := os.MkdirTemp("", "coldcase-ocr-*")
	if err != nil {
		return "", fmt.Errorf("create ocr work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	pdfPath := filepath.Join(workDir, "page.pdf")
	if err := os.WriteFile(pdfPath, document, 0o600); err != nil {
		return "", fmt.Errorf("stage pdf for ocr: %w", err)
	}

	imagePath, err := o.rasterize(ctx, workDir, pdfPath)
	if err != nil {
		return "", err
	}
	return o.recognizeImage(ctx, imagePath)
}

func (o *OCR) rasterize(ctx context.Context, workDir, pdfPath string) (string, error) {
	prefix := filepath.Join(workDir, "page")
	cmd := exec.CommandContext(ctx, o.cfg.RasterBinary,
		"-png",
		"-r", fmt.Sprint(o.cfg.DPI),
		"-f", "1",
		"-l", "1",
		pdfPath,
		prefix,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("rasterize pdf (%s): %w: %s", o.cfg.RasterBinary, err, stderr.String())
	}

	images, err := filepath.Glob(prefix + "-*.png")
	if err != nil || len(images) == 0 {
		return "", fmt.Errorf("rasterize pdf: no page image produced")
	}
	sort.Strings(images)
	return images[0], nil
}

func (o *OCR) recognizeImage(ctx context.Context, imagePath string) (string, error) {
	cmd := exec.CommandContext(ctx, o.cfg.OCRBinary,
		imagePath,
		"stdout",
		"-l", o.cfg.Languages,
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("ocr image (%s): %w: %s", o.cfg.OCRBinary, err, stderr.String())
	}
	return stdout.String(), nil
}
