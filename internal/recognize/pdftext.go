// Package recognize adapts external text-recognition engines to the
// pipeline's Recognizer interface. Scanned documents go through OCR; the
// occasional born-digital document short-circuits on its PDF text layer.
package recognize

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// TextLayer extracts text directly from PDF content streams. It only works
// for documents that carry a text layer; pure scans come back empty and the
// caller falls through to OCR.
type TextLayer struct{}

// Recognize walks every page's content stream and reassembles the text
// show operators into line-oriented text.
func (t *TextLayer) Recognize(ctx context.Context, document []byte) (string, error) {
	conf := model.NewDefaultConfiguration()
	pdfCtx, err := api.ReadValidateAndOptimize(bytes.NewReader(document), conf)
	if err != nil {
		return "", fmt.Errorf("read pdf: %w", err)
	}

	var sb strings.Builder
	for pageNr := 1; pageNr <= pdfCtx.PageCount; pageNr++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		pageText := pageText(pdfCtx, pageNr)
		if pageText == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(pageText)
	}

	text := sb.String()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("pdf has no text layer")
	}
	return text, nil
}

func pageText(pdfCtx *model.Context, pageNr int) string {
	r, err := pdfcpu.ExtractPageContent(pdfCtx, pageNr)
	if err != nil {
		return ""
	}
	data, err := io.ReadAll(r)
	if err != nil || len(data) == 0 {
		return ""
	}
	return streamText(data)
}

// pdfStringLit matches PDF string literals: (text here)
var pdfStringLit = regexp.MustCompile(`\(((?:[^()\\]|\\.)*)\)`)

// streamText parses PDF content stream operators for shown text. Text
// positioning operators become line breaks so the labeled-field grammar
// still sees one field per line.
func streamText(data []byte) string {
	var sb strings.Builder
	line := func() {
		if sb.Len() > 0 && !strings.HasSuffix(sb.String(), "\n") {
			sb.WriteByte('\n')
		}
	}

	for _, raw := range bytes.Split(data, []byte{'\n'}) {
		op := bytes.TrimSpace(raw)
		if len(op) == 0 {
			continue
		}
		switch {
		case bytes.HasSuffix(op, []byte("Tj")), bytes.HasSuffix(op, []byte("TJ")):
			for _, m := range pdfStringLit.FindAllSubmatch(op, -1) {
				sb.WriteString(decodePDFString(m[1]))
			}
		case bytes.HasSuffix(op, []byte("'")) && bytes.Contains(op, []byte("(")):
			line()
			for _, m := range pdfStringLit.FindAllSubmatch(op, -1) {
				sb.WriteString(decodePDFString(m[1]))
			}
		case bytes.HasSuffix(op, []byte("Td")), bytes.HasSuffix(op, []byte("TD")), bytes.Equal(op, []byte("T*")):
			line()
		}
	}
	return sb.String()
}

// decodePDFString handles the basic PDF escape sequences.
func decodePDFString(raw []byte) string {
	var sb strings.Builder
	for i := 0; i < len(raw); i++ {
		if raw[i] != '\\' || i+1 >= len(raw) {
			sb.WriteByte(raw[i])
			continue
		}
		i++
		switch raw[i] {
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case '\\', '(', ')':
			sb.WriteByte(raw[i])
		default:
			if raw[i] >= '0' && raw[i] <= '7' {
				val := int(raw[i] - '0')
				for n := 0; n < 2 && i+1 < len(raw) && raw[i+1] >= '0' && raw[i+1] <= '7'; n++ {
					i++
					val = val*8 + int(raw[i]-'0')
				}
				sb.WriteByte(byte(val))
			} else {
				sb.WriteByte(raw[i])
			}
		}
	}
	return sb.String()
}
