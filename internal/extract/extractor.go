package extract

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"rsc.io/pdf"

	"loanlens/internal/pipeline"
)

// OCRClient recognizes text in an image. Implemented by the OCR sidecar
// adapter.
type OCRClient interface {
	Recognize(ctx context.Context, image []byte) (string, error)
}

var imageExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".bmp": true,
}

// Extractor converts an uploaded file into plain text. PDFs are parsed
// directly; images go through OCR; anything else is rejected.
type Extractor struct {
	ocr OCRClient
}

func NewExtractor(ocr OCRClient) *Extractor {
	return &Extractor{ocr: ocr}
}

// Extract returns the plain text of the file, or a failure classified as
// pipeline.ErrUnsupportedFileType or pipeline.ErrExtraction. The input
// buffer is never mutated.
func (e *Extractor) Extract(ctx context.Context, data []byte, fileName string) (string, error) {
	ext := strings.ToLower(filepath.Ext(fileName))

	switch {
	case ext == ".pdf":
		text, err := extractPDF(data)
		if err != nil {
			return "", fmt.Errorf("%w: %s: %v", pipeline.ErrExtraction, fileName, err)
		}
		return text, nil
	case imageExts[ext]:
		text, err := e.ocr.Recognize(ctx, data)
		if err != nil {
			return "", fmt.Errorf("%w: %s: %v", pipeline.ErrExtraction, fileName, err)
		}
		return text, nil
	default:
		return "", fmt.Errorf("%w: %s", pipeline.ErrUnsupportedFileType, fileName)
	}
}

// extractPDF concatenates page text in page order, pages separated by
// newlines.
func extractPDF(data []byte) (text string, err error) {
	// rsc.io/pdf panics on some malformed files instead of returning an
	// error; contain that here.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var pages []string
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}

		var sb strings.Builder
		for _, t := range page.Content().Text {
			if sb.Len() > 0 {
				sb.WriteString(" ")
			}
			sb.WriteString(t.S)
		}
		pages = append(pages, sb.String())
	}

	return strings.Join(pages, "\n"), nil
}
