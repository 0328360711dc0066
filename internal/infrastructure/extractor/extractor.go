package extractor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/avoronov/metadoc/internal/core/domain"
)

// Format is the set of document layouts the extractor understands.
type Format int

const (
	FormatUnknown Format = iota
	FormatPDF
	FormatDOCX
	FormatXLSX
	FormatPlainText
)

// DetectFormat maps a normalized file extension to a layout.
func DetectFormat(extension string) Format {
	switch strings.ToLower(strings.TrimPrefix(extension, ".")) {
	case "pdf":
		return FormatPDF
	case "docx":
		return FormatDOCX
	case "xlsx":
		return FormatXLSX
	case "txt", "text", "md", "csv", "log":
		return FormatPlainText
	default:
		return FormatUnknown
	}
}

// mimeType keeps the client-declared content type when present and
// falls back to the canonical type for the detected layout.
func mimeType(format Format, declared string) string {
	if declared = strings.TrimSpace(declared); declared != "" {
		return declared
	}
	switch format {
	case FormatPDF:
		return "application/pdf"
	case FormatDOCX:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatPlainText:
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}

// minDirectTextChars is the trimmed-length floor below which a PDF is
// treated as scanned and routed through OCR.
const minDirectTextChars = 100

// PDFRecognizer is the OCR fallback for scanned PDFs. *ocr.Engine is
// the production implementation.
type PDFRecognizer interface {
	RecognizePDF(ctx context.Context, content []byte) (string, int, error)
}

// Extractor dispatches validated content to a format-specific parser.
// Parsers never fail the pipeline: a document the parser cannot read
// produces empty text and whatever native metadata survived.
type Extractor struct {
	ocr    PDFRecognizer
	logger *slog.Logger
}

func New(ocrEngine PDFRecognizer, logger *slog.Logger) *Extractor {
	return &Extractor{ocr: ocrEngine, logger: logger}
}

func (e *Extractor) Extract(ctx context.Context, content domain.ValidatedContent) (string, domain.FileMetadata, error) {
	meta := domain.FileMetadata{
		Filename: content.Filename,
		Size:     content.Size,
	}

	format := DetectFormat(content.Extension)
	meta.Format = mimeType(format, content.DeclaredMIME)

	switch format {
	case FormatPDF:
		return e.extractPDF(ctx, content.Content, meta)
	case FormatDOCX:
		return e.extractDOCX(ctx, content.Content, meta)
	case FormatXLSX:
		return e.extractXLSX(ctx, content.Content, meta)
	case FormatPlainText:
		return e.extractPlainText(content.Content, meta)
	default:
		// validation screens extensions up front, this is a safety net
		e.logger.Warn("no parser for extension", "extension", content.Extension, "filename", content.Filename)
		return "", meta, fmt.Errorf("extractor.Extract: %w: no parser for %q", domain.ErrUnsupportedFormat, content.Extension)
	}
}
