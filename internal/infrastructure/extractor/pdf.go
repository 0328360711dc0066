package extractor

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/avoronov/metadoc/internal/core/domain"
)

func (e *Extractor) extractPDF(ctx context.Context, content []byte, meta domain.FileMetadata) (string, domain.FileMetadata, error) {
	text, pageCount, info, err := readPDF(content)
	if err != nil {
		e.logger.Warn("pdf parse failed", "filename", meta.Filename, "error", err)
	}
	meta.PageCount = pageCount
	applyPDFInfo(&meta, info)

	return e.finishPDF(ctx, content, text, meta)
}

// finishPDF applies the scanned-document fallback: direct text at or
// above the threshold is final, anything shorter goes through OCR and
// the OCR result replaces it entirely. An OCR failure yields empty
// text so the file hits the meaningfulness check downstream.
func (e *Extractor) finishPDF(ctx context.Context, content []byte, direct string, meta domain.FileMetadata) (string, domain.FileMetadata, error) {
	trimmed := strings.TrimSpace(direct)
	if len(trimmed) >= minDirectTextChars || e.ocr == nil {
		return trimmed, meta, nil
	}

	e.logger.Info("pdf text below threshold, falling back to ocr",
		"filename", meta.Filename, "direct_chars", len(trimmed))
	recognized, pages, ocrErr := e.ocr.RecognizePDF(ctx, content)
	if ocrErr != nil {
		e.logger.Warn("ocr fallback failed", "filename", meta.Filename, "error", ocrErr)
		return "", meta, nil
	}
	if meta.PageCount == 0 {
		meta.PageCount = pages
	}
	return strings.TrimSpace(recognized), meta, nil
}

type pdfInfo struct {
	title    string
	author   string
	subject  string
	keywords string
	creator  string
	producer string
	created  string
	modified string
}

// readPDF walks the page tree collecting text. The parser panics on
// some malformed files, so the whole read is fenced with recover.
func readPDF(content []byte) (text string, pages int, info pdfInfo, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf parser panic: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", 0, pdfInfo{}, fmt.Errorf("open pdf: %w", err)
	}

	pages = reader.NumPage()
	info = readPDFInfo(reader)

	var b strings.Builder
	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, pErr := page.GetPlainText(nil)
		if pErr != nil {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(pageText)
	}
	return b.String(), pages, info, nil
}

func readPDFInfo(reader *pdf.Reader) pdfInfo {
	dict := reader.Trailer().Key("Info")
	if dict.IsNull() {
		return pdfInfo{}
	}
	field := func(name string) string {
		v := dict.Key(name)
		if v.IsNull() {
			return ""
		}
		return strings.TrimSpace(v.Text())
	}
	return pdfInfo{
		title:    field("Title"),
		author:   field("Author"),
		subject:  field("Subject"),
		keywords: field("Keywords"),
		creator:  field("Creator"),
		producer: field("Producer"),
		created:  field("CreationDate"),
		modified: field("ModDate"),
	}
}

func applyPDFInfo(meta *domain.FileMetadata, info pdfInfo) {
	meta.Title = info.title
	meta.Author = info.author
	meta.Subject = info.subject
	meta.Keywords = info.keywords
	meta.Creator = info.creator
	meta.Producer = info.producer
	meta.Created = info.created
	meta.Modified = info.modified
}
