package extractor

import (
	"archive/zip"
	"bytes"
	"context"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/avoronov/metadoc/internal/core/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestDetectFormat(t *testing.T) {
	cases := map[string]Format{
		".pdf":  FormatPDF,
		"PDF":   FormatPDF,
		".docx": FormatDOCX,
		".xlsx": FormatXLSX,
		".txt":  FormatPlainText,
		".md":   FormatPlainText,
		".exe":  FormatUnknown,
		"":      FormatUnknown,
	}
	for ext, want := range cases {
		if got := DetectFormat(ext); got != want {
			t.Fatalf("DetectFormat(%q) = %v, want %v", ext, got, want)
		}
	}
}

func TestExtractPlainText(t *testing.T) {
	e := New(nil, testLogger())
	content := domain.ValidatedContent{
		Content:   []byte("  hello world\nsecond line  "),
		Filename:  "notes.txt",
		Extension: ".txt",
		Size:      27,
	}

	text, meta, err := e.Extract(context.Background(), content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "hello world\nsecond line" {
		t.Fatalf("unexpected text: %q", text)
	}
	if meta.Format != "text/plain" || meta.Filename != "notes.txt" {
		t.Fatalf("unexpected metadata: %+v", meta)
	}
}

func TestExtractPlainTextDropsInvalidUTF8(t *testing.T) {
	e := New(nil, testLogger())
	content := domain.ValidatedContent{
		Content:   []byte{'o', 'k', 0xff, 0xfe, '!'},
		Filename:  "mixed.txt",
		Extension: ".txt",
	}

	text, _, err := e.Extract(context.Background(), content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "ok!" {
		t.Fatalf("expected invalid bytes dropped, got %q", text)
	}
}

func TestExtractMalformedPDFYieldsEmptyText(t *testing.T) {
	e := New(nil, testLogger())
	content := domain.ValidatedContent{
		Content:   []byte("%PDF-1.4 definitely not a real document"),
		Filename:  "broken.pdf",
		Extension: ".pdf",
	}

	text, meta, err := e.Extract(context.Background(), content)
	if err != nil {
		t.Fatalf("malformed input must not fail the pipeline: %v", err)
	}
	if text != "" {
		t.Fatalf("expected empty text, got %q", text)
	}
	if meta.Format != "application/pdf" {
		t.Fatalf("unexpected format: %q", meta.Format)
	}
}

type recognizerFake struct {
	calls int
	text  string
	pages int
	err   error
}

func (r *recognizerFake) RecognizePDF(_ context.Context, _ []byte) (string, int, error) {
	r.calls++
	return r.text, r.pages, r.err
}

func TestPDFFallbackBoundary(t *testing.T) {
	below := strings.Repeat("a", 99)
	atThreshold := strings.Repeat("a", 100)

	recognizer := &recognizerFake{text: "recognized page text", pages: 2}
	e := New(recognizer, testLogger())

	text, meta, err := e.finishPDF(context.Background(), []byte("%PDF"), atThreshold, domain.FileMetadata{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if recognizer.calls != 0 {
		t.Fatalf("direct text at threshold must not invoke ocr, got %d calls", recognizer.calls)
	}
	if text != atThreshold {
		t.Fatalf("expected direct text kept, got %q", text)
	}

	text, meta, err = e.finishPDF(context.Background(), []byte("%PDF"), below, domain.FileMetadata{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if recognizer.calls != 1 {
		t.Fatalf("direct text below threshold must invoke ocr, got %d calls", recognizer.calls)
	}
	if text != "recognized page text" {
		t.Fatalf("expected ocr text to replace direct text, got %q", text)
	}
	if meta.PageCount != 2 {
		t.Fatalf("expected page count from ocr, got %d", meta.PageCount)
	}
}

func TestPDFFallbackFailureYieldsEmptyText(t *testing.T) {
	recognizer := &recognizerFake{err: context.DeadlineExceeded}
	e := New(recognizer, testLogger())

	text, _, err := e.finishPDF(context.Background(), []byte("%PDF"), "sparse direct text", domain.FileMetadata{})
	if err != nil {
		t.Fatalf("ocr failure must not fail the pipeline: %v", err)
	}
	if text != "" {
		t.Fatalf("expected empty text after ocr failure, got %q", text)
	}
}

func minimalDOCX(t *testing.T, documentXML string) []byte {
	t.Helper()
	parts := []struct{ name, body string }{
		{"[Content_Types].xml", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
  <Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
  <Default Extension="xml" ContentType="application/xml"/>
  <Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`},
		{"_rels/.rels", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`},
		{"word/_rels/document.xml.rels", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"/>`},
		{"word/document.xml", documentXML},
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, part := range parts {
		w, err := zw.Create(part.name)
		if err != nil {
			t.Fatalf("create %s: %v", part.name, err)
		}
		if _, err := w.Write([]byte(part.body)); err != nil {
			t.Fatalf("write %s: %v", part.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func TestExtractDOCXTablesFollowParagraphs(t *testing.T) {
	raw := minimalDOCX(t, `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>Opening paragraph.</w:t></w:r></w:p>
    <w:tbl>
      <w:tr>
        <w:tc><w:p><w:r><w:t>Cell A</w:t></w:r></w:p></w:tc>
        <w:tc><w:p><w:r><w:t>Cell B</w:t></w:r></w:p></w:tc>
      </w:tr>
    </w:tbl>
    <w:p><w:r><w:t>Closing paragraph.</w:t></w:r></w:p>
  </w:body>
</w:document>`)

	e := New(nil, testLogger())
	content := domain.ValidatedContent{
		Content:   raw,
		Filename:  "tabular.docx",
		Extension: ".docx",
	}

	text, _, err := e.Extract(context.Background(), content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "Opening paragraph.\nClosing paragraph.\nCell A | Cell B"
	if text != want {
		t.Fatalf("expected table rows after all paragraph text:\nwant %q\ngot  %q", want, text)
	}
}

func TestExtractDOCXCorePropertiesSurviveParseFailure(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	core, err := zw.Create("docProps/core.xml")
	if err != nil {
		t.Fatalf("create core.xml: %v", err)
	}
	_, err = core.Write([]byte(`<?xml version="1.0"?>
<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties"
    xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:dcterms="http://purl.org/dc/terms/">
  <dc:title>Quarterly Report</dc:title>
  <dc:creator>A. Author</dc:creator>
  <cp:lastModifiedBy>B. Editor</cp:lastModifiedBy>
  <dcterms:created>2024-01-15T10:00:00Z</dcterms:created>
</cp:coreProperties>`))
	if err != nil {
		t.Fatalf("write core.xml: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}

	e := New(nil, testLogger())
	content := domain.ValidatedContent{
		Content:   buf.Bytes(),
		Filename:  "report.docx",
		Extension: ".docx",
	}

	text, meta, err := e.Extract(context.Background(), content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "" {
		t.Fatalf("expected empty text from incomplete package, got %q", text)
	}
	if meta.Title != "Quarterly Report" {
		t.Fatalf("expected title from core properties, got %q", meta.Title)
	}
	if meta.Author != "A. Author" {
		t.Fatalf("expected author from core properties, got %q", meta.Author)
	}
	if meta.LastModifiedBy != "B. Editor" {
		t.Fatalf("expected last modified by, got %q", meta.LastModifiedBy)
	}
}

func TestExtractXLSXRowsAndProperties(t *testing.T) {
	f := excelize.NewFile()
	if err := f.SetCellValue("Sheet1", "A1", "Name"); err != nil {
		t.Fatalf("set cell: %v", err)
	}
	if err := f.SetCellValue("Sheet1", "B1", "Amount"); err != nil {
		t.Fatalf("set cell: %v", err)
	}
	if err := f.SetCellValue("Sheet1", "A2", "Widget"); err != nil {
		t.Fatalf("set cell: %v", err)
	}
	if err := f.SetCellValue("Sheet1", "B2", "42"); err != nil {
		t.Fatalf("set cell: %v", err)
	}
	if err := f.SetDocProps(&excelize.DocProperties{Title: "Inventory", Creator: "Ops"}); err != nil {
		t.Fatalf("set doc props: %v", err)
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}

	e := New(nil, testLogger())
	content := domain.ValidatedContent{
		Content:   buf.Bytes(),
		Filename:  "inventory.xlsx",
		Extension: ".xlsx",
	}

	text, meta, err := e.Extract(context.Background(), content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(text, "Name | Amount") {
		t.Fatalf("expected header row joined with pipes, got %q", text)
	}
	if !strings.Contains(text, "Widget | 42") {
		t.Fatalf("expected data row, got %q", text)
	}
	if meta.Title != "Inventory" || meta.Author != "Ops" {
		t.Fatalf("expected workbook properties, got %+v", meta)
	}
}

func TestExtractUnknownExtensionFails(t *testing.T) {
	e := New(nil, testLogger())
	content := domain.ValidatedContent{
		Content:   []byte("MZ"),
		Filename:  "tool.exe",
		Extension: ".exe",
	}

	_, _, err := e.Extract(context.Background(), content)
	if !domain.IsKind(err, domain.ErrUnsupportedFormat) {
		t.Fatalf("expected unsupported format error, got %v", err)
	}
}
