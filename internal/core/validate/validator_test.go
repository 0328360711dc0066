package validate

import (
	"bytes"
	"testing"

	"github.com/avoronov/metadoc/internal/core/domain"
)

func newTestValidator() *Validator {
	return New([]string{".pdf", ".docx", ".txt"}, 1024)
}

func TestValidateRejectsUnsupportedExtension(t *testing.T) {
	v := newTestValidator()
	_, err := v.Validate([]byte("content"), "evil.exe", "")
	if !domain.IsKind(err, domain.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestValidateRejectsEmptyAndOversized(t *testing.T) {
	v := newTestValidator()
	if _, err := v.Validate(nil, "doc.txt", ""); !domain.IsKind(err, domain.ErrEmptyFile) {
		t.Fatalf("expected ErrEmptyFile, got %v", err)
	}
	big := bytes.Repeat([]byte("x"), 2048)
	if _, err := v.Validate(big, "doc.txt", ""); !domain.IsKind(err, domain.ErrFileTooLarge) {
		t.Fatalf("expected ErrFileTooLarge, got %v", err)
	}
}

func TestFingerprintDeterministicAndFilenameIndependent(t *testing.T) {
	v := newTestValidator()
	content := []byte("identical bytes")

	a, err := v.Validate(content, "first.txt", "text/plain")
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	b, err := v.Validate(content, "second.pdf", "application/pdf")
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if a.Fingerprint != b.Fingerprint {
		t.Fatalf("fingerprint must depend only on bytes: %s vs %s", a.Fingerprint, b.Fingerprint)
	}
	if a.Fingerprint != Fingerprint(content) {
		t.Fatalf("fingerprint not deterministic")
	}

	other, err := v.Validate([]byte("different bytes"), "first.txt", "text/plain")
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if other.Fingerprint == a.Fingerprint {
		t.Fatalf("distinct content must produce distinct fingerprints")
	}
}

func TestValidateFillsMIMEFromExtension(t *testing.T) {
	v := newTestValidator()
	res, err := v.Validate([]byte("hello"), "notes.txt", "")
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if res.DeclaredMIME != "text/plain" {
		t.Fatalf("expected text/plain fallback, got %q", res.DeclaredMIME)
	}
	if res.Extension != ".txt" || res.Size != 5 {
		t.Fatalf("unexpected validated content: %+v", res)
	}
}
