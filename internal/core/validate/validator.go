package validate

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/avoronov/metadoc/internal/core/domain"
)

// mimeByExtension is advisory: a mismatch between the declared MIME type
// and the extension is tolerated, the extension allow-list is the hard gate.
var mimeByExtension = map[string]string{
	".pdf":  "application/pdf",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".txt":  "text/plain",
	".md":   "text/markdown",
}

type Validator struct {
	allowed map[string]struct{}
	maxSize int64
}

func New(allowedExtensions []string, maxSize int64) *Validator {
	allowed := make(map[string]struct{}, len(allowedExtensions))
	for _, ext := range allowedExtensions {
		allowed[strings.ToLower(strings.TrimSpace(ext))] = struct{}{}
	}
	return &Validator{allowed: allowed, maxSize: maxSize}
}

// Validate checks extension, size and emptiness, and fingerprints the exact
// byte sequence. The fingerprint is independent of filename and extension.
func (v *Validator) Validate(content []byte, filename, declaredMIME string) (domain.ValidatedContent, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := v.allowed[ext]; !ok {
		return domain.ValidatedContent{}, domain.WrapError(
			domain.ErrUnsupportedFormat,
			"validate extension",
			fmt.Errorf("extension %q is not allowed", ext),
		)
	}

	size := int64(len(content))
	if size == 0 {
		return domain.ValidatedContent{}, domain.WrapError(
			domain.ErrEmptyFile,
			"validate size",
			fmt.Errorf("file %q is empty", filename),
		)
	}
	if v.maxSize > 0 && size > v.maxSize {
		return domain.ValidatedContent{}, domain.WrapError(
			domain.ErrFileTooLarge,
			"validate size",
			fmt.Errorf("file size %d exceeds maximum %d", size, v.maxSize),
		)
	}

	return domain.ValidatedContent{
		Content:      content,
		Filename:     filename,
		Extension:    ext,
		DeclaredMIME: effectiveMIME(declaredMIME, ext),
		Size:         size,
		Fingerprint:  Fingerprint(content),
	}, nil
}

// Fingerprint is the SHA-256 hex digest of the raw bytes.
func Fingerprint(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

func effectiveMIME(declared, ext string) string {
	declared = strings.TrimSpace(declared)
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	if known, ok := mimeByExtension[ext]; ok {
		return known
	}
	return "application/octet-stream"
}
