package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedFormat    = errors.New("unsupported format")
	ErrEmptyFile            = errors.New("empty file")
	ErrFileTooLarge         = errors.New("file too large")
	ErrExtractionEmpty      = errors.New("no meaningful text extracted")
	ErrModelUnavailable     = errors.New("model unavailable")
	ErrDuplicateFingerprint = errors.New("duplicate fingerprint")
	ErrDocumentNotFound     = errors.New("document not found")
	ErrJobNotFound          = errors.New("job not found")
	ErrInvalidInput         = errors.New("invalid input")
	ErrTemporary            = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
