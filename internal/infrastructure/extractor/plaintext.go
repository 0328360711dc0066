package extractor

import (
	"strings"

	"github.com/avoronov/metadoc/internal/core/domain"
)

func (e *Extractor) extractPlainText(content []byte, meta domain.FileMetadata) (string, domain.FileMetadata, error) {
	// tolerate mixed encodings: keep what decodes, drop what does not
	text := strings.ToValidUTF8(string(content), "")
	return strings.TrimSpace(text), meta, nil
}
