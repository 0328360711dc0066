package httpadapter

import (
	"net/http"

	"github.com/avoronov/metadoc/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput),
		domain.IsKind(err, domain.ErrUnsupportedFormat),
		domain.IsKind(err, domain.ErrEmptyFile):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case domain.IsKind(err, domain.ErrExtractionEmpty):
		return http.StatusUnprocessableEntity
	case domain.IsKind(err, domain.ErrDocumentNotFound),
		domain.IsKind(err, domain.ErrJobNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrTemporary),
		domain.IsKind(err, domain.ErrModelUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
