package ports

import (
	"context"
	"io"

	"github.com/avoronov/metadoc/internal/core/domain"
)

// DocumentRepository persists document records keyed by content fingerprint.
// Create must fail with domain.ErrDuplicateFingerprint when a record with
// the same fingerprint already exists.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.DocumentRecord) error
	GetByID(ctx context.Context, id string) (*domain.DocumentRecord, error)
	GetByFingerprint(ctx context.Context, fingerprint string) (*domain.DocumentRecord, error)
	List(ctx context.Context, skip, limit int) (int, []domain.DocumentRecord, error)
}

// JobRepository persists processing job state.
type JobRepository interface {
	Create(ctx context.Context, job *domain.ProcessingJob) error
	GetByID(ctx context.Context, id string) (*domain.ProcessingJob, error)
	Update(ctx context.Context, job *domain.ProcessingJob) error
	List(ctx context.Context, status domain.JobStatus, skip, limit int) (int, []domain.ProcessingJob, error)
}

// ObjectStorage stages raw uploads for asynchronous processing.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Remove(ctx context.Context, key string) error
}

// MessageQueue hands job ids to a possibly-absent external executor.
type MessageQueue interface {
	PublishJobCreated(ctx context.Context, jobID string) error
	SubscribeJobCreated(ctx context.Context, handler func(context.Context, string) error) error
}

// TextExtractor turns validated content into text plus native metadata.
// Malformed input yields empty text, not an error.
type TextExtractor interface {
	Extract(ctx context.Context, content domain.ValidatedContent) (string, domain.FileMetadata, error)
}

// FeatureAnalyzer derives semantic features from extracted text. Each
// sub-capability degrades to an empty value when its model is unavailable.
type FeatureAnalyzer interface {
	Analyze(ctx context.Context, text string) domain.ExtractedFeatures
}

// ResultCache is an optional read-through cache keyed by fingerprint.
type ResultCache interface {
	Get(ctx context.Context, fingerprint string) (*domain.DocumentRecord, bool)
	Set(ctx context.Context, fingerprint string, doc *domain.DocumentRecord)
}
