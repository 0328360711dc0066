package ports

import (
	"context"
	"io"

	"github.com/avoronov/metadoc/internal/core/domain"
)

// UploadFile is one member of a batch upload, in input order.
type UploadFile struct {
	Filename     string
	DeclaredMIME string
	Body         io.Reader
}

// UploadResult is the per-file outcome. A failed file never fails its
// siblings.
type UploadResult struct {
	Filename   string                    `json:"filename"`
	Status     string                    `json:"status"`
	Message    string                    `json:"message,omitempty"`
	DocumentID string                    `json:"document_id,omitempty"`
	DublinCore *domain.DublinCoreRecord  `json:"dublin_core_metadata,omitempty"`
	Features   *domain.ExtractedFeatures `json:"extracted_metadata,omitempty"`
	FileMeta   *domain.FileMetadata      `json:"file_metadata,omitempty"`
	Error      string                    `json:"error,omitempty"`
}

// DocumentIngestor is the inbound contract for synchronous batch uploads.
type DocumentIngestor interface {
	Upload(ctx context.Context, files []UploadFile) []UploadResult
}

// JobScheduler stages a single file and enqueues it for the worker.
type JobScheduler interface {
	Schedule(ctx context.Context, file UploadFile) (*domain.ProcessingJob, error)
}

// JobProcessor is the inbound contract for asynchronous job execution.
type JobProcessor interface {
	ProcessJob(ctx context.Context, jobID string) error
}

// DocumentReader is the inbound read model for persisted documents.
type DocumentReader interface {
	GetByID(ctx context.Context, id string) (*domain.DocumentRecord, error)
	List(ctx context.Context, skip, limit int) (int, []domain.DocumentRecord, error)
}

// JobReader is the inbound read model for job state.
type JobReader interface {
	GetByID(ctx context.Context, id string) (*domain.ProcessingJob, error)
	List(ctx context.Context, status domain.JobStatus, skip, limit int) (int, []domain.ProcessingJob, error)
}
