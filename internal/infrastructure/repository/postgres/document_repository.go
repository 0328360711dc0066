package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/avoronov/metadoc/internal/core/domain"
)

type DocumentRepository struct {
	db *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *DocumentRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026083101)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	filename TEXT NOT NULL,
	fingerprint TEXT NOT NULL UNIQUE,
	file_size BIGINT NOT NULL,
	file_extension TEXT NOT NULL,
	dublin_core JSONB NOT NULL DEFAULT '{}'::jsonb,
	features JSONB NOT NULL DEFAULT '{}'::jsonb,
	file_metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
	status TEXT NOT NULL,
	error_message TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status);
CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents(created_at DESC);

CREATE TABLE IF NOT EXISTS processing_jobs (
	id TEXT PRIMARY KEY,
	document_id TEXT,
	status TEXT NOT NULL,
	progress INT NOT NULL DEFAULT 0,
	result JSONB,
	error_message TEXT,
	staging_key TEXT,
	filename TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	started_at TIMESTAMPTZ,
	completed_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_processing_jobs_status ON processing_jobs(status);
CREATE INDEX IF NOT EXISTS idx_processing_jobs_created_at ON processing_jobs(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *DocumentRepository) Create(ctx context.Context, doc *domain.DocumentRecord) error {
	dcJSON, err := json.Marshal(doc.DublinCore)
	if err != nil {
		return fmt.Errorf("marshal dublin core: %w", err)
	}
	featuresJSON, err := json.Marshal(doc.Features)
	if err != nil {
		return fmt.Errorf("marshal features: %w", err)
	}
	metaJSON, err := json.Marshal(doc.FileMetadata)
	if err != nil {
		return fmt.Errorf("marshal file metadata: %w", err)
	}

	result, err := r.db.ExecContext(ctx, `
INSERT INTO documents (
	id, filename, fingerprint, file_size, file_extension, dublin_core, features, file_metadata, status, error_message, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
ON CONFLICT (fingerprint) DO NOTHING
`,
		doc.ID, doc.Filename, doc.Fingerprint, doc.Size, doc.Extension, dcJSON, featuresJSON, metaJSON,
		string(doc.Status), doc.Error, doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert document rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("insert document: %w: fingerprint=%s", domain.ErrDuplicateFingerprint, doc.Fingerprint)
	}
	return nil
}

const documentColumns = `id, filename, fingerprint, file_size, file_extension, dublin_core, features, file_metadata, status, error_message, created_at, updated_at`

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.DocumentRecord, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+documentColumns+`
FROM documents
WHERE id = $1
`, id)

	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("get document: %w: id=%s", domain.ErrDocumentNotFound, id)
		}
		return nil, fmt.Errorf("get document by id: %w", err)
	}
	return doc, nil
}

func (r *DocumentRepository) GetByFingerprint(ctx context.Context, fingerprint string) (*domain.DocumentRecord, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+documentColumns+`
FROM documents
WHERE fingerprint = $1
`, fingerprint)

	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("get document: %w: fingerprint=%s", domain.ErrDocumentNotFound, fingerprint)
		}
		return nil, fmt.Errorf("get document by fingerprint: %w", err)
	}
	return doc, nil
}

func (r *DocumentRepository) List(ctx context.Context, skip, limit int) (int, []domain.DocumentRecord, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&total); err != nil {
		return 0, nil, fmt.Errorf("count documents: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT `+documentColumns+`
FROM documents
ORDER BY created_at DESC
OFFSET $1 LIMIT $2
`, skip, limit)
	if err != nil {
		return 0, nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	out := make([]domain.DocumentRecord, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return 0, nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, *doc)
	}
	if err := rows.Err(); err != nil {
		return 0, nil, fmt.Errorf("iterate documents: %w", err)
	}
	return total, out, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDocument(row rowScanner) (*domain.DocumentRecord, error) {
	var doc domain.DocumentRecord
	var dcRaw, featuresRaw, metaRaw []byte
	var status string
	var errMessage sql.NullString

	err := row.Scan(
		&doc.ID, &doc.Filename, &doc.Fingerprint, &doc.Size, &doc.Extension,
		&dcRaw, &featuresRaw, &metaRaw, &status, &errMessage, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(dcRaw, &doc.DublinCore); err != nil {
		return nil, fmt.Errorf("unmarshal dublin core: %w", err)
	}
	if err := json.Unmarshal(featuresRaw, &doc.Features); err != nil {
		return nil, fmt.Errorf("unmarshal features: %w", err)
	}
	if err := json.Unmarshal(metaRaw, &doc.FileMetadata); err != nil {
		return nil, fmt.Errorf("unmarshal file metadata: %w", err)
	}
	doc.Status = domain.ProcessingStatus(status)
	doc.Error = errMessage.String
	return &doc, nil
}
