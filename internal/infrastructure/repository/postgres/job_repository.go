package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/avoronov/metadoc/internal/core/domain"
)

type JobRepository struct {
	db *sql.DB
}

func NewJobRepository(db *sql.DB) *JobRepository {
	return &JobRepository{db: db}
}

func (r *JobRepository) Create(ctx context.Context, job *domain.ProcessingJob) error {
	resultJSON, err := marshalJobResult(job)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
INSERT INTO processing_jobs (id, document_id, status, progress, result, error_message, staging_key, filename, created_at, started_at, completed_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
`, job.ID, job.DocumentID, string(job.Status), job.Progress, resultJSON, job.Error, job.StagingKey, job.Filename,
		job.CreatedAt, job.StartedAt, job.CompletedAt)
	if err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

func (r *JobRepository) Update(ctx context.Context, job *domain.ProcessingJob) error {
	resultJSON, err := marshalJobResult(job)
	if err != nil {
		return err
	}
	result, err := r.db.ExecContext(ctx, `
UPDATE processing_jobs
SET document_id = $2, status = $3, progress = $4, result = $5, error_message = $6, staging_key = $7, started_at = $8, completed_at = $9
WHERE id = $1
`, job.ID, job.DocumentID, string(job.Status), job.Progress, resultJSON, job.Error, job.StagingKey,
		job.StartedAt, job.CompletedAt)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update job rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("update job: %w: id=%s", domain.ErrJobNotFound, job.ID)
	}
	return nil
}

const jobColumns = `id, document_id, status, progress, result, error_message, staging_key, filename, created_at, started_at, completed_at`

func (r *JobRepository) GetByID(ctx context.Context, id string) (*domain.ProcessingJob, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+jobColumns+`
FROM processing_jobs
WHERE id = $1
`, id)

	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("get job: %w: id=%s", domain.ErrJobNotFound, id)
		}
		return nil, fmt.Errorf("get job by id: %w", err)
	}
	return job, nil
}

func (r *JobRepository) List(ctx context.Context, status domain.JobStatus, skip, limit int) (int, []domain.ProcessingJob, error) {
	countQuery := `SELECT COUNT(*) FROM processing_jobs`
	listQuery := `
SELECT ` + jobColumns + `
FROM processing_jobs
`
	args := []interface{}{}
	if status != "" {
		countQuery += ` WHERE status = $1`
		listQuery += "WHERE status = $3\n"
		args = append(args, string(status))
	}
	listQuery += "ORDER BY created_at DESC\nOFFSET $1 LIMIT $2"

	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return 0, nil, fmt.Errorf("count jobs: %w", err)
	}

	listArgs := append([]interface{}{skip, limit}, args...)
	rows, err := r.db.QueryContext(ctx, listQuery, listArgs...)
	if err != nil {
		return 0, nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ProcessingJob, 0)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return 0, nil, fmt.Errorf("scan job: %w", err)
		}
		out = append(out, *job)
	}
	if err := rows.Err(); err != nil {
		return 0, nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return total, out, nil
}

func marshalJobResult(job *domain.ProcessingJob) (interface{}, error) {
	if job.Result == nil {
		return nil, nil
	}
	raw, err := json.Marshal(job.Result)
	if err != nil {
		return nil, fmt.Errorf("marshal job result: %w", err)
	}
	return raw, nil
}

func scanJob(row rowScanner) (*domain.ProcessingJob, error) {
	var job domain.ProcessingJob
	var status string
	var documentID, errMessage, stagingKey sql.NullString
	var resultRaw []byte

	err := row.Scan(
		&job.ID, &documentID, &status, &job.Progress, &resultRaw, &errMessage, &stagingKey,
		&job.Filename, &job.CreatedAt, &job.StartedAt, &job.CompletedAt,
	)
	if err != nil {
		return nil, err
	}

	if documentID.Valid {
		job.DocumentID = &documentID.String
	}
	if len(resultRaw) > 0 {
		var rec domain.DocumentRecord
		if err := json.Unmarshal(resultRaw, &rec); err != nil {
			return nil, fmt.Errorf("unmarshal job result: %w", err)
		}
		job.Result = &rec
	}
	job.Status = domain.JobStatus(status)
	job.Error = errMessage.String
	job.StagingKey = stagingKey.String
	return &job, nil
}
