package httpadapter

import (
	"encoding/json"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/avoronov/metadoc/internal/core/domain"
	"github.com/avoronov/metadoc/internal/core/ports"
	"github.com/avoronov/metadoc/internal/observability/metrics"
)

const maxMultipartMemory = 32 << 20

type Router struct {
	ingestor  ports.DocumentIngestor
	scheduler ports.JobScheduler
	documents ports.DocumentReader
	jobs      ports.JobReader
	metrics   *metrics.HTTPServerMetrics
	service   string
}

func NewRouter(
	ingestor ports.DocumentIngestor,
	scheduler ports.JobScheduler,
	documents ports.DocumentReader,
	jobs ports.JobReader,
	m *metrics.HTTPServerMetrics,
	service string,
) *Router {
	return &Router{
		ingestor:  ingestor,
		scheduler: scheduler,
		documents: documents,
		jobs:      jobs,
		metrics:   m,
		service:   service,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/api/v1/documents/upload", rt.uploadDocuments)
	mux.HandleFunc("/api/v1/documents/upload-async", rt.uploadAsync)
	mux.HandleFunc("/api/v1/documents", rt.listDocuments)
	mux.HandleFunc("/api/v1/documents/", rt.getDocumentByID)
	mux.HandleFunc("/api/v1/jobs", rt.listJobs)
	mux.HandleFunc("/api/v1/jobs/", rt.getJobByID)

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(rt.service, handler)
	}
	return requestIDMiddleware(accessLogMiddleware(handler))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) uploadDocuments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart body"})
		return
	}
	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'files' is required"})
		return
	}

	files := make([]ports.UploadFile, 0, len(headers))
	opened := make([]multipart.File, 0, len(headers))
	defer func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}()
	for _, header := range headers {
		f, err := header.Open()
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable multipart part: " + header.Filename})
			return
		}
		opened = append(opened, f)
		files = append(files, ports.UploadFile{
			Filename:     header.Filename,
			DeclaredMIME: header.Header.Get("Content-Type"),
			Body:         f,
		})
	}

	start := time.Now()
	results := rt.ingestor.Upload(r.Context(), files)
	rt.recordUploadMetrics(results, time.Since(start))

	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (rt *Router) recordUploadMetrics(results []ports.UploadResult, duration time.Duration) {
	if rt.metrics == nil {
		return
	}
	statuses := make([]string, len(results))
	dedupHits := 0
	for i, res := range results {
		statuses[i] = res.Status
		if res.Message == "Document already processed" {
			dedupHits++
		}
	}
	rt.metrics.RecordUploadBatch(rt.service, statuses, dedupHits, duration)
}

func (rt *Router) uploadAsync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if rt.scheduler == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "asynchronous processing is not enabled"})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	job, err := rt.scheduler.Schedule(r.Context(), ports.UploadFile{
		Filename:     header.Filename,
		DeclaredMIME: header.Header.Get("Content-Type"),
		Body:         file,
	})
	if rt.metrics != nil {
		rt.metrics.RecordJobScheduled(rt.service, err)
	}
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, job)
}

func (rt *Router) getDocumentByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/v1/documents/")
	if id == "" || strings.Contains(id, "/") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "document id is required"})
		return
	}

	doc, err := rt.documents.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordDocumentRead(rt.service, "get")
	}
	writeJSON(w, http.StatusOK, doc)
}

type documentSummary struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	Status    string    `json:"processing_status"`
	CreatedAt time.Time `json:"created_at"`
}

func (rt *Router) listDocuments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	skip := queryInt(r, "skip", 0)
	limit := queryInt(r, "limit", 20)
	total, docs, err := rt.documents.List(r.Context(), skip, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordDocumentRead(rt.service, "list")
	}

	summaries := make([]documentSummary, len(docs))
	for i, doc := range docs {
		summaries[i] = documentSummary{
			ID:        doc.ID,
			Filename:  doc.Filename,
			Status:    string(doc.Status),
			CreatedAt: doc.CreatedAt,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total":     total,
		"skip":      skip,
		"limit":     limit,
		"documents": summaries,
	})
}

func (rt *Router) getJobByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/v1/jobs/")
	if id == "" || strings.Contains(id, "/") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "job id is required"})
		return
	}

	job, err := rt.jobs.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (rt *Router) listJobs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	status := domain.JobStatus(strings.TrimSpace(r.URL.Query().Get("status")))
	switch status {
	case "", domain.JobPending, domain.JobProcessing, domain.JobCompleted, domain.JobFailed:
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown job status filter"})
		return
	}

	skip := queryInt(r, "skip", 0)
	limit := queryInt(r, "limit", 20)
	total, jobs, err := rt.jobs.List(r.Context(), status, skip, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total": total,
		"skip":  skip,
		"limit": limit,
		"jobs":  jobs,
	})
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
