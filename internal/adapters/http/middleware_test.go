package httpadapter

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRequestIDMintedWhenAbsent(t *testing.T) {
	var seen string
	handler := requestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/documents", nil))

	if seen == "" {
		t.Fatalf("expected a generated request id in the context")
	}
	if got := rec.Header().Get(requestIDHeader); got != seen {
		t.Fatalf("response header %q must echo the context id %q", got, seen)
	}
}

func TestRequestIDPreservedWhenSupplied(t *testing.T) {
	var seen string
	handler := requestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/jobs", nil)
	req.Header.Set(requestIDHeader, "upload-batch-17")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if seen != "upload-batch-17" {
		t.Fatalf("expected caller-supplied id to survive, got %q", seen)
	}
	if got := rec.Header().Get(requestIDHeader); got != "upload-batch-17" {
		t.Fatalf("expected caller-supplied id echoed back, got %q", got)
	}
}

func TestResponseRecorderTracksStatusAndBytes(t *testing.T) {
	handler := accessLogMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		if _, err := w.Write([]byte(`{"error":"file is empty"}`)); err != nil {
			t.Fatalf("write failed: %v", err)
		}
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/upload", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status to pass through, got %d", rec.Code)
	}
	if rec.Body.String() != `{"error":"file is empty"}` {
		t.Fatalf("expected body to pass through, got %q", rec.Body.String())
	}
}
