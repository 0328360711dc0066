package inference

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestAvailableMatchesServedModel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/models" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"models":["dslim/bert-base-NER","facebook/bart-large-cnn"]}`))
	}))
	defer server.Close()

	client := New(server.URL, Options{})
	if !client.Available(context.Background(), "dslim/bert-base-NER") {
		t.Fatalf("expected served model to be available")
	}
	if client.Available(context.Background(), "missing/model") {
		t.Fatalf("expected unknown model to be unavailable")
	}
}

func TestAvailableFalseWhenServerDown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := New(server.URL, Options{})
	if client.Available(context.Background(), "any") {
		t.Fatalf("expected unavailable when the serving layer is down")
	}
}

func TestEntitiesGroupsByLabel(t *testing.T) {
	var capturedModel string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/ner" {
			http.NotFound(w, r)
			return
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		capturedModel, _ = payload["model"].(string)
		_, _ = w.Write([]byte(`{"entities":[
			{"label":"PER","text":"Ada Lovelace"},
			{"label":"ORG","text":"Acme Corp"},
			{"label":"PER","text":"Alan Turing"}]}`))
	}))
	defer server.Close()

	recognizer := NewEntityRecognizer(New(server.URL, Options{}), "ner-model")
	entities, err := recognizer.Entities(context.Background(), "Ada Lovelace met Alan Turing at Acme Corp")
	if err != nil {
		t.Fatalf("Entities() error = %v", err)
	}
	if capturedModel != "ner-model" {
		t.Fatalf("expected model in request, got %q", capturedModel)
	}
	if got := len(entities["PER"]); got != 2 {
		t.Fatalf("expected 2 PER entities, got %d", got)
	}
	if entities["ORG"][0] != "Acme Corp" {
		t.Fatalf("unexpected ORG entities: %v", entities["ORG"])
	}
}

func TestSummarizeTrimsResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if payload["max_length"].(float64) != 150 {
			t.Fatalf("expected max_length 150, got %v", payload["max_length"])
		}
		_, _ = w.Write([]byte(`{"summary":"  A short summary.  "}`))
	}))
	defer server.Close()

	summarizer := NewSummarizer(New(server.URL, Options{}), "sum-model")
	summary, err := summarizer.Summarize(context.Background(), "long text", 150, 30)
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if summary != "A short summary." {
		t.Fatalf("unexpected summary: %q", summary)
	}
}

func TestCallIncludesHTTPBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	classifier := NewClassifier(New(server.URL, Options{}), "cls-model")
	_, err := classifier.Classify(context.Background(), "text", []string{"report"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "model not loaded") {
		t.Fatalf("expected response body in error, got %v", err)
	}
}

func TestEmbedRejectsCountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"embeddings":[[0.1,0.2]]}`))
	}))
	defer server.Close()

	embedder := NewEmbedder(New(server.URL, Options{}), "embed-model")
	_, err := embedder.Embed(context.Background(), []string{"one", "two"})
	if err == nil {
		t.Fatalf("expected count mismatch error")
	}
	if !strings.Contains(err.Error(), "mismatch") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestEmbedSkipsRequestForEmptyInput(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("unexpected request for empty input")
	}))
	defer server.Close()

	embedder := NewEmbedder(New(server.URL, Options{}), "embed-model")
	vectors, err := embedder.Embed(context.Background(), nil)
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if vectors != nil {
		t.Fatalf("expected nil vectors, got %v", vectors)
	}
}
