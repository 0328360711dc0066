package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadPipelineDefaults(t *testing.T) {
	t.Setenv("ALLOWED_EXTENSIONS", "")
	t.Setenv("MAX_FILE_SIZE", "")
	t.Setenv("MAX_TEXT_LENGTH", "")
	t.Setenv("OCR_DPI", "")

	cfg := Load()
	if len(cfg.AllowedExtensions) != 5 || cfg.AllowedExtensions[0] != ".pdf" {
		t.Fatalf("unexpected default extensions: %v", cfg.AllowedExtensions)
	}
	if cfg.MaxFileSize != 100*1024*1024 {
		t.Fatalf("expected 100MiB default, got %d", cfg.MaxFileSize)
	}
	if cfg.MaxTextLength != 10000 {
		t.Fatalf("expected default max text length 10000, got %d", cfg.MaxTextLength)
	}
	if cfg.OCRDPI != 300 {
		t.Fatalf("expected default OCR DPI 300, got %d", cfg.OCRDPI)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("ALLOWED_EXTENSIONS", ".pdf, .txt")
	t.Setenv("MAX_FILE_SIZE", "1024")
	t.Setenv("UPLOAD_PARALLELISM", "2")
	t.Setenv("REDIS_ENABLED", "true")

	cfg := Load()
	if len(cfg.AllowedExtensions) != 2 || cfg.AllowedExtensions[1] != ".txt" {
		t.Fatalf("unexpected extensions: %v", cfg.AllowedExtensions)
	}
	if cfg.MaxFileSize != 1024 || cfg.UploadParallelism != 2 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if !cfg.RedisEnabled {
		t.Fatalf("expected redis enabled")
	}
}

func TestLoadLabels(t *testing.T) {
	if labels, err := LoadLabels(""); err != nil || len(labels.CategoryLabels) != 0 {
		t.Fatalf("empty path must yield zero labels, got %v, %v", labels, err)
	}

	path := filepath.Join(t.TempDir(), "labels.yaml")
	content := "category_labels:\n  - Invoice\n  - Contract\ntype_mapping:\n  Invoice: Text\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write label config: %v", err)
	}

	labels, err := LoadLabels(path)
	if err != nil {
		t.Fatalf("LoadLabels() error = %v", err)
	}
	if len(labels.CategoryLabels) != 2 || labels.CategoryLabels[0] != "Invoice" {
		t.Fatalf("unexpected labels: %v", labels.CategoryLabels)
	}
	if labels.TypeMapping["Invoice"] != "Text" {
		t.Fatalf("unexpected type mapping: %v", labels.TypeMapping)
	}
}
