package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
)

type Config struct {
	Pdftoppm  string // binary name or absolute path; empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; empty -> "tesseract"

	Language string // default "eng"
	DPI      int    // rasterization DPI, default 300
	MaxPages int    // 0 = no limit

	// Whitelist restricts recognition to the given characters.
	// Empty disables the restriction.
	Whitelist string
}

// Engine rasterizes PDF pages and recognizes them with tesseract.
// It shells out to poppler and tesseract rather than linking them in,
// so both binaries must be present on the host.
type Engine struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewEngine(cfg Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.Language == "" {
		cfg.Language = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	return &Engine{cfg: cfg, runner: execRunner{logger: logger}, logger: logger}
}

// RecognizePDF renders every page of the document to an image,
// preprocesses it and runs character recognition. The returned text
// joins pages with newlines; the page count reflects rendered pages.
func (e *Engine) RecognizePDF(ctx context.Context, content []byte) (string, int, error) {
	tmpDir, err := os.MkdirTemp("", "metadoc-ocr-*")
	if err != nil {
		return "", 0, fmt.Errorf("create temp dir: %w", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(tmpDir); rmErr != nil {
			e.logger.Warn("remove ocr temp dir", "dir", tmpDir, "error", rmErr)
		}
	}()

	src := filepath.Join(tmpDir, "input.pdf")
	if err := os.WriteFile(src, content, 0o600); err != nil {
		return "", 0, fmt.Errorf("stage pdf for rasterization: %w", err)
	}

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r <dpi> -png input.pdf <tmp>/page
	if _, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm, "-r", strconv.Itoa(e.cfg.DPI), "-png", src, prefix); err != nil {
		return "", 0, fmt.Errorf("pdftoppm: %w: %s", err, truncateOutput(string(errb), 512))
	}

	// generated as page-1.png, page-2.png, ...
	pages, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(pages)
	if e.cfg.MaxPages > 0 && len(pages) > e.cfg.MaxPages {
		pages = pages[:e.cfg.MaxPages]
	}
	if len(pages) == 0 {
		return "", 0, fmt.Errorf("pdftoppm rendered no pages")
	}

	var b strings.Builder
	for _, page := range pages {
		txt, err := e.recognizePage(ctx, page)
		if err != nil {
			e.logger.Warn("page recognition failed", "page", filepath.Base(page), "error", err)
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(strings.TrimSpace(txt))
	}
	return b.String(), len(pages), nil
}

func (e *Engine) recognizePage(ctx context.Context, path string) (string, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return "", fmt.Errorf("open rendered page: %w", err)
	}
	cleaned := preprocess(img)
	if err := imaging.Save(cleaned, path); err != nil {
		return "", fmt.Errorf("save preprocessed page: %w", err)
	}

	args := []string{path, "stdout", "-l", e.cfg.Language, "--oem", "3", "--psm", "6"}
	if e.cfg.Whitelist != "" {
		args = append(args, "-c", "tessedit_char_whitelist="+e.cfg.Whitelist)
	}
	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, args...)
	if err != nil {
		return "", fmt.Errorf("tesseract: %w: %s", err, truncateOutput(string(errb), 512))
	}
	return string(out), nil
}
