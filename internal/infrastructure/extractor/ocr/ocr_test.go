package ocr

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"os"
	"strings"
	"testing"
)

type fakeRunner struct {
	pages     int
	pageText  string
	calls     []string
	failuresp map[string]error
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.calls = append(f.calls, name+" "+strings.Join(args, " "))
	if err, ok := f.failuresp[name]; ok && err != nil {
		return nil, []byte("boom"), err
	}
	switch {
	case strings.Contains(name, "pdftoppm"):
		prefix := args[len(args)-1]
		for i := 1; i <= f.pages; i++ {
			if err := writeTestPNG(fmt.Sprintf("%s-%d.png", prefix, i)); err != nil {
				return nil, nil, err
			}
		}
		return nil, nil, nil
	case strings.Contains(name, "tesseract"):
		return []byte(f.pageText), nil, nil
	}
	return nil, nil, fmt.Errorf("unexpected command %q", name)
}

func writeTestPNG(path string) error {
	img := image.NewGray(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}

func newTestEngine(runner Runner) *Engine {
	e := NewEngine(Config{DPI: 150, Whitelist: "abc"}, slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})))
	e.runner = runner
	return e
}

func TestRecognizePDFJoinsPages(t *testing.T) {
	runner := &fakeRunner{pages: 3, pageText: "page text"}
	e := newTestEngine(runner)

	text, pages, err := e.RecognizePDF(context.Background(), []byte("%PDF-1.4"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pages != 3 {
		t.Fatalf("expected 3 pages, got %d", pages)
	}
	if got := strings.Count(text, "page text"); got != 3 {
		t.Fatalf("expected text from 3 pages, got %d occurrences", got)
	}
}

func TestRecognizePDFPassesTesseractFlags(t *testing.T) {
	runner := &fakeRunner{pages: 1, pageText: "abc"}
	e := newTestEngine(runner)

	if _, _, err := e.RecognizePDF(context.Background(), []byte("%PDF-1.4")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var tessCall string
	for _, c := range runner.calls {
		if strings.HasPrefix(c, "tesseract") {
			tessCall = c
		}
	}
	if tessCall == "" {
		t.Fatal("tesseract was never invoked")
	}
	for _, want := range []string{"--oem 3", "--psm 6", "tessedit_char_whitelist=abc"} {
		if !strings.Contains(tessCall, want) {
			t.Fatalf("expected tesseract call to contain %q, got %q", want, tessCall)
		}
	}
	if !strings.Contains(runner.calls[0], "-r 150") {
		t.Fatalf("expected pdftoppm call to use configured dpi, got %q", runner.calls[0])
	}
}

func TestRecognizePDFRasterizationFailure(t *testing.T) {
	runner := &fakeRunner{failuresp: map[string]error{"pdftoppm": fmt.Errorf("exit status 1")}}
	e := newTestEngine(runner)

	if _, _, err := e.RecognizePDF(context.Background(), []byte("%PDF-1.4")); err == nil {
		t.Fatal("expected error when rasterization fails")
	}
}

func TestRecognizePDFSkipsFailedPages(t *testing.T) {
	runner := &fakeRunner{pages: 2, pageText: "ok", failuresp: map[string]error{}}
	e := newTestEngine(runner)

	// tesseract fails outright: no text, but rendering still counts pages
	runner.failuresp["tesseract"] = fmt.Errorf("exit status 1")
	text, pages, err := e.RecognizePDF(context.Background(), []byte("%PDF-1.4"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pages != 2 {
		t.Fatalf("expected 2 rendered pages, got %d", pages)
	}
	if text != "" {
		t.Fatalf("expected empty text when all pages fail, got %q", text)
	}
}
