// Package semantic derives document features from extracted text. The
// analyzer holds one optional handle per model-backed capability; a nil
// handle means that capability was unavailable at startup and behaves as
// a documented no-op instead of failing the pipeline.
package semantic

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/avoronov/metadoc/internal/core/domain"
)

const (
	summaryMinInput  = 100
	summaryInputCap  = 1024
	summaryMaxLength = 150
	summaryMinLength = 30
	classifyInputCap = 512
	topCategories    = 3
)

// DefaultCategoryLabels is the zero-shot candidate set used when no
// override is configured.
var DefaultCategoryLabels = []string{
	"Technical Documentation", "Legal Document", "Financial Report",
	"Academic Paper", "Medical Document", "Business Report",
	"Marketing Material", "News Article", "Educational Content",
	"Research Paper",
}

type EntityRecognizer interface {
	Entities(ctx context.Context, text string) (map[string][]string, error)
}

type Summarizer interface {
	Summarize(ctx context.Context, text string, maxLength, minLength int) (string, error)
}

type Classifier interface {
	Classify(ctx context.Context, text string, labels []string) ([]string, error)
}

type SentimentScorer interface {
	Sentiment(ctx context.Context, text string) (domain.Sentiment, error)
}

type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

type Analyzer struct {
	recognizer EntityRecognizer
	summarizer Summarizer
	classifier Classifier
	sentiment  SentimentScorer
	embedder   Embedder

	labels      []string
	topKeywords int
	logger      *slog.Logger
	now         func() time.Time
}

type Config struct {
	CategoryLabels []string
	TopKeywords    int
}

// NewAnalyzer accepts nil for any capability.
func NewAnalyzer(
	recognizer EntityRecognizer,
	summarizer Summarizer,
	classifier Classifier,
	sentiment SentimentScorer,
	embedder Embedder,
	cfg Config,
	logger *slog.Logger,
) *Analyzer {
	labels := cfg.CategoryLabels
	if len(labels) == 0 {
		labels = DefaultCategoryLabels
	}
	topKeywords := cfg.TopKeywords
	if topKeywords <= 0 {
		topKeywords = defaultTopKeywords
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{
		recognizer:  recognizer,
		summarizer:  summarizer,
		classifier:  classifier,
		sentiment:   sentiment,
		embedder:    embedder,
		labels:      labels,
		topKeywords: topKeywords,
		logger:      logger,
		now:         time.Now,
	}
}

// Analyze produces a fresh ExtractedFeatures per run. Sub-capability
// failures degrade to empty values and never abort the run.
func (a *Analyzer) Analyze(ctx context.Context, text string) domain.ExtractedFeatures {
	entities := a.entities(ctx, text)
	features := domain.ExtractedFeatures{
		Entities:    entities,
		Summary:     a.summary(ctx, text),
		Categories:  a.categories(ctx, text),
		Keywords:    a.keywords(ctx, text),
		Sentiment:   a.sentimentOf(ctx, text),
		KeySections: IdentifyKeySections(text, entities),
		TextLength:  len(text),
		WordCount:   len(strings.Fields(text)),
		ProcessedAt: a.now().UTC(),
	}
	return features
}

func (a *Analyzer) entities(ctx context.Context, text string) map[string][]string {
	if a.recognizer == nil {
		return map[string][]string{}
	}
	raw, err := a.recognizer.Entities(ctx, text)
	if err != nil {
		a.logger.Warn("entity extraction degraded", "error", err)
		return map[string][]string{}
	}

	// Distinct surfaces per label, single-character spans dropped.
	out := make(map[string][]string, len(raw))
	for label, values := range raw {
		seen := make(map[string]struct{}, len(values))
		kept := make([]string, 0, len(values))
		for _, v := range values {
			v = strings.TrimSpace(v)
			if len([]rune(v)) <= 1 {
				continue
			}
			if _, dup := seen[v]; dup {
				continue
			}
			seen[v] = struct{}{}
			kept = append(kept, v)
		}
		if len(kept) > 0 {
			out[label] = kept
		}
	}
	return out
}

func (a *Analyzer) summary(ctx context.Context, text string) string {
	if a.summarizer == nil || len(text) < summaryMinInput {
		return ""
	}
	summary, err := a.summarizer.Summarize(ctx, Truncate(text, summaryInputCap), summaryMaxLength, summaryMinLength)
	if err != nil {
		a.logger.Warn("summarization degraded", "error", err)
		return ""
	}
	return summary
}

func (a *Analyzer) categories(ctx context.Context, text string) []string {
	if a.classifier == nil {
		return nil
	}
	labels, err := a.classifier.Classify(ctx, Truncate(text, classifyInputCap), a.labels)
	if err != nil {
		a.logger.Warn("classification degraded", "error", err)
		return nil
	}
	if len(labels) > topCategories {
		labels = labels[:topCategories]
	}
	return labels
}

func (a *Analyzer) keywords(ctx context.Context, text string) []domain.Keyword {
	if a.embedder == nil {
		return nil
	}
	keywords, err := ExtractKeywords(ctx, a.embedder, text, a.topKeywords)
	if err != nil {
		a.logger.Warn("keyword extraction degraded", "error", err)
		return nil
	}
	return keywords
}

func (a *Analyzer) sentimentOf(ctx context.Context, text string) domain.Sentiment {
	if a.sentiment == nil {
		return domain.Sentiment{}
	}
	sentiment, err := a.sentiment.Sentiment(ctx, Truncate(text, classifyInputCap))
	if err != nil {
		a.logger.Warn("sentiment analysis degraded", "error", err)
		return domain.Sentiment{}
	}
	return sentiment
}
