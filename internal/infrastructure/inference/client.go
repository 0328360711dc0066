// Package inference talks to the model-serving sidecar over HTTP. One
// client is shared by all capabilities; each capability wraps it with its
// own model name so bootstrap can probe and drop capabilities
// independently.
package inference

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/avoronov/metadoc/internal/core/domain"
	"github.com/avoronov/metadoc/internal/infrastructure/resilience"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	executor   *resilience.Executor
}

type Options struct {
	RequestsPerSecond  float64
	RequestTimeout     time.Duration
	ResilienceExecutor *resilience.Executor
}

func New(baseURL string, options Options) *Client {
	rps := options.RequestsPerSecond
	if rps <= 0 {
		rps = 8
	}
	timeout := options.RequestTimeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(rps), int(rps)+1),
		executor:   options.ResilienceExecutor,
	}
}

// Available reports whether the serving layer has the model loaded.
// Bootstrap uses it to decide which analyzer capabilities exist at all.
func (c *Client) Available(ctx context.Context, model string) bool {
	var response struct {
		Models []string `json:"models"`
	}
	if err := c.getJSON(ctx, "/v1/models", &response, "models"); err != nil {
		return false
	}
	for _, m := range response.Models {
		if m == model {
			return true
		}
	}
	return false
}

type EntityRecognizer struct {
	client *Client
	model  string
}

func NewEntityRecognizer(client *Client, model string) *EntityRecognizer {
	return &EntityRecognizer{client: client, model: model}
}

func (r *EntityRecognizer) Entities(ctx context.Context, text string) (map[string][]string, error) {
	request := map[string]any{"model": r.model, "text": text}
	var response struct {
		Entities []struct {
			Label string `json:"label"`
			Text  string `json:"text"`
		} `json:"entities"`
	}
	if err := r.client.call(ctx, "/v1/ner", request, &response, "ner"); err != nil {
		return nil, err
	}

	out := make(map[string][]string)
	for _, e := range response.Entities {
		out[e.Label] = append(out[e.Label], e.Text)
	}
	return out, nil
}

type Summarizer struct {
	client *Client
	model  string
}

func NewSummarizer(client *Client, model string) *Summarizer {
	return &Summarizer{client: client, model: model}
}

func (s *Summarizer) Summarize(ctx context.Context, text string, maxLength, minLength int) (string, error) {
	request := map[string]any{
		"model":      s.model,
		"text":       text,
		"max_length": maxLength,
		"min_length": minLength,
	}
	var response struct {
		Summary string `json:"summary"`
	}
	if err := s.client.call(ctx, "/v1/summarize", request, &response, "summarize"); err != nil {
		return "", err
	}
	return strings.TrimSpace(response.Summary), nil
}

type Classifier struct {
	client *Client
	model  string
}

func NewClassifier(client *Client, model string) *Classifier {
	return &Classifier{client: client, model: model}
}

// Classify runs zero-shot classification and returns labels ranked by
// score, best first.
func (c *Classifier) Classify(ctx context.Context, text string, labels []string) ([]string, error) {
	request := map[string]any{"model": c.model, "text": text, "labels": labels}
	var response struct {
		Labels []string  `json:"labels"`
		Scores []float64 `json:"scores"`
	}
	if err := c.client.call(ctx, "/v1/classify", request, &response, "classify"); err != nil {
		return nil, err
	}
	return response.Labels, nil
}

type SentimentScorer struct {
	client *Client
	model  string
}

func NewSentimentScorer(client *Client, model string) *SentimentScorer {
	return &SentimentScorer{client: client, model: model}
}

func (s *SentimentScorer) Sentiment(ctx context.Context, text string) (domain.Sentiment, error) {
	request := map[string]any{"model": s.model, "text": text}
	var response struct {
		Label string  `json:"label"`
		Score float64 `json:"score"`
	}
	if err := s.client.call(ctx, "/v1/sentiment", request, &response, "sentiment"); err != nil {
		return domain.Sentiment{}, err
	}
	return domain.Sentiment{Label: response.Label, Score: response.Score}, nil
}

type Embedder struct {
	client *Client
	model  string
}

func NewEmbedder(client *Client, model string) *Embedder {
	return &Embedder{client: client, model: model}
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	request := map[string]any{"model": e.model, "input": texts}
	var response struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := e.client.call(ctx, "/v1/embed", request, &response, "embed"); err != nil {
		return nil, err
	}
	if len(response.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: %d/%d", len(response.Embeddings), len(texts))
	}
	return response.Embeddings, nil
}

func (c *Client) call(ctx context.Context, path string, request, response any, operation string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("inference %s throttle: %w", operation, err)
	}

	do := func(callCtx context.Context) error {
		return c.postJSON(callCtx, path, request, response, operation)
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "inference."+operation, do, classifyInferenceError)
	} else {
		err = do(ctx)
	}
	return wrapTemporaryIfNeeded(operation, err)
}
