// Package resilience guards outbound calls to the inference server and
// the message broker with bounded retries and a per-operation circuit
// breaker. Callers describe their failure modes through an
// ErrorClassifier; the executor stays agnostic of transport details.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// ErrorClassification tells the executor what to do with a failed call:
// whether another attempt makes sense, and whether the failure should
// count against the operation's circuit breaker.
type ErrorClassification struct {
	Retryable     bool
	RecordFailure bool
}

type ErrorClassifier func(err error) ErrorClassification

// Executor applies the retry and breaker policy from Config. Breakers
// are keyed by operation name, so "inference.summarize" tripping does
// not block "nats.publish".
type Executor struct {
	cfg Config

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[any]
}

func NewExecutor(cfg Config) *Executor {
	return &Executor{
		cfg:      cfg.normalize(),
		breakers: make(map[string]*gobreaker.CircuitBreaker[any]),
	}
}

// Execute runs fn under the configured policy. Retries happen inside a
// single breaker pass, so one logical call counts once toward the
// failure ratio no matter how many attempts it took.
func (e *Executor) Execute(
	ctx context.Context,
	operation string,
	fn func(context.Context) error,
	classifier ErrorClassifier,
) error {
	if fn == nil {
		return fmt.Errorf("resilience: operation callback is nil")
	}
	op := strings.TrimSpace(operation)
	if op == "" {
		op = "unknown"
	}
	if classifier == nil {
		classifier = conservativeClassifier
	}

	if !e.cfg.BreakerEnabled {
		return e.retry(ctx, op, fn, classifier)
	}

	_, err := e.breakerFor(op, classifier).Execute(func() (any, error) {
		return nil, e.retry(ctx, op, fn, classifier)
	})
	return err
}

func (e *Executor) retry(
	ctx context.Context,
	operation string,
	fn func(context.Context) error,
	classifier ErrorClassifier,
) error {
	backoff := e.cfg.RetryInitialBackoff

	var lastErr error
	for attempt := 1; attempt <= e.cfg.RetryMaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if class := classifier(lastErr); !class.Retryable {
			return lastErr
		}
		if attempt == e.cfg.RetryMaxAttempts {
			break
		}

		wait := backoff
		if wait > e.cfg.RetryMaxBackoff {
			wait = e.cfg.RetryMaxBackoff
		}
		slog.Warn("operation failed, retrying",
			"operation", operation,
			"attempt", attempt,
			"max_attempts", e.cfg.RetryMaxAttempts,
			"backoff", wait.String(),
			"error", lastErr,
		)

		if wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return lastErr
			case <-timer.C:
			}
		}

		backoff = time.Duration(float64(backoff) * e.cfg.RetryMultiplier)
		if backoff > e.cfg.RetryMaxBackoff {
			backoff = e.cfg.RetryMaxBackoff
		}
	}

	return lastErr
}

func (e *Executor) breakerFor(operation string, classifier ErrorClassifier) *gobreaker.CircuitBreaker[any] {
	e.mu.Lock()
	defer e.mu.Unlock()

	if breaker, ok := e.breakers[operation]; ok {
		return breaker
	}

	breaker := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        operation,
		MaxRequests: e.cfg.BreakerHalfOpenMaxCalls,
		Timeout:     e.cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < e.cfg.BreakerMinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= e.cfg.BreakerFailureRatio
		},
		// Failures the classifier declines to record, such as client
		// errors from the inference server, leave the breaker closed.
		IsSuccessful: func(err error) bool {
			return err == nil || !classifier(err).RecordFailure
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			slog.Warn("circuit breaker state changed",
				"operation", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})
	e.breakers[operation] = breaker
	return breaker
}

// IsCircuitOpen reports whether err means the breaker rejected the call
// before it reached the backend.
func IsCircuitOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

// conservativeClassifier covers callers that pass no classifier: never
// retry an unknown failure, but let the breaker see it.
func conservativeClassifier(error) ErrorClassification {
	return ErrorClassification{
		Retryable:     false,
		RecordFailure: true,
	}
}
