// Package search provides web search provider adapters.
//
// Providers issue a query to an external search API and return a small
// ordered list of results. An empty result list is a valid, non-error
// outcome; callers must not treat it as a failure.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/seekerhq/seeker/internal/schema"
)

// Sentinel errors for provider operations, checked with errors.Is().
var (
	// ErrProvider indicates a network or authentication failure talking
	// to the search backend.
	ErrProvider = errors.New("search provider failure")

	// ErrTimeout indicates the caller-supplied deadline expired before
	// the provider answered.
	ErrTimeout = errors.New("search timed out")
)

// Provider is the contract every search backend implements.
type Provider interface {
	// Search returns up to maxResults hits for query, most relevant
	// first. An empty slice with a nil error means no matches.
	Search(ctx context.Context, query string, maxResults int) ([]schema.SearchResult, error)

	// Name identifies the provider in logs and tool output.
	Name() string
}

// wrapErr classifies a transport error into the package sentinels.
func wrapErr(provider string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %v", ErrTimeout, provider, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", ErrProvider, provider, err)
}

// retryable reports whether an error is transient enough to retry.
// Cancellation and deadline expiry are never retried.
func retryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, ErrTimeout) {
		return false
	}

	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection reset", "connection refused", "temporary", "unavailable", "502", "503", "504"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// retrying decorates a Provider with bounded exponential-backoff retry
// on transient network failures.
type retrying struct {
	inner    Provider
	attempts int
	initial  time.Duration
}

// WithRetry wraps p so transient failures are retried up to attempts
// times, doubling the delay between tries starting from initial.
func WithRetry(p Provider, attempts int, initial time.Duration) Provider {
	if attempts < 1 {
		attempts = 1
	}
	if initial <= 0 {
		initial = 500 * time.Millisecond
	}
	return &retrying{inner: p, attempts: attempts, initial: initial}
}

func (r *retrying) Name() string { return r.inner.Name() }

func (r *retrying) Search(ctx context.Context, query string, maxResults int) ([]schema.SearchResult, error) {
	var lastErr error
	delay := r.initial

	for attempt := 0; attempt < r.attempts; attempt++ {
		results, err := r.inner.Search(ctx, query, maxResults)
		if err == nil {
			return results, nil
		}
		lastErr = err

		if !retryable(err) || attempt == r.attempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return nil, wrapErr(r.inner.Name(), ctx.Err())
		case <-time.After(delay):
			delay *= 2
		}
	}
	return nil, lastErr
}
