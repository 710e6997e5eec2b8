package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seekerhq/seeker/internal/schema"
)

func TestTavilySearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		fmt.Fprint(w, `{"results":[
			{"title":"Quantum computing","url":"https://example.com/qc","content":"An overview of quantum computation."},
			{"title":"Qubits explained","url":"https://example.com/qubits","content":"What a qubit is."}
		]}`)
	}))
	defer srv.Close()

	provider := NewTavily("test-key", "basic")
	provider.BaseURL = srv.URL

	results, err := provider.Search(context.Background(), "quantum computing", 5)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "Quantum computing", results[0].Title)
	assert.Equal(t, "https://example.com/qc", results[0].URL)
	assert.Equal(t, "An overview of quantum computation.", results[0].Snippet)
}

func TestTavilySearchRespectsMaxResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"results":[
			{"title":"a","url":"u1","content":"c1"},
			{"title":"b","url":"u2","content":"c2"},
			{"title":"c","url":"u3","content":"c3"}
		]}`)
	}))
	defer srv.Close()

	provider := NewTavily("test-key", "")
	provider.BaseURL = srv.URL

	results, err := provider.Search(context.Background(), "anything", 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestTavilySearchEmptyResultsIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"results":[]}`)
	}))
	defer srv.Close()

	provider := NewTavily("test-key", "basic")
	provider.BaseURL = srv.URL

	results, err := provider.Search(context.Background(), "zxqv nonsense", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestTavilySearchMissingAPIKey(t *testing.T) {
	provider := NewTavily("", "basic")

	_, err := provider.Search(context.Background(), "query", 5)
	require.ErrorIs(t, err, ErrProvider)
}

func TestTavilySearchServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	provider := NewTavily("bad-key", "basic")
	provider.BaseURL = srv.URL

	_, err := provider.Search(context.Background(), "query", 5)
	require.ErrorIs(t, err, ErrProvider)
}

func TestTavilySearchRetriesOn429(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"results":[{"title":"ok","url":"u","content":"c"}]}`)
	}))
	defer srv.Close()

	provider := NewTavily("test-key", "basic")
	provider.BaseURL = srv.URL

	results, err := provider.Search(context.Background(), "query", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, int32(2), calls.Load())
}

func TestTavilySearchGivesUpAfterPersistent429(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	provider := NewTavily("test-key", "basic")
	provider.BaseURL = srv.URL
	provider.backoff = time.Millisecond

	_, err := provider.Search(context.Background(), "query", 5)
	require.ErrorIs(t, err, ErrProvider)
	// Initial attempt plus the bounded retries.
	assert.Equal(t, int32(max429Retries+1), calls.Load())
}

func TestTavilySnippetTruncationKeepsValidUTF8(t *testing.T) {
	// The leading ASCII byte shifts every rune boundary off the cutoff.
	long := "A" + strings.Repeat("量子計算機の研究", 20)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"results":[{"title":"t","url":"u","content":%q}]}`, long)
	}))
	defer srv.Close()

	provider := NewTavily("test-key", "basic")
	provider.BaseURL = srv.URL

	results, err := provider.Search(context.Background(), "query", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)

	snippet := results[0].Snippet
	assert.LessOrEqual(t, len(snippet), maxSnippetLen)
	assert.True(t, utf8.ValidString(snippet), "snippet must not end mid rune")
}

func TestTavilySearchTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		fmt.Fprint(w, `{"results":[]}`)
	}))
	defer srv.Close()

	provider := NewTavily("test-key", "basic")
	provider.BaseURL = srv.URL

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := provider.Search(ctx, "query", 5)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrTimeout)
}

func TestDuckDuckGoSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><table>
			<tr><td><a class="result-link" href="https://example.com/one">First result</a></td></tr>
			<tr><td class="result-snippet">Snippet for the first result.</td></tr>
			<tr><td><a class="result-link" href="https://example.com/two">Second result</a></td></tr>
			<tr><td class="result-snippet">Snippet for the second result.</td></tr>
		</table></body></html>`)
	}))
	defer srv.Close()

	provider := NewDuckDuckGo()
	provider.BaseURL = srv.URL

	results, err := provider.Search(context.Background(), "example", 5)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "First result", results[0].Title)
	assert.Equal(t, "https://example.com/one", results[0].URL)
	assert.Equal(t, "Snippet for the first result.", results[0].Snippet)
}

func TestDuckDuckGoGivesUpAfterPersistent429(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	provider := NewDuckDuckGo()
	provider.BaseURL = srv.URL
	provider.backoff = time.Millisecond

	_, err := provider.Search(context.Background(), "example", 5)
	require.ErrorIs(t, err, ErrProvider)
	assert.Equal(t, int32(max429Retries+1), calls.Load())
}

func TestDuckDuckGoEmptyQuery(t *testing.T) {
	provider := NewDuckDuckGo()

	_, err := provider.Search(context.Background(), "   ", 5)
	require.ErrorIs(t, err, ErrProvider)
}

// fakeProvider fails a configured number of times before succeeding.
type fakeProvider struct {
	failures int
	calls    int
	err      error
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Search(ctx context.Context, query string, maxResults int) ([]schema.SearchResult, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, f.err
	}
	return []schema.SearchResult{{Title: "hit", URL: "u", Snippet: "s"}}, nil
}

func TestWithRetryRecoversFromTransientFailure(t *testing.T) {
	inner := &fakeProvider{failures: 2, err: fmt.Errorf("%w: connection reset by peer", ErrProvider)}
	provider := WithRetry(inner, 3, time.Millisecond)

	results, err := provider.Search(context.Background(), "q", 5)
	require.NoError(t, err)
	assert.Len(t, results, 1)
	assert.Equal(t, 3, inner.calls)
}

func TestWithRetryGivesUpAfterBudget(t *testing.T) {
	inner := &fakeProvider{failures: 10, err: fmt.Errorf("%w: service unavailable", ErrProvider)}
	provider := WithRetry(inner, 3, time.Millisecond)

	_, err := provider.Search(context.Background(), "q", 5)
	require.ErrorIs(t, err, ErrProvider)
	assert.Equal(t, 3, inner.calls)
}

func TestWithRetryDoesNotRetryNonTransientErrors(t *testing.T) {
	inner := &fakeProvider{failures: 10, err: fmt.Errorf("%w: API key is missing", ErrProvider)}
	provider := WithRetry(inner, 3, time.Millisecond)

	_, err := provider.Search(context.Background(), "q", 5)
	require.Error(t, err)
	assert.Equal(t, 1, inner.calls)
}

func TestWithRetryDoesNotRetryCancellation(t *testing.T) {
	inner := &fakeProvider{failures: 10, err: context.Canceled}
	provider := WithRetry(inner, 3, time.Millisecond)

	_, err := provider.Search(context.Background(), "q", 5)
	require.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 1, inner.calls)
}
