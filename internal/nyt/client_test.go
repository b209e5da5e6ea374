package nyt

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bilgisen/nytrelay/internal/cache"
	"github.com/bilgisen/nytrelay/internal/config"
	"github.com/bilgisen/nytrelay/internal/logger"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		NYTAPIKey:          "test-key",
		NYTBaseURL:         baseURL,
		NYTSitePrefix:      "https://www.nytimes.com",
		ValidSections:      []string{"arts", "science", "technology"},
		Categories:         []string{"arts", "technology"},
		StoriesPerCategory: 2,
		FetchConcurrency:   1,
		UpstreamTimeout:    5 * time.Second,
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) (*Client, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	c, err := NewClient(testConfig(srv.URL), opts...)
	require.NoError(t, err)
	return c, &hits
}

func captureLogs(t *testing.T) func() []map[string]any {
	t.Helper()
	prev := *logger.Get()
	var buf bytes.Buffer
	logger.Set(zerolog.New(&buf))
	t.Cleanup(func() { logger.Set(prev) })

	return func() []map[string]any {
		var entries []map[string]any
		sc := bufio.NewScanner(bytes.NewReader(buf.Bytes()))
		for sc.Scan() {
			var entry map[string]any
			require.NoError(t, json.Unmarshal(sc.Bytes(), &entry))
			entries = append(entries, entry)
		}
		return entries
	}
}

func TestNewClientMissingCredential(t *testing.T) {
	cfg := testConfig("http://localhost")
	cfg.NYTAPIKey = ""

	c, err := NewClient(cfg)
	assert.Nil(t, c)
	assert.True(t, errors.Is(err, ErrMissingCredential))
}

func TestFetchTopStoriesSuccess(t *testing.T) {
	c, hits := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/topstories/v2/arts.json", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("api-key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"OK","results":[]}`))
	})

	body, err := c.FetchTopStories(context.Background(), "arts")
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"OK","results":[]}`, string(body))
	assert.Equal(t, int32(1), atomic.LoadInt32(hits))
}

func TestFetchTopStoriesInvalidCategorySkipsNetwork(t *testing.T) {
	c, hits := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected upstream call to %s", r.URL.Path)
	})

	for _, category := range []string{"unknown", "", "ARTS", "arts "} {
		_, err := c.FetchTopStories(context.Background(), category)
		require.Error(t, err)

		var nytErr *Error
		require.True(t, errors.As(err, &nytErr))
		assert.Equal(t, KindInvalidCategory, nytErr.Kind)
		assert.Contains(t, nytErr.Detail, "Must be one of: arts, science, technology")
	}
	assert.Equal(t, int32(0), atomic.LoadInt32(hits))
}

func TestFetchTopStoriesStatusTranslation(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		wantKind   ErrorKind
		wantDetail string
		wantLogged bool
	}{
		{
			name:       "rate limited",
			status:     http.StatusTooManyRequests,
			wantKind:   KindRateLimited,
			wantDetail: "Too many requests to NYT API. Please try again later.",
		},
		{
			name:       "not found",
			status:     http.StatusNotFound,
			wantKind:   KindInvalidCategory,
			wantDetail: "Invalid category 'science': NYT API returned 404 Not Found.",
		},
		{
			name:       "server error",
			status:     http.StatusBadGateway,
			wantKind:   KindUpstream,
			wantLogged: true,
		},
		{
			name:       "unauthorized",
			status:     http.StatusUnauthorized,
			wantKind:   KindUpstream,
			wantLogged: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logs := captureLogs(t)
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"fault":"boom"}`))
			})

			_, err := c.FetchTopStories(context.Background(), "science")
			require.Error(t, err)

			var nytErr *Error
			require.True(t, errors.As(err, &nytErr))
			assert.Equal(t, tt.wantKind, nytErr.Kind)
			assert.Equal(t, tt.status, nytErr.StatusCode)
			assert.Equal(t, "science", nytErr.Category)
			assert.Equal(t, tt.wantDetail, nytErr.Detail)

			entries := logs()
			if !tt.wantLogged {
				assert.Empty(t, entries)
				return
			}
			require.Len(t, entries, 1)
			assert.Equal(t, "error", entries[0]["level"])
			assert.Equal(t, "topstories", entries[0]["op"])
			assert.Equal(t, "science", entries[0]["category"])
			assert.Equal(t, float64(tt.status), entries[0]["status"])
			assert.Equal(t, `{"fault":"boom"}`, entries[0]["body"])
		})
	}
}

func TestFetchTopStoriesTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	baseURL := srv.URL
	srv.Close()

	c, err := NewClient(testConfig(baseURL))
	require.NoError(t, err)

	logs := captureLogs(t)
	_, err = c.FetchTopStories(context.Background(), "arts")
	kind, ok := KindOf(err)
	assert.True(t, ok)
	assert.Equal(t, KindUpstream, kind)

	var failure map[string]any
	for _, entry := range logs() {
		if entry["message"] == "NYT API request failed" {
			failure = entry
		}
	}
	require.NotNil(t, failure)
	assert.Equal(t, "error", failure["level"])
	assert.Equal(t, "topstories", failure["op"])
	assert.Equal(t, "arts", failure["category"])
	assert.NotEmpty(t, failure["error"])
}

func TestFetchTopStoriesTruncatesLoggedBody(t *testing.T) {
	logs := captureLogs(t)
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write(bytes.Repeat([]byte("x"), 2*maxLoggedBody))
	})

	_, err := c.FetchTopStories(context.Background(), "arts")
	require.Error(t, err)

	entries := logs()
	require.Len(t, entries, 1)
	assert.Len(t, entries[0]["body"], maxLoggedBody)
}

func TestFetchArticleSearchParams(t *testing.T) {
	tests := []struct {
		name      string
		q         string
		begin     string
		end       string
		wantBegin bool
		wantEnd   bool
	}{
		{name: "no dates", q: "apple"},
		{name: "begin only", q: "apple", begin: "20250101", wantBegin: true},
		{name: "both dates", q: "", begin: "20250101", end: "20250201", wantBegin: true, wantEnd: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				query := r.URL.Query()
				assert.Equal(t, "/search/v2/articlesearch.json", r.URL.Path)
				assert.Equal(t, tt.q, query.Get("q"))
				assert.Equal(t, tt.wantBegin, query.Has("begin_date"))
				assert.Equal(t, tt.wantEnd, query.Has("end_date"))
				if tt.wantBegin {
					assert.Equal(t, tt.begin, query.Get("begin_date"))
				}
				if tt.wantEnd {
					assert.Equal(t, tt.end, query.Get("end_date"))
				}
				_, _ = w.Write([]byte(`{"response":{"docs":[]}}`))
			})

			_, err := c.FetchArticleSearch(context.Background(), tt.q, tt.begin, tt.end)
			require.NoError(t, err)
		})
	}
}

func TestFetchArticleSearchStatusTranslation(t *testing.T) {
	tests := []struct {
		status     int
		wantKind   ErrorKind
		wantLogged bool
	}{
		{status: http.StatusTooManyRequests, wantKind: KindRateLimited},
		{status: http.StatusNotFound, wantKind: KindUpstream, wantLogged: true},
		{status: http.StatusInternalServerError, wantKind: KindUpstream, wantLogged: true},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			logs := captureLogs(t)
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})

			_, err := c.FetchArticleSearch(context.Background(), "climate", "", "")
			kind, ok := KindOf(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantKind, kind)

			entries := logs()
			if !tt.wantLogged {
				assert.Empty(t, entries)
				return
			}
			require.Len(t, entries, 1)
			assert.Equal(t, "articlesearch", entries[0]["op"])
			assert.Equal(t, float64(tt.status), entries[0]["status"])
		})
	}
}

func TestClientCache(t *testing.T) {
	c, hits := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":[]}`))
	}, WithCache(cache.NewMemoryCache(), time.Minute))

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := c.FetchTopStories(ctx, "arts")
		require.NoError(t, err)
		_, err = c.FetchArticleSearch(ctx, "apple", "20250101", "")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(2), atomic.LoadInt32(hits))

	_, err := c.FetchArticleSearch(ctx, "apple", "", "20250101")
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(hits))
}

func TestClientDoesNotCacheErrors(t *testing.T) {
	var calls int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"results":[]}`))
	}, WithCache(cache.NewMemoryCache(), time.Minute))

	_, err := c.FetchTopStories(context.Background(), "arts")
	kind, _ := KindOf(err)
	assert.Equal(t, KindRateLimited, kind)

	_, err = c.FetchTopStories(context.Background(), "arts")
	assert.NoError(t, err)
}
