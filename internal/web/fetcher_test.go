package web

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leonardcser/litecache/internal/cache"
	"github.com/leonardcser/litecache/internal/logger"
)

func TestMain(m *testing.M) {
	logger.SetOutput(io.Discard)
	os.Exit(m.Run())
}

const page = `<html><head><title> Hello </title><meta name="description" content="A page"></head>
<body><header>nav</header><h1>Heading</h1><p>Some <b>text</b>.</p>
<a href="/b#frag">b</a><a href="https://example.org/a">a</a><a href="mailto:x@y">m</a><a href="">empty</a>
<script>var x = 1;</script><footer>foot</footer></body></html>`

func newCache(t *testing.T) *cache.Store {
	t.Helper()
	s, err := cache.Open(t.TempDir(), "web.bbolt", cache.Options{NoSync: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSummarize_HTML(t *testing.T) {
	ps, err := Summarize("https://example.com/x", "text/html; charset=utf-8", []byte(page))
	require.NoError(t, err)
	assert.Equal(t, "Hello", ps.Title)
	assert.Equal(t, "A page", ps.Description)
	assert.Equal(t, []string{"https://example.com/b", "https://example.org/a"}, ps.Links)
	assert.Contains(t, ps.Text, "Heading")
	assert.Contains(t, ps.Text, "**text**")
	assert.NotContains(t, ps.Text, "var x")
	assert.NotContains(t, ps.Text, "foot")
}

func TestSummarize_PlainAndBinary(t *testing.T) {
	ps, err := Summarize("https://example.com/t", "text/plain", []byte("just text"))
	require.NoError(t, err)
	assert.Equal(t, "just text", ps.Text)

	_, err = Summarize("https://example.com/i", "image/png", []byte{1, 2, 3})
	require.Error(t, err)

	_, err = Summarize("https://example.com/e", "text/html", nil)
	require.Error(t, err)
}

func TestFetch_CachesSummary(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, page)
	}))
	defer srv.Close()

	s := newCache(t)
	f := NewFetcher(s, time.Hour)

	ps, err := f.Fetch(context.Background(), srv.URL+"/x")
	require.NoError(t, err)
	assert.Equal(t, "Hello", ps.Title)

	again, err := f.Fetch(context.Background(), srv.URL+"/x")
	require.NoError(t, err)
	assert.Equal(t, ps, again)
	assert.Equal(t, int32(1), hits.Load())

	stored, err := cache.Get[PageSummary](s, cacheKey(srv.URL+"/x"))
	require.NoError(t, err)
	assert.Equal(t, *ps, stored)
}

func TestFetch_ServesFromCacheWithoutNetwork(t *testing.T) {
	s := newCache(t)
	want := PageSummary{URL: "https://unreachable.invalid/", Title: "cached"}
	_, err := cache.Add(s, cacheKey(want.URL), want, time.Hour)
	require.NoError(t, err)

	got, err := NewFetcher(s, time.Hour).Fetch(context.Background(), want.URL)
	require.NoError(t, err)
	assert.Equal(t, want, *got)
}

func TestFetch_RejectsBadScheme(t *testing.T) {
	_, err := NewFetcher(newCache(t), time.Hour).Fetch(context.Background(), "ftp://x")
	require.Error(t, err)
}
