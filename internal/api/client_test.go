package api

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchDocumentSendsToken(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		w.Write([]byte("%PDF-1.4 fake"))
	}))
	defer srv.Close()

	c := NewClient("secret", "")
	var buf bytes.Buffer
	n, err := c.FetchDocument(context.Background(), srv.URL+"/ch-1.pdf", &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(13), n)
	assert.Equal(t, "%PDF-1.4 fake", buf.String())
	assert.Equal(t, "Bearer secret", auth)

	c.SetToken("")
	_, err = c.FetchDocument(context.Background(), srv.URL+"/ch-1.pdf", io.Discard)
	require.NoError(t, err)
	assert.Empty(t, auth)
}

func TestErrorResponses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/json":
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"error":"token expired"}`))
		default:
			http.Error(w, "gone fishing", http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewClient("", t.TempDir())
	ctx := context.Background()

	_, err := c.FetchDocument(ctx, srv.URL+"/json", io.Discard)
	require.Error(t, err)
	assert.Equal(t, "HTTP 403: token expired", err.Error())

	_, err = c.FetchDocument(ctx, srv.URL+"/plain", io.Discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 404")
	assert.Contains(t, err.Error(), "gone fishing")

	_, err = c.Cached(ctx, srv.URL+"/plain.pdf")
	assert.Error(t, err)
	assert.False(t, c.IsCached(srv.URL+"/plain.pdf"), "failed downloads are not cached")
}

func TestCachedDownloadsOnce(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte("archive bytes"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	c := NewClient("", dir)
	source := srv.URL + "/series/ch-2.cbz?sig=1"

	first, err := c.Cached(context.Background(), source)
	require.NoError(t, err)
	assert.Equal(t, ".cbz", filepath.Ext(first))
	assert.True(t, strings.HasPrefix(first, dir))

	second, err := c.Cached(context.Background(), source)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), hits.Load())

	data, err := os.ReadFile(first)
	require.NoError(t, err)
	assert.Equal(t, "archive bytes", string(data))

	other, err := c.Cached(context.Background(), srv.URL+"/series/ch-3.cbz")
	require.NoError(t, err)
	assert.NotEqual(t, first, other)
	assert.Equal(t, int32(2), hits.Load())
}

func TestCachedWithoutDir(t *testing.T) {
	_, err := NewClient("", "").Cached(context.Background(), "https://example.com/a.pdf")
	assert.ErrorIs(t, err, ErrNoCacheDir)
}

func TestCatalogResolvesSources(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"title": "Night Shift",
			"chapters": [
				{"title": "Arrival", "source": "chapters/1.pdf"},
				{"index": 2, "source": "https://cdn.example.com/2.pdf"},
				{"title": "Untitled"}
			]
		}`))
	}))
	defer srv.Close()

	catalog, err := NewClient("", "").Catalog(context.Background(), srv.URL+"/series/index.json")
	require.NoError(t, err)
	assert.Equal(t, "Night Shift", catalog.Title)
	require.Len(t, catalog.Chapters, 3)

	assert.Equal(t, 1, catalog.Chapters[0].Index)
	assert.Equal(t, srv.URL+"/series/chapters/1.pdf", catalog.Chapters[0].Source)
	assert.Equal(t, "https://cdn.example.com/2.pdf", catalog.Chapters[1].Source)
	assert.Equal(t, "Chapter 2", catalog.Chapters[1].DisplayTitle())
	assert.Equal(t, 3, catalog.Chapters[2].Index)
	assert.Empty(t, catalog.Chapters[2].Source)
}

func TestCatalogBadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	_, err := NewClient("", "").Catalog(context.Background(), srv.URL)
	assert.Error(t, err)
}
