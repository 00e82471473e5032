package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MadhavanR1204/toonzy/internal/api"
	"github.com/MadhavanR1204/toonzy/internal/config"
	"github.com/MadhavanR1204/toonzy/pkg/models"
)

func TestChapterSourcesFromPattern(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Source = "https://cdn.example/series/{chapter}.cbz"
	cfg.TotalChapters = 3

	chapters, err := chapterSources(context.Background(), api.NewClient("", ""), cfg)
	require.NoError(t, err)
	require.Len(t, chapters, 3)
	assert.Equal(t, models.Chapter{Index: 2, Source: "https://cdn.example/series/2.cbz"}, chapters[1])
}

func TestChapterSourcesFromCatalog(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"title":"Night Shift","chapters":[{"index":1,"source":"one.cbz"},{"index":2}]}`))
	}))
	defer srv.Close()

	cfg := config.DefaultConfig()
	cfg.Catalog = srv.URL + "/index.json"
	cfg.Source = "/local/{chapter}.pdf"

	chapters, err := chapterSources(context.Background(), api.NewClient("", ""), cfg)
	require.NoError(t, err)
	require.Len(t, chapters, 2)
	assert.Equal(t, srv.URL+"/one.cbz", chapters[0].Source)
	assert.Equal(t, "/local/2.pdf", chapters[1].Source, "chapters without a source fall back to the pattern")
}

func TestDownloadStoresInCache(t *testing.T) {
	body := []byte("PK\x03\x04 chapter archive")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	client := api.NewClient("", t.TempDir())
	ch := models.Chapter{Index: 1, Source: srv.URL + "/1.cbz"}

	n, err := download(context.Background(), client, ch)
	require.NoError(t, err)
	assert.Equal(t, int64(len(body)), n)
	assert.True(t, client.IsCached(ch.Source))

	data, err := os.ReadFile(client.CachePath(ch.Source))
	require.NoError(t, err)
	assert.Equal(t, body, data)
	assert.Equal(t, ".cbz", filepath.Ext(client.CachePath(ch.Source)))
}

func TestDownloadHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"chapter not published"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	client := api.NewClient("", t.TempDir())
	ch := models.Chapter{Index: 4, Source: srv.URL + "/4.cbz"}

	_, err := download(context.Background(), client, ch)
	require.Error(t, err)
	assert.False(t, client.IsCached(ch.Source))
}
