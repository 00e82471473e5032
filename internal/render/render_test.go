package render

import (
	"archive/zip"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCBZ(t *testing.T, pages map[string]image.Point) string {
	t.Helper()
	filename := filepath.Join(t.TempDir(), "chapter.cbz")
	f, err := os.Create(filename)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	for name, size := range pages {
		w, err := zw.Create(name)
		require.NoError(t, err)
		if size == (image.Point{}) {
			_, err = w.Write([]byte("not an image"))
			require.NoError(t, err)
			continue
		}
		img := image.NewRGBA(image.Rect(0, 0, size.X, size.Y))
		img.Set(0, 0, color.RGBA{R: 255, A: 255})
		require.NoError(t, png.Encode(w, img))
	}
	require.NoError(t, zw.Close())
	return filename
}

func TestCBZPagesInNameOrder(t *testing.T) {
	filename := writeCBZ(t, map[string]image.Point{
		"002.png":           {X: 20, Y: 40},
		"001.png":           {X: 10, Y: 30},
		"notes.txt":         {X: 1, Y: 1},
		"__MACOSX/._001.png": {X: 1, Y: 1},
		"010.PNG":           {X: 30, Y: 50},
	})

	doc, err := OpenCBZ(filename)
	require.NoError(t, err)
	defer doc.Close()

	require.Equal(t, 3, doc.PageCount())

	w, h, err := doc.PageSize(1)
	require.NoError(t, err)
	assert.Equal(t, 10.0, w)
	assert.Equal(t, 30.0, h)

	w, h, err = doc.PageSize(3)
	require.NoError(t, err)
	assert.Equal(t, 30.0, w)
	assert.Equal(t, 50.0, h)

	_, _, err = doc.PageSize(4)
	assert.Error(t, err)
}

func TestCBZRenderScales(t *testing.T) {
	filename := writeCBZ(t, map[string]image.Point{"p1.png": {X: 40, Y: 80}})
	doc, err := OpenCBZ(filename)
	require.NoError(t, err)
	defer doc.Close()

	img, err := doc.Render(context.Background(), 1, 1)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 40, 80), img.Bounds())

	img, err = doc.Render(context.Background(), 1, 0.5)
	require.NoError(t, err)
	assert.Equal(t, 20, img.Bounds().Dx())
	assert.Equal(t, 40, img.Bounds().Dy())
}

func TestCBZBrokenPage(t *testing.T) {
	filename := writeCBZ(t, map[string]image.Point{
		"1.png": {X: 10, Y: 10},
		"2.png": {},
	})
	doc, err := OpenCBZ(filename)
	require.NoError(t, err)
	defer doc.Close()

	_, _, err = doc.PageSize(2)
	assert.Error(t, err)
	_, err = doc.Render(context.Background(), 2, 1)
	assert.Error(t, err)
}

func TestCBZWithoutPages(t *testing.T) {
	filename := writeCBZ(t, map[string]image.Point{"readme.txt": {X: 1, Y: 1}})
	_, err := OpenCBZ(filename)
	assert.ErrorIs(t, err, ErrNoPages)
}

type stubFetcher struct {
	file string
	err  error
	urls []string
}

func (f *stubFetcher) Cached(_ context.Context, url string) (string, error) {
	f.urls = append(f.urls, url)
	return f.file, f.err
}

func TestOpener(t *testing.T) {
	filename := writeCBZ(t, map[string]image.Point{"1.png": {X: 10, Y: 10}})
	ctx := context.Background()

	t.Run("local", func(t *testing.T) {
		doc, err := NewOpener(nil, nil).Open(ctx, filename)
		require.NoError(t, err)
		assert.Equal(t, 1, doc.PageCount())
		assert.NoError(t, doc.Close())
	})

	t.Run("remote", func(t *testing.T) {
		fetcher := &stubFetcher{file: filename}
		doc, err := NewOpener(fetcher, nil).Open(ctx, "https://cdn.example.com/ch-1.cbz?sig=abc")
		require.NoError(t, err)
		defer doc.Close()
		assert.Equal(t, []string{"https://cdn.example.com/ch-1.cbz?sig=abc"}, fetcher.urls)
	})

	t.Run("remote without fetcher", func(t *testing.T) {
		_, err := NewOpener(nil, nil).Open(ctx, "https://cdn.example.com/ch-1.cbz")
		assert.Error(t, err)
	})

	t.Run("fetch failure", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := NewOpener(&stubFetcher{err: boom}, nil).Open(ctx, "https://cdn.example.com/ch-1.pdf")
		assert.ErrorIs(t, err, boom)
	})

	t.Run("unsupported", func(t *testing.T) {
		_, err := NewOpener(nil, nil).Open(ctx, "chapter.epub")
		assert.ErrorIs(t, err, ErrUnsupportedFormat)
	})

	t.Run("missing file", func(t *testing.T) {
		doc, err := NewOpener(nil, nil).Open(ctx, filepath.Join(t.TempDir(), "nope.cbz"))
		assert.Error(t, err)
		assert.Nil(t, doc)
	})
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "pdf", Format("assets/chapters/chapter-1.pdf"))
	assert.Equal(t, "pdf", Format("a/B.PDF"))
	assert.Equal(t, "cbz", Format("vol.zip"))
	assert.Equal(t, "cbz", Format("https://x.test/c.cbz?token=1"))
	assert.Equal(t, "", Format("readme"))
}

func TestCache(t *testing.T) {
	c := NewCache(time.Minute)
	img := image.NewGray(image.Rect(0, 0, 2, 2))

	_, ok := c.Get("doc", 1, 1)
	assert.False(t, ok)

	c.Put("doc", 1, 1, img)
	got, ok := c.Get("doc", 1, 1)
	require.True(t, ok)
	assert.Same(t, img, got)

	_, ok = c.Get("doc", 1, 0.75)
	assert.False(t, ok, "scale is part of the key")
	assert.Equal(t, 1, c.Len())

	c.Flush()
	assert.Zero(t, c.Len())
}

// countingDoc renders blank pages and fails on the pages in fail
type countingDoc struct {
	renders atomic.Int32
	fail    map[int]bool
}

func (d *countingDoc) PageCount() int { return 5 }

func (d *countingDoc) PageSize(int) (float64, float64, error) { return 10, 20, nil }

func (d *countingDoc) Render(_ context.Context, page int, scale float64) (image.Image, error) {
	d.renders.Add(1)
	if d.fail[page] {
		return nil, errors.New("corrupt page")
	}
	return image.NewGray(image.Rect(0, 0, int(10*scale), int(20*scale))), nil
}

func (d *countingDoc) Close() error { return nil }

func TestQueueRendersAndCaches(t *testing.T) {
	doc := &countingDoc{fail: map[int]bool{3: true}}
	q := NewQueue(DefaultQueueOptions(), NewCache(time.Minute), nil)
	defer q.Close()

	ctx := context.Background()
	var wg sync.WaitGroup
	jobs := make([]*Job, 5)
	errs := make([]error, 5)
	for i := range jobs {
		jobs[i] = &Job{Doc: doc, DocKey: "ch-1", Generation: 1, Page: i + 1, Scale: 1}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = q.Render(ctx, jobs[i])
		}(i)
	}
	wg.Wait()

	for i, job := range jobs {
		if job.Page == 3 {
			assert.Error(t, errs[i])
			assert.Nil(t, job.Image)
			continue
		}
		assert.NoError(t, errs[i])
		assert.NotNil(t, job.Image)
		assert.False(t, job.Cached)
	}
	assert.Equal(t, int32(5), doc.renders.Load())

	again := &Job{Doc: doc, DocKey: "ch-1", Page: 2, Scale: 1}
	require.NoError(t, q.Render(ctx, again))
	assert.True(t, again.Cached)
	assert.Equal(t, int32(5), doc.renders.Load())

	// Failures are not cached
	retry := &Job{Doc: doc, DocKey: "ch-1", Page: 3, Scale: 1}
	assert.Error(t, q.Render(ctx, retry))
	assert.Equal(t, int32(6), doc.renders.Load())
}

func TestQueueWithoutCache(t *testing.T) {
	doc := &countingDoc{}
	q := NewQueue(QueueOptions{BatchSize: 1}, nil, nil)
	defer q.Close()

	for i := 0; i < 2; i++ {
		require.NoError(t, q.Render(context.Background(), &Job{Doc: doc, DocKey: "x", Page: 1, Scale: 0.5}))
	}
	assert.Equal(t, int32(2), doc.renders.Load())
}
