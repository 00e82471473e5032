package render

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"path"
	"slices"
	"strings"
	"sync"

	"github.com/nfnt/resize"
)

// ErrNoPages is returned for archives without any page images
var ErrNoPages = errors.New("archive contains no pages")

// CBZ is a comic book archive: a zip of page images in name order. Image
// pixels are treated as points, so scale 1 renders pages at their stored
// size.
type CBZ struct {
	mu    sync.Mutex
	zr    *zip.ReadCloser
	pages []*zip.File
	sizes map[int]image.Point
}

// OpenCBZ opens a CBZ (or plain zip) archive
func OpenCBZ(filename string) (*CBZ, error) {
	zr, err := zip.OpenReader(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}

	var pages []*zip.File
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !isPageImage(f.Name) {
			continue
		}
		pages = append(pages, f)
	}
	if len(pages) == 0 {
		zr.Close()
		return nil, ErrNoPages
	}
	slices.SortFunc(pages, func(a, b *zip.File) int {
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})

	return &CBZ{zr: zr, pages: pages, sizes: make(map[int]image.Point)}, nil
}

func isPageImage(name string) bool {
	base := path.Base(name)
	if strings.HasPrefix(base, ".") || strings.HasPrefix(name, "__MACOSX/") {
		return false
	}
	switch strings.ToLower(path.Ext(base)) {
	case ".jpg", ".jpeg", ".png", ".gif":
		return true
	}
	return false
}

func (c *CBZ) PageCount() int {
	return len(c.pages)
}

func (c *CBZ) file(page int) (*zip.File, error) {
	if page < 1 || page > len(c.pages) {
		return nil, fmt.Errorf("page %d out of range", page)
	}
	return c.pages[page-1], nil
}

func (c *CBZ) PageSize(page int) (float64, float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if size, ok := c.sizes[page]; ok {
		return float64(size.X), float64(size.Y), nil
	}

	f, err := c.file(page)
	if err != nil {
		return 0, 0, err
	}
	rc, err := f.Open()
	if err != nil {
		return 0, 0, err
	}
	defer rc.Close()

	cfg, _, err := image.DecodeConfig(rc)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read %s: %w", f.Name, err)
	}
	c.sizes[page] = image.Pt(cfg.Width, cfg.Height)
	return float64(cfg.Width), float64(cfg.Height), nil
}

func (c *CBZ) Render(ctx context.Context, page int, scale float64) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := c.file(page)
	if err != nil {
		return nil, err
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	img, _, err := image.Decode(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", f.Name, err)
	}
	if scale == 1 {
		return img, nil
	}

	width := uint(max(1, float64(img.Bounds().Dx())*scale))
	return resize.Resize(width, 0, img, resize.Lanczos3), nil
}

func (c *CBZ) Close() error {
	return c.zr.Close()
}
