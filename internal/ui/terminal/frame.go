package terminal

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"time"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/nfnt/resize"
	"github.com/patrickmn/go-cache"

	"github.com/MadhavanR1204/toonzy/internal/reader"
)

// RasterFunc returns the rendered raster for a 1-based page, if available
type RasterFunc func(page int) (image.Image, bool)

// Compositor draws the visible part of a page stack into one frame image.
// Scaled page tiles are cached between frames, so scrolling only pays for
// the copy.
type Compositor struct {
	cellW, cellH int

	backdrop color.Color
	pending  color.Color

	tiles *cache.Cache
}

// NewCompositor creates a compositor for the given cell metrics in pixels
func NewCompositor(cellW, cellH int) *Compositor {
	return &Compositor{
		cellW:    max(1, cellW),
		cellH:    max(1, cellH),
		backdrop: color.Black,
		pending:  color.Gray{Y: 0x30},
		tiles:    cache.New(2*time.Minute, 4*time.Minute),
	}
}

// SetColors sets the backdrop and unrendered-page fill from hex colors.
// Invalid values leave the previous color in place.
func (c *Compositor) SetColors(backdrop, pending string) {
	if col, err := colorful.Hex(backdrop); err == nil {
		c.backdrop = col
	}
	if col, err := colorful.Hex(pending); err == nil {
		c.pending = col
	}
}

// Reset drops all cached tiles
func (c *Compositor) Reset() {
	c.tiles.Flush()
}

// Compose returns a cols x rows cell frame of the stack scrolled to
// scrollTop. Pages that have no raster yet are drawn as flat placeholders.
func (c *Compositor) Compose(st *reader.Stack, scrollTop, cols, rows int, zoom reader.Zoom, raster RasterFunc) *image.RGBA {
	frame := image.NewRGBA(image.Rect(0, 0, max(1, cols)*c.cellW, max(1, rows)*c.cellH))
	draw.Draw(frame, frame.Bounds(), image.NewUniform(c.backdrop), image.Point{}, draw.Src)
	if st == nil {
		return frame
	}

	for _, surf := range st.Surfaces {
		if surf.Bottom() <= scrollTop || surf.Top >= scrollTop+rows {
			continue
		}
		dst := image.Rect(
			surf.Left*c.cellW,
			(surf.Top-scrollTop)*c.cellH,
			(surf.Left+surf.Width)*c.cellW,
			(surf.Bottom()-scrollTop)*c.cellH,
		)

		var src image.Image
		if surf.Rendered && raster != nil {
			if img, ok := raster(surf.Page); ok {
				src = c.tile(st.Generation, surf, img, zoom)
			}
		}
		if src == nil {
			draw.Draw(frame, dst, image.NewUniform(c.pending), image.Point{}, draw.Src)
			continue
		}
		draw.Draw(frame, dst, src, src.Bounds().Min, draw.Src)
	}
	return frame
}

// tile returns img scaled to the surface's cell box, zoomed if the surface
// is the zoomed one
func (c *Compositor) tile(generation uint64, surf *reader.Surface, img image.Image, zoom reader.Zoom) image.Image {
	w, h := surf.Width*c.cellW, surf.Height*c.cellH
	zoomed := zoom.Active() && zoom.Page == surf.Page

	key := fmt.Sprintf("%d/%d/%dx%d", generation, surf.Page, w, h)
	if zoomed {
		key += fmt.Sprintf("/z%.2f@%.3f,%.3f", zoom.Factor, zoom.OriginX, zoom.OriginY)
	}
	if cached, ok := c.tiles.Get(key); ok {
		return cached.(image.Image)
	}

	src := img
	if zoomed {
		src = ZoomCrop(img, zoom.Factor, zoom.OriginX, zoom.OriginY)
	}
	scaled := resize.Resize(uint(w), uint(h), src, resize.Bilinear)
	c.tiles.Set(key, scaled, cache.DefaultExpiration)
	return scaled
}

// ZoomCrop returns the part of img that a zoom by factor around the
// fractional origin keeps in view. The crop stays inside the image.
func ZoomCrop(img image.Image, factor, originX, originY float64) image.Image {
	b := img.Bounds()
	if factor <= 1 {
		return img
	}
	cw := max(1, int(float64(b.Dx())/factor))
	ch := max(1, int(float64(b.Dy())/factor))

	cx := b.Min.X + int(originX*float64(b.Dx()))
	cy := b.Min.Y + int(originY*float64(b.Dy()))
	x0 := min(max(cx-cw/2, b.Min.X), b.Max.X-cw)
	y0 := min(max(cy-ch/2, b.Min.Y), b.Max.Y-ch)

	crop := image.NewRGBA(image.Rect(0, 0, cw, ch))
	draw.Draw(crop, crop.Bounds(), img, image.Pt(x0, y0), draw.Src)
	return crop
}
