package terminal

import (
	"image"
	"strings"

	"github.com/muesli/termenv"
	"github.com/nfnt/resize"
)

const upperHalf = "▀"

// HalfBlocks renders img as rows lines of cols cells. Each cell shows two
// vertically stacked pixels: the upper as foreground, the lower as
// background of an upper-half block.
func HalfBlocks(img image.Image, cols, rows int, profile termenv.Profile) []string {
	if cols <= 0 || rows <= 0 {
		return nil
	}
	scaled := resize.Resize(uint(cols), uint(rows*2), img, resize.Bilinear)
	b := scaled.Bounds()

	lines := make([]string, rows)
	var sb strings.Builder
	for row := 0; row < rows; row++ {
		sb.Reset()
		y := b.Min.Y + row*2
		for col := 0; col < cols; col++ {
			x := b.Min.X + col
			top := profile.FromColor(scaled.At(x, y))
			bottom := profile.FromColor(scaled.At(x, y+1))
			sb.WriteString(profile.String(upperHalf).Foreground(top).Background(bottom).String())
		}
		lines[row] = sb.String()
	}
	return lines
}
