package terminal

import (
	"bytes"
	"fmt"
	"image"
	"image/color/palette"
	"image/draw"
	"os"
	"strings"

	"github.com/BourgeoisBear/rasterm"
	"github.com/muesli/termenv"
)

// TermImageMode represents the terminal's image display capability
type TermImageMode int

const (
	// TermModeBlocks draws images with colored half-block characters
	TermModeBlocks TermImageMode = iota
	// TermModeKitty indicates Kitty graphics protocol support
	TermModeKitty
	// TermModeIterm indicates iTerm2 graphics protocol support
	TermModeIterm
	// TermModeSixel indicates Sixel graphics protocol support
	TermModeSixel
)

// FrameImageID is a stable ID for the reader frame (for Kitty protocol)
const FrameImageID uint32 = 1989

// String returns a human-readable name for the terminal mode
func (m TermImageMode) String() string {
	switch m {
	case TermModeKitty:
		return "kitty"
	case TermModeIterm:
		return "iterm"
	case TermModeSixel:
		return "sixel"
	default:
		return "blocks"
	}
}

// IsGraphics reports whether the mode uses a terminal graphics protocol
func (m TermImageMode) IsGraphics() bool {
	return m != TermModeBlocks
}

// ParseMode resolves a configured mode name; "auto" and "" detect
func ParseMode(name string) (TermImageMode, error) {
	switch strings.ToLower(name) {
	case "", "auto":
		return DetectTerminalMode(), nil
	case "kitty":
		return TermModeKitty, nil
	case "iterm", "iterm2":
		return TermModeIterm, nil
	case "sixel":
		return TermModeSixel, nil
	case "blocks", "none":
		return TermModeBlocks, nil
	default:
		return TermModeBlocks, fmt.Errorf("unknown image mode %q", name)
	}
}

// DetectTerminalMode checks which image protocol the terminal supports
func DetectTerminalMode() TermImageMode {
	if rasterm.IsKittyCapable() {
		return TermModeKitty
	}
	if rasterm.IsItermCapable() {
		return TermModeIterm
	}
	if capable, _ := rasterm.IsSixelCapable(); capable {
		return TermModeSixel
	}
	return TermModeBlocks
}

// ImageToPaletted converts an image to a paletted image required for Sixel
func ImageToPaletted(img image.Image) *image.Paletted {
	bounds := img.Bounds()
	paletted := image.NewPaletted(bounds, palette.Plan9)
	draw.Draw(paletted, bounds, img, bounds.Min, draw.Src)
	return paletted
}

// Renderer turns a composed frame into terminal output
type Renderer struct {
	Mode    TermImageMode
	Profile termenv.Profile
}

// NewRenderer creates a renderer for mode using the terminal's color profile
func NewRenderer(mode TermImageMode) *Renderer {
	return &Renderer{Mode: mode, Profile: termenv.ColorProfile()}
}

// Render draws img into a cols x rows cell area. Graphics modes return a
// single escape sequence followed by the newlines that keep the layout
// below it in place; block mode returns rows lines of half-blocks.
func (r *Renderer) Render(img image.Image, cols, rows int) (string, error) {
	if cols <= 0 || rows <= 0 {
		return "", nil
	}
	if !r.Mode.IsGraphics() {
		return strings.Join(HalfBlocks(img, cols, rows, r.Profile), "\n"), nil
	}

	var buf bytes.Buffer
	var err error
	switch r.Mode {
	case TermModeKitty:
		err = rasterm.KittyWriteImage(&buf, img, rasterm.KittyImgOpts{ImageId: FrameImageID})
	case TermModeIterm:
		err = rasterm.ItermWriteImage(&buf, img)
	case TermModeSixel:
		err = rasterm.SixelWriteImage(&buf, ImageToPaletted(img))
	}
	if err != nil {
		return "", err
	}
	buf.WriteString(strings.Repeat("\n", rows-1))
	return buf.String(), nil
}

// ClearImages returns the escape sequence to clear all terminal images.
// Print it before leaving a view that displays images.
func ClearImages(mode TermImageMode) string {
	switch mode {
	case TermModeKitty:
		// a=d (action=delete), d=A (delete all images)
		return "\x1b_Ga=d,d=A\x1b\\"
	case TermModeIterm, TermModeSixel:
		// Images are part of the text buffer; a screen clear removes them
		return "\x1b[2J\x1b[H"
	default:
		return ""
	}
}

// ClearImagesCmd returns a function that writes the clear sequence straight
// to the terminal. Run it before view transitions.
func ClearImagesCmd(mode TermImageMode) func() {
	return func() {
		if seq := ClearImages(mode); seq != "" {
			os.Stdout.WriteString(seq)
		}
	}
}

// ClearFrame returns the sequence that removes the previous reader frame
// before a new one is drawn
func ClearFrame(mode TermImageMode) string {
	if mode == TermModeKitty {
		return fmt.Sprintf("\x1b_Ga=d,i=%d\x1b\\", FrameImageID)
	}
	return ""
}
