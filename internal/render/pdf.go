package render

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/gen2brain/go-fitz"
)

// pointsPerInch is the PDF user-space unit
const pointsPerInch = 72.0

// PDF is a document backed by MuPDF
type PDF struct {
	mu     sync.Mutex // MuPDF contexts are not safe for concurrent use
	doc    *fitz.Document
	closed bool
}

// OpenPDF opens a PDF file
func OpenPDF(filename string) (*PDF, error) {
	doc, err := fitz.New(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}
	return &PDF{doc: doc}, nil
}

func (p *PDF) PageCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0
	}
	return p.doc.NumPage()
}

func (p *PDF) PageSize(page int) (float64, float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, 0, ErrClosed
	}

	bound, err := p.doc.Bound(page - 1)
	if err != nil {
		return 0, 0, err
	}
	return float64(bound.Dx()), float64(bound.Dy()), nil
}

func (p *PDF) Render(ctx context.Context, page int, scale float64) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	// Renders queued before a chapter switch can arrive after Close
	if p.closed {
		return nil, ErrClosed
	}

	img, err := p.doc.ImageDPI(page-1, pointsPerInch*scale)
	if err != nil {
		return nil, fmt.Errorf("failed to render page %d: %w", page, err)
	}
	return img, nil
}

func (p *PDF) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.doc.Close()
}
