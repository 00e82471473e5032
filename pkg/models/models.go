package models

import (
	"strconv"
	"time"
)

// File format constants
const (
	FileFormatPDF = "pdf"
	FileFormatCBZ = "cbz"
)

// Chapter is one entry of the chapter list
type Chapter struct {
	Index  int    `json:"index"`
	Title  string `json:"title,omitempty"`
	Source string `json:"source,omitempty"`
}

// DisplayTitle returns the chapter title, or "Chapter N" when untitled
func (c Chapter) DisplayTitle() string {
	if c.Title != "" {
		return c.Title
	}
	return "Chapter " + strconv.Itoa(c.Index)
}

// Catalog describes a series published as a remote chapter list
type Catalog struct {
	Title    string    `json:"title"`
	Chapters []Chapter `json:"chapters"`
}

// ReadingPosition is where the reader last was
type ReadingPosition struct {
	Chapter   int       `json:"chapter" yaml:"chapter" koanf:"chapter"`
	Page      int       `json:"page" yaml:"page" koanf:"page"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at" koanf:"updated_at"`
}

// ErrorResponse represents an API error
type ErrorResponse struct {
	Error string `json:"error"`
}
