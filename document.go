package pdfrag

import (
	"strings"
)

type Vector []float32

// Page is the text extracted from a single PDF page.
type Page struct {
	Number int
	Text   string
}

// Sanitize collapses all whitespace runs into single spaces.
func (p Page) Sanitize() Page {
	p.Text = strings.Join(strings.Fields(p.Text), " ")
	return p
}

func (p Page) Blank() bool {
	return strings.TrimSpace(p.Text) == ""
}

// Chunk is a contiguous span of a document's text. Index orders chunks
// across the whole document, not just within a page.
type Chunk struct {
	JobID    JobID   `json:"job_id"`
	FileName string  `json:"file_name"`
	Content  string  `json:"content"`
	Page     int     `json:"page"`
	Index    int     `json:"index"`
	Score    float32 `json:"score,omitempty"`
}

// SplitPages splits every non blank page into chunks, preserving page order.
func SplitPages(splitter Splitter, pages []Page) []Chunk {
	chunks := make([]Chunk, 0, len(pages))
	for _, aPage := range pages {
		aPage = aPage.Sanitize()
		if aPage.Blank() {
			continue
		}
		for _, content := range splitter.Split(aPage.Text) {
			chunks = append(chunks, Chunk{
				Content: content,
				Page:    aPage.Number,
				Index:   len(chunks),
			})
		}
	}
	return chunks
}

func nonBlankPages(pages []Page) int {
	var n int
	for _, aPage := range pages {
		if !aPage.Blank() {
			n++
		}
	}
	return n
}

// ChunkContents returns the raw text of each chunk.
func ChunkContents(chunks []Chunk) []string {
	contents := make([]string, 0, len(chunks))
	for _, aChunk := range chunks {
		contents = append(contents, aChunk.Content)
	}
	return contents
}
