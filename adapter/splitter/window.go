package splitter

import (
	"fmt"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// Window splits text into fixed size chunks of runes where each chunk
// repeats the last overlap runes of the previous one. It does not look at
// word or sentence boundaries.
type Window struct {
	size    int
	overlap int
}

func NewWindow(size, overlap int) (*Window, error) {
	if err := validate(size, overlap); err != nil {
		return nil, err
	}
	return &Window{
		size:    size,
		overlap: overlap,
	}, nil
}

func validate(size, overlap int) error {
	if size < 1 {
		return fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return fmt.Errorf("chunk overlap must be in [0, %d), got %d", size, overlap)
	}
	return nil
}

// Split returns 1 chunk for texts up to the window size and
// 1 + ceil((L - size) / (size - overlap)) chunks for longer ones.
func (w *Window) Split(text string) []string {
	return splitRunes([]rune(text), w.size, w.overlap)
}

func splitRunes(runes []rune, size, overlap int) []string {
	if len(runes) == 0 {
		return nil
	}

	var (
		step   = size - overlap
		chunks = make([]string, 0, numChunks(len(runes), size, overlap))
	)
	for start := 0; ; start += step {
		end := min(start+size, len(runes))
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}

	return chunks
}

func numChunks(length, size, overlap int) int {
	if length <= size {
		return 1
	}
	step := size - overlap
	return 1 + (length-size+step-1)/step
}
