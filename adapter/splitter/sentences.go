package splitter

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/english"
)

// Sentences packs whole sentences into chunks of at most size runes. Each
// chunk starts with the trailing sentences of the previous chunk that fit
// into overlap runes. A sentence longer than size is split like Window does.
type Sentences struct {
	tokenizer *sentences.DefaultSentenceTokenizer
	size      int
	overlap   int
}

func NewSentences(size, overlap int) (*Sentences, error) {
	if err := validate(size, overlap); err != nil {
		return nil, err
	}
	tokenizer, err := english.NewSentenceTokenizer(nil)
	if err != nil {
		return nil, fmt.Errorf("error loading sentence tokenizer: %w", err)
	}
	return &Sentences{
		tokenizer: tokenizer,
		size:      size,
		overlap:   overlap,
	}, nil
}

func (s *Sentences) Split(text string) []string {
	var (
		chunks  []string
		window  []string
		pending bool // window holds a sentence not emitted yet
	)

	for _, aSentence := range s.tokenizer.Tokenize(text) {
		sentence := strings.TrimSpace(aSentence.Text)
		if sentence == "" {
			continue
		}

		if utf8.RuneCountInString(sentence) > s.size {
			if pending {
				chunks = append(chunks, strings.Join(window, " "))
			}
			chunks = append(chunks, splitRunes([]rune(sentence), s.size, s.overlap)...)
			window, pending = nil, false
			continue
		}

		if len(window) > 0 && joinedLen(append(window, sentence)) > s.size {
			chunks = append(chunks, strings.Join(window, " "))
			window = s.tail(window)
			for len(window) > 0 && joinedLen(append(window, sentence)) > s.size {
				window = window[1:]
			}
		}

		window = append(window, sentence)
		pending = true
	}

	if pending {
		chunks = append(chunks, strings.Join(window, " "))
	}

	return chunks
}

// tail returns the trailing sentences which together fit into the overlap.
func (s *Sentences) tail(window []string) []string {
	i := len(window)
	for i > 0 && joinedLen(window[i-1:]) <= s.overlap {
		i--
	}
	return append([]string(nil), window[i:]...)
}

func joinedLen(parts []string) int {
	if len(parts) == 0 {
		return 0
	}
	n := len(parts) - 1
	for _, sentence := range parts {
		n += utf8.RuneCountInString(sentence)
	}
	return n
}
