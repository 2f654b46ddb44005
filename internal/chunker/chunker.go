// Package chunker provides a sliding word-window text splitter.
package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"unicode"

	"github.com/google/uuid"

	"github.com/darkcube-team/cuby/internal/core/domain"
)

// Splitter cuts document text into overlapping word-window chunks.
// Windows are windowSize words long and advance by windowSize-overlap
// words, so consecutive chunks share exactly overlap words and no
// semantic boundary is lost between adjacent chunks.
type Splitter struct {
	windowSize int
	overlap    int
}

// New creates a Splitter. The parameters must satisfy
// 0 <= overlap < windowSize; anything else is rejected with
// domain.ErrInvalidConfig rather than silently clamped.
func New(windowSize, overlap int) (*Splitter, error) {
	if windowSize <= 0 {
		return nil, fmt.Errorf("%w: window size must be positive, got %d", domain.ErrInvalidConfig, windowSize)
	}
	if overlap < 0 || overlap >= windowSize {
		return nil, fmt.Errorf("%w: overlap must satisfy 0 <= overlap < window size, got overlap=%d window=%d",
			domain.ErrInvalidConfig, overlap, windowSize)
	}
	return &Splitter{windowSize: windowSize, overlap: overlap}, nil
}

// wordSpan is the byte range of one word within the source text.
type wordSpan struct {
	start int
	end   int
}

// Split cuts text into chunks owned by documentID. Chunks are produced
// in document order; empty or whitespace-only text produces none.
func (s *Splitter) Split(documentID, text string) []domain.Chunk {
	words := splitWords(text)
	if len(words) == 0 {
		return nil
	}

	step := s.windowSize - s.overlap
	estimated := (len(words) / step) + 1
	chunks := make([]domain.Chunk, 0, estimated)

	position := 0
	for start := 0; start < len(words); start += step {
		end := start + s.windowSize
		if end > len(words) {
			end = len(words)
		}

		first, last := words[start], words[end-1]
		content := text[first.start:last.end]

		chunks = append(chunks, domain.Chunk{
			ID:         uuid.New().String(),
			DocumentID: documentID,
			Position:   position,
			Content:    content,
			Start:      first.start,
			End:        last.end,
			StartWord:  start,
			EndWord:    end,
			Hash:       hashContent(content),
		})
		position++
	}

	return chunks
}

// WordCount returns the number of whitespace-separated words in text.
func WordCount(text string) int {
	return len(splitWords(text))
}

// splitWords scans text into word byte ranges. Words are maximal runs
// of non-space runes, matching strings.Fields boundaries.
func splitWords(text string) []wordSpan {
	var spans []wordSpan
	start := -1
	for i, r := range text {
		if unicode.IsSpace(r) {
			if start >= 0 {
				spans = append(spans, wordSpan{start: start, end: i})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		spans = append(spans, wordSpan{start: start, end: len(text)})
	}
	return spans
}

func hashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
