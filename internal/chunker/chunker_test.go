package chunker

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/darkcube-team/cuby/internal/core/domain"
)

// wordText builds a text of n distinct words: "w0 w1 w2 ...".
func wordText(n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(words, " ")
}

func TestNew(t *testing.T) {
	t.Run("valid parameters", func(t *testing.T) {
		s, err := New(800, 200)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if s.windowSize != 800 || s.overlap != 200 {
			t.Errorf("unexpected parameters: window=%d overlap=%d", s.windowSize, s.overlap)
		}
	})

	t.Run("zero overlap allowed", func(t *testing.T) {
		if _, err := New(100, 0); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("overlap equal to window rejected", func(t *testing.T) {
		_, err := New(100, 100)
		if !errors.Is(err, domain.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("overlap above window rejected", func(t *testing.T) {
		_, err := New(100, 150)
		if !errors.Is(err, domain.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("negative overlap rejected", func(t *testing.T) {
		_, err := New(100, -1)
		if !errors.Is(err, domain.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("zero window rejected", func(t *testing.T) {
		_, err := New(0, 0)
		if !errors.Is(err, domain.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})
}

func TestSplitter_Split_Empty(t *testing.T) {
	s, _ := New(800, 200)

	if chunks := s.Split("doc", ""); len(chunks) != 0 {
		t.Errorf("expected 0 chunks for empty text, got %d", len(chunks))
	}
	if chunks := s.Split("doc", "   \n\t  "); len(chunks) != 0 {
		t.Errorf("expected 0 chunks for whitespace text, got %d", len(chunks))
	}
}

func TestSplitter_Split_SmallText(t *testing.T) {
	s, _ := New(100, 20)
	text := "This is a small piece of content."

	chunks := s.Split("doc", text)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk for small text, got %d", len(chunks))
	}

	c := chunks[0]
	if c.DocumentID != "doc" {
		t.Errorf("expected DocumentID 'doc', got %q", c.DocumentID)
	}
	if c.Content != text {
		t.Errorf("expected chunk content to match text, got %q", c.Content)
	}
	if c.Position != 0 {
		t.Errorf("expected position 0, got %d", c.Position)
	}
	if c.StartWord != 0 || c.EndWord != 7 {
		t.Errorf("unexpected word range [%d,%d)", c.StartWord, c.EndWord)
	}
	if c.Hash == "" {
		t.Error("expected content hash to be set")
	}
}

// A 2,000-word document with window 800 and overlap 200 must produce
// 4 chunks starting at words 0, 600, 1200 and 1800.
func TestSplitter_Split_WindowScenario(t *testing.T) {
	s, _ := New(800, 200)
	text := wordText(2000)

	chunks := s.Split("doc", text)
	if len(chunks) != 4 {
		t.Fatalf("expected 4 chunks, got %d", len(chunks))
	}

	wantStarts := []int{0, 600, 1200, 1800}
	wantEnds := []int{800, 1400, 2000, 2000}
	for i, c := range chunks {
		if c.StartWord != wantStarts[i] {
			t.Errorf("chunk %d: expected start word %d, got %d", i, wantStarts[i], c.StartWord)
		}
		if c.EndWord != wantEnds[i] {
			t.Errorf("chunk %d: expected end word %d, got %d", i, wantEnds[i], c.EndWord)
		}
		if c.Position != i {
			t.Errorf("chunk %d: expected position %d, got %d", i, i, c.Position)
		}
	}
}

// For all valid parameters, consecutive chunks overlap by exactly the
// configured overlap and every word is covered by some chunk.
func TestSplitter_Split_OverlapAndCoverage(t *testing.T) {
	cases := []struct {
		name    string
		window  int
		overlap int
		words   int
	}{
		{"no overlap", 10, 0, 95},
		{"small overlap", 10, 3, 100},
		{"half overlap", 50, 25, 500},
		{"default parameters", 800, 200, 2000},
		{"single window", 100, 20, 40},
		{"exact multiple", 10, 5, 20},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, err := New(tc.window, tc.overlap)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			chunks := s.Split("doc", wordText(tc.words))
			if len(chunks) == 0 {
				t.Fatal("expected at least one chunk")
			}

			covered := make([]bool, tc.words)
			for _, c := range chunks {
				for w := c.StartWord; w < c.EndWord; w++ {
					covered[w] = true
				}
			}
			for w, ok := range covered {
				if !ok {
					t.Fatalf("word %d not covered by any chunk", w)
				}
			}

			for i := 1; i < len(chunks); i++ {
				prev, cur := chunks[i-1], chunks[i]
				if cur.StartWord > prev.EndWord {
					t.Fatalf("gap between chunk %d and %d", i-1, i)
				}
				// Inner windows share exactly overlap words; the final
				// window may be short and overlap more.
				shared := prev.EndWord - cur.StartWord
				if cur.EndWord-cur.StartWord == tc.window && shared != tc.overlap {
					t.Errorf("chunks %d/%d share %d words, expected %d", i-1, i, shared, tc.overlap)
				}
			}
		})
	}
}

func TestSplitter_Split_CharacterOffsets(t *testing.T) {
	s, _ := New(4, 1)
	text := "alpha beta  gamma\ndelta epsilon zeta"

	chunks := s.Split("doc", text)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}

	for i, c := range chunks {
		if got := text[c.Start:c.End]; got != c.Content {
			t.Errorf("chunk %d: offsets [%d,%d) select %q, content is %q", i, c.Start, c.End, got, c.Content)
		}
	}

	if chunks[0].Content != "alpha beta  gamma\ndelta" {
		t.Errorf("unexpected first chunk content: %q", chunks[0].Content)
	}
	if chunks[1].Content != "delta epsilon zeta" {
		t.Errorf("unexpected second chunk content: %q", chunks[1].Content)
	}
}

func TestSplitter_Split_DeterministicHash(t *testing.T) {
	s, _ := New(10, 2)
	text := wordText(25)

	a := s.Split("doc-a", text)
	b := s.Split("doc-b", text)
	if len(a) != len(b) {
		t.Fatalf("chunk counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].Hash != b[i].Hash {
			t.Errorf("chunk %d: hash differs for identical content", i)
		}
		if a[i].ID == b[i].ID {
			t.Errorf("chunk %d: IDs should be unique per split", i)
		}
	}
}

func TestWordCount(t *testing.T) {
	cases := []struct {
		text string
		want int
	}{
		{"", 0},
		{"   ", 0},
		{"one", 1},
		{"one two\tthree\nfour", 4},
		{wordText(2000), 2000},
	}
	for _, tc := range cases {
		if got := WordCount(tc.text); got != tc.want {
			t.Errorf("WordCount(%q) = %d, want %d", tc.text, got, tc.want)
		}
	}
}
