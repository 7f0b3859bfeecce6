package chunker

import (
	"strings"
	"unicode/utf8"

	"ragindex/internal/domain"
)

const (
	DefaultChunkSize = 1000
	DefaultOverlap   = 200
)

// CharChunker accumulates sentences into chunks bounded by a character budget.
// Each new chunk is seeded with the trailing overlap/10 words of the chunk
// just emitted. A sentence longer than the budget becomes its own oversized
// chunk; text is never truncated.
type CharChunker struct {
	chunkSize int
	overlap   int
}

func NewCharChunker(chunkSize, overlap int) *CharChunker {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	return &CharChunker{chunkSize: chunkSize, overlap: overlap}
}

// Chunk splits the document content and tags every chunk with the document
// name, its 0-based position and the total chunk count.
func (c *CharChunker) Chunk(document domain.Document) []domain.Chunk {
	texts := c.Split(document.Content)
	chunks := make([]domain.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = domain.Chunk{
			Document: document.Name,
			Index:    i,
			Total:    len(texts),
			Text:     text,
		}
	}
	return chunks
}

// Split returns the ordered chunk texts for text. Lengths are counted in runes.
func (c *CharChunker) Split(text string) []string {
	var chunks []string
	var current string
	currentLen := 0
	for _, sentence := range Sentences(text) {
		sentenceLen := utf8.RuneCountInString(sentence)
		if current != "" && currentLen+1+sentenceLen > c.chunkSize {
			chunks = append(chunks, current)
			if seed := tailWords(current, c.overlap/10); seed != "" {
				current = seed + " " + sentence
			} else {
				current = sentence
			}
		} else if current == "" {
			current = sentence
		} else {
			current += " " + sentence
		}
		currentLen = utf8.RuneCountInString(current)
	}
	if current != "" {
		chunks = append(chunks, current)
	}
	return chunks
}

// tailWords returns the last n words of s, or all of s when it has n words or fewer.
func tailWords(s string, n int) string {
	if n <= 0 {
		return ""
	}
	words := strings.Fields(s)
	if len(words) > n {
		words = words[len(words)-n:]
	}
	return strings.Join(words, " ")
}
