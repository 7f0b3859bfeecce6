package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragindex/internal/domain"
)

func TestSplit_ShortTextIsOneNormalisedChunk(t *testing.T) {
	c := NewCharChunker(100, 20)
	text := "  Hello   world.\n This is  a\ttest! "

	chunks := c.Split(text)

	require.Len(t, chunks, 1)
	assert.Equal(t, strings.Join(strings.Fields(text), " "), chunks[0])
}

func TestSplit_BengaliSentenceMarks(t *testing.T) {
	text := "আমি ভাত খাই। তুমি কি খাও? সে বই পড়ে৷ শেষ॥"

	sentences := Sentences(text)
	assert.Equal(t, []string{"আমি ভাত খাই।", "তুমি কি খাও?", "সে বই পড়ে৷", "শেষ॥"}, sentences)

	chunks := NewCharChunker(1000, 200).Split(text)
	require.Len(t, chunks, 1)
	assert.Equal(t, text, chunks[0])
}

func TestSplit_EmitsWhenBudgetExceeded(t *testing.T) {
	c := NewCharChunker(20, 0)

	chunks := c.Split("Alpha beta gamma. Delta epsilon zeta. Eta theta.")

	assert.Equal(t, []string{"Alpha beta gamma.", "Delta epsilon zeta.", "Eta theta."}, chunks)
}

func TestSplit_SeedsOverlapWords(t *testing.T) {
	// overlap 20 carries the last two words into the next chunk
	c := NewCharChunker(20, 20)

	chunks := c.Split("Alpha beta gamma. Delta epsilon zeta. Eta theta.")

	assert.Equal(t, []string{
		"Alpha beta gamma.",
		"beta gamma. Delta epsilon zeta.",
		"epsilon zeta. Eta theta.",
	}, chunks)
}

func TestSplit_OversizedSentenceIsNotTruncated(t *testing.T) {
	long := "This sentence is definitely longer than ten characters."
	c := NewCharChunker(10, 0)

	chunks := c.Split("Short. " + long)

	require.Len(t, chunks, 2)
	assert.Equal(t, "Short.", chunks[0])
	assert.Equal(t, long, chunks[1])
}

func TestSplit_EmptyInput(t *testing.T) {
	assert.Empty(t, NewCharChunker(100, 10).Split(""))
	assert.Empty(t, NewCharChunker(100, 10).Split(" \n\t "))
}

func TestSentences_KeepsDecimalsAndTerminatorRuns(t *testing.T) {
	assert.Equal(t, []string{"Section 4.5 applies.", "Next."}, Sentences("Section 4.5 applies. Next."))
	assert.Equal(t, []string{"Really?!", "Yes."}, Sentences("Really?!  Yes."))
	assert.Equal(t, []string{"no terminator here"}, Sentences("no terminator   here"))
}

func TestChunk_TagsPositions(t *testing.T) {
	c := NewCharChunker(20, 0)
	doc := domain.Document{Name: "penal-code", Content: "Alpha beta gamma. Delta epsilon zeta. Eta theta."}

	chunks := c.Chunk(doc)

	require.Len(t, chunks, 3)
	for i, ch := range chunks {
		assert.Equal(t, "penal-code", ch.Document)
		assert.Equal(t, i, ch.Index)
		assert.Equal(t, 3, ch.Total)
	}
	assert.Equal(t, domain.ChunkMeta{Document: "penal-code", ChunkIndex: 1, TotalChunks: 3}, chunks[1].Meta())
}

func TestSplit_Deterministic(t *testing.T) {
	c := NewCharChunker(30, 40)
	text := strings.Repeat("One two three four five. Six seven eight nine ten! ", 20)

	assert.Equal(t, c.Split(text), c.Split(text))
}

func TestNewCharChunker_Defaults(t *testing.T) {
	c := NewCharChunker(0, -5)

	assert.Equal(t, DefaultChunkSize, c.chunkSize)
	assert.Equal(t, 0, c.overlap)
}
