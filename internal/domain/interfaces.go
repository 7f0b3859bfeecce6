package domain

// Document is a named source after text extraction. Pages keep the page
// boundaries reported by the extractor; Content is the cleaned text used for
// chunking.
type Document struct {
	Name    string
	Path    string
	Pages   []string
	Content string
}

// Chunk is a contiguous slice of one document's text, the unit of retrieval.
type Chunk struct {
	Document string
	Index    int
	Total    int
	Text     string
}

// Meta returns the per-chunk metadata persisted alongside the index.
func (c Chunk) Meta() ChunkMeta {
	return ChunkMeta{Document: c.Document, ChunkIndex: c.Index, TotalChunks: c.Total}
}

// ChunkMeta is the ordered metadata record stored for every indexed chunk.
type ChunkMeta struct {
	Document    string `json:"document"`
	ChunkIndex  int    `json:"chunk_index"`
	TotalChunks int    `json:"total_chunks"`
}

// SearchResult is one ranked hit returned to callers.
type SearchResult struct {
	Rank       int     `json:"rank"`
	Score      float64 `json:"score"`
	Text       string  `json:"text"`
	Document   string  `json:"document"`
	ChunkIndex int     `json:"chunk_index"`
}

// Chunker splits documents into chunks suitable for retrieval indexing.
type Chunker interface {
	Chunk(document Document) []Chunk
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}
