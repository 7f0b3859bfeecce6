package service

import (
	"context"
	"fmt"
	"math"
	"strings"

	"ragindex/internal/domain"
)

// ContextFormat controls how ContextForQuery labels each block. Zero fields
// take the Bengali defaults.
type ContextFormat struct {
	PartLabel  string
	ScoreLabel string
	Empty      string
}

const (
	defaultPartLabel  = "অংশ"
	defaultScoreLabel = "সম্পর্ক"
	// DefaultNoContext is returned by ContextForQuery when nothing matched.
	DefaultNoContext = "কোনো প্রাসঙ্গিক তথ্য পাওয়া যায়নি।"
)

func (f ContextFormat) withDefaults() ContextFormat {
	if f.PartLabel == "" {
		f.PartLabel = defaultPartLabel
	}
	if f.ScoreLabel == "" {
		f.ScoreLabel = defaultScoreLabel
	}
	if f.Empty == "" {
		f.Empty = DefaultNoContext
	}
	return f
}

// Search embeds query and returns up to topK chunks by descending cosine
// similarity. Before any build or load it returns no results and no error.
func (e *Engine) Search(ctx context.Context, query string, topK int) ([]domain.SearchResult, error) {
	c := e.current.Load()
	if c == nil {
		e.logger.Debug("search on empty index", "err", domain.ErrIndexNotReady)
		return nil, nil
	}
	return e.search(ctx, c, query, topK)
}

func (e *Engine) search(ctx context.Context, c *corpus, query string, topK int) ([]domain.SearchResult, error) {
	if topK <= 0 {
		return nil, nil
	}
	vecs, err := e.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embed query: got %d vectors", len(vecs))
	}
	hits, err := c.index.Search(vecs[0], topK)
	if err != nil {
		return nil, err
	}
	out := make([]domain.SearchResult, len(hits))
	for i, h := range hits {
		m := c.meta[h.Ordinal]
		out[i] = domain.SearchResult{
			Rank:       i + 1,
			Score:      h.Score,
			Text:       c.texts[h.Ordinal],
			Document:   m.Document,
			ChunkIndex: m.ChunkIndex,
		}
	}
	return out, nil
}

// SearchByDocument runs a global search for topK times the over-fetch factor
// and keeps the first topK hits from document. Results keep their global
// rank.
func (e *Engine) SearchByDocument(ctx context.Context, document, query string, topK int) ([]domain.SearchResult, error) {
	c := e.current.Load()
	if c == nil || topK <= 0 {
		return nil, nil
	}
	k := math.MaxInt
	if topK <= math.MaxInt/e.overfetch {
		k = topK * e.overfetch
	}
	all, err := e.search(ctx, c, query, k)
	if err != nil {
		return nil, err
	}
	out := make([]domain.SearchResult, 0, min(topK, len(all)))
	for _, r := range all {
		if r.Document != document {
			continue
		}
		out = append(out, r)
		if len(out) == topK {
			break
		}
	}
	return out, nil
}

// DocumentInfo returns the number of indexed chunks per document.
func (e *Engine) DocumentInfo() map[string]int {
	info := map[string]int{}
	c := e.current.Load()
	if c == nil {
		return info
	}
	for _, m := range c.meta {
		info[m.Document]++
	}
	return info
}

// Documents returns document names in index order.
func (e *Engine) Documents() []string {
	c := e.current.Load()
	if c == nil {
		return nil
	}
	var names []string
	seen := map[string]bool{}
	for _, m := range c.meta {
		if !seen[m.Document] {
			seen[m.Document] = true
			names = append(names, m.Document)
		}
	}
	return names
}

// ContextForQuery renders the top hits as labelled blocks in rank order for
// use in a generation prompt.
func (e *Engine) ContextForQuery(ctx context.Context, query string, topK int) (string, error) {
	results, err := e.Search(ctx, query, topK)
	if err != nil {
		return "", err
	}
	return e.format.Render(results), nil
}

// Render formats results, or returns the Empty placeholder when there are none.
func (f ContextFormat) Render(results []domain.SearchResult) string {
	f = f.withDefaults()
	if len(results) == 0 {
		return f.Empty
	}
	parts := make([]string, len(results))
	for i, r := range results {
		parts[i] = fmt.Sprintf("\n=== %s (%s %d) [%s: %.3f] ===\n%s\n",
			r.Document, f.PartLabel, r.ChunkIndex+1, f.ScoreLabel, r.Score, r.Text)
	}
	return strings.Join(parts, "\n")
}
