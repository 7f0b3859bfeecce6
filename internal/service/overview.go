package service

import (
	"slices"
	"strings"
	"unicode/utf8"
)

// DocumentOverview describes one indexed document.
type DocumentOverview struct {
	Name           string
	ChunkCount     int
	TotalLength    int
	AvgChunkLength int
	Summary        string
}

// Overview reports per-document statistics in index order. Lengths count
// characters and include overlap. When a summarizer is configured each
// document also gets an extractive summary of at most maxSentences sentences,
// computed over the chunks in position order with the words each chunk
// repeats from its predecessor removed.
func (e *Engine) Overview(maxSentences int) ([]DocumentOverview, error) {
	c := e.current.Load()
	if c == nil {
		return nil, nil
	}
	byName := map[string]*DocumentOverview{}
	texts := map[string][]string{}
	var order []string
	for i, m := range c.meta {
		o, ok := byName[m.Document]
		if !ok {
			o = &DocumentOverview{Name: m.Document}
			byName[m.Document] = o
			order = append(order, m.Document)
		}
		o.ChunkCount++
		o.TotalLength += utf8.RuneCountInString(c.texts[i])
		if texts[m.Document] == nil {
			texts[m.Document] = make([]string, m.TotalChunks)
		}
		texts[m.Document][m.ChunkIndex] = c.texts[i]
	}
	out := make([]DocumentOverview, 0, len(order))
	for _, name := range order {
		o := byName[name]
		o.AvgChunkLength = o.TotalLength / o.ChunkCount
		if e.summarizer != nil {
			summary, err := e.summarizer.Summarize(joinChunks(texts[name]), maxSentences)
			if err != nil {
				return nil, err
			}
			o.Summary = summary
		}
		out = append(out, *o)
	}
	return out, nil
}

// joinChunks concatenates consecutive chunks, dropping from each the longest
// run of leading words that repeats the tail of the previous chunk.
func joinChunks(chunks []string) string {
	var out []string
	var prev []string
	for _, text := range chunks {
		words := strings.Fields(text)
		out = append(out, words[carried(prev, words):]...)
		prev = words
	}
	return strings.Join(out, " ")
}

func carried(prev, cur []string) int {
	for n := min(len(prev), len(cur)); n > 0; n-- {
		if slices.Equal(prev[len(prev)-n:], cur[:n]) {
			return n
		}
	}
	return 0
}
