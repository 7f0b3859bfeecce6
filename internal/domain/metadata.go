package domain

import "fmt"

// ValidateMetadata checks that every document in meta is covered exactly by
// positions 0..total-1 under a single total. Records of one document need not
// be adjacent. Failures wrap ErrMalformedChunks.
func ValidateMetadata(meta []ChunkMeta) error {
	type docState struct {
		total int
		seen  map[int]bool
		count int
	}
	docs := map[string]*docState{}
	var order []string
	for i, m := range meta {
		if m.Document == "" {
			return fmt.Errorf("%w: record %d has no document name", ErrMalformedChunks, i)
		}
		if m.ChunkIndex < 0 || m.ChunkIndex >= m.TotalChunks {
			return fmt.Errorf("%w: record %d has position %d of %d", ErrMalformedChunks, i, m.ChunkIndex, m.TotalChunks)
		}
		d, ok := docs[m.Document]
		if !ok {
			d = &docState{total: m.TotalChunks, seen: map[int]bool{}}
			docs[m.Document] = d
			order = append(order, m.Document)
		}
		if m.TotalChunks != d.total {
			return fmt.Errorf("%w: document %q has totals %d and %d", ErrMalformedChunks, m.Document, d.total, m.TotalChunks)
		}
		if d.seen[m.ChunkIndex] {
			return fmt.Errorf("%w: document %q repeats position %d", ErrMalformedChunks, m.Document, m.ChunkIndex)
		}
		d.seen[m.ChunkIndex] = true
		d.count++
	}
	for _, name := range order {
		if d := docs[name]; d.count != d.total {
			return fmt.Errorf("%w: document %q has %d of %d chunks", ErrMalformedChunks, name, d.count, d.total)
		}
	}
	return nil
}
