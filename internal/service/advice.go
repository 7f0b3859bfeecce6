package service

import (
	"context"
	"fmt"

	"ragindex/internal/domain"
	"ragindex/internal/generator"
)

// Advice is a generated answer together with the retrieval that grounded it.
type Advice struct {
	Query   string
	Answer  string
	Context string
	Sources []string
	Results []domain.SearchResult
}

// Advise retrieves context for query and asks the generator to answer from it.
func (e *Engine) Advise(ctx context.Context, query string, topK int) (*Advice, error) {
	c := e.current.Load()
	if c == nil {
		return nil, domain.ErrIndexNotReady
	}
	if e.generator == nil {
		return nil, fmt.Errorf("%w: no generator configured", domain.ErrConfiguration)
	}
	results, err := e.search(ctx, c, query, topK)
	if err != nil {
		return nil, err
	}
	block := e.format.Render(results)
	answer, err := e.generator.Generate(ctx, e.systemPrompt, generator.BuildPrompt(query, block))
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}
	e.logger.Info("answer generated", "generator", e.generator.Name(), "sources", len(results))
	return &Advice{
		Query:   query,
		Answer:  answer,
		Context: block,
		Sources: sources(results),
		Results: results,
	}, nil
}

// sources lists the distinct documents of results in rank order.
func sources(results []domain.SearchResult) []string {
	var out []string
	seen := map[string]bool{}
	for _, r := range results {
		if !seen[r.Document] {
			seen[r.Document] = true
			out = append(out, r.Document)
		}
	}
	return out
}
