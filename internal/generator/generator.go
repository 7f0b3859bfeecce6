// Package generator defines the text-generation boundary used to answer
// questions from retrieved context.
package generator

import (
	"context"
	"fmt"
	"strings"
)

// Generator produces a completion for a system instruction and a user prompt.
type Generator interface {
	Name() string
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// DefaultSystemPrompt instructs the model to stay within the supplied context.
const DefaultSystemPrompt = "You are a careful legal research assistant. Answer only from the provided " +
	"context, cite the document name for every claim and say so when the context does not cover the question."

// NoContext is placed in the prompt when retrieval found nothing.
const NoContext = "No specific relevant information was found."

// BuildPrompt lays out the retrieved context and the question.
func BuildPrompt(query, context string) string {
	if strings.TrimSpace(context) == "" {
		context = NoContext
	}
	return fmt.Sprintf("=== Relevant context ===\n%s\n\n=== Question ===\n%s\n\n=== Answer ===\n", context, query)
}
