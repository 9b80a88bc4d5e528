package rag

import (
	"fmt"
	"strings"

	"github.com/askdoc-io/askdoc/internal/domain"
)

// buildPrompt assembles the generation prompt from the reranked context.
// Candidates are labeled by rank position so the model can cite them.
func buildPrompt(question string, sources []domain.Document) string {
	var b strings.Builder

	b.WriteString("You are a helpful assistant answering questions about uploaded documents.\n")
	b.WriteString("Answer strictly from the context below. ")
	b.WriteString("If the context does not contain the answer, say so explicitly. ")
	b.WriteString("Cite which document(s) informed your answer.\n\n")
	b.WriteString("Context:\n")

	for i, doc := range sources {
		fmt.Fprintf(&b, "[Document %d]\n%s\n\n", i+1, doc.Content)
	}

	b.WriteString("Question: ")
	b.WriteString(question)
	b.WriteString("\n\nAnswer:")

	return b.String()
}
