package docrag

import (
	"strings"

	"github.com/flarexio/docrag/vector"
)

const preamble = "You are a helpful assistant. Use the provided context to answer the question. Cite sources by [id].\n"

// BuildPrompt lays out the hits in retrieval order, each cut to
// ContextBudget runes, followed by the question.
func BuildPrompt(question string, hits []vector.Hit) string {
	parts := make([]string, 0, len(hits)+3)
	parts = append(parts, preamble)
	parts = append(parts, "CONTEXTS:\n")

	for _, hit := range hits {
		parts = append(parts, "["+hit.ID+"] "+truncate(hit.Payload.Text, ContextBudget)+"\n---\n")
	}

	parts = append(parts, "QUESTION:\n"+question+"\n\nAnswer:")

	return strings.Join(parts, "\n")
}

// Sources turns hits into caller-facing sources with short snippets.
func Sources(hits []vector.Hit) []Source {
	sources := make([]Source, len(hits))
	for i, hit := range hits {
		sources[i] = Source{
			ID:      hit.ID,
			Score:   hit.Score,
			FileID:  hit.Payload.FileID,
			Index:   hit.Payload.Index,
			Snippet: Snippet(hit.Payload.Text),
		}
	}

	return sources
}

// Snippet keeps the first SnippetLength runes of text on a single line.
func Snippet(text string) string {
	return strings.ReplaceAll(truncate(text, SnippetLength), "\n", " ")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}

	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}

		count++
	}

	return s
}
