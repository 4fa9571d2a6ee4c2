package docrag

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/flarexio/docrag/vector"
)

func testHits() []vector.Hit {
	return []vector.Hit{
		{
			ID:    "p-2",
			Score: 0.9,
			Payload: vector.Payload{
				Text:    "second\nline " + strings.Repeat("x", 1200),
				FileID:  "file-a",
				ChunkID: "chunk_1_aaaaaaaa",
				Index:   1,
			},
		},
		{
			ID:    "p-1",
			Score: 0.5,
			Payload: vector.Payload{
				Text:    "first",
				FileID:  "file-a",
				ChunkID: "chunk_0_aaaaaaaa",
				Index:   0,
			},
		},
	}
}

func TestBuildPrompt(t *testing.T) {
	assert := assert.New(t)

	hits := testHits()
	prompt := BuildPrompt("What is it?", hits)

	assert.True(strings.HasPrefix(prompt, "You are a helpful assistant."))
	assert.Contains(prompt, "Cite sources by [id].")
	assert.True(strings.HasSuffix(prompt, "QUESTION:\nWhat is it?\n\nAnswer:"))

	second := strings.Index(prompt, "[p-2] ")
	first := strings.Index(prompt, "[p-1] first\n---\n")
	assert.Greater(second, 0)
	assert.Greater(first, second)

	// Context items are cut to the budget.
	assert.NotContains(prompt, strings.Repeat("x", 1200))
	assert.Contains(prompt, strings.Repeat("x", ContextBudget-len("second\nline ")))

	assert.Equal(prompt, BuildPrompt("What is it?", hits))
}

func TestBuildPromptNoHits(t *testing.T) {
	assert := assert.New(t)

	prompt := BuildPrompt("q", nil)
	assert.Equal(preamble+"\nCONTEXTS:\n\nQUESTION:\nq\n\nAnswer:", prompt)
}

func TestSources(t *testing.T) {
	assert := assert.New(t)

	sources := Sources(testHits())
	if !assert.Len(sources, 2) {
		return
	}

	assert.Equal("p-2", sources[0].ID)
	assert.Equal(float32(0.9), sources[0].Score)
	assert.Equal("file-a", sources[0].FileID)
	assert.Equal(1, sources[0].Index)
	assert.Len(sources[0].Snippet, SnippetLength)
	assert.NotContains(sources[0].Snippet, "\n")
	assert.True(strings.HasPrefix(sources[0].Snippet, "second line "))

	assert.Equal("first", sources[1].Snippet)
}

func TestSnippetRunes(t *testing.T) {
	assert := assert.New(t)

	snippet := Snippet(strings.Repeat("é", 500))
	assert.Equal(SnippetLength, len([]rune(snippet)))
}
