package docrag

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/flarexio/docrag/fault"
)

// ChunkText splits text into overlapping windows of chunkSize runes. Each
// window after the first starts overlap runes before the previous one ended,
// and the last window always ends at the end of the text.
func ChunkText(text string, chunkSize, overlap int) ([]Chunk, error) {
	if chunkSize <= 0 || overlap < 0 || chunkSize <= overlap {
		return nil, fmt.Errorf("%w: chunk size %d must be positive and greater than overlap %d",
			fault.ErrConfiguration, chunkSize, overlap)
	}

	runes := []rune(text)
	size := len(runes)

	chunks := make([]Chunk, 0)
	for start, idx := 0, 0; start < size; idx++ {
		end := min(start+chunkSize, size)

		chunks = append(chunks, Chunk{
			ID:    chunkID(idx),
			Text:  string(runes[start:end]),
			Start: start,
			End:   end,
			Index: idx,
		})

		if end == size {
			break
		}

		start = end - overlap
	}

	return chunks, nil
}

// chunkID carries a random suffix; nothing may order or compare by it.
func chunkID(idx int) string {
	id := uuid.New()
	return fmt.Sprintf("chunk_%d_%x", idx, id[:4])
}
