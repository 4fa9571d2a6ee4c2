package embedding

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/flarexio/docrag/fault"
)

const DefaultDimension = 384

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

// emptyToken stands in for texts without a single letter or digit, so every
// text maps to a unit vector.
const emptyToken = "\x00empty"

// HashingModel embeds text with the hashing trick: every token is hashed
// into one of Dimension signed buckets and the result is L2-normalized.
// It needs no model files and is fully deterministic.
type HashingModel struct {
	dimension int
}

func NewHashingModel(dimension int) (*HashingModel, error) {
	if dimension == 0 {
		dimension = DefaultDimension
	}

	if dimension < 0 {
		return nil, fmt.Errorf("%w: invalid embedding dimension %d", fault.ErrConfiguration, dimension)
	}

	return &HashingModel{dimension}, nil
}

func (m *HashingModel) Dimension() int {
	return m.dimension
}

func (m *HashingModel) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vecs := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		vecs[i] = m.embed(text)
	}

	return vecs, nil
}

func (m *HashingModel) embed(text string) []float32 {
	vec := make([]float32, m.dimension)

	tokens := tokenPattern.FindAllString(strings.ToLower(text), -1)
	if len(tokens) == 0 {
		tokens = []string{emptyToken}
	}

	for _, tok := range tokens {
		h := xxhash.Sum64String(tok)

		bucket := h % uint64(m.dimension)
		if (h>>63)&1 == 1 {
			vec[bucket] -= 1
		} else {
			vec[bucket] += 1
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}

	if norm == 0 {
		return vec
	}

	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}

	return vec
}
