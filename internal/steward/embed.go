package steward

import (
	"context"
	"hash/fnv"
	"math"
	"strings"

	"github.com/philippgille/chromem-go"
)

// embeddingDims is the fixed vector width of the hash-based fallback
// embedding. The Provider port has no embedding capability (spec.md §4.E's
// duck-typed surface is chat_completion/chat_completion_stream only), so
// candidate signals are embedded with a deterministic hashed-bag-of-words
// vector instead of a vendor embedding call.
const embeddingDims = 64

// hashEmbed is a chromem.EmbeddingFunc that hashes each whitespace token of
// text into a bucket of a fixed-width vector and L2-normalizes the result,
// giving cosine similarity a stable, dependency-free signal for clustering
// near-duplicate signal labels.
func hashEmbed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, embeddingDims)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(tok))
		vec[h.Sum32()%embeddingDims]++
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec, nil
	}
	norm = math.Sqrt(norm)
	for i, v := range vec {
		vec[i] = float32(float64(v) / norm)
	}
	return vec, nil
}

var _ chromem.EmbeddingFunc = hashEmbed
