package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"regexp"
	"strings"
)

// DefaultHashDimensions is the vector size of the hash provider.
const DefaultHashDimensions = 256

var tokenPattern = regexp.MustCompile(`\p{L}+|\p{N}+`)

// HashProvider is an offline provider that hashes lowercase word tokens into
// a fixed number of buckets and L2-normalizes the counts. Identical text
// always yields an identical vector.
type HashProvider struct {
	dimensions int
}

// NewHashProvider creates a HashProvider with the given dimensions.
func NewHashProvider(dims int) *HashProvider {
	if dims <= 0 {
		dims = DefaultHashDimensions
	}
	return &HashProvider{dimensions: dims}
}

// Embed hashes text into a vector. Text without tokens yields a zero vector.
func (p *HashProvider) Embed(ctx context.Context, text string) (Embedding, error) {
	if err := ctx.Err(); err != nil {
		return Embedding{}, err
	}

	counts := make([]float64, p.dimensions)
	for _, tok := range tokenPattern.FindAllString(strings.ToLower(text), -1) {
		h := fnv.New32a()
		h.Write([]byte(tok))
		counts[h.Sum32()%uint32(p.dimensions)]++
	}

	var norm float64
	for _, c := range counts {
		norm += c * c
	}
	norm = math.Sqrt(norm)

	vec := make([]float32, p.dimensions)
	if norm > 0 {
		for i, c := range counts {
			vec[i] = float32(c / norm)
		}
	}
	return Embedding{Vector: vec}, nil
}

// ModelName returns "hash".
func (p *HashProvider) ModelName() string {
	return ProviderHash
}

// Dimensions returns the vector size.
func (p *HashProvider) Dimensions() int {
	return p.dimensions
}
