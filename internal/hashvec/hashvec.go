// Package hashvec provides a deterministic local embedder based on feature
// hashing. Tokens are hashed into a fixed number of buckets and the resulting
// term-frequency vector is L2 normalized, so the same text always maps to the
// same unit vector without any model call or corpus preparation.
package hashvec

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"regexp"
	"strings"

	"github.com/cloo-solutions/finsight/internal/domain"
)

// DefaultDimension is the bucket count used when none is configured.
const DefaultDimension = 256

// Embedder hashes token frequencies into a fixed-width vector.
type Embedder struct {
	dim          int
	tokenPattern *regexp.Regexp
	stopwords    map[string]struct{}
}

// New creates an Embedder with the given dimension, falling back to
// DefaultDimension when dim is not positive.
func New(dim int) *Embedder {
	if dim <= 0 {
		dim = DefaultDimension
	}
	return &Embedder{
		dim:          dim,
		tokenPattern: regexp.MustCompile(`[\p{L}\p{N}]+(?:['’][\p{L}\p{N}]+)*`),
		stopwords:    defaultStopwords(),
	}
}

// Dimension returns the width of the produced vectors.
func (e *Embedder) Dimension() int { return e.dim }

// ModelName identifies this embedder in stored metadata.
func (e *Embedder) ModelName() string { return fmt.Sprintf("hashvec-%d", e.dim) }

// Embed vectorizes a batch of texts. The result preserves input order:
// vectors[i] belongs to texts[i]. A text that normalizes to nothing is an
// embedding error, not a zero vector.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vec, err := e.embedOne(text)
		if err != nil {
			return nil, fmt.Errorf("text %d: %w", i, err)
		}
		vectors[i] = vec
	}
	return vectors, nil
}

func (e *Embedder) embedOne(text string) ([]float32, error) {
	tokens := e.tokenize(text)
	if len(tokens) == 0 {
		return nil, fmt.Errorf("%w: empty after normalization", domain.ErrEmbedding)
	}

	counts := make([]float64, e.dim)
	for _, tok := range tokens {
		counts[e.bucket(tok)]++
	}

	var norm float64
	for _, v := range counts {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	vec := make([]float32, e.dim)
	for i, v := range counts {
		vec[i] = float32(v / norm)
	}
	return vec, nil
}

// tokenize lowercases the text, extracts word and number tokens and drops
// stopwords.
func (e *Embedder) tokenize(text string) []string {
	raw := e.tokenPattern.FindAllString(strings.ToLower(text), -1)
	tokens := raw[:0]
	for _, t := range raw {
		if _, stop := e.stopwords[t]; stop {
			continue
		}
		tokens = append(tokens, t)
	}
	return tokens
}

func (e *Embedder) bucket(token string) int {
	h := fnv.New64a()
	h.Write([]byte(token))
	return int(h.Sum64() % uint64(e.dim))
}

// defaultStopwords keeps the usual function words but deliberately leaves
// directional words (up, down, over, under) in: they carry signal in price
// summaries.
func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for",
		"to", "of", "in", "on", "at", "by", "with", "as", "is", "are",
		"was", "were", "be", "been", "being", "it", "this", "that", "these",
		"those", "from", "than", "so", "such", "into", "about", "between",
		"through", "during", "too", "very", "can", "will", "just", "now",
		"has", "have", "had",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
