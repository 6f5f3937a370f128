package memory

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"

	"noteflow/internal/services/rag"
)

// EmbeddingDims is the width of HashEmbedder vectors.
const EmbeddingDims = 256

// HashEmbedder maps each word to a bucket, giving a bag-of-words vector.
// It needs no network and is deterministic.
type HashEmbedder struct{}

func (HashEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec := make([]float32, EmbeddingDims)
		for _, w := range words(t) {
			h := fnv.New32a()
			_, _ = h.Write([]byte(w))
			vec[h.Sum32()%EmbeddingDims]++
		}
		out[i] = vec
	}
	return out, nil
}

// ExtractiveCompleter answers with the context sentences that share a word
// with the question, or with the fallback sentence when none do.
type ExtractiveCompleter struct{}

func (ExtractiveCompleter) Complete(_ context.Context, p rag.Prompt) (string, error) {
	if strings.TrimSpace(p.Context) == "" {
		return rag.FallbackAnswer, nil
	}

	asked := map[string]bool{}
	for _, w := range words(p.Question) {
		if len(w) >= 3 && !stopWords[w] {
			asked[w] = true
		}
	}

	var picked []string
	for _, s := range strings.FieldsFunc(p.Context, func(r rune) bool { return r == '.' || r == '\n' }) {
		s = strings.TrimSpace(s)
		for _, w := range words(s) {
			if asked[w] {
				picked = append(picked, s+".")
				break
			}
		}
	}
	if len(picked) == 0 {
		return rag.FallbackAnswer, nil
	}
	return strings.Join(picked, " "), nil
}

var stopWords = map[string]bool{
	"the": true, "and": true, "are": true, "was": true, "what": true, "who": true,
	"how": true, "why": true, "does": true, "for": true, "with": true, "this": true,
	"that": true, "from": true, "about": true, "note": true,
}

func words(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
