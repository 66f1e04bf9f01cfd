package ai

import (
	"math"
	"strings"
	"unicode"
)

// CosineSimilarity calculates cosine similarity between two vectors.
// Mismatched lengths, empty input and zero vectors yield 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// MinKeywordLength is the exclusive lower bound on significant query words.
const MinKeywordLength = 2

// Keywords lowercases text, splits it on non-alphanumerics and keeps words
// longer than MinKeywordLength runes. Order is preserved, duplicates are dropped.
func Keywords(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	seen := make(map[string]bool, len(fields))
	words := make([]string, 0, len(fields))
	for _, f := range fields {
		if len([]rune(f)) <= MinKeywordLength || seen[f] {
			continue
		}
		seen[f] = true
		words = append(words, f)
	}
	return words
}
