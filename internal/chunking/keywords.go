package chunking

import (
	"regexp"
	"sort"
	"strings"
)

var nonWord = regexp.MustCompile(`[^a-z0-9]+`)

// ExtractKeywords returns the top-N most frequent words longer than three
// characters, lowercased and punctuation-stripped. Ties break
// lexicographically so the result is deterministic.
func ExtractKeywords(content string, n int) []string {
	counts := make(map[string]int)
	for _, tok := range nonWord.Split(strings.ToLower(content), -1) {
		if len(tok) > 3 {
			counts[tok]++
		}
	}
	if len(counts) == 0 {
		return nil
	}

	words := make([]string, 0, len(counts))
	for w := range counts {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		if counts[words[i]] != counts[words[j]] {
			return counts[words[i]] > counts[words[j]]
		}
		return words[i] < words[j]
	})

	if len(words) > n {
		words = words[:n]
	}
	return words
}
