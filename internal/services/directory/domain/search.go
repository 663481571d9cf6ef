// Package domain holds the directory's ranking logic for free-text
// catalog lookups.
package domain

import (
	"sort"
	"strings"
	"unicode"
)

// Ranked pairs a candidate index with its relevance score.
type Ranked struct {
	Index int
	Score float64
}

// Tokenize lowercases text and splits it on every non-alphanumeric
// rune. Empty tokens are dropped.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return fields
}

// OverlapScore is the fraction of query tokens present in the document
// token set. A query with no tokens scores zero against everything.
func OverlapScore(queryTokens, docTokens []string) float64 {
	if len(queryTokens) == 0 {
		return 0
	}
	docSet := make(map[string]struct{}, len(docTokens))
	for _, tok := range docTokens {
		docSet[tok] = struct{}{}
	}
	matched := 0
	for _, tok := range queryTokens {
		if _, ok := docSet[tok]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(queryTokens))
}

// Rank scores every document against the query and returns up to limit
// results with a positive score, best first. Ties keep input order so
// ranking is deterministic.
func Rank(query string, docs []string, limit int) []Ranked {
	queryTokens := Tokenize(query)
	if len(queryTokens) == 0 || limit <= 0 {
		return nil
	}

	ranked := make([]Ranked, 0, len(docs))
	for i, doc := range docs {
		score := OverlapScore(queryTokens, Tokenize(doc))
		if score > 0 {
			ranked = append(ranked, Ranked{Index: i, Score: score})
		}
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].Score > ranked[b].Score
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
