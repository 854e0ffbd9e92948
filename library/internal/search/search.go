// Package search ranks catalog books by how closely a title word matches a query.
package search

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/Astemirdum/library-desk/library/internal/model"
	"github.com/Astemirdum/library-desk/pkg/levenshtein"
)

const (
	minThreshold   = 2
	thresholdRatio = 0.4
)

// Match is a book whose title contains a word close enough to the query.
type Match struct {
	BookID   int
	Distance int
	Token    string
}

// Titles returns the ids of matching books, closest first.
func Titles(query string, books []model.Book) []int {
	matches := Rank(query, books)
	ids := make([]int, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.BookID)
	}
	return ids
}

// Rank scores every book against query. A book matches when the title word
// with the smallest edit distance is within that word's own threshold.
// Equal distances keep catalog order.
func Rank(query string, books []model.Book) []Match {
	query = normalize(query)
	if query == "" {
		return []Match{}
	}

	matches := make([]Match, 0)
	for _, b := range books {
		if m, ok := score(query, b); ok {
			matches = append(matches, m)
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})
	return matches
}

// Threshold is the largest distance accepted for a title word of the given length.
func Threshold(token string) int {
	t := int(float64(utf8.RuneCountInString(token)) * thresholdRatio)
	if t < minThreshold {
		return minThreshold
	}
	return t
}

func score(query string, b model.Book) (Match, bool) {
	best := Match{BookID: b.ID, Distance: -1}
	matched := false
	for _, token := range strings.Fields(normalize(b.Title)) {
		d := levenshtein.Distance(query, token)
		within := d <= Threshold(token)
		switch {
		case best.Distance < 0 || d < best.Distance:
			best.Distance, best.Token, matched = d, token, within
		case d == best.Distance && within && !matched:
			// a tied word with a looser threshold still admits the book
			best.Token, matched = token, true
		}
	}
	return best, matched
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
