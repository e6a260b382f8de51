package index

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"

	"iptv-viewer/internal/channel"
)

// fold performs locale-neutral Unicode case folding, the comparison used
// for both search matching and alphabetical ordering.
var fold = cases.Fold()

// Index holds the derived lookup structures for one record set. All
// positions are offsets into the source-ordered record slice, so every
// query result comes back in source order for free.
type Index struct {
	records    []channel.Record
	byID       map[int64]int
	categories []channel.Category
	members    map[string][]int32
	foldedName []string
	alphaRank  []int32
	tokens     []string
	postings   map[string][]int32
}

// Build constructs the index for a source-ordered record set in a single
// pass plus one sort for the alphabetical permutation.
func Build(records []channel.Record) *Index {
	ix := &Index{
		records:  records,
		byID:     make(map[int64]int, len(records)),
		members:  make(map[string][]int32, 16),
		postings: make(map[string][]int32),
	}

	ix.foldedName = make([]string, len(records))

	for i := range records {
		rec := &records[i]
		pos := int32(i)

		ix.byID[rec.ID] = i

		if _, seen := ix.members[rec.GroupName]; !seen {
			ix.categories = append(ix.categories, channel.Category{Name: rec.GroupName})
		}
		ix.members[rec.GroupName] = append(ix.members[rec.GroupName], pos)

		ix.foldedName[i] = fold.String(rec.DisplayName)

		// Postings are appended in source order, so each list stays
		// sorted by position without an extra sort.
		seen := make(map[string]struct{}, 8)
		for _, tok := range tokenize(ix.foldedName[i]) {
			seen[tok] = struct{}{}
		}
		for _, tok := range tokenize(fold.String(rec.GroupName)) {
			seen[tok] = struct{}{}
		}
		for tok := range seen {
			ix.postings[tok] = append(ix.postings[tok], pos)
		}
	}

	for i := range ix.categories {
		cat := &ix.categories[i]
		positions := ix.members[cat.Name]
		cat.RecordIDs = make([]int64, len(positions))
		for j, pos := range positions {
			cat.RecordIDs[j] = records[pos].ID
		}
	}

	ix.tokens = make([]string, 0, len(ix.postings))
	for tok := range ix.postings {
		ix.tokens = append(ix.tokens, tok)
	}
	sort.Strings(ix.tokens)

	ix.buildAlphaRank()

	return ix
}

func (ix *Index) buildAlphaRank() {
	n := len(ix.records)
	order := make([]int32, n)
	for i := range order {
		order[i] = int32(i)
	}
	// Stable sort keeps source order as the tie-breaker.
	sort.SliceStable(order, func(a, b int) bool {
		return ix.foldedName[order[a]] < ix.foldedName[order[b]]
	})

	ix.alphaRank = make([]int32, n)
	for rank, pos := range order {
		ix.alphaRank[pos] = int32(rank)
	}
}

// Len returns the number of indexed records.
func (ix *Index) Len() int {
	return len(ix.records)
}

// At returns the record at a source position.
func (ix *Index) At(pos int32) channel.Record {
	return ix.records[pos]
}

// Record returns the record with the given id, if present.
func (ix *Index) Record(id int64) (channel.Record, bool) {
	pos, ok := ix.byID[id]
	if !ok {
		return channel.Record{}, false
	}
	return ix.records[pos], true
}

// Categories returns the derived categories in first-seen order. The
// union of all member lists covers every record exactly once.
func (ix *Index) Categories() []channel.Category {
	return ix.categories
}

// CategoryPositions returns the source positions of a category's members
// in first-seen order, or nil for an unknown category.
func (ix *Index) CategoryPositions(name string) []int32 {
	return ix.members[name]
}

// AlphaRank returns the alphabetical rank of a source position. Ranks
// are unique: folded display-name order with source-order ties.
func (ix *Index) AlphaRank(pos int32) int32 {
	return ix.alphaRank[pos]
}

// Search returns the source positions of records whose display name or
// group name contains every query token as a token prefix, matched
// case-insensitively. Results are in source order, never ranked.
func (ix *Index) Search(query string) []int32 {
	queryTokens := tokenize(fold.String(query))
	if len(queryTokens) == 0 {
		return ix.allPositions()
	}

	var matched []int32
	for i, qt := range queryTokens {
		positions := ix.prefixPositions(qt)
		if i == 0 {
			matched = positions
		} else {
			matched = intersect(matched, positions)
		}
		if len(matched) == 0 {
			return nil
		}
	}
	return matched
}

// prefixPositions unions the postings of every indexed token sharing the
// given prefix. The result is sorted by position with no duplicates.
func (ix *Index) prefixPositions(prefix string) []int32 {
	start := sort.SearchStrings(ix.tokens, prefix)

	var lists [][]int32
	for i := start; i < len(ix.tokens) && strings.HasPrefix(ix.tokens[i], prefix); i++ {
		lists = append(lists, ix.postings[ix.tokens[i]])
	}

	switch len(lists) {
	case 0:
		return nil
	case 1:
		return lists[0]
	}

	union := make(map[int32]struct{})
	for _, list := range lists {
		for _, pos := range list {
			union[pos] = struct{}{}
		}
	}
	out := make([]int32, 0, len(union))
	for pos := range union {
		out = append(out, pos)
	}
	sort.Slice(out, func(a, b int) bool { return out[a] < out[b] })
	return out
}

func (ix *Index) allPositions() []int32 {
	out := make([]int32, len(ix.records))
	for i := range out {
		out[i] = int32(i)
	}
	return out
}

// intersect merges two position lists sorted ascending.
func intersect(a, b []int32) []int32 {
	var out []int32
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			i++
		case a[i] > b[j]:
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	return out
}

// tokenize splits already-folded text into search tokens.
func tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
