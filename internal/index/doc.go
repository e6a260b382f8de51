// Package index builds the derived lookup structures for one snapshot:
// category groupings in first-seen order, a case-folded token-prefix
// search index over display and group names, and a precomputed
// alphabetical permutation. The index is rebuilt wholesale whenever the
// record set changes identity and never mutates the records it covers.
package index
