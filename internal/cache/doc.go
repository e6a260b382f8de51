// Package cache persists parsed playlist snapshots so that re-opening a
// large, unchanged source is near-instant.
//
// Snapshots are keyed by content fingerprint, not by file path: a changed
// source under the same path misses, a renamed-but-identical source hits.
// The on-disk format is versioned; rows written by an incompatible
// version, or rows that no longer decode, are treated as misses and
// removed. Retention is bounded, evicting the oldest snapshots first.
// Caching is strictly a performance optimization: every failure mode
// degrades to "re-parse", never to an error for the caller.
package cache
