// Package channel defines the canonical in-memory representation of
// playlist data for the IPTV viewer.
//
// A Record is one channel entry from a playlist source. A Category is a
// derived grouping of records by their source group title, including the
// implicit default group for entries that carry none. A Snapshot bundles
// the full ordered record set, its derived categories, and any parse
// diagnostics; it is immutable after construction and is replaced
// wholesale when a source is reloaded.
package channel
