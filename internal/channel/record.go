package channel

import (
	"strings"
	"time"
)

// DefaultGroup is the category assigned to records whose source entry
// carries no group information.
const DefaultGroup = "Uncategorized"

// SortOrder selects the ordering of windowed reads.
type SortOrder string

const (
	// SortSource preserves the original order of appearance in the playlist.
	SortSource SortOrder = "source"
	// SortAlphabetical orders by display name, case-insensitively, with
	// ties broken by source order.
	SortAlphabetical SortOrder = "alpha"
)

// ParseSortOrder maps a user-supplied string to a SortOrder, defaulting
// to source order for anything unrecognized.
func ParseSortOrder(s string) SortOrder {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "alpha", "alphabetical", "name":
		return SortAlphabetical
	default:
		return SortSource
	}
}

// Reason identifies why a playlist entry was skipped during parsing.
type Reason string

const (
	// ReasonMissingURI marks a metadata directive with no following stream URI.
	ReasonMissingURI Reason = "missing_uri"
	// ReasonMalformedDirective marks an unparseable directive line, or a
	// stream URI with no preceding directive.
	ReasonMalformedDirective Reason = "malformed_directive"
	// ReasonEncodingError marks an entry whose text could not be decoded.
	ReasonEncodingError Reason = "encoding_error"
)

// Record is one channel entry from a playlist source.
//
// The ID is assigned at parse time, is unique within the snapshot, and is
// never mutated. Records sharing a stream URI are distinct entries;
// duplicates are preserved, never merged.
type Record struct {
	ID          int64             `json:"id"`
	DisplayName string            `json:"displayName"`
	StreamURI   string            `json:"streamUri"`
	GroupName   string            `json:"groupName"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	SourceLine  int               `json:"sourceLine"`
}

// Attr returns the attribute value for key, matching case-insensitively.
// Attribute keys are lower-cased at parse time, so the lookup folds the
// caller's key the same way.
func (r *Record) Attr(key string) string {
	return r.Attributes[strings.ToLower(key)]
}

// Category is a derived grouping of records. RecordIDs holds member ids
// in first-seen source order.
type Category struct {
	Name      string  `json:"name"`
	RecordIDs []int64 `json:"recordIds"`
}

// Diagnostic describes one skipped or malformed playlist entry.
type Diagnostic struct {
	SourceLine int    `json:"sourceLine"`
	Reason     Reason `json:"reason"`
	Detail     string `json:"detail,omitempty"`
}

// Snapshot is the immutable result of one parse or one cache hit.
// The two are interchangeable: a cache hit reconstructs records,
// categories, and diagnostics exactly as a fresh parse would.
type Snapshot struct {
	Fingerprint string       `json:"fingerprint"`
	Records     []Record     `json:"records"`
	Categories  []Category   `json:"categories"`
	ParsedAt    time.Time    `json:"parsedAt"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

// Filter narrows the visible record set. An empty Category selects all
// categories; an empty Search matches every record; FavoritesOnly
// restricts the result to favorited channels. All conditions are
// conjunctive.
type Filter struct {
	Category      string `json:"category"`
	Search        string `json:"search"`
	FavoritesOnly bool   `json:"favoritesOnly"`
}

// ViewState captures the ephemeral read configuration of a windowed view.
// It is never persisted.
type ViewState struct {
	Filter       Filter    `json:"filter"`
	Sort         SortOrder `json:"sort"`
	VisibleStart int       `json:"visibleStart"`
	VisibleCount int       `json:"visibleCount"`
}
