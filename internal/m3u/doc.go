// Package m3u parses M3U/EXTM3U playlist text into channel records.
//
// The parser is a single forward pass built for hostile input: playlists
// with tens of thousands of entries, inconsistent encodings, unknown
// directives, and missing fields. A malformed entry is never fatal; it is
// skipped and reported as a diagnostic carrying its source line. Parsing
// fails only when the input cannot be decoded as text at all.
//
// Format notes:
//   - UTF-8 (with or without BOM) and UTF-16 LE/BE (with BOM) are accepted.
//   - #EXTINF directives pair with exactly one following non-directive
//     line supplying the stream URI.
//   - Attribute keys are folded to lower case; unknown directives are
//     preserved verbatim as attributes rather than dropped.
//   - #EXTGRP sets the group for the pending entry, or for subsequent
//     entries when it appears between channels.
//   - Output order always equals source order.
package m3u
