// Package view serves windowed reads over the active playlist snapshot.
//
// A View owns at most one snapshot at a time plus a projection: the
// filtered, sorted positions the current filter and sort order select.
// Reads are O(window), never O(playlist): Slice materializes only the
// requested rows. Snapshot swaps are atomic with respect to readers,
// and registered listeners hear about each swap after it lands.
package view
