// Package loader orchestrates playlist loads: cache lookup, parse,
// index build, write-through, and activation on the view.
//
// Concurrent loads of the same content share one build through
// singleflight. Loads of different content race freely; only the most
// recently requested one may activate, so a slow stale build can never
// clobber a newer snapshot.
package loader
