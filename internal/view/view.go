package view

import (
	"sort"
	"sync"
	"time"

	"iptv-viewer/internal/channel"
	"iptv-viewer/internal/index"
	"iptv-viewer/internal/logging"
	"iptv-viewer/internal/metrics"
)

// SwapFunc is notified after a new snapshot becomes active.
type SwapFunc func(snap *channel.Snapshot)

// View is the windowed read surface over the active snapshot. All
// methods are safe for concurrent use; reads see either the state
// before a swap or after it, never a mix.
type View struct {
	mu         sync.RWMutex
	snap       *channel.Snapshot
	ix         *index.Index
	filter     channel.Filter
	sortOrder  channel.SortOrder
	projection []int32
	favorites  func(streamURI string) bool

	// visible range bookkeeping only; independent of projection state
	visMu        sync.Mutex
	visibleStart int
	visibleCount int

	listenerMu sync.Mutex
	listeners  []SwapFunc
}

// New returns an empty view with source ordering and no filter.
func New() *View {
	return &View{sortOrder: channel.SortSource}
}

// SetFavorites installs the membership predicate behind the
// FavoritesOnly filter. fn receives a record's stream URI during
// projection rebuilds and must not call back into the view.
func (v *View) SetFavorites(fn func(streamURI string) bool) {
	v.mu.Lock()
	v.favorites = fn
	v.recompute()
	v.mu.Unlock()
}

// OnSwap registers a listener invoked after each snapshot swap. The
// listener runs outside the view's locks and may call back into it.
func (v *View) OnSwap(fn SwapFunc) {
	v.listenerMu.Lock()
	v.listeners = append(v.listeners, fn)
	v.listenerMu.Unlock()
}

// Swap atomically replaces the active snapshot and index, keeping the
// current filter and sort order. A nil snapshot empties the view.
func (v *View) Swap(snap *channel.Snapshot, ix *index.Index) {
	v.mu.Lock()
	v.snap = snap
	v.ix = ix
	v.recompute()
	visible := len(v.projection)
	v.mu.Unlock()

	metrics.SnapshotSwapsTotal.Inc()
	if snap != nil {
		metrics.SnapshotRecords.Set(float64(len(snap.Records)))
		logging.Info("Activated snapshot %s: %d records, %d visible", snap.Fingerprint, len(snap.Records), visible)
	} else {
		metrics.SnapshotRecords.Set(0)
		logging.Info("Cleared active snapshot")
	}

	v.listenerMu.Lock()
	listeners := make([]SwapFunc, len(v.listeners))
	copy(listeners, v.listeners)
	v.listenerMu.Unlock()

	for _, fn := range listeners {
		fn(snap)
	}
}

// Configure sets the filter and sort order, rebuilding the projection.
// It returns the new visible count.
func (v *View) Configure(filter channel.Filter, order channel.SortOrder) int {
	v.mu.Lock()
	v.filter = filter
	v.sortOrder = order
	v.recompute()
	n := len(v.projection)
	v.mu.Unlock()

	metrics.ViewConfiguresTotal.Inc()
	logging.Debug("View configured: category=%q search=%q sort=%s visible=%d",
		filter.Category, filter.Search, order, n)
	return n
}

// recompute rebuilds the projection for the current snapshot, filter,
// and sort order. Callers hold v.mu.
func (v *View) recompute() {
	if v.ix == nil || v.ix.Len() == 0 {
		v.projection = nil
		return
	}

	// Both filters yield positions in source order, so the conjunction
	// is a sorted-list intersection.
	var positions []int32
	switch {
	case v.filter.Category != "" && v.filter.Search != "":
		positions = intersect(v.ix.CategoryPositions(v.filter.Category), v.ix.Search(v.filter.Search))
	case v.filter.Category != "":
		positions = v.ix.CategoryPositions(v.filter.Category)
	case v.filter.Search != "":
		positions = v.ix.Search(v.filter.Search)
	default:
		positions = make([]int32, v.ix.Len())
		for i := range positions {
			positions[i] = int32(i)
		}
	}

	if v.filter.FavoritesOnly {
		positions = v.onlyFavorites(positions)
	}

	if v.sortOrder == channel.SortAlphabetical && len(positions) > 1 {
		sorted := make([]int32, len(positions))
		copy(sorted, positions)
		// Ranks are unique, so a plain sort is already stable.
		sort.Slice(sorted, func(a, b int) bool {
			return v.ix.AlphaRank(sorted[a]) < v.ix.AlphaRank(sorted[b])
		})
		positions = sorted
	}

	v.projection = positions
}

// onlyFavorites keeps the positions whose record is favorited,
// preserving order. Without a predicate nothing is a favorite. Callers
// hold v.mu.
func (v *View) onlyFavorites(positions []int32) []int32 {
	if v.favorites == nil {
		return nil
	}
	var out []int32
	for _, pos := range positions {
		if v.favorites(v.ix.At(pos).StreamURI) {
			out = append(out, pos)
		}
	}
	return out
}

// Count returns the number of records the current filter selects.
func (v *View) Count() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.projection)
}

// Slice returns up to count records starting at offset within the
// current projection. Out-of-range offsets yield an empty slice; a
// window extending past the end is truncated.
func (v *View) Slice(offset, count int) []channel.Record {
	start := time.Now()
	defer func() {
		metrics.ViewSliceDuration.Observe(time.Since(start).Seconds())
	}()

	v.mu.RLock()
	defer v.mu.RUnlock()

	if offset < 0 || count <= 0 || offset >= len(v.projection) {
		return []channel.Record{}
	}
	end := offset + count
	if end > len(v.projection) {
		end = len(v.projection)
	}

	out := make([]channel.Record, 0, end-offset)
	for _, pos := range v.projection[offset:end] {
		out = append(out, v.ix.At(pos))
	}
	return out
}

// SetVisibleRange records the window the display layer currently shows.
func (v *View) SetVisibleRange(start, count int) {
	v.visMu.Lock()
	v.visibleStart = start
	v.visibleCount = count
	v.visMu.Unlock()
}

// State returns the current view state for status reporting.
func (v *View) State() channel.ViewState {
	v.mu.RLock()
	filter, order := v.filter, v.sortOrder
	v.mu.RUnlock()

	v.visMu.Lock()
	start, count := v.visibleStart, v.visibleCount
	v.visMu.Unlock()

	return channel.ViewState{
		Filter:       filter,
		Sort:         order,
		VisibleStart: start,
		VisibleCount: count,
	}
}

// Snapshot returns the active snapshot, or nil before the first swap.
func (v *View) Snapshot() *channel.Snapshot {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.snap
}

// Record returns a record by id from the active snapshot.
func (v *View) Record(id int64) (channel.Record, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.ix == nil {
		return channel.Record{}, false
	}
	return v.ix.Record(id)
}

// Categories returns the active snapshot's categories in first-seen
// order, independent of the current filter.
func (v *View) Categories() []channel.Category {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.ix == nil {
		return nil
	}
	return v.ix.Categories()
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
