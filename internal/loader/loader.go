package loader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"iptv-viewer/internal/cache"
	"iptv-viewer/internal/channel"
	"iptv-viewer/internal/fingerprint"
	"iptv-viewer/internal/index"
	"iptv-viewer/internal/logging"
	"iptv-viewer/internal/m3u"
	"iptv-viewer/internal/metrics"
	"iptv-viewer/internal/view"
)

// Source is one playlist load request: raw bytes plus a display name
// for logging. Fingerprint may be pre-computed; if empty it is derived
// from the data.
type Source struct {
	Name        string
	Fingerprint string
	Data        []byte
}

// Result reports a completed load.
type Result struct {
	Snapshot *channel.Snapshot
	// FromCache is true when the snapshot was served without parsing.
	FromCache bool
	// Activated is false when a newer load superseded this one before
	// it could swap in.
	Activated bool
}

// built pairs a snapshot with its index so singleflight followers reuse
// both.
type built struct {
	snap      *channel.Snapshot
	ix        *index.Index
	fromCache bool
}

// Loader runs playlist loads and activates their snapshots on the view.
type Loader struct {
	store *cache.Store
	view  *view.View

	group singleflight.Group
	gen   atomic.Int64

	// swapMu makes the supersession check and the view swap a single
	// step; without it a stale build could pass the check, lose the CPU,
	// and later swap over a newer snapshot. lastActivated is guarded by
	// swapMu.
	swapMu        sync.Mutex
	lastActivated int64
}

// New returns a loader that activates snapshots on v. store may be nil,
// which disables caching entirely.
func New(store *cache.Store, v *view.View) *Loader {
	return &Loader{store: store, view: v}
}

// Load builds a snapshot for src and, unless a newer load has been
// requested meanwhile, activates it. Identical content being loaded
// concurrently shares a single build.
func (l *Loader) Load(ctx context.Context, src Source) (*Result, error) {
	fp := src.Fingerprint
	if fp == "" {
		fp = fingerprint.Sum(src.Data)
	}

	// The generation is claimed before the build starts. Any Load call
	// that begins after this one supersedes it.
	gen := l.gen.Add(1)

	metrics.LoadsInFlight.Inc()
	defer metrics.LoadsInFlight.Dec()

	v, err, shared := l.group.Do(fp, func() (interface{}, error) {
		return l.build(ctx, src, fp)
	})
	if err != nil {
		metrics.LoadsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	b := v.(*built)

	if shared {
		logging.Debug("Load of %s attached to an in-flight build", src.Name)
	}
	if b.fromCache {
		metrics.LoadsTotal.WithLabelValues("cache_hit").Inc()
	} else {
		metrics.LoadsTotal.WithLabelValues("parsed").Inc()
	}

	activated := l.maybeSwap(gen, b)
	if !activated {
		metrics.LoadsDiscardedTotal.Inc()
		logging.Info("Discarding superseded load of %s (%d records)", src.Name, len(b.snap.Records))
	}

	return &Result{Snapshot: b.snap, FromCache: b.fromCache, Activated: activated}, nil
}

// maybeSwap activates a build unless a newer load has claimed a higher
// generation since gen was issued, or has already activated. The check
// and the swap happen under one lock so activations are strictly
// ordered by generation.
func (l *Loader) maybeSwap(gen int64, b *built) bool {
	l.swapMu.Lock()
	defer l.swapMu.Unlock()
	if gen != l.gen.Load() || gen <= l.lastActivated {
		return false
	}
	l.lastActivated = gen
	l.view.Swap(b.snap, b.ix)
	return true
}

// build produces the snapshot and index for one fingerprint, consulting
// the cache first and writing through on a parse.
func (l *Loader) build(ctx context.Context, src Source, fp string) (*built, error) {
	if l.store != nil {
		if snap, err := l.store.Load(ctx, fp); err == nil {
			return &built{snap: snap, ix: index.Build(snap.Records), fromCache: true}, nil
		} else if !errors.Is(err, cache.ErrMiss) {
			return nil, fmt.Errorf("failed to consult snapshot cache: %w", err)
		}
	}

	// Parse instrumentation lives inside m3u.Parse; only load-level
	// outcomes are counted here.
	start := time.Now()
	parsed, err := m3u.Parse(src.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", src.Name, err)
	}

	ix := index.Build(parsed.Records)
	snap := &channel.Snapshot{
		Fingerprint: fp,
		Records:     parsed.Records,
		Categories:  ix.Categories(),
		ParsedAt:    time.Now().UTC().Truncate(time.Second),
		Diagnostics: parsed.Diagnostics,
	}

	logging.Info("Parsed %s: %d records, %d categories, %d diagnostics in %v",
		src.Name, len(snap.Records), len(snap.Categories), len(snap.Diagnostics), time.Since(start))

	// Write-through is best effort. A full disk or locked database
	// must not fail the load.
	if l.store != nil {
		if err := l.store.Store(ctx, snap); err != nil {
			logging.Warn("Failed to cache snapshot %s: %v", fp, err)
		}
	}

	return &built{snap: snap, ix: ix}, nil
}
