package loader

import (
	"context"
	"fmt"
	"path/filepath"
	"reflect"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"iptv-viewer/internal/cache"
	"iptv-viewer/internal/channel"
	"iptv-viewer/internal/fingerprint"
	"iptv-viewer/internal/index"
	"iptv-viewer/internal/m3u"
	"iptv-viewer/internal/metrics"
	"iptv-viewer/internal/view"
)

const samplePlaylist = `#EXTM3U
#EXTINF:-1 tvg-id="news1" group-title="News",News One
http://example.com/news1
#EXTINF:-1 group-title="Sports",Sports A
http://example.com/sports-a
#EXTINF:-1,Lonely
http://example.com/lonely
`

func openTestCache(t *testing.T) *cache.Store {
	t.Helper()

	s, err := cache.Open(context.Background(), filepath.Join(t.TempDir(), "snapshots.db"), 4)
	if err != nil {
		t.Fatalf("Failed to open test cache: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("Failed to close test cache: %v", err)
		}
	})
	return s
}

func TestLoadParsesAndActivates(t *testing.T) {
	v := view.New()
	l := New(openTestCache(t), v)

	res, err := l.Load(context.Background(), Source{Name: "sample.m3u", Data: []byte(samplePlaylist)})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if res.FromCache {
		t.Error("First load must not come from cache")
	}
	if !res.Activated {
		t.Error("Unchallenged load must activate")
	}
	if len(res.Snapshot.Records) != 3 {
		t.Errorf("Snapshot has %d records, want 3", len(res.Snapshot.Records))
	}
	if v.Count() != 3 {
		t.Errorf("View count = %d, want 3", v.Count())
	}
	if v.Snapshot() != res.Snapshot {
		t.Error("View is not serving the loaded snapshot")
	}
}

func TestLoadCacheHitEquivalence(t *testing.T) {
	v := view.New()
	l := New(openTestCache(t), v)
	ctx := context.Background()

	src := Source{Name: "sample.m3u", Data: []byte(samplePlaylist)}

	first, err := l.Load(ctx, src)
	if err != nil {
		t.Fatalf("First load failed: %v", err)
	}

	second, err := l.Load(ctx, src)
	if err != nil {
		t.Fatalf("Second load failed: %v", err)
	}

	if !second.FromCache {
		t.Error("Second load of identical content must hit the cache")
	}

	// A cache hit is observationally identical to a fresh parse.
	if !reflect.DeepEqual(first.Snapshot.Records, second.Snapshot.Records) {
		t.Error("Cached records differ from parsed records")
	}
	if !reflect.DeepEqual(first.Snapshot.Categories, second.Snapshot.Categories) {
		t.Error("Cached categories differ from parsed categories")
	}
	if !reflect.DeepEqual(first.Snapshot.Diagnostics, second.Snapshot.Diagnostics) {
		t.Error("Cached diagnostics differ from parsed diagnostics")
	}
	if second.Snapshot.Fingerprint != first.Snapshot.Fingerprint {
		t.Error("Fingerprint changed across loads of identical content")
	}
}

func TestLoadWithoutCache(t *testing.T) {
	v := view.New()
	l := New(nil, v)

	res, err := l.Load(context.Background(), Source{Name: "sample.m3u", Data: []byte(samplePlaylist)})
	if err != nil {
		t.Fatalf("Load without cache failed: %v", err)
	}
	if res.FromCache {
		t.Error("Cacheless load reported a cache hit")
	}
	if v.Count() != 3 {
		t.Errorf("View count = %d, want 3", v.Count())
	}
}

func TestLoadNonTextFails(t *testing.T) {
	v := view.New()
	l := New(nil, v)

	_, err := l.Load(context.Background(), Source{Name: "junk.bin", Data: []byte{0x00, 0x01, 0xff, 0xfe, 0x00}})
	if err == nil {
		t.Fatal("Expected error for non-text input")
	}
	if v.Snapshot() != nil {
		t.Error("Failed load must not activate a snapshot")
	}
}

func TestSupersededBuildDiscarded(t *testing.T) {
	v := view.New()
	l := New(nil, v)

	olderData := []byte(samplePlaylist)
	newerData := []byte("#EXTM3U\n#EXTINF:-1,Only One\nhttp://example.com/only\n")

	// Claim generations in request order, then complete out of order.
	olderGen := l.gen.Add(1)
	newerGen := l.gen.Add(1)

	newer, err := l.build(context.Background(), Source{Name: "newer.m3u", Data: newerData}, fingerprint.Sum(newerData))
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if !l.maybeSwap(newerGen, newer) {
		t.Fatal("Latest requested load must activate")
	}

	older, err := l.build(context.Background(), Source{Name: "older.m3u", Data: olderData}, fingerprint.Sum(olderData))
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if l.maybeSwap(olderGen, older) {
		t.Fatal("Superseded load must not activate")
	}

	if v.Count() != 1 {
		t.Errorf("View count = %d, want 1 (the newer snapshot)", v.Count())
	}
	if got := v.Snapshot(); got == nil || got != newer.snap {
		t.Error("View is not serving the newer snapshot")
	}
}

func TestParseMetricsCountedOncePerLoad(t *testing.T) {
	v := view.New()
	l := New(nil, v)

	data := []byte("#EXTM3U\n#EXTINF:-1,Dangling\n#EXTINF:-1,First\nhttp://example.com/1\n#EXTINF:-1,Second\nhttp://example.com/2\n")

	runsBefore := testutil.ToFloat64(metrics.ParseRunsTotal)
	recordsBefore := testutil.ToFloat64(metrics.ParseRecordsTotal)
	missingBefore := testutil.ToFloat64(metrics.ParseDiagnosticsTotal.WithLabelValues(string(channel.ReasonMissingURI)))

	if _, err := l.Load(context.Background(), Source{Name: "counted.m3u", Data: data}); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if got := testutil.ToFloat64(metrics.ParseRunsTotal) - runsBefore; got != 1 {
		t.Errorf("One load incremented parse runs by %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.ParseRecordsTotal) - recordsBefore; got != 2 {
		t.Errorf("One load counted %v parsed records, want 2", got)
	}
	if got := testutil.ToFloat64(metrics.ParseDiagnosticsTotal.WithLabelValues(string(channel.ReasonMissingURI))) - missingBefore; got != 1 {
		t.Errorf("One load counted %v missing-uri diagnostics, want 1", got)
	}
}

func TestGenerationActivatesAtMostOnce(t *testing.T) {
	v := view.New()
	l := New(nil, v)
	ctx := context.Background()

	staleData := []byte(samplePlaylist)
	freshData := []byte("#EXTM3U\n#EXTINF:-1,Only One\nhttp://example.com/only\n")

	stale, err := l.build(ctx, Source{Name: "stale.m3u", Data: staleData}, fingerprint.Sum(staleData))
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	fresh, err := l.build(ctx, Source{Name: "fresh.m3u", Data: freshData}, fingerprint.Sum(freshData))
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	gen := l.gen.Add(1)
	if !l.maybeSwap(gen, fresh) {
		t.Fatal("Current generation must activate")
	}

	// A build that observed its generation as current before another
	// activation completed must still be rejected afterwards.
	if l.maybeSwap(gen, stale) {
		t.Fatal("A generation must not activate twice")
	}

	if got := v.Snapshot(); got != fresh.snap {
		t.Error("View is not serving the first-activated snapshot")
	}
	if v.Count() != 1 {
		t.Errorf("View count = %d, want 1", v.Count())
	}
}

func TestConcurrentDistinctLoads(t *testing.T) {
	v := view.New()
	l := New(nil, v)

	const workers = 8
	var wg sync.WaitGroup
	results := make([]*Result, workers)
	errs := make([]error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			data := fmt.Sprintf("#EXTM3U\n#EXTINF:-1,Channel %d\nhttp://example.com/%d\n", i, i)
			results[i], errs[i] = l.Load(context.Background(), Source{Name: fmt.Sprintf("p%d.m3u", i), Data: []byte(data)})
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		if errs[i] != nil {
			t.Fatalf("Load %d failed: %v", i, errs[i])
		}
	}

	// The newest claimed generation always wins, so the final snapshot
	// must belong to a load that reported activation, and the activation
	// bookkeeping must have caught up with the claim counter.
	final := v.Snapshot()
	if final == nil {
		t.Fatal("No snapshot active after concurrent loads")
	}
	matched := false
	for i, r := range results {
		if r.Snapshot.Fingerprint != final.Fingerprint {
			continue
		}
		matched = true
		if !r.Activated {
			t.Errorf("View serves the snapshot of load %d, which reported no activation", i)
		}
	}
	if !matched {
		t.Error("Active snapshot does not belong to any completed load")
	}
	if l.lastActivated != l.gen.Load() {
		t.Errorf("Last activated generation = %d, want %d (the newest claim)", l.lastActivated, l.gen.Load())
	}
}

func TestConcurrentIdenticalLoads(t *testing.T) {
	v := view.New()
	l := New(openTestCache(t), v)

	const workers = 8
	var wg sync.WaitGroup
	results := make([]*Result, workers)
	errs := make([]error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = l.Load(context.Background(), Source{Name: "sample.m3u", Data: []byte(samplePlaylist)})
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		if errs[i] != nil {
			t.Fatalf("Load %d failed: %v", i, errs[i])
		}
		if len(results[i].Snapshot.Records) != 3 {
			t.Errorf("Load %d saw %d records", i, len(results[i].Snapshot.Records))
		}
	}
	if v.Count() != 3 {
		t.Errorf("View count = %d, want 3", v.Count())
	}
}

func TestFingerprintStability(t *testing.T) {
	data := []byte(samplePlaylist)

	parsed, err := m3u.Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	ix := index.Build(parsed.Records)
	if ix.Len() != 3 {
		t.Fatalf("Indexed %d records, want 3", ix.Len())
	}

	if fingerprint.Sum(data) != fingerprint.Sum([]byte(samplePlaylist)) {
		t.Error("Identical bytes produced different fingerprints")
	}
}
