package favorites

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"iptv-viewer/internal/channel"
)

func openTestSet(t *testing.T) (*Set, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "favorites.json")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Failed to open favorites set: %v", err)
	}
	return s, path
}

func record(name, uri, group string) channel.Record {
	return channel.Record{
		DisplayName: name,
		StreamURI:   uri,
		GroupName:   group,
		Attributes:  map[string]string{"tvg-id": name},
	}
}

func TestAddRemoveContains(t *testing.T) {
	s, _ := openTestSet(t)

	entry, added, err := s.Add(record("BBC One", "http://example.com/bbc1", "UK"))
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if !added {
		t.Error("First add must report added")
	}
	if entry.Name != "BBC One" || entry.GroupName != "UK" || entry.TvgID != "BBC One" {
		t.Errorf("Entry = %+v", entry)
	}
	if !s.Contains("http://example.com/bbc1") {
		t.Error("Favorited URI not contained")
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}

	// Re-adding the same stream URI is a no-op.
	again, added, err := s.Add(record("BBC One HD", "http://example.com/bbc1", "UK"))
	if err != nil {
		t.Fatalf("Re-add failed: %v", err)
	}
	if added {
		t.Error("Re-add must not report added")
	}
	if again.Name != "BBC One" {
		t.Errorf("Re-add returned %q, want the original entry", again.Name)
	}
	if s.Len() != 1 {
		t.Errorf("Len after re-add = %d, want 1", s.Len())
	}

	if err := s.Remove("http://example.com/bbc1"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if s.Contains("http://example.com/bbc1") {
		t.Error("Removed URI still contained")
	}
	if err := s.Remove("http://example.com/bbc1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Second remove returned %v, want ErrNotFound", err)
	}
}

func TestAddRejectsEmptyURI(t *testing.T) {
	s, _ := openTestSet(t)

	if _, _, err := s.Add(channel.Record{DisplayName: "No Stream"}); err == nil {
		t.Error("Expected error for record without stream URI")
	}
}

func TestPersistenceAcrossReopen(t *testing.T) {
	s, path := openTestSet(t)

	if _, _, err := s.Add(record("CNN", "http://example.com/cnn", "US")); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	if !reopened.Contains("http://example.com/cnn") {
		t.Error("Favorite lost across reopen")
	}
	if reopened.Len() != 1 {
		t.Errorf("Len after reopen = %d, want 1", reopened.Len())
	}
}

func TestAllNewestFirst(t *testing.T) {
	s, _ := openTestSet(t)

	uris := []string{"http://example.com/a", "http://example.com/b", "http://example.com/c"}
	for i, uri := range uris {
		if _, _, err := s.Add(record("Ch", uri, "G")); err != nil {
			t.Fatalf("Add %d failed: %v", i, err)
		}
	}

	// Force distinct timestamps; AddedAt resolution may collapse
	// back-to-back adds.
	s.mu.Lock()
	base := time.Now().UTC()
	for i, uri := range uris {
		s.entries[uri].AddedAt = base.Add(time.Duration(i) * time.Second)
	}
	s.mu.Unlock()

	all := s.All()
	if len(all) != 3 {
		t.Fatalf("Got %d entries, want 3", len(all))
	}
	for i := 0; i < len(all)-1; i++ {
		if all[i].AddedAt.Before(all[i+1].AddedAt) {
			t.Errorf("Entries not newest first: %v before %v", all[i].AddedAt, all[i+1].AddedAt)
		}
	}
}

func TestOpenCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "favorites.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("Failed to write corrupt file: %v", err)
	}

	if _, err := Open(path); err == nil {
		t.Error("Expected error opening corrupt favorites file")
	}
}
