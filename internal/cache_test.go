package internal

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/iksnae/llm-inspector/testutil"
)

func TestNewDetailCache(t *testing.T) {
	cacheDir := testutil.CreateTempDir(t)
	c := NewDetailCache(cacheDir)
	if c.GetCacheDir() != cacheDir {
		t.Errorf("GetCacheDir() = %q, want %q", c.GetCacheDir(), cacheDir)
	}
	if got, want := c.GetIndexPath(), filepath.Join(cacheDir, "sessions.yaml"); got != want {
		t.Errorf("GetIndexPath() = %q, want %q", got, want)
	}
}

func TestDetailCache_GetSessionPath(t *testing.T) {
	cacheDir := testutil.CreateTempDir(t)
	c := NewDetailCache(cacheDir)

	ids := []string{"abc-123", "../escape", "a b/c", "a_b_c", "a/b", "a_b"}
	seen := make(map[string]string)
	for _, id := range ids {
		got := c.GetSessionPath(id)
		if filepath.Dir(got) != cacheDir {
			t.Errorf("GetSessionPath(%q) = %q escapes %q", id, got, cacheDir)
		}
		if got != c.GetSessionPath(id) {
			t.Errorf("GetSessionPath(%q) is not stable", id)
		}
		if other, ok := seen[got]; ok {
			t.Errorf("GetSessionPath(%q) collides with %q: %s", id, other, got)
		}
		seen[got] = id
	}
}

func TestDetailCache_SimilarIDsKeepTheirOwnPayload(t *testing.T) {
	c := NewDetailCache(testutil.CreateTempDir(t))
	slash := CreateTestSummary("a/b", "t1")
	underscore := CreateTestSummary("a_b", "t1")

	if err := c.Put(slash, []byte(`{"id":"a/b"}`)); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := c.Put(underscore, []byte(`{"id":"a_b"}`)); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	tests := []struct {
		summary SessionSummary
		want    string
	}{
		{slash, `{"id":"a/b"}`},
		{underscore, `{"id":"a_b"}`},
	}
	for _, tt := range tests {
		data, ok := c.Get(tt.summary)
		if !ok || string(data) != tt.want {
			t.Errorf("Get(%q) = %q, %v; want %q", tt.summary.ID, data, ok, tt.want)
		}
	}

	if err := c.Remove("a_b"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if data, ok := c.Get(slash); !ok || string(data) != `{"id":"a/b"}` {
		t.Errorf("Remove(a_b) disturbed a/b: %q, %v", data, ok)
	}
}

func TestDetailCache_IgnoresOlderIndexVersion(t *testing.T) {
	c := NewDetailCache(testutil.CreateTempDir(t))
	s := CreateTestSummary("s1", "t1")
	if err := c.Put(s, []byte("{}")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	index, err := c.LoadIndex()
	if err != nil {
		t.Fatalf("LoadIndex() error = %v", err)
	}
	index.Metadata.CacheVersion = "1.0"
	if err := c.SaveIndex(index); err != nil {
		t.Fatalf("SaveIndex() error = %v", err)
	}
	if _, ok := c.Get(s); ok {
		t.Error("Get() served an entry from an older cache layout")
	}
}

func TestDetailCache_PutGet(t *testing.T) {
	c := NewDetailCache(filepath.Join(testutil.CreateTempDir(t), "nested"))
	s := CreateTestSummary("s1", "2025-01-01T10:00:00Z")

	if _, ok := c.Get(s); ok {
		t.Fatal("Get() hit on an empty cache")
	}

	if err := c.Put(s, []byte(`{"id":"s1"}`)); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	data, ok := c.Get(s)
	if !ok || string(data) != `{"id":"s1"}` {
		t.Errorf("Get() = %q, %v", data, ok)
	}

	newer := s
	newer.LastActivityAt = "2025-01-01T11:00:00Z"
	if _, ok := c.Get(newer); ok {
		t.Error("Get() served a payload stored for an older activity time")
	}

	noActivity := s
	noActivity.LastActivityAt = ""
	if _, ok := c.Get(noActivity); ok {
		t.Error("Get() served a session without an activity time")
	}

	// overwrite keeps a single index entry
	if err := c.Put(newer, []byte(`{"id":"s1","v":2}`)); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	index, err := c.LoadIndex()
	if err != nil {
		t.Fatalf("LoadIndex() error = %v", err)
	}
	if len(index.Sessions) != 1 {
		t.Errorf("index has %d entries, want 1", len(index.Sessions))
	}
	if index.Metadata.CacheVersion != CacheVersion {
		t.Errorf("CacheVersion = %q, want %q", index.Metadata.CacheVersion, CacheVersion)
	}
}

func TestDetailCache_RemoveAndClear(t *testing.T) {
	c := NewDetailCache(testutil.CreateTempDir(t))
	a := CreateTestSummary("a", "t")
	b := CreateTestSummary("b", "t")
	for _, s := range []SessionSummary{a, b} {
		if err := c.Put(s, []byte("{}")); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
	}

	if err := c.Remove("a"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if _, ok := c.Get(a); ok {
		t.Error("removed session still cached")
	}
	if _, ok := c.Get(b); !ok {
		t.Error("unrelated session evicted")
	}

	if err := c.ClearCache(); err != nil {
		t.Fatalf("ClearCache() error = %v", err)
	}
	if _, err := os.Stat(c.GetIndexPath()); !os.IsNotExist(err) {
		t.Error("index still present after ClearCache()")
	}
	if _, err := os.Stat(c.GetSessionPath("b")); !os.IsNotExist(err) {
		t.Error("session file still present after ClearCache()")
	}
}

func TestDetailCache_CorruptIndex(t *testing.T) {
	c := NewDetailCache(testutil.CreateTempDir(t))
	testutil.CreateCacheFixture(t, c.GetIndexPath(), []byte("sessions: [unterminated"))

	if _, err := c.LoadIndex(); err == nil {
		t.Error("LoadIndex() should fail on a corrupt index")
	}
	s := CreateTestSummary("s1", "t")
	if err := c.Put(s, []byte("{}")); err != nil {
		t.Fatalf("Put() should rebuild a corrupt index, got %v", err)
	}
	if _, ok := c.Get(s); !ok {
		t.Error("Get() missed after rebuilding the index")
	}
}

func TestCachedBackend(t *testing.T) {
	ctx := context.Background()
	inner := newFakeBackend(CreateTestSummary("s1", "t1"))
	backend := NewCachedBackend(inner, NewDetailCache(testutil.CreateTempDir(t)))

	// unknown sessions bypass the cache
	if _, err := backend.FetchSession(ctx, "s1"); err != nil {
		t.Fatalf("FetchSession() error = %v", err)
	}
	if _, err := backend.ListSessions(ctx); err != nil {
		t.Fatalf("ListSessions() error = %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := backend.FetchSession(ctx, "s1"); err != nil {
			t.Fatalf("FetchSession() error = %v", err)
		}
	}
	if got := inner.fetchCount(); got != 2 {
		t.Errorf("inner fetches = %d, want 2", got)
	}

	inner.setList(CreateTestSummary("s1", "t2"))
	if _, err := backend.ListSessions(ctx); err != nil {
		t.Fatalf("ListSessions() error = %v", err)
	}
	if _, err := backend.FetchSession(ctx, "s1"); err != nil {
		t.Fatalf("FetchSession() error = %v", err)
	}
	if got := inner.fetchCount(); got != 3 {
		t.Errorf("inner fetches after activity = %d, want 3", got)
	}

	if err := backend.DeleteSession(ctx, "s1"); err != nil {
		t.Fatalf("DeleteSession() error = %v", err)
	}
	if _, ok := backend.cache.Get(CreateTestSummary("s1", "t2")); ok {
		t.Error("deleted session still cached")
	}
}
