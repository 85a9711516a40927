package internal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// CacheVersion is bumped when the on-disk layout changes
const CacheVersion = "1.1"

// DetailCache stores raw session detail payloads on disk, keyed by session id and
// validated against the session's last activity time
type DetailCache struct {
	cacheDir string
	mu       sync.Mutex
}

// CacheMetadata stores metadata about the cache
type CacheMetadata struct {
	APIBase      string    `yaml:"api_base"`
	CacheVersion string    `yaml:"cache_version"`
	CreatedAt    time.Time `yaml:"created_at"`
	UpdatedAt    time.Time `yaml:"updated_at"`
}

// CacheIndexEntry represents a cached session detail
type CacheIndexEntry struct {
	ID             string    `yaml:"id"`
	Name           string    `yaml:"name,omitempty"`
	LastActivityAt string    `yaml:"last_activity_at,omitempty"`
	File           string    `yaml:"file"`
	Size           int       `yaml:"size"`
	StoredAt       time.Time `yaml:"stored_at"`
}

// CacheIndex is the YAML index of all cached details
type CacheIndex struct {
	Sessions []CacheIndexEntry `yaml:"sessions"`
	Metadata CacheMetadata     `yaml:"metadata"`
}

// NewDetailCache creates a cache rooted at cacheDir
func NewDetailCache(cacheDir string) *DetailCache {
	return &DetailCache{cacheDir: cacheDir}
}

// GetCacheDir returns the cache directory path
func (c *DetailCache) GetCacheDir() string {
	return c.cacheDir
}

// GetIndexPath returns the path to the index YAML file
func (c *DetailCache) GetIndexPath() string {
	return filepath.Join(c.cacheDir, "sessions.yaml")
}

// GetSessionPath returns the path to a session's cached payload. The file name
// is a name-based UUID of the id, so distinct ids never share a file.
func (c *DetailCache) GetSessionPath(sessionID string) string {
	return filepath.Join(c.cacheDir, sessionFileName(sessionID))
}

func sessionFileName(sessionID string) string {
	return fmt.Sprintf("session_%s.json", uuid.NewSHA1(uuid.NameSpaceURL, []byte(sessionID)))
}

func (c *DetailCache) entryPath(entry CacheIndexEntry) string {
	if entry.File == "" {
		return c.GetSessionPath(entry.ID)
	}
	return filepath.Join(c.cacheDir, filepath.Base(entry.File))
}

// LoadIndex loads the cache index
func (c *DetailCache) LoadIndex() (*CacheIndex, error) {
	data, err := os.ReadFile(c.GetIndexPath())
	if err != nil {
		return nil, err
	}

	var index CacheIndex
	if err := yaml.Unmarshal(data, &index); err != nil {
		return nil, &ParseError{Source: "cache index", Key: c.GetIndexPath(), Err: err}
	}
	return &index, nil
}

// SaveIndex saves the cache index
func (c *DetailCache) SaveIndex(index *CacheIndex) error {
	if err := os.MkdirAll(c.cacheDir, 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(index)
	if err != nil {
		return fmt.Errorf("failed to marshal index: %w", err)
	}
	return os.WriteFile(c.GetIndexPath(), data, 0644)
}

// Get returns the cached payload for summary when it was stored for the same
// last activity time. Sessions without an activity time are never served from cache.
func (c *DetailCache) Get(summary SessionSummary) ([]byte, bool) {
	if summary.LastActivityAt == "" {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	index, err := c.LoadIndex()
	if err != nil || index.Metadata.CacheVersion != CacheVersion {
		return nil, false
	}
	for _, entry := range index.Sessions {
		if entry.ID != summary.ID {
			continue
		}
		if entry.LastActivityAt != summary.LastActivityAt || entry.File == "" {
			return nil, false
		}
		data, err := os.ReadFile(c.entryPath(entry))
		if err != nil {
			return nil, false
		}
		return data, true
	}
	return nil, false
}

// Put stores data for summary and updates the index
func (c *DetailCache) Put(summary SessionSummary, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(c.cacheDir, 0755); err != nil {
		return err
	}
	if err := os.WriteFile(c.GetSessionPath(summary.ID), data, 0644); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	now := time.Now()
	index, err := c.LoadIndex()
	if err != nil || index.Metadata.CacheVersion != CacheVersion {
		index = &CacheIndex{
			Sessions: make([]CacheIndexEntry, 0),
			Metadata: CacheMetadata{CacheVersion: CacheVersion, CreatedAt: now},
		}
	}
	index.Metadata.UpdatedAt = now

	entry := CacheIndexEntry{
		ID:             summary.ID,
		Name:           summary.Name,
		LastActivityAt: summary.LastActivityAt,
		File:           sessionFileName(summary.ID),
		Size:           len(data),
		StoredAt:       now,
	}
	found := false
	for i := range index.Sessions {
		if index.Sessions[i].ID == summary.ID {
			index.Sessions[i] = entry
			found = true
			break
		}
	}
	if !found {
		index.Sessions = append(index.Sessions, entry)
	}
	return c.SaveIndex(index)
}

// Remove drops a session from the cache
func (c *DetailCache) Remove(sessionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.Remove(c.GetSessionPath(sessionID)); err != nil && !os.IsNotExist(err) {
		return err
	}
	index, err := c.LoadIndex()
	if err != nil {
		return nil
	}
	kept := index.Sessions[:0]
	for _, entry := range index.Sessions {
		if entry.ID != sessionID {
			kept = append(kept, entry)
		}
	}
	index.Sessions = kept
	index.Metadata.UpdatedAt = time.Now()
	return c.SaveIndex(index)
}

// ClearCache clears the cache
func (c *DetailCache) ClearCache() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	index, err := c.LoadIndex()
	if err == nil {
		for _, entry := range index.Sessions {
			_ = os.Remove(c.entryPath(entry))
		}
	}
	if err := os.Remove(c.GetIndexPath()); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// SanitizeID maps an id to a file name that stays inside its directory
func SanitizeID(id string) string {
	out := make([]rune, 0, len(id))
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}

// CachedBackend serves detail fetches from a DetailCache when the session's
// last activity time has not changed since the payload was stored
type CachedBackend struct {
	Backend
	cache *DetailCache

	mu        sync.Mutex
	summaries map[string]SessionSummary
}

// NewCachedBackend wraps backend with cache
func NewCachedBackend(backend Backend, cache *DetailCache) *CachedBackend {
	return &CachedBackend{
		Backend:   backend,
		cache:     cache,
		summaries: make(map[string]SessionSummary),
	}
}

// ListSessions lists sessions and remembers their activity times
func (b *CachedBackend) ListSessions(ctx context.Context) ([]SessionSummary, error) {
	sessions, err := b.Backend.ListSessions(ctx)
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	b.summaries = make(map[string]SessionSummary, len(sessions))
	for _, s := range sessions {
		b.summaries[s.ID] = s
	}
	b.mu.Unlock()
	return sessions, nil
}

// FetchSession returns the cached payload when fresh, otherwise fetches and stores it
func (b *CachedBackend) FetchSession(ctx context.Context, id string) ([]byte, error) {
	b.mu.Lock()
	summary, known := b.summaries[id]
	b.mu.Unlock()

	if known {
		if data, ok := b.cache.Get(summary); ok {
			LogDebug("Serving session %s from cache", id)
			return data, nil
		}
	}

	data, err := b.Backend.FetchSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if known {
		if err := b.cache.Put(summary, data); err != nil {
			LogWarn("Failed to cache session %s: %v", id, err)
		}
	}
	return data, nil
}

// DeleteSession deletes on the backend and then evicts the cached payload
func (b *CachedBackend) DeleteSession(ctx context.Context, id string) error {
	if err := b.Backend.DeleteSession(ctx, id); err != nil {
		return err
	}
	b.mu.Lock()
	delete(b.summaries, id)
	b.mu.Unlock()
	if err := b.cache.Remove(id); err != nil {
		LogWarn("Failed to evict cached session %s: %v", id, err)
	}
	return nil
}
