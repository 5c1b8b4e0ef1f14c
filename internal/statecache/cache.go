// Package statecache holds the latest analysis state per stream for
// pull-based consumers. Writers are the ingestion workers; readers are
// the HTTP API and the CLI.
package statecache

import (
	"sync"
	"time"
)

// Modality names one of the per-stream state slots.
type Modality string

const (
	ModalityVideo Modality = "video"
	ModalityAudio Modality = "audio"
	ModalityHeart Modality = "heart"
)

// Entry is the latest known state of one stream. Payloads are stored as
// provided and must not be mutated after Update.
type Entry struct {
	Stream    string    `json:"stream"`
	Video     any       `json:"video,omitempty"`
	Audio     any       `json:"audio,omitempty"`
	Heart     any       `json:"heart,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   uint64    `json:"version"`
}

// Cache is a concurrency-safe latest-state store with a process-wide
// monotonic version.
type Cache struct {
	mu      sync.RWMutex
	version uint64
	entries map[string]Entry

	clock func() time.Time
}

// New constructs an empty cache.
func New() *Cache {
	return &Cache{entries: make(map[string]Entry), clock: time.Now}
}

// Update replaces one modality slot for a stream and bumps the version.
func (c *Cache) Update(stream string, modality Modality, payload any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := c.entries[stream]
	entry.Stream = stream
	switch modality {
	case ModalityVideo:
		entry.Video = payload
	case ModalityAudio:
		entry.Audio = payload
	case ModalityHeart:
		entry.Heart = payload
	default:
		return
	}
	c.version++
	entry.Version = c.version
	entry.UpdatedAt = c.clock()
	c.entries[stream] = entry
}

// Get returns the latest entry for a stream.
func (c *Cache) Get(stream string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[stream]
	return entry, ok
}

// Snapshot returns a copy of every entry, keyed by stream name.
func (c *Cache) Snapshot() map[string]Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]Entry, len(c.entries))
	for name, entry := range c.entries {
		out[name] = entry
	}
	return out
}

// Forget drops a stream's entry, for sessions that should leave no
// stale state behind.
func (c *Cache) Forget(stream string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, stream)
}
