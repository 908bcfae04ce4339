package envcheck

import (
	"encoding/gob"
	"os"
	"time"

	"github.com/devicelab-dev/appium-harness/pkg/logger"
)

// DefaultCacheTTL is how long a stored verification result stays fresh.
const DefaultCacheTTL = 1 * time.Hour

// DefaultCacheFile is the cache filename in the working directory.
const DefaultCacheFile = ".env_cache"

// cacheEntry is the serialized cache payload.
type cacheEntry struct {
	Timestamp time.Time
	Result    Result
}

// Cache persists a verification result to a file with a TTL window, so
// repeated runs skip the expensive external probes. Concurrent runs racing
// on the same file are last-writer-wins.
type Cache struct {
	Path string
	TTL  time.Duration

	// now is swappable in tests.
	now func() time.Time
}

// NewCache returns a Cache with the default path and TTL.
func NewCache() *Cache {
	return &Cache{
		Path: DefaultCacheFile,
		TTL:  DefaultCacheTTL,
		now:  time.Now,
	}
}

// Get returns the stored result if it is still within the TTL window.
// Any read or decode problem is a cache miss, never an error: the caller
// simply re-probes.
func (c *Cache) Get() (*Result, bool) {
	f, err := os.Open(c.Path)
	if err != nil {
		return nil, false
	}
	defer f.Close()

	var entry cacheEntry
	if err := gob.NewDecoder(f).Decode(&entry); err != nil {
		logger.Warn("environment cache unreadable, re-probing: %v", err)
		return nil, false
	}

	if c.now().Sub(entry.Timestamp) >= c.TTL {
		return nil, false
	}

	res := &Result{
		Status:          entry.Result.Status,
		Details:         entry.Result.Details,
		Missing:         entry.Result.Missing,
		Recommendations: entry.Result.Recommendations,
	}
	if res.Details == nil {
		res.Details = map[string]Detail{}
	}
	return res, true
}

// Set stores the result with the current timestamp.
func (c *Cache) Set(r *Result) error {
	f, err := os.Create(c.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	entry := cacheEntry{
		Timestamp: c.now(),
		Result: Result{
			Status:          r.Status,
			Details:         r.Details,
			Missing:         r.Missing,
			Recommendations: r.Recommendations,
		},
	}
	return gob.NewEncoder(f).Encode(&entry)
}
