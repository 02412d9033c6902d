// Package cache implements a file-based JSON cache with read-time TTL.
// Keys (typically fully-qualified request URLs) are hashed to filenames so
// arbitrary strings never touch the filesystem path. The cache is advisory:
// every failure on the read path degrades to a miss, and entries are only
// ever removed by Clear.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// NeverExpire is a TTL that treats any cached entry as fresh.
const NeverExpire = -1 * time.Second

// entry is the on-disk payload: {"_fetched_at": <unix seconds>, "data": ...}.
type entry struct {
	FetchedAt float64         `json:"_fetched_at"`
	Data      json.RawMessage `json:"data"`
}

// Disk is a directory of one JSON file per key.
type Disk struct {
	dir string
	now func() time.Time
}

// Open creates the cache directory if needed and returns a Disk over it.
func Open(dir string) (*Disk, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Disk{dir: dir, now: time.Now}, nil
}

// Dir returns the cache directory.
func (d *Disk) Dir() string { return d.dir }

func (d *Disk) pathFor(key string) string {
	h := sha256.Sum256([]byte(key))
	return filepath.Join(d.dir, hex.EncodeToString(h[:])+".json")
}

// Get returns the cached value for key if it is younger than ttl. A negative
// ttl means the entry never expires. Missing, unreadable, or malformed
// entries are a miss, never an error. Stale entries are reported as a miss
// but left on disk, so a later read with a larger ttl can resurrect them.
func (d *Disk) Get(key string, ttl time.Duration) (json.RawMessage, bool) {
	raw, err := os.ReadFile(d.pathFor(key))
	if err != nil {
		return nil, false
	}
	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, false
	}
	if ttl >= 0 {
		fetched := time.Unix(0, int64(e.FetchedAt*float64(time.Second)))
		if d.now().Sub(fetched) > ttl {
			return nil, false
		}
	}
	return e.Data, true
}

// Set stores value under key, overwriting any previous entry. The write is
// not atomic on crash; the cache is re-fetchable so that is acceptable.
func (d *Disk) Set(key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(entry{
		FetchedAt: float64(d.now().UnixNano()) / float64(time.Second),
		Data:      data,
	})
	if err != nil {
		return err
	}
	return os.WriteFile(d.pathFor(key), payload, 0o644)
}

// Clear deletes every entry file and reports how many were removed.
// Errors deleting individual files are swallowed.
func (d *Disk) Clear() int {
	matches, err := filepath.Glob(filepath.Join(d.dir, "*.json"))
	if err != nil {
		return 0
	}
	removed := 0
	for _, m := range matches {
		if os.Remove(m) == nil {
			removed++
		}
	}
	return removed
}
