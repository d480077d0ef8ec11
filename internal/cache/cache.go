package cache

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	log "github.com/sirupsen/logrus"

	"github.com/skyline93/rscache/internal/errors"
)

// Key names a decoded archive.
type Key struct {
	Index   uint8
	Archive uint32
}

func (k Key) String() string {
	return fmt.Sprintf("%d/%d", k.Index, k.Archive)
}

// Cache keeps recently decoded archives in memory. A nil *Cache is valid and
// caches nothing. Buffers are copied in both directions, so callers own what
// they get.
type Cache struct {
	c *lru.Cache[Key, []byte]
}

// New returns a cache holding up to size archives. A size of zero disables
// caching and returns nil.
func New(size int) (*Cache, error) {
	if size == 0 {
		return nil, nil
	}
	if size < 0 {
		return nil, errors.Errorf("invalid cache size %d", size)
	}

	c, err := lru.New[Key, []byte](size)
	if err != nil {
		return nil, errors.Wrap(err, "lru.New")
	}
	return &Cache{c: c}, nil
}

// Get returns a copy of the cached payload for k.
func (c *Cache) Get(k Key) ([]byte, bool) {
	if c == nil {
		return nil, false
	}

	buf, ok := c.c.Get(k)
	if !ok {
		return nil, false
	}
	log.Debugf("cache hit for %v", k)
	return append([]byte(nil), buf...), true
}

// Add stores a copy of buf for k.
func (c *Cache) Add(k Key, buf []byte) {
	if c == nil {
		return
	}
	c.c.Add(k, append([]byte(nil), buf...))
}

// Len returns the number of cached archives.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return c.c.Len()
}

// Clear drops all cached archives.
func (c *Cache) Clear() {
	if c == nil {
		return
	}
	c.c.Purge()
}
