package converter

import (
	"encoding/binary"
	"math"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// defaultCacheBytes bounds the encoded data the transform cache keeps alive.
const defaultCacheBytes = 64 << 20

// resultCache keeps recent transform results keyed by a content hash of
// their inputs. It holds at most limit bytes of encoded data; oldest entries
// are evicted first and results larger than the limit are never stored.
type resultCache struct {
	mu      sync.Mutex
	limit   int
	size    int
	entries map[uint64]Result
	order   []uint64
}

func newResultCache(limitBytes int) *resultCache {
	return &resultCache{limit: limitBytes, entries: make(map[uint64]Result)}
}

func (c *resultCache) get(key uint64) (Result, bool) {
	if c == nil {
		return Result{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	res, ok := c.entries[key]
	return res, ok
}

func (c *resultCache) put(key uint64, res Result) {
	if c == nil || len(res.Data) > c.limit {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; ok {
		return
	}
	for len(c.order) > 0 && c.size+len(res.Data) > c.limit {
		oldest := c.order[0]
		c.size -= len(c.entries[oldest].Data)
		delete(c.entries, oldest)
		c.order = c.order[1:]
	}
	c.entries[key] = res
	c.order = append(c.order, key)
	c.size += len(res.Data)
}

func (c *resultCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *resultCache) bytes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

func cacheKey(original []byte, rotation int, outType string, q Quality) uint64 {
	d := xxhash.New()
	_, _ = d.Write(original)
	var buf [17]byte
	binary.BigEndian.PutUint64(buf[0:8], uint64(rotation))
	binary.BigEndian.PutUint64(buf[8:16], math.Float64bits(q.Fraction()))
	if q.Set() {
		buf[16] = 1
	}
	_, _ = d.Write(buf[:])
	_, _ = d.WriteString(outType)
	return d.Sum64()
}
