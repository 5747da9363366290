package daemon

import (
	"fmt"
	"slices"
	"strconv"
	"sync/atomic"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/1broseidon/cursorsync/internal/cursor"
)

const defaultCacheEntries = 64

// cacheKey identifies a cached bitmap. Content identities cover every pixel
// and are keyed alone; sampled identities are scoped to the seed they were
// extracted under.
func cacheKey(mode cursor.IdentityMode, id cursor.Identity, seed int32) string {
	if mode == cursor.IdentityContent {
		return "c:" + id.String()
	}
	return "s:" + id.String() + ":" + strconv.FormatInt(int64(seed), 10)
}

// bitmapCache holds extracted cursors. Every entry costs 1, so MaxCost is the
// entry count. Pixel slices are copied in and out; callers own what they get.
type bitmapCache struct {
	c      *ristretto.Cache[string, cursor.Data]
	hits   atomic.Uint64
	misses atomic.Uint64
}

func newBitmapCache(entries int) (*bitmapCache, error) {
	if entries <= 0 {
		entries = defaultCacheEntries
	}
	c, err := ristretto.NewCache(&ristretto.Config[string, cursor.Data]{
		NumCounters:        int64(entries) * 10, // ~10x items, per ristretto guidance
		MaxCost:            int64(entries),
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create bitmap cache: %w", err)
	}
	return &bitmapCache{c: c}, nil
}

func (b *bitmapCache) get(key string) (cursor.Data, bool) {
	data, ok := b.c.Get(key)
	if !ok {
		b.misses.Add(1)
		return cursor.Data{}, false
	}
	b.hits.Add(1)
	data.Pixels = slices.Clone(data.Pixels)
	return data, true
}

func (b *bitmapCache) put(key string, data cursor.Data) {
	data.Pixels = slices.Clone(data.Pixels)
	b.c.Set(key, data, 1)
	// Make the entry visible to the next get.
	b.c.Wait()
}

func (b *bitmapCache) clear() {
	b.c.Clear()
}

func (b *bitmapCache) stats() (hits, misses uint64) {
	return b.hits.Load(), b.misses.Load()
}

func (b *bitmapCache) close() {
	b.c.Close()
}
