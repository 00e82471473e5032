package render

import (
	"fmt"
	"image"
	"time"

	"github.com/patrickmn/go-cache"
)

// Cache holds rendered page rasters keyed by document, page and scale
type Cache struct {
	cache *cache.Cache
}

// NewCache creates a raster cache whose entries expire after ttl
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Cache{cache: cache.New(ttl, 2*ttl)}
}

func cacheKey(doc string, page int, scale float64) string {
	return fmt.Sprintf("%s#%d@%.3f", doc, page, scale)
}

// Get returns a cached raster
func (c *Cache) Get(doc string, page int, scale float64) (image.Image, bool) {
	if x, found := c.cache.Get(cacheKey(doc, page, scale)); found {
		return x.(image.Image), true
	}
	return nil, false
}

// Put stores a raster with the default expiration
func (c *Cache) Put(doc string, page int, scale float64, img image.Image) {
	c.cache.Set(cacheKey(doc, page, scale), img, cache.DefaultExpiration)
}

// Len returns the number of cached rasters, expired ones included until the
// next cleanup
func (c *Cache) Len() int {
	return c.cache.ItemCount()
}

// Flush drops every cached raster
func (c *Cache) Flush() {
	c.cache.Flush()
}
