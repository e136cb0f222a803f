package geocoding

import (
	"fmt"

	"github.com/UnknownOlympus/forage/internal/geomath"
	"github.com/UnknownOlympus/forage/internal/models"
	gocache "github.com/patrickmn/go-cache"
)

// Cache holds reverse-geocode results keyed by rounded coordinate. Failed
// lookups are stored as nil so a dead provider is asked at most once per
// location within a process lifetime. Entries never expire; the surrounding
// app clears the cache on logout so one session's addresses do not leak into
// the next.
type Cache struct {
	store *gocache.Cache
}

// NewCache creates an empty geocode cache.
func NewCache() *Cache {
	return &Cache{
		store: gocache.New(gocache.NoExpiration, 0),
	}
}

// Get returns the cached result for a coordinate. The second return value
// reports whether the key was present at all; a present key may still hold a
// nil result (a cached failure).
func (c *Cache) Get(coords models.Coordinates) (*models.GeocodeResult, bool) {
	value, found := c.store.Get(cacheKey(coords))
	if !found {
		return nil, false
	}

	result, ok := value.(*models.GeocodeResult)
	if !ok {
		return nil, false
	}

	return result, true
}

// Set stores a result (or a nil failure marker) for a coordinate.
func (c *Cache) Set(coords models.Coordinates, result *models.GeocodeResult) {
	c.store.Set(cacheKey(coords), result, gocache.NoExpiration)
}

// Clear drops every cached entry.
func (c *Cache) Clear() {
	c.store.Flush()
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	return c.store.ItemCount()
}

// cacheKey renders the rounded coordinate as a stable string key.
func cacheKey(coords models.Coordinates) string {
	rounded := geomath.RoundCoordinates(coords)
	return fmt.Sprintf("%.5f,%.5f", rounded.Latitude, rounded.Longitude)
}
