package geocoding_test

import (
	"testing"

	"github.com/UnknownOlympus/forage/internal/geocoding"
	"github.com/UnknownOlympus/forage/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache(t *testing.T) {
	t.Parallel()

	coords := models.Coordinates{Latitude: 50.4501, Longitude: 30.5234}

	t.Run("miss on empty cache", func(t *testing.T) {
		t.Parallel()
		cache := geocoding.NewCache()

		result, found := cache.Get(coords)

		assert.Nil(t, result)
		assert.False(t, found)
	})

	t.Run("stores and returns a result", func(t *testing.T) {
		t.Parallel()
		cache := geocoding.NewCache()
		stored := &models.GeocodeResult{Address: "18 Khreshchatyk St, Kyiv"}

		cache.Set(coords, stored)
		result, found := cache.Get(coords)

		require.True(t, found)
		assert.Equal(t, stored, result)
	})

	t.Run("stores nil as a negative result", func(t *testing.T) {
		t.Parallel()
		cache := geocoding.NewCache()

		cache.Set(coords, nil)
		result, found := cache.Get(coords)

		assert.True(t, found, "a cached failure is still a cache hit")
		assert.Nil(t, result)
	})

	t.Run("keys are rounded to five decimals", func(t *testing.T) {
		t.Parallel()
		cache := geocoding.NewCache()
		stored := &models.GeocodeResult{Address: "18 Khreshchatyk St, Kyiv"}

		cache.Set(models.Coordinates{Latitude: 50.450100001, Longitude: 30.523399999}, stored)
		result, found := cache.Get(models.Coordinates{Latitude: 50.450099999, Longitude: 30.523400001})

		require.True(t, found)
		assert.Equal(t, stored, result)
	})

	t.Run("clear drops every entry", func(t *testing.T) {
		t.Parallel()
		cache := geocoding.NewCache()
		cache.Set(coords, &models.GeocodeResult{Address: "somewhere"})
		cache.Set(models.Coordinates{Latitude: 49.84, Longitude: 24.03}, nil)
		require.Equal(t, 2, cache.Len())

		cache.Clear()

		assert.Zero(t, cache.Len())
		_, found := cache.Get(coords)
		assert.False(t, found)
	})
}
