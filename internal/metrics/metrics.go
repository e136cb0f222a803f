package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	GeocodeLookups  *prometheus.CounterVec
	GeocodeCacheHit prometheus.Counter
	RequestSeconds  *prometheus.HistogramVec
	PlaceMatches    *prometheus.CounterVec
	PlacesCreated   prometheus.Counter
	InsertConflicts prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		GeocodeLookups: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "forage_geocode_lookups_total",
			Help: "Total number of reverse-geocode lookups by outcome.",
		}, []string{"outcome"}),
		GeocodeCacheHit: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "forage_geocode_cache_hits_total",
			Help: "Total number of reverse-geocode lookups served from the in-process cache.",
		}),
		RequestSeconds: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "forage_geocode_request_duration_seconds",
			Help:    "Duration of requests to the reverse-geocoding provider API.",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),
		PlaceMatches: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "forage_place_matches_total",
			Help: "Total number of place resolutions by match method.",
		}, []string{"method"}),
		PlacesCreated: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "forage_places_created_total",
			Help: "Total number of new catalog places created.",
		}),
		InsertConflicts: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "forage_place_insert_conflicts_total",
			Help: "Total number of place inserts that lost a uniqueness race.",
		}),
	}
}
