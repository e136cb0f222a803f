package models

// Feature type values reported on a GeocodeResult.
const (
	FeatureTypeAddress = "address"
	FeatureTypePOI     = "poi"
)

// GeocodeResult is the resolved address for a queried coordinate. It is
// produced per reverse-geocode call and cached in-process by rounded
// coordinate; it is never persisted as-is.
type GeocodeResult struct {
	// Address is the full display string for the selected feature.
	Address string `json:"address"`
	// AddressLine is the street-level line (house number + street) when present.
	AddressLine string `json:"address_line,omitempty"`
	// City, Region, PostalCode and Country are extracted from the feature context.
	City       string `json:"city,omitempty"`
	Region     string `json:"region,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country,omitempty"`
	// MapboxPlaceID is the external feature id, present only when it is safe
	// to deduplicate on (see PlaceIDSafe). Nil otherwise.
	MapboxPlaceID *string `json:"mapbox_place_id,omitempty"`
	// PlaceIDSafe reports whether the feature id was judged reliable enough
	// for catalog matching: the feature is address-typed or lies within 75 m
	// of the queried point.
	PlaceIDSafe bool `json:"place_id_safe"`
	// Center is the selected feature's own coordinate, when resolvable.
	Center *Coordinates `json:"center,omitempty"`
	// DistanceMeters is the great-circle distance from the queried coordinate
	// to Center. Nil when the feature has no resolvable center.
	DistanceMeters *float64 `json:"distance_meters,omitempty"`
	// FeatureType is the provider's primary type for the selected feature,
	// e.g. "address" or "poi".
	FeatureType string `json:"feature_type,omitempty"`
}
