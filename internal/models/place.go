package models

import "time"

// Place is a canonical catalog entry shared between all users of the food map.
// The catalog also maintains two generated columns (normalized_name and
// rounded_lat/rounded_lng) used purely for matching; they are computed by the
// store and never appear on this struct or on PlaceInput.
type Place struct {
	ID            int64      // ID is the catalog-assigned identifier.
	Name          string     // Name is the user-facing place name.
	Latitude      float64    // Latitude of the pinned location.
	Longitude     float64    // Longitude of the pinned location.
	AddressLine   string     // AddressLine is the street-level address, if known.
	City          string     // City resolved from geocoding, if known.
	Region        string     // Region (state, oblast, province), if known.
	PostalCode    string     // PostalCode, if known.
	Country       string     // Country, if known.
	MapboxPlaceID *string    // MapboxPlaceID is the external feature id; unique across the catalog when set.
	Verified      bool       // Verified is owned by the surrounding system, never written by this engine.
	CreatedAt     time.Time  // CreatedAt is the catalog insertion timestamp.
}

// PlaceInput carries the storable fields for a new catalog row. It must never
// include the catalog id or the store-generated matching columns.
type PlaceInput struct {
	Name          string
	Latitude      float64
	Longitude     float64
	AddressLine   string
	City          string
	Region        string
	PostalCode    string
	Country       string
	MapboxPlaceID *string
}

// Coordinates returns the input's pin location as a Coordinates value.
func (pi PlaceInput) Coordinates() Coordinates {
	return Coordinates{Latitude: pi.Latitude, Longitude: pi.Longitude}
}
