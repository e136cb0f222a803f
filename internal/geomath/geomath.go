// Package geomath provides the pure geographic and string math used by place
// matching: great-circle distance, Levenshtein-based name similarity and the
// coordinate rounding applied to cache and match keys.
package geomath

import (
	"math"
	"strings"

	"github.com/UnknownOlympus/forage/internal/models"
)

// earthRadiusMeters is the mean Earth radius used by the haversine formula.
const earthRadiusMeters = 6371000.0

// coordinatePrecision is the rounding factor for match/cache keys: 5 decimal
// places, roughly 1.1 m at the equator.
const coordinatePrecision = 1e5

// DistanceMeters returns the great-circle (haversine) distance between two
// points in meters. It is symmetric and zero for identical points.
func DistanceMeters(a, b models.Coordinates) float64 {
	latA := a.Latitude * math.Pi / 180
	latB := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	h := sinLat*sinLat + math.Cos(latA)*math.Cos(latB)*sinLon*sinLon

	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(h))
}

// NameSimilarity scores how alike two place names are, in [0, 1]. Both names
// are normalized (trimmed, lower-cased) first. Exact normalized equality
// scores 1.0; one name containing the other scores 0.9, which covers pairs
// like "Starbucks" and "Starbucks Coffee"; otherwise the score falls back to
// 1 - editDistance/maxLen. Two empty names are considered identical.
func NameSimilarity(a, b string) float64 {
	const substringScore = 0.9

	normA := NormalizeName(a)
	normB := NormalizeName(b)

	if normA == normB {
		return 1.0
	}
	if normA != "" && normB != "" &&
		(strings.Contains(normA, normB) || strings.Contains(normB, normA)) {
		return substringScore
	}

	maxLen := len(normA)
	if len(normB) > maxLen {
		maxLen = len(normB)
	}

	return 1.0 - float64(editDistance(normA, normB))/float64(maxLen)
}

// NormalizeName trims surrounding whitespace and lower-cases a place name.
// The catalog's generated normalized_name column applies the same rule.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// RoundCoordinate rounds a single coordinate component to 5 decimal places.
func RoundCoordinate(value float64) float64 {
	return math.Round(value*coordinatePrecision) / coordinatePrecision
}

// RoundCoordinates rounds both components of a coordinate pair.
func RoundCoordinates(coords models.Coordinates) models.Coordinates {
	return models.Coordinates{
		Latitude:  RoundCoordinate(coords.Latitude),
		Longitude: RoundCoordinate(coords.Longitude),
	}
}

// editDistance computes the classic Levenshtein distance between two strings;
// insertions, deletions and substitutions all cost 1.
func editDistance(a, b string) int {
	if a == b {
		return 0
	}
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, min(curr[j-1]+1, prev[j-1]+cost))
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}
