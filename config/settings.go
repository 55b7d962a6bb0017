// Package config provides configuration structures for the geo search server.
// It defines per-index geospatial settings and the process-level server config.
package config

import (
	"math"
	"strings"

	"github.com/gcbaptista/go-geo-search/geospatial"
)

// DefaultLocationField is the document field read for coordinates when an
// index does not name one.
const DefaultLocationField = "location"

// IndexSettings contains all configuration options for a geo index: where
// documents keep their coordinates, how distances are measured and how they
// are turned into weights.
//
// Weights follow k1 * (distance + k1) ^ -k2, so with the defaults a document
// at the centre weighs 1.0 and one k1 metres away weighs 0.5.
type IndexSettings struct {
	Name                string  `json:"name"`                  // Unique name for the index
	LocationField       string  `json:"location_field"`        // Document field holding coordinates (default "location")
	ValueSlot           uint32  `json:"value_slot"`            // Value slot the serialised coordinates are stored in
	EarthRadius         float64 `json:"earth_radius"`          // Sphere radius in metres for great-circle distances
	K1                  float64 `json:"k1"`                    // Weighting constant, in metres
	K2                  float64 `json:"k2"`                    // Weighting exponent
	MaxRange            float64 `json:"max_range"`             // Default maximum range in metres; 0 means unlimited
	DefaultSortDistance float64 `json:"default_sort_distance"` // Distance given to unlocated documents when sorting
}

// ApplyDefaults applies default values to the index settings
func (settings *IndexSettings) ApplyDefaults() {
	if settings.LocationField == "" {
		settings.LocationField = DefaultLocationField
	}
	if settings.EarthRadius == 0 {
		settings.EarthRadius = geospatial.QuadraticMeanEarthRadius
	}
	if settings.K1 == 0 {
		settings.K1 = geospatial.DefaultK1
	}
	if settings.K2 == 0 {
		settings.K2 = geospatial.DefaultK2
	}
	if settings.DefaultSortDistance == 0 {
		settings.DefaultSortDistance = geospatial.DefaultKeyDistance
	}
}

// Validate checks the settings and returns one message per problem found.
// It should be called after ApplyDefaults.
func (settings *IndexSettings) Validate() []string {
	var errors []string

	if strings.TrimSpace(settings.Name) == "" {
		errors = append(errors, "Index name cannot be empty")
	}
	if strings.TrimSpace(settings.LocationField) == "" {
		errors = append(errors, "Location field cannot be empty or whitespace-only")
	}
	if settings.LocationField == "documentID" {
		errors = append(errors, "Location field cannot be 'documentID'")
	}
	if !positiveFinite(settings.EarthRadius) {
		errors = append(errors, "earth_radius must be a positive finite number of metres")
	}
	if !positiveFinite(settings.K1) {
		errors = append(errors, "k1 must be a positive finite number")
	}
	if !positiveFinite(settings.K2) {
		errors = append(errors, "k2 must be a positive finite number")
	}
	if math.IsNaN(settings.MaxRange) || math.IsInf(settings.MaxRange, 0) || settings.MaxRange < 0 {
		errors = append(errors, "max_range must be zero (unlimited) or a positive number of metres")
	}
	if math.IsNaN(settings.DefaultSortDistance) || math.IsInf(settings.DefaultSortDistance, 0) || settings.DefaultSortDistance < 0 {
		errors = append(errors, "default_sort_distance must not be negative")
	}

	return errors
}

func positiveFinite(x float64) bool {
	return x > 0 && !math.IsInf(x, 1)
}

// Metric returns the distance metric described by the settings.
func (settings *IndexSettings) Metric() (geospatial.DistanceMetric, error) {
	return geospatial.NewGreatCircleMetricWithRadius(settings.EarthRadius)
}
