package geospatial

import (
	"math"

	"github.com/gcbaptista/go-geo-search/sortable"
)

// QuadraticMeanEarthRadius is the quadratic mean radius of the Earth in metres.
const QuadraticMeanEarthRadius = 6372797.6

const greatCircleMetricName = "geospatial.GreatCircleMetric"

const degreesToRadians = math.Pi / 180

// GreatCircleMetric measures the great-circle distance between two points on
// a sphere using the haversine formula.
//
// The haversine formula loses precision for nearly antipodal points, where the
// result may be off by a few metres. That approximation is accepted; no
// geodesic correction is applied.
type GreatCircleMetric struct {
	radius float64
}

// NewGreatCircleMetric returns a metric on a sphere of QuadraticMeanEarthRadius.
func NewGreatCircleMetric() *GreatCircleMetric {
	return &GreatCircleMetric{radius: QuadraticMeanEarthRadius}
}

// NewGreatCircleMetricWithRadius returns a metric on a sphere of the given
// radius in metres.
func NewGreatCircleMetricWithRadius(radius float64) (*GreatCircleMetric, error) {
	if math.IsNaN(radius) || math.IsInf(radius, 0) || radius <= 0 {
		return nil, NewInvalidArgumentError("sphere radius must be positive and finite, got %v", radius)
	}
	return &GreatCircleMetric{radius: radius}, nil
}

// Radius returns the sphere radius in metres.
func (m *GreatCircleMetric) Radius() float64 { return m.radius }

// Distance returns the great-circle distance between a and b in metres.
func (m *GreatCircleMetric) Distance(a, b Coordinate) float64 {
	lat1 := a.latitude * degreesToRadians
	lat2 := b.latitude * degreesToRadians
	dlat := math.Abs(lat1 - lat2)
	dlon := math.Abs(a.longitude-b.longitude) * degreesToRadians

	sinHalfLat := math.Sin(dlat / 2)
	sinHalfLon := math.Sin(dlon / 2)
	h := sinHalfLat*sinHalfLat + math.Cos(lat1)*math.Cos(lat2)*sinHalfLon*sinHalfLon

	// Rounding can push h just outside [0, 1] near antipodal points.
	h = math.Max(0, math.Min(1, h))
	return 2 * m.radius * math.Asin(math.Sqrt(h))
}

// Clone returns a copy of the metric.
func (m *GreatCircleMetric) Clone() DistanceMetric {
	return &GreatCircleMetric{radius: m.radius}
}

// Name returns "geospatial.GreatCircleMetric".
func (m *GreatCircleMetric) Name() string { return greatCircleMetricName }

// Serialise returns the sortable encoding of the radius.
func (m *GreatCircleMetric) Serialise() []byte {
	return sortable.Serialise(m.radius)
}

// Unserialise builds a GreatCircleMetric from the output of Serialise.
func (m *GreatCircleMetric) Unserialise(data []byte) (DistanceMetric, error) {
	radius, err := sortable.Unserialise(data)
	if err != nil {
		return nil, NewSerialisationError("great circle metric", "bad radius", err)
	}
	metric, err := NewGreatCircleMetricWithRadius(radius)
	if err != nil {
		return nil, NewSerialisationError("great circle metric", "bad radius", err)
	}
	return metric, nil
}

// String describes the metric.
func (m *GreatCircleMetric) String() string {
	return "GreatCircleMetric(radius=" + formatFloat(m.radius) + ")"
}
