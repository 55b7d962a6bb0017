package geospatial

// DistanceMetric computes the distance, in metres, between two coordinates.
//
// Implementations are immutable. Name and Serialise together describe an
// instance completely: a Registry can rebuild an equivalent metric from them
// in another process, and two instances with the same name and parameters
// must return identical distances for every input.
type DistanceMetric interface {
	// Distance returns the distance between a and b in metres. It is
	// symmetric, never negative, and zero when a equals b.
	Distance(a, b Coordinate) float64

	// Clone returns an independent copy of the metric.
	Clone() DistanceMetric

	// Name returns the globally unique name under which the metric is
	// registered, qualified by its package (e.g. "geospatial.GreatCircleMetric").
	Name() string

	// Serialise returns the metric's parameters.
	Serialise() []byte

	// Unserialise builds a new metric of the same kind from parameters
	// returned by Serialise.
	Unserialise(data []byte) (DistanceMetric, error)
}

// SetDistance returns the minimum distance under m between any member of a
// and any member of b. Both sets must be non-empty.
func SetDistance(m DistanceMetric, a, b *CoordinateSet) (float64, error) {
	if a == nil || a.Empty() {
		return 0, NewInvalidArgumentError("first coordinate set is empty")
	}
	if b == nil || b.Empty() {
		return 0, NewInvalidArgumentError("second coordinate set is empty")
	}

	best := -1.0
	for _, ca := range a.coords {
		for _, cb := range b.coords {
			d := m.Distance(ca, cb)
			if best < 0 || d < best {
				best = d
				if best == 0 {
					return 0, nil
				}
			}
		}
	}
	return best, nil
}
