package geospatial

import (
	"math"

	"github.com/gcbaptista/go-geo-search/sortable"
)

// DefaultKeyDistance is the distance, in metres, used for documents without
// a usable location. It is far beyond any distance on Earth.
const DefaultKeyDistance = 10e10

// KeyMakerOption configures a DistanceKeyMaker.
type KeyMakerOption func(*DistanceKeyMaker)

// WithDefaultDistance sets the distance used for documents with no location.
func WithDefaultDistance(metres float64) KeyMakerOption {
	return func(k *DistanceKeyMaker) { k.defaultDistance = metres }
}

// DistanceKeyMaker builds sort keys from the distance between a centre and
// the coordinates stored in a document's value slot. Keys compare bytewise in
// the same order as the distances they encode.
//
// A DistanceKeyMaker is immutable and safe for concurrent use.
type DistanceKeyMaker struct {
	slot            uint32
	centre          *CoordinateSet
	metric          DistanceMetric
	defaultDistance float64
	defaultKey      []byte
}

// NewDistanceKeyMaker returns a key maker reading coordinates from slot. The
// centre and metric are copied.
func NewDistanceKeyMaker(slot uint32, centre *CoordinateSet, metric DistanceMetric, opts ...KeyMakerOption) (*DistanceKeyMaker, error) {
	if centre == nil || centre.Empty() {
		return nil, NewInvalidArgumentError("centre coordinate set is empty")
	}
	if metric == nil {
		return nil, NewInvalidArgumentError("metric is nil")
	}

	k := &DistanceKeyMaker{
		slot:            slot,
		centre:          centre.Clone(),
		metric:          metric.Clone(),
		defaultDistance: DefaultKeyDistance,
	}
	for _, opt := range opts {
		opt(k)
	}
	if math.IsNaN(k.defaultDistance) || k.defaultDistance < 0 {
		return nil, NewInvalidArgumentError("default distance must not be negative, got %v", k.defaultDistance)
	}
	k.defaultKey = sortable.Serialise(k.defaultDistance)
	return k, nil
}

// Key returns the sort key for doc. Documents with no value in the slot, or
// a value that does not hold any coordinates, get the default key.
func (k *DistanceKeyMaker) Key(doc Document) []byte {
	data := doc.Value(k.slot)
	if len(data) == 0 {
		return k.DefaultKey()
	}

	coords, err := UnserialiseCoordinateSet(data)
	if err != nil || coords.Empty() {
		return k.DefaultKey()
	}

	dist, _ := SetDistance(k.metric, k.centre, coords)
	return sortable.Serialise(dist)
}

// DefaultKey returns the key given to documents without a location.
func (k *DistanceKeyMaker) DefaultKey() []byte {
	out := make([]byte, len(k.defaultKey))
	copy(out, k.defaultKey)
	return out
}

// DefaultDistance returns the distance encoded by DefaultKey.
func (k *DistanceKeyMaker) DefaultDistance() float64 { return k.defaultDistance }

// Slot returns the value slot the key maker reads.
func (k *DistanceKeyMaker) Slot() uint32 { return k.slot }
