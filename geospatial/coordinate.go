// Package geospatial scores and orders documents by their distance from one
// or more reference points on a sphere.
//
// Documents carry a serialised CoordinateSet in a value slot. A
// DistancePostingSource walks those values in document id order and weights
// each document by its distance from a centre; a DistanceKeyMaker turns the
// same distance into a sortable key. Distances come from a DistanceMetric,
// which can be serialised and rebuilt in another process through a Registry.
package geospatial

import (
	"math"
	"strconv"

	"github.com/gcbaptista/go-geo-search/sortable"
)

// coordinateSize is the length of a serialised Coordinate.
const coordinateSize = 2 * sortable.Size

// Coordinate is a latitude/longitude pair in decimal degrees.
//
// Latitude is in [-90, 90] with positive values in the northern hemisphere;
// longitude is in (-180, 180] with positive values in the eastern hemisphere.
// The datum is left to the caller, who must use one consistently.
type Coordinate struct {
	latitude  float64
	longitude float64
}

// NewCoordinate validates and constructs a Coordinate.
//
// A longitude outside (-180, 180] is rejected. A latitude outside [-90, 90]
// is wrapped into range: whole turns are removed, and a point carried past a
// pole is reflected back onto the opposite meridian.
func NewCoordinate(latitude, longitude float64) (Coordinate, error) {
	if math.IsNaN(longitude) || math.IsInf(longitude, 0) {
		return Coordinate{}, NewInvalidArgumentError("longitude must be finite, got %v", longitude)
	}
	if longitude <= -180 || longitude > 180 {
		return Coordinate{}, NewInvalidArgumentError("longitude %v out of range (-180, 180]", longitude)
	}
	if math.IsNaN(latitude) || math.IsInf(latitude, 0) {
		return Coordinate{}, NewInvalidArgumentError("latitude must be finite, got %v", latitude)
	}

	latitude, longitude = wrapLatitude(latitude, longitude)
	return Coordinate{latitude: positiveZero(latitude), longitude: positiveZero(longitude)}, nil
}

// MustCoordinate is like NewCoordinate but panics on invalid input.
// It is intended for constants and tests.
func MustCoordinate(latitude, longitude float64) Coordinate {
	c, err := NewCoordinate(latitude, longitude)
	if err != nil {
		panic(err)
	}
	return c
}

func wrapLatitude(lat, lon float64) (float64, float64) {
	if lat >= -90 && lat <= 90 {
		return lat, lon
	}

	lat = math.Mod(lat, 360)
	if lat > 180 {
		lat -= 360
	} else if lat <= -180 {
		lat += 360
	}

	switch {
	case lat > 90:
		lat = 180 - lat
		lon += 180
	case lat < -90:
		lat = -180 - lat
		lon += 180
	default:
		return lat, lon
	}

	if lon > 180 {
		lon -= 360
	}
	return lat, lon
}

func positiveZero(x float64) float64 {
	if x == 0 {
		return 0
	}
	return x
}

// Latitude returns the latitude in decimal degrees.
func (c Coordinate) Latitude() float64 { return c.latitude }

// Longitude returns the longitude in decimal degrees.
func (c Coordinate) Longitude() float64 { return c.longitude }

// Less orders coordinates by latitude, then longitude.
// The order carries no geographic meaning; it exists for de-duplication.
func (c Coordinate) Less(other Coordinate) bool {
	if c.latitude != other.latitude {
		return c.latitude < other.latitude
	}
	return c.longitude < other.longitude
}

// Equal reports whether both components are identical.
func (c Coordinate) Equal(other Coordinate) bool {
	return c.latitude == other.latitude && c.longitude == other.longitude
}

// Serialise returns the 16-byte serialised form: the sortable encodings of
// latitude and longitude, concatenated.
func (c Coordinate) Serialise() []byte {
	return c.appendTo(make([]byte, 0, coordinateSize))
}

func (c Coordinate) appendTo(dst []byte) []byte {
	dst = sortable.Append(dst, c.latitude)
	return sortable.Append(dst, c.longitude)
}

// String returns a description such as "Coordinate(51.5, -0.12)".
func (c Coordinate) String() string {
	return "Coordinate" + c.pair()
}

func (c Coordinate) pair() string {
	return "(" + formatFloat(c.latitude) + ", " + formatFloat(c.longitude) + ")"
}

func formatFloat(x float64) string {
	return strconv.FormatFloat(x, 'g', -1, 64)
}

// UnserialiseCoordinate decodes a coordinate that occupies the whole of data.
func UnserialiseCoordinate(data []byte) (Coordinate, error) {
	c, rest, err := UnserialiseCoordinatePrefix(data)
	if err != nil {
		return Coordinate{}, err
	}
	if len(rest) != 0 {
		return Coordinate{}, NewSerialisationError("coordinate", strconv.Itoa(len(rest))+" trailing bytes", nil)
	}
	return c, nil
}

// UnserialiseCoordinatePrefix decodes the coordinate at the start of data and
// returns the bytes that follow it.
func UnserialiseCoordinatePrefix(data []byte) (Coordinate, []byte, error) {
	if len(data) < coordinateSize {
		return Coordinate{}, data, NewSerialisationError("coordinate", "truncated data", nil)
	}

	lat, rest, err := sortable.UnserialisePrefix(data)
	if err != nil {
		return Coordinate{}, data, NewSerialisationError("coordinate", "bad latitude", err)
	}
	lon, rest, err := sortable.UnserialisePrefix(rest)
	if err != nil {
		return Coordinate{}, data, NewSerialisationError("coordinate", "bad longitude", err)
	}

	// Stored components were valid when written; anything else is corruption.
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return Coordinate{}, data, NewSerialisationError("coordinate", "latitude "+formatFloat(lat)+" out of range", nil)
	}
	c, err := NewCoordinate(lat, lon)
	if err != nil {
		return Coordinate{}, data, NewSerialisationError("coordinate", "invalid longitude", err)
	}
	return c, rest, nil
}
