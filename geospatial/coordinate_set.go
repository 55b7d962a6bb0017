package geospatial

import (
	"sort"
	"strconv"
	"strings"
)

// CoordinateSet is a set of unique coordinates, held in canonical
// (Coordinate.Less) order. The zero value is an empty set ready for use.
type CoordinateSet struct {
	coords []Coordinate
}

// NewCoordinateSet returns a set holding the given coordinates; duplicates
// are dropped.
func NewCoordinateSet(coords ...Coordinate) *CoordinateSet {
	s := &CoordinateSet{coords: make([]Coordinate, 0, len(coords))}
	for _, c := range coords {
		s.Insert(c)
	}
	return s
}

func (s *CoordinateSet) search(c Coordinate) (int, bool) {
	i := sort.Search(len(s.coords), func(i int) bool { return !s.coords[i].Less(c) })
	return i, i < len(s.coords) && s.coords[i].Equal(c)
}

// Insert adds c to the set. It reports whether c was not already present.
func (s *CoordinateSet) Insert(c Coordinate) bool {
	i, found := s.search(c)
	if found {
		return false
	}
	s.coords = append(s.coords, Coordinate{})
	copy(s.coords[i+1:], s.coords[i:])
	s.coords[i] = c
	return true
}

// Erase removes c from the set. It reports whether c was present.
func (s *CoordinateSet) Erase(c Coordinate) bool {
	i, found := s.search(c)
	if !found {
		return false
	}
	s.coords = append(s.coords[:i], s.coords[i+1:]...)
	return true
}

// Contains reports whether c is a member of the set.
func (s *CoordinateSet) Contains(c Coordinate) bool {
	_, found := s.search(c)
	return found
}

// Len returns the number of coordinates in the set.
func (s *CoordinateSet) Len() int { return len(s.coords) }

// Empty reports whether the set has no members.
func (s *CoordinateSet) Empty() bool { return len(s.coords) == 0 }

// Coordinates returns a copy of the members in canonical order.
func (s *CoordinateSet) Coordinates() []Coordinate {
	out := make([]Coordinate, len(s.coords))
	copy(out, s.coords)
	return out
}

// Clone returns an independent copy of the set.
func (s *CoordinateSet) Clone() *CoordinateSet {
	return &CoordinateSet{coords: s.Coordinates()}
}

// Equal reports whether both sets hold the same coordinates.
func (s *CoordinateSet) Equal(other *CoordinateSet) bool {
	if s.Len() != other.Len() {
		return false
	}
	for i, c := range s.coords {
		if !c.Equal(other.coords[i]) {
			return false
		}
	}
	return true
}

// Serialise concatenates the serialised members in canonical order.
func (s *CoordinateSet) Serialise() []byte {
	buf := make([]byte, 0, len(s.coords)*coordinateSize)
	for _, c := range s.coords {
		buf = c.appendTo(buf)
	}
	return buf
}

// String returns a description such as "CoordinateSet((0, 0), (1, 0))".
func (s *CoordinateSet) String() string {
	var b strings.Builder
	b.WriteString("CoordinateSet(")
	for i, c := range s.coords {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(c.pair())
	}
	b.WriteString(")")
	return b.String()
}

// UnserialiseCoordinateSet decodes the output of CoordinateSet.Serialise.
// Empty input yields an empty set.
func UnserialiseCoordinateSet(data []byte) (*CoordinateSet, error) {
	if len(data)%coordinateSize != 0 {
		return nil, NewSerialisationError("coordinate set",
			"length "+strconv.Itoa(len(data))+" is not a whole number of coordinates", nil)
	}

	s := &CoordinateSet{coords: make([]Coordinate, 0, len(data)/coordinateSize)}
	for rest := data; len(rest) > 0; {
		var (
			c   Coordinate
			err error
		)
		c, rest, err = UnserialiseCoordinatePrefix(rest)
		if err != nil {
			return nil, err
		}
		s.Insert(c)
	}
	return s, nil
}
