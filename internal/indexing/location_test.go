package indexing

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gcbaptista/go-geo-search/geospatial"
)

func decodeJSON(t *testing.T, s string) interface{} {
	t.Helper()
	var v interface{}
	require.NoError(t, json.Unmarshal([]byte(s), &v))
	return v
}

func TestParseLocation(t *testing.T) {
	london := geospatial.MustCoordinate(51.5, -0.12)
	paris := geospatial.MustCoordinate(48.85, 2.35)

	tests := []struct {
		name  string
		input string
		want  []geospatial.Coordinate
	}{
		{"lat lng object", `{"lat": 51.5, "lng": -0.12}`, []geospatial.Coordinate{london}},
		{"long names", `{"latitude": 51.5, "longitude": -0.12}`, []geospatial.Coordinate{london}},
		{"lon key", `{"lat": 51.5, "lon": -0.12}`, []geospatial.Coordinate{london}},
		{"pair", `[51.5, -0.12]`, []geospatial.Coordinate{london}},
		{"string", `"51.5, -0.12"`, []geospatial.Coordinate{london}},
		{"list of objects", `[{"lat": 51.5, "lng": -0.12}, {"lat": 48.85, "lng": 2.35}]`, []geospatial.Coordinate{paris, london}},
		{"list of pairs", `[[51.5, -0.12], [48.85, 2.35], [51.5, -0.12]]`, []geospatial.Coordinate{paris, london}},
		{"geojson point", `{"type": "Point", "coordinates": [-0.12, 51.5]}`, []geospatial.Coordinate{london}},
		{"geojson multipoint", `{"type": "MultiPoint", "coordinates": [[-0.12, 51.5], [2.35, 48.85]]}`, []geospatial.Coordinate{paris, london}},
		{"empty list", `[]`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := ParseLocation(decodeJSON(t, tt.input))
			require.NoError(t, err)
			assert.True(t, geospatial.NewCoordinateSet(tt.want...).Equal(set), "got %s", set)
		})
	}
}

func TestParseLocation_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"missing longitude", `{"lat": 51.5}`},
		{"missing latitude", `{"lng": 1}`},
		{"non numeric", `{"lat": "north", "lng": 1}`},
		{"longitude out of range", `[10, 200]`},
		{"bad string", `"51.5"`},
		{"bad string number", `"north,1"`},
		{"number", `42`},
		{"bool", `true`},
		{"list with scalar", `[[1, 2], 3]`},
		{"three numbers", `[1, 2, 3]`},
		{"geojson linestring", `{"type": "LineString", "coordinates": [[0, 0], [1, 1]]}`},
		{"geojson garbage", `{"type": "Point", "coordinates": "here"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseLocation(decodeJSON(t, tt.input))
			assert.Error(t, err)
		})
	}
}

func TestParseLocation_FloatSlice(t *testing.T) {
	set, err := ParseLocation([]float64{10, 20})
	require.NoError(t, err)
	assert.True(t, set.Contains(geospatial.MustCoordinate(10, 20)))

	_, err = ParseLocation([]float64{10})
	assert.Error(t, err)
}
