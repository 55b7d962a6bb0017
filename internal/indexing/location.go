package indexing

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/gcbaptista/go-geo-search/geospatial"
)

var (
	latitudeKeys  = []string{"lat", "latitude"}
	longitudeKeys = []string{"lng", "lon", "long", "longitude"}
)

// ParseLocation turns the value of a document's location field into a
// coordinate set. It accepts:
//
//	{"lat": 51.5, "lng": -0.12}            (also latitude / lon / long / longitude)
//	[51.5, -0.12]                          latitude first
//	"51.5,-0.12"
//	[{"lat": ..}, [lat, lon], ...]         several points
//	{"type": "Point", "coordinates": [lon, lat]}
//	{"type": "MultiPoint", "coordinates": [[lon, lat], ...]}
//
// GeoJSON positions are longitude first, as RFC 7946 requires.
func ParseLocation(value interface{}) (*geospatial.CoordinateSet, error) {
	set := geospatial.NewCoordinateSet()
	if err := addLocation(set, value); err != nil {
		return nil, err
	}
	return set, nil
}

func addLocation(set *geospatial.CoordinateSet, value interface{}) error {
	switch v := value.(type) {
	case map[string]interface{}:
		if _, ok := v["type"]; ok {
			return addGeoJSON(set, v)
		}
		c, err := parseLatLngObject(v)
		if err != nil {
			return err
		}
		set.Insert(c)
		return nil
	case []interface{}:
		if c, ok, err := parsePair(v); ok {
			if err != nil {
				return err
			}
			set.Insert(c)
			return nil
		}
		for i, item := range v {
			if _, nested := item.([]interface{}); !nested {
				if _, obj := item.(map[string]interface{}); !obj {
					return fmt.Errorf("location[%d]: expected an object or a [lat, lon] pair, got %T", i, item)
				}
			}
			if err := addLocation(set, item); err != nil {
				return fmt.Errorf("location[%d]: %w", i, err)
			}
		}
		return nil
	case []float64:
		if len(v) != 2 {
			return fmt.Errorf("a coordinate pair needs exactly 2 numbers, got %d", len(v))
		}
		c, err := geospatial.NewCoordinate(v[0], v[1])
		if err != nil {
			return err
		}
		set.Insert(c)
		return nil
	case string:
		c, err := parseLatLngString(v)
		if err != nil {
			return err
		}
		set.Insert(c)
		return nil
	default:
		return fmt.Errorf("unsupported location type %T", value)
	}
}

func parseLatLngObject(obj map[string]interface{}) (geospatial.Coordinate, error) {
	lat, err := lookupNumber(obj, latitudeKeys)
	if err != nil {
		return geospatial.Coordinate{}, err
	}
	lon, err := lookupNumber(obj, longitudeKeys)
	if err != nil {
		return geospatial.Coordinate{}, err
	}
	return geospatial.NewCoordinate(lat, lon)
}

func lookupNumber(obj map[string]interface{}, keys []string) (float64, error) {
	for _, key := range keys {
		raw, ok := obj[key]
		if !ok {
			continue
		}
		f, ok := toFloat(raw)
		if !ok {
			return 0, fmt.Errorf("field '%s' must be a number, got %T", key, raw)
		}
		return f, nil
	}
	return 0, fmt.Errorf("missing one of %s", strings.Join(keys, ", "))
}

// parsePair reports ok when v looks like a [lat, lon] pair of numbers.
func parsePair(v []interface{}) (geospatial.Coordinate, bool, error) {
	if len(v) != 2 {
		return geospatial.Coordinate{}, false, nil
	}
	lat, latOK := toFloat(v[0])
	lon, lonOK := toFloat(v[1])
	if !latOK || !lonOK {
		return geospatial.Coordinate{}, false, nil
	}
	c, err := geospatial.NewCoordinate(lat, lon)
	return c, true, err
}

func parseLatLngString(s string) (geospatial.Coordinate, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return geospatial.Coordinate{}, fmt.Errorf("location string must be \"lat,lon\", got %q", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return geospatial.Coordinate{}, fmt.Errorf("invalid latitude %q: %w", parts[0], err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return geospatial.Coordinate{}, fmt.Errorf("invalid longitude %q: %w", parts[1], err)
	}
	return geospatial.NewCoordinate(lat, lon)
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// addGeoJSON decodes a GeoJSON geometry object. Documents arrive as generic
// maps, so the object is re-encoded and handed to the geojson decoder.
func addGeoJSON(set *geospatial.CoordinateSet, obj map[string]interface{}) error {
	data, err := json.Marshal(obj)
	if err != nil {
		return fmt.Errorf("failed to encode geojson geometry: %w", err)
	}
	geometry, err := geojson.UnmarshalGeometry(data)
	if err != nil {
		return fmt.Errorf("invalid geojson geometry: %w", err)
	}

	var points []orb.Point
	switch g := geometry.Geometry().(type) {
	case orb.Point:
		points = []orb.Point{g}
	case orb.MultiPoint:
		points = g
	default:
		return fmt.Errorf("unsupported geojson geometry type %q", geometry.Type)
	}

	for _, p := range points {
		c, err := geospatial.NewCoordinate(p.Lat(), p.Lon())
		if err != nil {
			return err
		}
		set.Insert(c)
	}
	return nil
}
