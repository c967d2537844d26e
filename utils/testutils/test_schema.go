package testutils

import (
	"github.com/datazip-inc/oratest/types"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// TContents is the employee seed data shared by the SODA suites
var TContents = []types.Employee{
	{ID: 1001, Name: "Gillian", Office: "Shenzhen"},
	{ID: 1002, Name: "Chris", Office: "Melbourne"},
	{ID: 1003, Name: "Changjie", Office: "Shenzhen"},
	{ID: 1004, Name: "Venkat", Office: "Bangalore"},
	{ID: 1005, Name: "May", Office: "London"},
	{ID: 1006, Name: "Joe", Office: "San Francisco"},
	{ID: 1007, Name: "Gavin", Office: "New York"},
}

// Location is a GeoJSON seed record for spatial filters
type Location struct {
	Name     string            `json:"name"`
	Geometry *geojson.Geometry `json:"geometry"`
}

func point(lon, lat float64) *geojson.Geometry {
	return geojson.NewGeometry(orb.Point{lon, lat})
}

// TContentsSpatial holds office locations as GeoJSON points
var TContentsSpatial = []Location{
	{Name: "Shenzhen", Geometry: point(114.0579, 22.5431)},
	{Name: "Melbourne", Geometry: point(144.9631, -37.8136)},
	{Name: "Bangalore", Geometry: point(77.5946, 12.9716)},
	{Name: "London", Geometry: point(-0.1276, 51.5072)},
	{Name: "San Francisco", Geometry: point(-122.4194, 37.7749)},
	{Name: "New York", Geometry: point(-74.0060, 40.7128)},
}

// Contents returns TContents as document contents for bulk inserts
func Contents() []any {
	contents := make([]any, len(TContents))
	for i, emp := range TContents {
		contents[i] = emp
	}
	return contents
}

// SpatialContents returns TContentsSpatial as document contents
func SpatialContents() []any {
	contents := make([]any, len(TContentsSpatial))
	for i, loc := range TContentsSpatial {
		contents[i] = loc
	}
	return contents
}

// NearFilter is a query-by-example matching geometries within km kilometres of g
func NearFilter(g *geojson.Geometry, km int) map[string]any {
	return map[string]any{
		"geometry": map[string]any{
			"$near": map[string]any{
				"$geometry": g,
				"$distance": km,
				"$unit":     "KM",
			},
		},
	}
}
