// Package model holds the shared domain types for geographic areas.
package model

import (
	"regexp"

	"github.com/rotisserie/eris"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9_]+$`)

// Point is a geographic coordinate in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the point lies within the lat/lng degree ranges.
func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// RawPolygon is the wire representation of one polygon. The current format
// carries GeoJSON-style "coordinates" rings of [lng, lat, alt?]; records
// written by older clients instead carry a "points" array of [lat, lng]
// pairs forming a single shell ring. Exactly one of the two is set.
type RawPolygon struct {
	Type        string        `json:"type,omitempty"`
	Coordinates [][][]float64 `json:"coordinates,omitempty"`
	Points      [][]float64   `json:"points,omitempty"`
}

// PositionCount returns the number of positions across all rings.
func (p RawPolygon) PositionCount() int {
	if len(p.Coordinates) > 0 {
		n := 0
		for _, ring := range p.Coordinates {
			n += len(ring)
		}
		return n
	}
	return len(p.Points)
}

// Area is a named geographic region composed of one or more polygons.
// Polygons may be disjoint islands; the area's geometry is their union.
// The agency and relevance wire names are kept for client compatibility.
type Area struct {
	Name      string       `json:"name"`
	Slug      string       `json:"slug"`
	Agency    string       `json:"agencia"`
	Relevance int          `json:"relevancia"`
	Polygons  []RawPolygon `json:"polygons"`
}

// Validate checks the fields the transport layers must reject before the
// record reaches the repository. Geometry validity is checked separately
// at build time.
func (a Area) Validate() error {
	if a.Name == "" {
		return eris.New("area: name is required")
	}
	if !slugPattern.MatchString(a.Slug) {
		return eris.Errorf("area: slug %q must match [a-z0-9_]+", a.Slug)
	}
	if a.Relevance < 1 || a.Relevance > 10 {
		return eris.Errorf("area: relevance %d must be between 1 and 10", a.Relevance)
	}
	if len(a.Polygons) == 0 {
		return eris.New("area: at least one polygon is required")
	}
	return nil
}

// Summary reduces the area to its listing form.
func (a Area) Summary() AreaSummary {
	total := 0
	for _, p := range a.Polygons {
		total += p.PositionCount()
	}
	return AreaSummary{
		Name:         a.Name,
		Slug:         a.Slug,
		PolygonCount: len(a.Polygons),
		TotalPoints:  total,
	}
}

// AreaSummary is the listing view of an area.
type AreaSummary struct {
	Name         string `json:"name"`
	Slug         string `json:"slug"`
	PolygonCount int    `json:"polygon_count"`
	TotalPoints  int    `json:"total_points"`
}

// AreaPatch is a partial update. Nil fields are left unchanged; a non-nil
// Slug renames the area.
type AreaPatch struct {
	Name      *string      `json:"name"`
	Slug      *string      `json:"slug"`
	Agency    *string      `json:"agencia"`
	Relevance *int         `json:"relevancia"`
	Polygons  []RawPolygon `json:"polygons"`
}

// Apply merges the patch's provided fields over base and returns the result.
func (p AreaPatch) Apply(base Area) Area {
	merged := base
	if p.Name != nil {
		merged.Name = *p.Name
	}
	if p.Slug != nil {
		merged.Slug = *p.Slug
	}
	if p.Agency != nil {
		merged.Agency = *p.Agency
	}
	if p.Relevance != nil {
		merged.Relevance = *p.Relevance
	}
	if p.Polygons != nil {
		merged.Polygons = p.Polygons
	}
	return merged
}
