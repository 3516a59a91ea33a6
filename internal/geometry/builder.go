// Package geometry converts raw ring data into validated polygon-with-holes
// geometries and answers containment and boundary-distance queries on them.
package geometry

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/urbemaps/geofence/internal/model"
)

// ErrInvalidGeometry is returned when raw ring or coordinate data cannot
// form a valid polygon.
var ErrInvalidGeometry = eris.New("geometry: invalid geometry")

// Position is a longitude/latitude pair in degrees.
type Position struct {
	Lng float64
	Lat float64
}

// Ring is an ordered loop of positions. The first ring of a polygon is its
// exterior shell; the rest are holes.
type Ring []Position

// Polygon is one shell ring plus zero or more hole rings. Holes are assumed
// to lie inside the shell and are not re-validated against it.
type Polygon struct {
	Shell Ring
	Holes []Ring
}

// Compiled is the cached, query-ready form of an area's polygons. It is a
// pure function of the raw polygon list and immutable once built.
type Compiled struct {
	multi *geom.MultiPolygon
}

// ExtractRings normalizes either accepted polygon encoding into a Polygon.
// "coordinates" rings hold [lng, lat, alt?] positions; the legacy "points"
// array holds [lat, lng] pairs forming a single shell ring. Altitude is
// dropped when present.
func ExtractRings(raw model.RawPolygon) (Polygon, error) {
	switch {
	case len(raw.Coordinates) > 0:
		rings := make([]Ring, 0, len(raw.Coordinates))
		for _, rawRing := range raw.Coordinates {
			ring := make(Ring, 0, len(rawRing))
			for _, pos := range rawRing {
				if len(pos) < 2 {
					return Polygon{}, eris.Wrap(ErrInvalidGeometry, "position needs lng and lat")
				}
				ring = append(ring, Position{Lng: pos[0], Lat: pos[1]})
			}
			rings = append(rings, ring)
		}
		return Polygon{Shell: rings[0], Holes: rings[1:]}, nil

	case len(raw.Points) > 0:
		shell := make(Ring, 0, len(raw.Points))
		for _, pt := range raw.Points {
			if len(pt) < 2 {
				return Polygon{}, eris.Wrap(ErrInvalidGeometry, "point needs lat and lng")
			}
			shell = append(shell, Position{Lng: pt[1], Lat: pt[0]})
		}
		return Polygon{Shell: shell}, nil

	default:
		return Polygon{}, eris.Wrap(ErrInvalidGeometry, "polygon has neither coordinates nor points")
	}
}

// Build compiles raw polygons into a query-ready multi-polygon. Rings that
// do not repeat their first position are closed implicitly. Same input
// always yields a geometry with identical containment and boundary behavior.
func Build(polygons []model.RawPolygon) (*Compiled, error) {
	if len(polygons) == 0 {
		return nil, eris.Wrap(ErrInvalidGeometry, "area has no polygons")
	}

	mp := geom.NewMultiPolygon(geom.XY)
	for i, raw := range polygons {
		p, err := ExtractRings(raw)
		if err != nil {
			return nil, eris.Wrapf(err, "polygon %d", i)
		}

		poly := geom.NewPolygon(geom.XY)
		rings := append([]Ring{p.Shell}, p.Holes...)
		for _, ring := range rings {
			closed, err := normalizeRing(ring)
			if err != nil {
				return nil, eris.Wrapf(err, "polygon %d", i)
			}
			if err := poly.Push(geom.NewLinearRingFlat(geom.XY, closed.flat())); err != nil {
				return nil, eris.Wrapf(ErrInvalidGeometry, "polygon %d: %v", i, err)
			}
		}

		if err := mp.Push(poly); err != nil {
			return nil, eris.Wrapf(ErrInvalidGeometry, "polygon %d: %v", i, err)
		}
	}

	return &Compiled{multi: mp}, nil
}

// normalizeRing validates position ranges, closes the ring when its first
// position is not repeated, and enforces the four-position minimum on the
// closed form.
func normalizeRing(ring Ring) (Ring, error) {
	for _, pos := range ring {
		if pos.Lng < -180 || pos.Lng > 180 {
			return nil, eris.Wrapf(ErrInvalidGeometry, "longitude %v out of range", pos.Lng)
		}
		if pos.Lat < -90 || pos.Lat > 90 {
			return nil, eris.Wrapf(ErrInvalidGeometry, "latitude %v out of range", pos.Lat)
		}
	}
	if len(ring) > 0 && ring[0] != ring[len(ring)-1] {
		ring = append(append(Ring{}, ring...), ring[0])
	}
	if len(ring) < 4 {
		return nil, eris.Wrapf(ErrInvalidGeometry, "ring has %d positions, need at least 4", len(ring))
	}
	return ring, nil
}

func (r Ring) flat() []float64 {
	flat := make([]float64, 0, len(r)*2)
	for _, pos := range r {
		flat = append(flat, pos.Lng, pos.Lat)
	}
	return flat
}
