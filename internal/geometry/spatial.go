package geometry

import (
	"math"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"github.com/twpayne/go-geom/xy/location"
)

// EarthRadiusMeters is the mean Earth radius used for spherical distances.
const EarthRadiusMeters = 6371000

// Contains reports whether the point lies inside or on the boundary of any
// constituent polygon. Touching a ring counts as inside, for hole rings as
// well as shells; a point strictly inside a hole is outside.
func (c *Compiled) Contains(p Position) bool {
	coord := geom.Coord{p.Lng, p.Lat}
	for i := 0; i < c.multi.NumPolygons(); i++ {
		poly := c.multi.Polygon(i)

		switch xy.LocatePointInRing(geom.XY, coord, poly.LinearRing(0).FlatCoords()) {
		case location.Exterior:
			continue
		case location.Boundary:
			return true
		}

		inHole := false
		for j := 1; j < poly.NumLinearRings(); j++ {
			if xy.LocatePointInRing(geom.XY, coord, poly.LinearRing(j).FlatCoords()) == location.Interior {
				inHole = true
				break
			}
		}
		if !inHole {
			return true
		}
	}
	return false
}

// NearestBoundaryDistanceMeters returns the great-circle distance from the
// point to the closest position on the geometry's full boundary (shells and
// holes of every polygon), rounded to centimeters. The closest position is
// found by orthogonal projection in planar degree space; only the final
// distance is spherical. Callers short-circuit to 0 for contained points.
func (c *Compiled) NearestBoundaryDistanceMeters(p Position) float64 {
	var best Position
	bestSq := math.Inf(1)

	for i := 0; i < c.multi.NumPolygons(); i++ {
		poly := c.multi.Polygon(i)
		for j := 0; j < poly.NumLinearRings(); j++ {
			flat := poly.LinearRing(j).FlatCoords()
			for k := 0; k+3 < len(flat); k += 2 {
				cand := closestOnSegment(p,
					Position{Lng: flat[k], Lat: flat[k+1]},
					Position{Lng: flat[k+2], Lat: flat[k+3]},
				)
				if sq := planarSq(p, cand); sq < bestSq {
					bestSq = sq
					best = cand
				}
			}
		}
	}

	if math.IsInf(bestSq, 1) {
		return 0
	}
	return math.Round(Haversine(p, best)*100) / 100
}

// Haversine returns the great-circle distance in meters between two
// positions on a sphere of mean Earth radius.
func Haversine(a, b Position) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * EarthRadiusMeters * math.Asin(math.Sqrt(h))
}

// closestOnSegment projects p onto the segment ab in planar degree space,
// clamped to the segment's endpoints.
func closestOnSegment(p, a, b Position) Position {
	dx := b.Lng - a.Lng
	dy := b.Lat - a.Lat
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return a
	}
	t := ((p.Lng-a.Lng)*dx + (p.Lat-a.Lat)*dy) / lenSq
	t = math.Max(0, math.Min(1, t))
	return Position{Lng: a.Lng + t*dx, Lat: a.Lat + t*dy}
}

func planarSq(a, b Position) float64 {
	dx := a.Lng - b.Lng
	dy := a.Lat - b.Lat
	return dx*dx + dy*dy
}
