// Package geo converts hit positions into simple-features geometries so
// particle trajectories can be exported as WKT.
package geo

import (
	"errors"

	"github.com/mucoll/hitstats/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
)

// ErrNoPoints is returned when a trajectory has no positions.
var ErrNoPoints = errors.New("trajectory has no points")

// Point converts a detector position into an XYZ point.
func Point(v core.Vector3) geom.Point {
	return geom.NewPoint(geom.Coordinates{
		XY:   geom.XY{X: v.X, Y: v.Y},
		Z:    v.Z,
		Type: geom.DimXYZ,
	})
}

// LineString builds an XYZ line string through the positions in order.
// At least two positions are required.
func LineString(points []core.Vector3) (geom.LineString, error) {
	if len(points) < 2 {
		return geom.LineString{}, errors.New("line string needs at least 2 points")
	}
	flat := make([]float64, 0, len(points)*3)
	for _, p := range points {
		flat = append(flat, p.X, p.Y, p.Z)
	}
	return geom.NewLineString(geom.NewSequence(flat, geom.DimXYZ)), nil
}

// Trajectory returns the positions as a geometry: a point for one
// position, a line string otherwise.
func Trajectory(points []core.Vector3) (geom.Geometry, error) {
	switch len(points) {
	case 0:
		return geom.Geometry{}, ErrNoPoints
	case 1:
		return Point(points[0]).AsGeometry(), nil
	}
	ls, err := LineString(points)
	if err != nil {
		return geom.Geometry{}, err
	}
	return ls.AsGeometry(), nil
}

// TrajectoryWKT returns Trajectory as WKT.
func TrajectoryWKT(points []core.Vector3) (string, error) {
	g, err := Trajectory(points)
	if err != nil {
		return "", err
	}
	return g.AsText(), nil
}
