// Package geometry provides the point-in-shape tests card authoring tools use
// to hit-test occlusion regions. It lives under pkg so external authoring
// tools can import it; the study-time evaluator never needs these, it only
// compares revealed region ids.
package geometry

import "github.com/example/studyengine/pkg/models"

// Point is a position in image pixel space.
type Point struct {
	X float64
	Y float64
}

// RectContains reports whether p lies inside the axis-aligned rectangle with
// origin (x, y) and the given extent. Edges count as inside.
func RectContains(x, y, width, height float64, p Point) bool {
	return p.X >= x && p.X <= x+width && p.Y >= y && p.Y <= y+height
}

// EllipseContains reports whether p lies inside the ellipse inscribed in the
// rectangle with origin (x, y) and the given extent, using the normalized
// distance test (dx/rx)^2 + (dy/ry)^2 <= 1.
func EllipseContains(x, y, width, height float64, p Point) bool {
	rx := width / 2
	ry := height / 2
	if rx <= 0 || ry <= 0 {
		return false
	}
	dx := (p.X - (x + rx)) / rx
	dy := (p.Y - (y + ry)) / ry
	return dx*dx+dy*dy <= 1
}

// PolygonContains reports whether p lies inside the polygon, by ray casting:
// an odd number of edge crossings on a horizontal ray means inside.
func PolygonContains(points [][2]float64, p Point) bool {
	if len(points) < 3 {
		return false
	}
	inside := false
	j := len(points) - 1
	for i := 0; i < len(points); i++ {
		xi, yi := points[i][0], points[i][1]
		xj, yj := points[j][0], points[j][1]
		if (yi > p.Y) != (yj > p.Y) &&
			p.X < (xj-xi)*(p.Y-yi)/(yj-yi)+xi {
			inside = !inside
		}
		j = i
	}
	return inside
}

// RegionContains hit-tests an authored region against a point, dispatching on
// its shape. Unknown shapes never contain anything.
func RegionContains(r models.Region, p Point) bool {
	switch r.Shape {
	case models.ShapeRectangle:
		return RectContains(r.X, r.Y, r.Width, r.Height, p)
	case models.ShapeCircle:
		return EllipseContains(r.X, r.Y, r.Width, r.Height, p)
	case models.ShapePolygon:
		return PolygonContains(r.Points, p)
	}
	return false
}
