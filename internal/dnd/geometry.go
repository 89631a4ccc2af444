package dnd

import "math"

// Point is a position in screen cells. Coordinates are float64 so that
// midpoints of odd-height regions can fall between rows.
type Point struct {
	X float64
	Y float64
}

// Pt is shorthand for constructing a Point from integer cell coordinates.
func Pt(x, y int) Point {
	return Point{X: float64(x), Y: float64(y)}
}

// Sub returns p - q.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Add returns p + q.
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// Dist returns the Euclidean distance between p and q.
func (p Point) Dist(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Rect is an axis-aligned rectangle with its origin at the top-left corner.
type Rect struct {
	X float64
	Y float64
	W float64
	H float64
}

// R is shorthand for constructing a Rect from integer cell coordinates.
func R(x, y, w, h int) Rect {
	return Rect{X: float64(x), Y: float64(y), W: float64(w), H: float64(h)}
}

// Right returns the x coordinate of the right edge.
func (r Rect) Right() float64 { return r.X + r.W }

// Bottom returns the y coordinate of the bottom edge.
func (r Rect) Bottom() float64 { return r.Y + r.H }

// MidX returns the horizontal midpoint.
func (r Rect) MidX() float64 { return r.X + r.W/2 }

// MidY returns the vertical midpoint.
func (r Rect) MidY() float64 { return r.Y + r.H/2 }

// Area returns the rectangle's area.
func (r Rect) Area() float64 { return r.W * r.H }

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool { return r.W <= 0 || r.H <= 0 }

// Contains reports whether p lies within r. Edges are inclusive on all
// four sides.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.Right() &&
		p.Y >= r.Y && p.Y <= r.Bottom()
}

// Axis is the direction in which a container lays out its children.
type Axis int

const (
	// Vertical containers stack children top to bottom (a column of cards).
	Vertical Axis = iota
	// Horizontal containers lay children out left to right (the column track).
	Horizontal
)

func (a Axis) String() string {
	if a == Horizontal {
		return "horizontal"
	}
	return "vertical"
}

// before reports whether p lies strictly before the midpoint of r along a.
// A point exactly on the midpoint is not before it.
func (a Axis) before(p Point, r Rect) bool {
	if a == Horizontal {
		return p.X < r.MidX()
	}
	return p.Y < r.MidY()
}
