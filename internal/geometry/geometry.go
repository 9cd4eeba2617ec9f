// Package geometry holds the pure math behind marquee selection: drag-rect
// normalization, rotation-aware bounding boxes, and the full-containment
// test. Nothing here touches a store or a clock.
package geometry

import (
	"math"

	"github.com/jun/gophboard/internal/model"
)

// Point is a position in canvas coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is an axis-aligned rectangle with non-negative size.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// NormalizeDragRect converts two drag endpoints into a rectangle with
// non-negative width and height, whichever direction the drag went.
func NormalizeDragRect(start, current Point) Rect {
	return Rect{
		X:      math.Min(start.X, current.X),
		Y:      math.Min(start.Y, current.Y),
		Width:  math.Abs(current.X - start.X),
		Height: math.Abs(current.Y - start.Y),
	}
}

// BoundsOf computes the axis-aligned bounding box of an object.
//
// Rectangles and text boxes honor rotation: the four corners are rotated
// about the object's origin and the box spans the rotated corners. Circles
// are center-based and never rotated for bounds purposes. Lines span their
// two endpoints.
func BoundsOf(obj *model.CanvasObject) Rect {
	switch obj.Type {
	case model.ShapeRectangle, model.ShapeText:
		if obj.Rotation == 0 {
			return Rect{X: obj.X, Y: obj.Y, Width: obj.Width, Height: obj.Height}
		}
		return rotatedBounds(obj.X, obj.Y, obj.Width, obj.Height, obj.Rotation)
	case model.ShapeCircle:
		return Rect{
			X:      obj.X - obj.RadiusX,
			Y:      obj.Y - obj.RadiusY,
			Width:  2 * obj.RadiusX,
			Height: 2 * obj.RadiusY,
		}
	case model.ShapeLine:
		return Rect{
			X:      math.Min(obj.X, obj.X2),
			Y:      math.Min(obj.Y, obj.Y2),
			Width:  math.Abs(obj.X2 - obj.X),
			Height: math.Abs(obj.Y2 - obj.Y),
		}
	}
	// Unknown shape: a zero-size box at the object origin selects nothing.
	return Rect{X: obj.X, Y: obj.Y}
}

// rotatedBounds rotates the four corners of the (x,y,w,h) box about (x,y) by
// deg degrees and returns the axis-aligned box of the rotated corners.
func rotatedBounds(x, y, w, h, deg float64) Rect {
	rad := deg * math.Pi / 180
	sin, cos := math.Sin(rad), math.Cos(rad)

	corners := [4][2]float64{
		{0, 0},
		{w, 0},
		{w, h},
		{0, h},
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, c := range corners {
		rx := x + c[0]*cos - c[1]*sin
		ry := y + c[0]*sin + c[1]*cos
		minX = math.Min(minX, rx)
		minY = math.Min(minY, ry)
		maxX = math.Max(maxX, rx)
		maxY = math.Max(maxY, ry)
	}

	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// Contains reports whether inner lies entirely within outer. Marquee
// selection deliberately requires full containment rather than overlap, so
// partially covered objects stay unselected.
func Contains(outer, inner Rect) bool {
	return inner.X >= outer.X &&
		inner.Y >= outer.Y &&
		inner.X+inner.Width <= outer.X+outer.Width &&
		inner.Y+inner.Height <= outer.Y+outer.Height
}
