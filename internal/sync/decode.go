package sync

import (
	"math"

	"github.com/jun/gophboard/internal/model"
)

// Numeric fallbacks and ranges applied when decoding durable records. A
// single malformed record must degrade to a visible default, never crash
// every client's rendering.
const (
	defaultWidth    = 100.0
	defaultHeight   = 100.0
	defaultRadius   = 50.0
	defaultFontSize = 16.0

	minSize = 1.0
	maxSize = 10_000.0

	maxCoord = 1_000_000.0
)

// clampOr returns def when v is NaN or infinite, otherwise v clamped to
// [min, max].
func clampOr(v, def, min, max float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		v = def
	}
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// Decode sanitizes a raw durable record into a safe in-memory object.
// Dispatch over the shape tag is exhaustive: a record with an unknown tag is
// rejected (ok == false) instead of silently passing through half-decoded.
func Decode(raw model.CanvasObject) (model.CanvasObject, bool) {
	obj := raw
	obj.X = clampOr(obj.X, 0, -maxCoord, maxCoord)
	obj.Y = clampOr(obj.Y, 0, -maxCoord, maxCoord)
	obj.Rotation = clampOr(obj.Rotation, 0, -360, 360)
	obj.Opacity = clampOr(obj.Opacity, 1, 0, 1)
	obj.StrokeWidth = clampOr(obj.StrokeWidth, 1, 0, 100)

	switch obj.Type {
	case model.ShapeRectangle:
		obj.Width = clampOr(obj.Width, defaultWidth, minSize, maxSize)
		obj.Height = clampOr(obj.Height, defaultHeight, minSize, maxSize)
		obj.CornerRadius = clampOr(obj.CornerRadius, 0, 0, maxSize/2)
	case model.ShapeCircle:
		obj.RadiusX = clampOr(obj.RadiusX, defaultRadius, minSize, maxSize/2)
		obj.RadiusY = clampOr(obj.RadiusY, defaultRadius, minSize, maxSize/2)
	case model.ShapeLine:
		obj.X2 = clampOr(obj.X2, 0, -maxCoord, maxCoord)
		obj.Y2 = clampOr(obj.Y2, 0, -maxCoord, maxCoord)
		obj.Rotation = 0 // lines don't rotate
	case model.ShapeText:
		obj.Width = clampOr(obj.Width, defaultWidth, minSize, maxSize)
		obj.Height = clampOr(obj.Height, defaultHeight, minSize, maxSize)
		obj.FontSize = clampOr(obj.FontSize, defaultFontSize, 1, 500)
	default:
		return model.CanvasObject{}, false
	}

	return obj, true
}
