package model

import "time"

// ShapeType tags a CanvasObject with its shape variant.
type ShapeType string

const (
	ShapeRectangle ShapeType = "rectangle"
	ShapeCircle    ShapeType = "circle"
	ShapeLine      ShapeType = "line"
	ShapeText      ShapeType = "text"
)

// DefaultLockTimeoutMs is the lease duration written on acquire when the
// object record does not carry its own.
const DefaultLockTimeoutMs int64 = 30_000

// CanvasObject is a single shape on a canvas. It is stored as one flat
// DynamoDB item; the Type tag selects which of the shape-specific field
// groups is meaningful. The lock triple (LockedBy/LockedAt/LockTimeoutMs)
// is present on every record regardless of shape.
type CanvasObject struct {
	ID       string    `json:"id" dynamodbav:"id"`
	CanvasID string    `json:"canvas_id" dynamodbav:"canvas_id"`
	Type     ShapeType `json:"type" dynamodbav:"shape_type"`

	X        float64 `json:"x" dynamodbav:"x"`
	Y        float64 `json:"y" dynamodbav:"y"`
	Rotation float64 `json:"rotation" dynamodbav:"rotation"` // degrees; not applicable to lines
	Opacity  float64 `json:"opacity" dynamodbav:"opacity"`
	ZIndex   int     `json:"z_index" dynamodbav:"z_index"`

	Fill        string  `json:"fill" dynamodbav:"fill"`
	Stroke      string  `json:"stroke" dynamodbav:"stroke"`
	StrokeWidth float64 `json:"stroke_width" dynamodbav:"stroke_width"`

	// Rectangle and text box.
	Width        float64 `json:"width,omitempty" dynamodbav:"width"`
	Height       float64 `json:"height,omitempty" dynamodbav:"height"`
	CornerRadius float64 `json:"corner_radius,omitempty" dynamodbav:"corner_radius"`

	// Circle, center-based.
	RadiusX float64 `json:"radius_x,omitempty" dynamodbav:"radius_x"`
	RadiusY float64 `json:"radius_y,omitempty" dynamodbav:"radius_y"`

	// Line second endpoint.
	X2 float64 `json:"x2,omitempty" dynamodbav:"x2"`
	Y2 float64 `json:"y2,omitempty" dynamodbav:"y2"`

	// Text.
	Text       string  `json:"text,omitempty" dynamodbav:"text"`
	FontFamily string  `json:"font_family,omitempty" dynamodbav:"font_family"`
	FontSize   float64 `json:"font_size,omitempty" dynamodbav:"font_size"`
	FontWeight string  `json:"font_weight,omitempty" dynamodbav:"font_weight"`
	FontStyle  string  `json:"font_style,omitempty" dynamodbav:"font_style"`
	TextAlign  string  `json:"text_align,omitempty" dynamodbav:"text_align"`

	// Lock triple. LockedBy/LockedAt are nil when unlocked. LockedAt is
	// unix milliseconds so expiry is plain integer arithmetic.
	LockedBy      *string `json:"locked_by" dynamodbav:"locked_by"`
	LockedAt      *int64  `json:"locked_at" dynamodbav:"locked_at"`
	LockTimeoutMs int64   `json:"lock_timeout_ms" dynamodbav:"lock_timeout_ms"`

	UpdatedBy string    `json:"updated_by" dynamodbav:"updated_by"`
	UpdatedAt time.Time `json:"updated_at" dynamodbav:"updated_at"`
}

// Lease is a time-bounded exclusive claim on an object. It mirrors the lock
// triple stored on the object record and is never persisted on its own.
type Lease struct {
	ObjectID   string `json:"object_id" dynamodbav:"object_id"`
	UserID     string `json:"user_id" dynamodbav:"user_id"`
	AcquiredAt int64  `json:"acquired_at" dynamodbav:"acquired_at"` // unix millis
	TimeoutMs  int64  `json:"timeout_ms" dynamodbav:"timeout_ms"`
}

// Expired reports whether the lease has logically expired at the given
// wall-clock instant. Expiry is evaluated lazily by readers; nothing deletes
// an expired lease until someone acquires over it.
func (l *Lease) Expired(now time.Time) bool {
	return now.UnixMilli()-l.AcquiredAt > l.TimeoutMs
}

// TransformUpdate is an ephemeral in-progress transform broadcast. It is a
// rendering hint for other clients, not an authoritative record; consumers
// discard updates older than a staleness threshold.
type TransformUpdate struct {
	ObjectID string    `json:"object_id"`
	UserID   string    `json:"user_id"`
	Type     ShapeType `json:"type"`

	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Rotation float64 `json:"rotation,omitempty"`
	Width    float64 `json:"width,omitempty"`
	Height   float64 `json:"height,omitempty"`
	RadiusX  float64 `json:"radius_x,omitempty"`
	RadiusY  float64 `json:"radius_y,omitempty"`
	X2       float64 `json:"x2,omitempty"`
	Y2       float64 `json:"y2,omitempty"`

	Timestamp int64 `json:"timestamp"` // unix millis
}

// Stale reports whether the update is older than maxAge at now.
func (u *TransformUpdate) Stale(now time.Time, maxAge time.Duration) bool {
	return now.UnixMilli()-u.Timestamp > maxAge.Milliseconds()
}

// User identifies a collaborator for lock attribution and presence.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}
