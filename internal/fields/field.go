package fields

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	// ErrUnknownType indicates a field type outside the supported set.
	ErrUnknownType = errors.New("fields: unknown field type")
	// ErrInvalidSurface indicates a bounding rectangle without area.
	ErrInvalidSurface = errors.New("fields: invalid surface rectangle")
)

// Type is the semantic kind of a placed field.
type Type string

const (
	TypeDate       Type = "date"
	TypeText       Type = "text"
	TypeSignature  Type = "signature"
	TypeSignerName Type = "signer_name"
)

// Types lists every supported field type.
var Types = []Type{TypeDate, TypeText, TypeSignature, TypeSignerName}

// ParseType validates raw input and returns a Type.
func ParseType(raw string) (Type, error) {
	candidate := Type(strings.ToLower(strings.TrimSpace(raw)))
	switch candidate {
	case TypeDate, TypeText, TypeSignature, TypeSignerName:
		return candidate, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownType, raw)
	}
}

// Label returns the default human-readable label for the type.
func (t Type) Label() string {
	switch t {
	case TypeDate:
		return "Date"
	case TypeSignerName:
		return "Name"
	case TypeSignature:
		return "Signature"
	default:
		return "Text"
	}
}

// Field is a typed placeholder anchored at a percentage offset from the top-left of the document surface.
type Field struct {
	ID    string
	Type  Type
	Label string
	X     float64
	Y     float64
}

// Point is a pointer position in the same coordinate space as the surface rectangle.
type Point struct {
	X float64
	Y float64
}

// Rect is the bounding rectangle of the rendered document surface.
type Rect struct {
	Left   float64
	Top    float64
	Width  float64
	Height float64
}

// Normalize converts a pointer position into percentage coordinates within rect.
// Results are clamped to [0, 100].
func Normalize(pointer Point, rect Rect) (float64, float64, error) {
	if !(rect.Width > 0) || !(rect.Height > 0) {
		return 0, 0, fmt.Errorf("%w: %gx%g", ErrInvalidSurface, rect.Width, rect.Height)
	}
	x := (pointer.X - rect.Left) / rect.Width * 100
	y := (pointer.Y - rect.Top) / rect.Height * 100
	return clampPercent(x), clampPercent(y), nil
}

// Project returns the pixel position of the field on a surface of the given size.
func (f Field) Project(width, height float64) Point {
	return Point{X: f.X / 100 * width, Y: f.Y / 100 * height}
}

func clampPercent(value float64) float64 {
	if math.IsNaN(value) {
		return 0
	}
	return math.Max(0, math.Min(100, value))
}
