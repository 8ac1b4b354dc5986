package signature

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/vector"
)

const (
	maxSurfaceEdge = 4096
	dotSegments    = 16
)

// ErrInvalidSurface indicates that the requested surface dimensions are unusable.
var ErrInvalidSurface = errors.New("signature: invalid surface size")

// Point is a position in surface-local pixel coordinates.
type Point struct {
	X float64
	Y float64
}

// Size is the pixel size of a drawing surface.
type Size struct {
	Width  int
	Height int
}

func (s Size) validate() error {
	if s.Width <= 0 || s.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidSurface, s.Width, s.Height)
	}
	if s.Width > maxSurfaceEdge || s.Height > maxSurfaceEdge {
		return fmt.Errorf("%w: %dx%d exceeds %d", ErrInvalidSurface, s.Width, s.Height, maxSurfaceEdge)
	}
	return nil
}

// Style is the ink used for strokes.
type Style struct {
	Width float64
	Color color.RGBA
}

// DefaultStyle is a 4px round blue pen.
var DefaultStyle = Style{
	Width: 4,
	Color: color.RGBA{R: 0x25, G: 0x63, B: 0xeb, A: 0xff},
}

// surface is a transparent RGBA raster with round-capped stroke primitives.
type surface struct {
	canvas *image.RGBA
	raster *vector.Rasterizer
}

func newSurface(size Size) *surface {
	return &surface{
		canvas: image.NewRGBA(image.Rect(0, 0, size.Width, size.Height)),
		raster: vector.NewRasterizer(size.Width, size.Height),
	}
}

func (s *surface) size() Size {
	bounds := s.canvas.Bounds()
	return Size{Width: bounds.Dx(), Height: bounds.Dy()}
}

func (s *surface) wipe() {
	clear(s.canvas.Pix)
}

func (s *surface) snapshot() []byte {
	return append([]byte(nil), s.canvas.Pix...)
}

// paint renders a committed stroke exactly as live drawing did: a dot at the start, one segment per move.
func (s *surface) paint(points Stroke, style Style) {
	if len(points) == 0 {
		return
	}
	s.dot(points[0], style)
	for index := 1; index < len(points); index++ {
		s.segment(points[index-1], points[index], style)
	}
}

func (s *surface) clamp(point Point) Point {
	bounds := s.canvas.Bounds()
	return Point{
		X: math.Max(0, math.Min(point.X, float64(bounds.Dx()))),
		Y: math.Max(0, math.Min(point.Y, float64(bounds.Dy()))),
	}
}

// dot paints a filled disc, which gives strokes their round caps and joins.
func (s *surface) dot(center Point, style Style) {
	center = s.clamp(center)
	radius := style.Width / 2
	if radius <= 0 {
		return
	}
	s.beginPath()
	for step := 0; step < dotSegments; step++ {
		angle := 2 * math.Pi * float64(step) / dotSegments
		x := float32(center.X + radius*math.Cos(angle))
		y := float32(center.Y + radius*math.Sin(angle))
		if step == 0 {
			s.raster.MoveTo(x, y)
			continue
		}
		s.raster.LineTo(x, y)
	}
	s.fill(style)
}

// segment paints a line of the style width from start to end, capped at both ends.
func (s *surface) segment(start, end Point, style Style) {
	start = s.clamp(start)
	end = s.clamp(end)
	dx := end.X - start.X
	dy := end.Y - start.Y
	length := math.Hypot(dx, dy)
	if length < 1e-6 {
		s.dot(end, style)
		return
	}
	halfWidth := style.Width / 2
	nx := -dy / length * halfWidth
	ny := dx / length * halfWidth

	s.beginPath()
	s.raster.MoveTo(float32(start.X+nx), float32(start.Y+ny))
	s.raster.LineTo(float32(end.X+nx), float32(end.Y+ny))
	s.raster.LineTo(float32(end.X-nx), float32(end.Y-ny))
	s.raster.LineTo(float32(start.X-nx), float32(start.Y-ny))
	s.fill(style)
	s.dot(end, style)
}

func (s *surface) beginPath() {
	size := s.size()
	s.raster.Reset(size.Width, size.Height)
	s.raster.DrawOp = draw.Over
}

func (s *surface) fill(style Style) {
	s.raster.ClosePath()
	s.raster.Draw(s.canvas, s.canvas.Bounds(), image.NewUniform(style.Color), image.Point{})
}
