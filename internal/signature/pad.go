package signature

import (
	"bytes"
	"errors"
	"image"
	"image/png"
)

// ErrEmptyExport indicates an export attempt before any stroke was committed.
var ErrEmptyExport = errors.New("signature: nothing drawn")

// Stroke is one committed pointer path, from down through every move.
type Stroke []Point

// inkedStroke is a committed stroke together with the ink it was drawn with.
type inkedStroke struct {
	points Stroke
	style  Style
}

// Pad is the drawing surface of one signing session. It is owned by a single session
// and must not be shared between goroutines.
type Pad struct {
	surface *surface
	style   Style
	history []inkedStroke
	open    inkedStroke
	drawing bool
	last    Point
}

// NewPad acquires a blank surface of the given size.
func NewPad(size Size) (*Pad, error) {
	pad := &Pad{}
	if err := pad.Reset(size); err != nil {
		return nil, err
	}
	return pad, nil
}

// Reset re-initializes the pad for a new session: blank surface, empty history, default style.
func (p *Pad) Reset(size Size) error {
	if err := size.validate(); err != nil {
		return err
	}
	p.surface = newSurface(size)
	p.style = DefaultStyle
	p.history = nil
	p.open = inkedStroke{}
	p.drawing = false
	p.last = Point{}
	return nil
}

// SetStyle changes the ink for subsequent strokes.
func (p *Pad) SetStyle(style Style) {
	p.style = style
}

// Style returns the current ink.
func (p *Pad) Style() Style {
	return p.style
}

// Size returns the surface dimensions.
func (p *Pad) Size() Size {
	return p.surface.size()
}

// Down starts a stroke. A down while a stroke is open commits the open stroke first.
func (p *Pad) Down(point Point) {
	if p.drawing {
		p.Up()
	}
	p.drawing = true
	p.last = point
	p.open = inkedStroke{points: Stroke{point}, style: p.style}
	p.surface.dot(point, p.style)
}

// Move extends the open stroke and renders it immediately. Moves without a down are ignored.
func (p *Pad) Move(point Point) {
	if !p.drawing {
		return
	}
	p.surface.segment(p.last, point, p.open.style)
	p.last = point
	p.open.points = append(p.open.points, point)
}

// Up commits the open stroke onto the undo history.
func (p *Pad) Up() {
	if !p.drawing {
		return
	}
	p.drawing = false
	p.history = append(p.history, p.open)
	p.open = inkedStroke{}
}

// Leave is the pointer leaving the surface; it commits like Up.
func (p *Pad) Leave() {
	p.Up()
}

// Undo removes the most recent committed stroke and repaints the remaining ones from a blank surface.
// An open stroke is discarded along with it. Undo on an empty history is a no-op.
// History is kept as point lists, so memory grows with input rather than with surface size.
func (p *Pad) Undo() {
	if len(p.history) == 0 {
		return
	}
	p.drawing = false
	p.open = inkedStroke{}
	p.history[len(p.history)-1] = inkedStroke{}
	p.history = p.history[:len(p.history)-1]
	p.surface.wipe()
	for _, stroke := range p.history {
		p.surface.paint(stroke.points, stroke.style)
	}
}

// Clear wipes the surface and the whole history.
func (p *Pad) Clear() {
	p.drawing = false
	p.open = inkedStroke{}
	p.history = nil
	p.surface.wipe()
}

// HasDrawn reports whether at least one stroke is committed.
func (p *Pad) HasDrawn() bool {
	return len(p.history) > 0
}

// HistoryLen returns the number of committed strokes currently on the undo stack.
func (p *Pad) HistoryLen() int {
	return len(p.history)
}

// Drawing reports whether a stroke is open.
func (p *Pad) Drawing() bool {
	return p.drawing
}

// Pixels returns a copy of the raw RGBA surface bytes.
func (p *Pad) Pixels() []byte {
	return p.surface.snapshot()
}

// Image returns a copy of the current surface.
func (p *Pad) Image() *image.RGBA {
	canvas := p.surface.canvas
	copied := image.NewRGBA(canvas.Bounds())
	copy(copied.Pix, canvas.Pix)
	return copied
}

// Replay feeds each stroke through down, move and up.
func (p *Pad) Replay(strokes []Stroke) {
	for _, stroke := range strokes {
		if len(stroke) == 0 {
			continue
		}
		p.Down(stroke[0])
		for _, point := range stroke[1:] {
			p.Move(point)
		}
		p.Up()
	}
}

// Export serializes the current surface as a PNG artifact.
func (p *Pad) Export() (Artifact, error) {
	if !p.HasDrawn() {
		return Artifact{}, ErrEmptyExport
	}
	var buffer bytes.Buffer
	if err := png.Encode(&buffer, p.surface.canvas); err != nil {
		return Artifact{}, err
	}
	size := p.Size()
	return newDrawnArtifact(buffer.Bytes(), size), nil
}
