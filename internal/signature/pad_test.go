package signature

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPad(t *testing.T) *Pad {
	t.Helper()
	pad, err := NewPad(Size{Width: 120, Height: 60})
	require.NoError(t, err)
	return pad
}

func isBlank(pixels []byte) bool {
	for _, value := range pixels {
		if value != 0 {
			return false
		}
	}
	return true
}

func drawStroke(pad *Pad, points ...Point) {
	pad.Down(points[0])
	for _, point := range points[1:] {
		pad.Move(point)
	}
	pad.Up()
}

func TestPadRejectsInvalidSize(t *testing.T) {
	for _, size := range []Size{{0, 10}, {10, -1}, {maxSurfaceEdge + 1, 10}} {
		_, err := NewPad(size)
		assert.ErrorIs(t, err, ErrInvalidSurface)
	}
}

func TestPadRendersWhileDrawing(t *testing.T) {
	pad := newTestPad(t)
	pad.Down(Point{X: 10, Y: 10})
	pad.Move(Point{X: 90, Y: 10})

	assert.True(t, pad.Drawing())
	assert.False(t, pad.HasDrawn(), "an open stroke is not committed")
	assert.Equal(t, uint8(0xff), pad.Image().RGBAAt(50, 10).A, "ink should be visible before pointer up")
}

func TestPadHasDrawnAfterFirstUp(t *testing.T) {
	pad := newTestPad(t)
	_, err := pad.Export()
	require.ErrorIs(t, err, ErrEmptyExport)

	pad.Down(Point{X: 20, Y: 20})
	pad.Move(Point{X: 40, Y: 30})
	_, err = pad.Export()
	require.ErrorIs(t, err, ErrEmptyExport)

	pad.Up()
	assert.True(t, pad.HasDrawn())
	_, err = pad.Export()
	require.NoError(t, err)
}

func TestPadIgnoresMoveAndUpWithoutDown(t *testing.T) {
	pad := newTestPad(t)
	pad.Move(Point{X: 30, Y: 30})
	pad.Up()
	assert.Equal(t, 0, pad.HistoryLen())
	assert.True(t, isBlank(pad.Pixels()))
}

func TestPadTapCommitsADot(t *testing.T) {
	pad := newTestPad(t)
	pad.Down(Point{X: 30, Y: 30})
	pad.Up()
	assert.Equal(t, 1, pad.HistoryLen())
	assert.NotZero(t, pad.Image().RGBAAt(30, 30).A)
}

func TestPadUndoRestoresPreviousCommit(t *testing.T) {
	pad := newTestPad(t)
	strokes := []Stroke{
		{{X: 5, Y: 5}, {X: 60, Y: 20}},
		{{X: 10, Y: 50}, {X: 110, Y: 10}, {X: 100, Y: 55}},
		{{X: 70, Y: 30}},
	}

	snapshots := [][]byte{pad.Pixels()}
	for _, stroke := range strokes {
		drawStroke(pad, stroke...)
		snapshots = append(snapshots, pad.Pixels())
	}
	require.Equal(t, len(strokes), pad.HistoryLen())

	for commit := len(strokes); commit > 0; commit-- {
		require.False(t, bytes.Equal(snapshots[commit], snapshots[commit-1]), "stroke %d should change the surface", commit)
		pad.Undo()
		assert.Equal(t, commit-1, pad.HistoryLen())
		assert.True(t, bytes.Equal(snapshots[commit-1], pad.Pixels()), "undo of commit %d must restore commit %d", commit, commit-1)
	}
	assert.True(t, isBlank(pad.Pixels()))
	assert.False(t, pad.HasDrawn())
}

func TestPadHistoryHoldsPointsNotPixels(t *testing.T) {
	pad, err := NewPad(Size{Width: 800, Height: 300})
	require.NoError(t, err)
	strokes := make([]Stroke, 500)
	for index := range strokes {
		offset := float64(index % 50)
		strokes[index] = Stroke{{X: offset, Y: offset}, {X: offset + 40, Y: offset + 8}}
	}
	pad.Replay(strokes)

	require.Equal(t, len(strokes), pad.HistoryLen())
	recorded := 0
	for _, stroke := range pad.history {
		recorded += len(stroke.points)
	}
	assert.Equal(t, 2*len(strokes), recorded)

	pad.Undo()
	after := pad.Pixels()
	replayed, err := NewPad(Size{Width: 800, Height: 300})
	require.NoError(t, err)
	replayed.Replay(strokes[:len(strokes)-1])
	assert.True(t, bytes.Equal(replayed.Pixels(), after), "undo must repaint exactly the remaining strokes")
}

func TestPadUndoOnEmptyHistoryIsNoOp(t *testing.T) {
	pad := newTestPad(t)
	pad.Undo()
	assert.Equal(t, 0, pad.HistoryLen())
	assert.True(t, isBlank(pad.Pixels()))
}

func TestPadUndoDiscardsOpenStroke(t *testing.T) {
	pad := newTestPad(t)
	drawStroke(pad, Point{X: 5, Y: 5}, Point{X: 50, Y: 5})
	afterFirst := pad.Pixels()
	drawStroke(pad, Point{X: 5, Y: 40}, Point{X: 50, Y: 40})

	pad.Down(Point{X: 80, Y: 50})
	pad.Move(Point{X: 110, Y: 50})
	pad.Undo()

	assert.False(t, pad.Drawing())
	assert.Equal(t, 1, pad.HistoryLen())
	assert.Equal(t, afterFirst, pad.Pixels())
}

func TestPadClearIsTotal(t *testing.T) {
	pad := newTestPad(t)
	drawStroke(pad, Point{X: 5, Y: 5}, Point{X: 50, Y: 20})
	drawStroke(pad, Point{X: 15, Y: 45}, Point{X: 90, Y: 20})
	pad.Clear()

	assert.Equal(t, 0, pad.HistoryLen())
	assert.True(t, isBlank(pad.Pixels()))

	pad.Clear()
	assert.Equal(t, 0, pad.HistoryLen())
}

func TestPadResetStartsAFreshSession(t *testing.T) {
	pad := newTestPad(t)
	pad.SetStyle(Style{Width: 12, Color: DefaultStyle.Color})
	drawStroke(pad, Point{X: 5, Y: 5}, Point{X: 50, Y: 20})

	require.NoError(t, pad.Reset(Size{Width: 80, Height: 40}))
	assert.Equal(t, 0, pad.HistoryLen())
	assert.Equal(t, DefaultStyle, pad.Style())
	assert.Equal(t, Size{Width: 80, Height: 40}, pad.Size())
	assert.True(t, isBlank(pad.Pixels()))
}

func TestPadExportProducesPNGArtifact(t *testing.T) {
	pad := newTestPad(t)
	pad.Replay([]Stroke{{{X: 10, Y: 10}, {X: 100, Y: 40}}})

	artifact, err := pad.Export()
	require.NoError(t, err)
	assert.Equal(t, KindDrawn, artifact.Kind)
	assert.Equal(t, 120, artifact.Width)
	assert.Equal(t, 60, artifact.Height)

	encoded, err := artifact.PNG()
	require.NoError(t, err)
	sum := sha256.Sum256(encoded)
	assert.Equal(t, hex.EncodeToString(sum[:]), artifact.Hash)

	decoded, err := png.Decode(bytes.NewReader(encoded))
	require.NoError(t, err)
	assert.Equal(t, pad.Image().Bounds(), decoded.Bounds())
}

func TestArtifactPNGRejectsForeignPayload(t *testing.T) {
	_, err := ConsentArtifact("hash:sender").PNG()
	assert.ErrorIs(t, err, ErrInvalidArtifact)
}
