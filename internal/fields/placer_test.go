package fields

import (
	"testing"
	"time"

	"github.com/MarcoPoloResearchLab/signroom/internal/ids"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeUsesBoundingRectangle(t *testing.T) {
	x, y, err := Normalize(Point{X: 150, Y: 300}, Rect{Left: 100, Top: 100, Width: 200, Height: 400})
	require.NoError(t, err)
	assert.InDelta(t, 25.0, x, 1e-9)
	assert.InDelta(t, 50.0, y, 1e-9)
}

func TestNormalizeClampsAndRejectsEmptySurface(t *testing.T) {
	x, y, err := Normalize(Point{X: -20, Y: 900}, Rect{Width: 100, Height: 100})
	require.NoError(t, err)
	assert.Equal(t, 0.0, x)
	assert.Equal(t, 100.0, y)

	_, _, err = Normalize(Point{X: 1, Y: 1}, Rect{Width: 0, Height: 100})
	assert.ErrorIs(t, err, ErrInvalidSurface)
}

func TestPlacerPlacesOneFieldPerArm(t *testing.T) {
	placer := NewPlacer(ids.NewSequence("field-1", "field-2"))
	require.NoError(t, placer.Arm(TypeSignature))
	assert.False(t, placer.InteractionEnabled(), "placement mode suppresses surface interaction")

	field, err := placer.Place(Point{X: 50, Y: 20}, Rect{Width: 200, Height: 100})
	require.NoError(t, err)
	assert.Equal(t, Field{ID: "field-1", Type: TypeSignature, Label: "Signature", X: 25, Y: 20}, field)
	assert.False(t, placer.Placing())
	assert.True(t, placer.InteractionEnabled())

	_, err = placer.Place(Point{X: 10, Y: 10}, Rect{Width: 200, Height: 100})
	assert.ErrorIs(t, err, ErrNotArmed)
	assert.Len(t, placer.Fields(), 1)
}

func TestPlacerToggleWithoutTypeDoesNotPlace(t *testing.T) {
	placer := NewPlacer(ids.NewSequence("field-1"))
	placer.Toggle()
	assert.True(t, placer.Placing())

	_, err := placer.Place(Point{X: 10, Y: 10}, Rect{Width: 100, Height: 100})
	assert.ErrorIs(t, err, ErrNotArmed)
	assert.Empty(t, placer.Fields())

	placer.Toggle()
	assert.False(t, placer.Placing())
}

func TestPlacerArmRejectsUnknownType(t *testing.T) {
	placer := NewPlacer(nil)
	assert.ErrorIs(t, placer.Arm(Type("checkbox")), ErrUnknownType)
	assert.False(t, placer.Placing())
}

func TestPlacerRemoveKeepsOtherPositions(t *testing.T) {
	placer := NewPlacer(ids.NewSequence("a", "b", "c"))
	rect := Rect{Width: 100, Height: 100}
	for index, fieldType := range []Type{TypeDate, TypeText, TypeSignerName} {
		require.NoError(t, placer.Arm(fieldType))
		_, err := placer.Place(Point{X: float64(10 * (index + 1)), Y: float64(5 * (index + 1))}, rect)
		require.NoError(t, err)
	}
	before := placer.Fields()

	require.NoError(t, placer.Remove("b"))
	after := placer.Fields()
	require.Len(t, after, 2)
	assert.Equal(t, before[0], after[0])
	assert.Equal(t, before[2], after[1])

	assert.ErrorIs(t, placer.Remove("missing"), ErrFieldNotFound)
}

func TestPlacerFreezeBlocksEdits(t *testing.T) {
	placer := NewPlacer(ids.NewSequence("a"))
	require.NoError(t, placer.Arm(TypeDate))
	_, err := placer.Place(Point{X: 1, Y: 1}, Rect{Width: 10, Height: 10})
	require.NoError(t, err)

	placer.Freeze()
	assert.ErrorIs(t, placer.Arm(TypeDate), ErrFrozen)
	assert.ErrorIs(t, placer.Remove("a"), ErrFrozen)
	assert.ErrorIs(t, placer.ClearAll(), ErrFrozen)
	assert.Len(t, placer.Fields(), 1)

	placer.Reset()
	assert.Empty(t, placer.Fields())
	assert.NoError(t, placer.Arm(TypeDate))
}

func TestPlacementIsResolutionIndependent(t *testing.T) {
	cases := []struct {
		name           string
		width, height  float64
		pixelX, pixelY float64
		newW, newH     float64
	}{
		{name: "shrink", width: 800, height: 1100, pixelX: 200, pixelY: 550, newW: 400, newH: 550},
		{name: "grow", width: 320, height: 480, pixelX: 160, pixelY: 12, newW: 1280, newH: 1920},
		{name: "aspect-change", width: 600, height: 600, pixelX: 599, pixelY: 1, newW: 300, newH: 900},
		{name: "origin", width: 500, height: 700, pixelX: 0, pixelY: 0, newW: 250, newH: 100},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			placer := NewPlacer(ids.NewSequence("f"))
			require.NoError(t, placer.Arm(TypeDate))
			field, err := placer.Place(Point{X: tc.pixelX, Y: tc.pixelY}, Rect{Width: tc.width, Height: tc.height})
			require.NoError(t, err)

			projected := field.Project(tc.newW, tc.newH)
			assert.InDelta(t, tc.pixelX/tc.width*tc.newW, projected.X, 1e-9)
			assert.InDelta(t, tc.pixelY/tc.height*tc.newH, projected.Y, 1e-9)

			original := field.Project(tc.width, tc.height)
			assert.InDelta(t, tc.pixelX, original.X, 1e-9)
			assert.InDelta(t, tc.pixelY, original.Y, 1e-9)
		})
	}
}

func TestResolveByType(t *testing.T) {
	now := time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)
	pending := ResolveContext{Now: now, SignerName: "Ana Costa"}
	completed := ResolveContext{Now: now, SignerName: "Ana Costa", Completed: true}

	cases := []struct {
		fieldType Type
		context   ResolveContext
		expected  Value
		text      string
	}{
		{TypeDate, pending, DateValue{Date: now}, "2026-10-14"},
		{TypeSignerName, pending, NameValue{Name: "Ana Costa"}, "Ana Costa"},
		{TypeSignerName, ResolveContext{}, NameValue{}, "..."},
		{TypeSignature, pending, SignatureValue{Fulfilled: false}, "[Pending]"},
		{TypeSignature, completed, SignatureValue{Fulfilled: true}, "Digitally signed"},
		{TypeText, completed, TextValue{}, "..."},
	}
	for _, tc := range cases {
		value, err := Resolve(Field{ID: "f", Type: tc.fieldType}, tc.context)
		require.NoError(t, err)
		assert.Equal(t, tc.expected, value)
		assert.Equal(t, tc.text, value.Text())
	}

	_, err := Resolve(Field{Type: Type("checkbox")}, pending)
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestResolveAllDoesNotMutateFields(t *testing.T) {
	fieldSet := []Field{{ID: "a", Type: TypeDate, Label: "Date", X: 10, Y: 20}, {ID: "b", Type: TypeSignature, Label: "Signature", X: 30, Y: 40}}
	snapshot := append([]Field(nil), fieldSet...)

	resolved, err := ResolveAll(fieldSet, ResolveContext{Now: time.Now()})
	require.NoError(t, err)
	require.Len(t, resolved, 2)
	assert.Equal(t, snapshot, fieldSet)
	assert.Equal(t, fieldSet[1], resolved[1].Field)
}
