package fields

import (
	"errors"
	"fmt"

	"github.com/MarcoPoloResearchLab/signroom/internal/ids"
)

var (
	// ErrNotArmed indicates a placement attempt while placement mode is off or no type is pending.
	ErrNotArmed = errors.New("fields: placement mode not armed")
	// ErrFrozen indicates that the field set belongs to a submitted contract.
	ErrFrozen = errors.New("fields: field set is frozen")
	// ErrFieldNotFound indicates that no field carries the requested id.
	ErrFieldNotFound = errors.New("fields: field not found")
)

// Placer manages the fields attached to a document while it is being edited.
// While placement mode is on, surface interaction is suppressed and one click places one field.
type Placer struct {
	idProvider ids.Provider
	placing    bool
	pending    Type
	frozen     bool
	fields     []Field
}

// NewPlacer constructs an empty placer.
func NewPlacer(idProvider ids.Provider) *Placer {
	if idProvider == nil {
		idProvider = ids.NewUUIDProvider()
	}
	return &Placer{idProvider: idProvider}
}

// Arm enters placement mode with the given pending type.
func (p *Placer) Arm(fieldType Type) error {
	if p.frozen {
		return ErrFrozen
	}
	if _, err := ParseType(string(fieldType)); err != nil {
		return err
	}
	p.placing = true
	p.pending = fieldType
	return nil
}

// Toggle flips placement mode without changing the pending type.
func (p *Placer) Toggle() {
	if p.frozen {
		return
	}
	p.placing = !p.placing
	if !p.placing {
		p.pending = ""
	}
}

// Disarm leaves placement mode.
func (p *Placer) Disarm() {
	p.placing = false
	p.pending = ""
}

// Placing reports whether placement mode is on.
func (p *Placer) Placing() bool {
	return p.placing
}

// Pending returns the type the next click will place, if any.
func (p *Placer) Pending() (Type, bool) {
	return p.pending, p.placing && p.pending != ""
}

// InteractionEnabled reports whether the document surface accepts scroll and viewer input.
func (p *Placer) InteractionEnabled() bool {
	return !p.placing
}

// Place anchors a field of the pending type at the pointer position and leaves placement mode.
func (p *Placer) Place(pointer Point, rect Rect) (Field, error) {
	if p.frozen {
		return Field{}, ErrFrozen
	}
	fieldType, armed := p.Pending()
	if !armed {
		return Field{}, ErrNotArmed
	}
	x, y, err := Normalize(pointer, rect)
	if err != nil {
		return Field{}, err
	}
	id, err := p.idProvider.NewID()
	if err != nil {
		return Field{}, fmt.Errorf("fields: id generation failed: %w", err)
	}
	field := Field{
		ID:    id,
		Type:  fieldType,
		Label: fieldType.Label(),
		X:     x,
		Y:     y,
	}
	p.fields = append(p.fields, field)
	p.Disarm()
	return field, nil
}

// Remove drops the field with the given id; other fields keep their positions.
func (p *Placer) Remove(id string) error {
	if p.frozen {
		return ErrFrozen
	}
	for index, field := range p.fields {
		if field.ID == id {
			p.fields = append(p.fields[:index:index], p.fields[index+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrFieldNotFound, id)
}

// ClearAll drops every placed field.
func (p *Placer) ClearAll() error {
	if p.frozen {
		return ErrFrozen
	}
	p.fields = nil
	return nil
}

// Fields returns a copy of the placed fields in placement order.
func (p *Placer) Fields() []Field {
	return append([]Field(nil), p.fields...)
}

// Freeze makes the field set read-only.
func (p *Placer) Freeze() {
	p.frozen = true
	p.Disarm()
}

// Reset returns the placer to an empty, editable state.
func (p *Placer) Reset() {
	p.fields = nil
	p.frozen = false
	p.Disarm()
}
