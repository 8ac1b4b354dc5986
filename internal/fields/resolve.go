package fields

import (
	"fmt"
	"time"
)

const (
	dateLayout         = "2006-01-02"
	unknownPlaceholder = "..."
	signatureFulfilled = "Digitally signed"
	signaturePending   = "[Pending]"
)

// Value is the rendered content of a field. The set of implementations is closed.
type Value interface {
	Text() string
	isValue()
}

// DateValue resolves a date field.
type DateValue struct {
	Date time.Time
}

func (v DateValue) Text() string {
	return v.Date.Format(dateLayout)
}

func (DateValue) isValue() {}

// NameValue resolves a signer-name field to the acting signer.
type NameValue struct {
	Name string
}

func (v NameValue) Text() string {
	if v.Name == "" {
		return unknownPlaceholder
	}
	return v.Name
}

func (NameValue) isValue() {}

// SignatureValue resolves a signature field to a pending or fulfilled marker.
type SignatureValue struct {
	Fulfilled bool
}

func (v SignatureValue) Text() string {
	if v.Fulfilled {
		return signatureFulfilled
	}
	return signaturePending
}

func (SignatureValue) isValue() {}

// TextValue is a placeholder until free-text fill-in exists.
type TextValue struct{}

func (TextValue) Text() string {
	return unknownPlaceholder
}

func (TextValue) isValue() {}

// ResolveContext is the read-only signing-room state a field resolves against.
type ResolveContext struct {
	Now        time.Time
	SignerName string
	Completed  bool
}

// Resolved pairs a field with its resolved value.
type Resolved struct {
	Field Field
	Value Value
}

// Resolve computes the display value of a field.
func Resolve(field Field, context ResolveContext) (Value, error) {
	switch field.Type {
	case TypeDate:
		return DateValue{Date: context.Now}, nil
	case TypeSignerName:
		return NameValue{Name: context.SignerName}, nil
	case TypeSignature:
		return SignatureValue{Fulfilled: context.Completed}, nil
	case TypeText:
		return TextValue{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, field.Type)
	}
}

// ResolveAll resolves every field in order, skipping none.
func ResolveAll(fieldSet []Field, context ResolveContext) ([]Resolved, error) {
	resolved := make([]Resolved, 0, len(fieldSet))
	for _, field := range fieldSet {
		value, err := Resolve(field, context)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, Resolved{Field: field, Value: value})
	}
	return resolved, nil
}
