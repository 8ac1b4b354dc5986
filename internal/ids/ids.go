package ids

import (
	"errors"

	"github.com/google/uuid"
)

var errExhausted = errors.New("ids: sequence exhausted")

// Provider issues opaque unique identifiers.
type Provider interface {
	NewID() (string, error)
}

type uuidProvider struct{}

// NewUUIDProvider constructs a Provider that issues UUIDv7 identifiers.
func NewUUIDProvider() Provider {
	return &uuidProvider{}
}

func (p *uuidProvider) NewID() (string, error) {
	value, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return value.String(), nil
}

// Sequence issues ids from a fixed list and then fails; useful for deterministic tests.
type Sequence struct {
	values []string
	index  int
}

// NewSequence returns a Sequence over the provided values.
func NewSequence(values ...string) *Sequence {
	return &Sequence{values: append([]string(nil), values...)}
}

func (s *Sequence) NewID() (string, error) {
	if s.index >= len(s.values) {
		return "", errExhausted
	}
	value := s.values[s.index]
	s.index++
	return value, nil
}
