// Package drafting provides the draft-generation collaborator used while editing contract text.
package drafting

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Kind selects how much text a generation call produces.
type Kind string

const (
	// KindClause asks for one formal paragraph.
	KindClause Kind = "clause"
	// KindFull asks for a short complete draft.
	KindFull Kind = "full"
)

// ErrUnknownKind indicates a generation kind outside the supported set.
var ErrUnknownKind = errors.New("drafting: unknown kind")

// ParseKind validates raw input, defaulting to a clause.
func ParseKind(raw string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(raw))) {
	case KindClause, "":
		return KindClause, nil
	case KindFull:
		return KindFull, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, raw)
	}
}

// Fixed texts returned in place of generated content. Callers never see generation errors.
const (
	FallbackUnavailable = "AI service unavailable. Please type the text manually."
	FallbackFailed      = "Failed to generate legal text. Please try again later."
)

// Generator produces contract text for a topic. Implementations degrade to a fallback text instead of failing.
type Generator interface {
	Generate(ctx context.Context, topic string, kind Kind) string
}

// Prompt builds the instruction sent to the model.
func Prompt(topic string, kind Kind) string {
	if kind == KindFull {
		return fmt.Sprintf("Write a simple and direct contract draft about: %q. Include the parties, the object and the main conditions. Use bullet points where appropriate.", topic)
	}
	return fmt.Sprintf("Write a professional and clear legal clause for a contract about: %q. Keep the tone formal and direct. One paragraph at most.", topic)
}

// Static returns the same text for every call. It backs demos and tests.
type Static string

func (s Static) Generate(context.Context, string, Kind) string {
	return string(s)
}
