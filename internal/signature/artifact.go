package signature

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strings"
)

const pngDataURLPrefix = "data:image/png;base64,"

// ErrInvalidArtifact indicates that an encoded artifact could not be decoded.
var ErrInvalidArtifact = errors.New("signature: invalid artifact")

// Kind tells how an artifact was produced.
type Kind string

const (
	// KindDrawn is a freehand signature exported from a pad.
	KindDrawn Kind = "drawn"
	// KindSenderConsent marks the sender's signature given by the act of sending.
	KindSenderConsent Kind = "sender_consent"
	// KindImported marks signatures carried over from records created outside a pad.
	KindImported Kind = "imported"
)

// Artifact is a finalized signature mark.
type Artifact struct {
	Kind    Kind
	DataURL string
	Hash    string
	Width   int
	Height  int
}

// PNG decodes the image bytes carried by a drawn artifact.
func (a Artifact) PNG() ([]byte, error) {
	if !strings.HasPrefix(a.DataURL, pngDataURLPrefix) {
		return nil, ErrInvalidArtifact
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(a.DataURL, pngDataURLPrefix))
	if err != nil {
		return nil, errors.Join(ErrInvalidArtifact, err)
	}
	return decoded, nil
}

func newDrawnArtifact(encoded []byte, size Size) Artifact {
	return Artifact{
		Kind:    KindDrawn,
		DataURL: pngDataURLPrefix + base64.StdEncoding.EncodeToString(encoded),
		Hash:    digest(encoded),
		Width:   size.Width,
		Height:  size.Height,
	}
}

// ConsentArtifact builds the sender's mark bound to the given subject (typically contract hash and sender id).
func ConsentArtifact(subject string) Artifact {
	return Artifact{Kind: KindSenderConsent, Hash: digest([]byte(subject))}
}

// ImportedArtifact builds a mark for a signature recorded elsewhere.
func ImportedArtifact(subject string) Artifact {
	return Artifact{Kind: KindImported, Hash: digest([]byte(subject))}
}

func digest(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
