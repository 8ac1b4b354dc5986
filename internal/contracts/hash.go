package contracts

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

type hashSigner struct {
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

type hashDocument struct {
	Title       string       `json:"title"`
	Location    string       `json:"location"`
	Mode        ContentMode  `json:"mode"`
	Content     string       `json:"content"`
	DocumentRef string       `json:"document_ref"`
	CreatedBy   string       `json:"created_by"`
	CreatedAt   string       `json:"created_at"`
	Signers     []hashSigner `json:"signers"`
}

// ComputeHash returns the hex SHA-256 of the canonical contract header.
// It stands in for a real content digest and is treated as opaque everywhere else.
func ComputeHash(contract Contract) (string, error) {
	document := hashDocument{
		Title:       contract.Title,
		Location:    contract.Location,
		Mode:        contract.Mode,
		Content:     contract.Content,
		DocumentRef: contract.DocumentRef,
		CreatedBy:   contract.CreatedBy,
		CreatedAt:   contract.CreatedAt.UTC().Format(time.RFC3339Nano),
		Signers:     make([]hashSigner, 0, len(contract.Signers)),
	}
	for _, signer := range contract.Signers {
		document.Signers = append(document.Signers, hashSigner{Email: signer.Email, Role: signer.Role})
	}
	encoded, err := json.Marshal(document)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(encoded)
	return hex.EncodeToString(sum[:]), nil
}
