package contracts

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/signroom/internal/fields"
	"github.com/MarcoPoloResearchLab/signroom/internal/signature"
)

const maxIdentifierLength = 190

var (
	// ErrInvalidContractID indicates that a contract identifier is empty or exceeds storage bounds.
	ErrInvalidContractID = errors.New("contracts: invalid contract id")
	// ErrContractNotFound indicates that no contract with the requested id exists.
	ErrContractNotFound = errors.New("contracts: contract not found")
	// ErrSignerNotFound indicates that the contract has no signer with the requested id.
	ErrSignerNotFound = errors.New("contracts: signer not found")
	// ErrInvalidTransition indicates that the signer is not in a state that accepts the action.
	ErrInvalidTransition = errors.New("contracts: invalid signer transition")
	// ErrContractTerminal indicates that the contract is completed or archived.
	ErrContractTerminal = errors.New("contracts: contract is terminal")
	// ErrNoPendingSigner indicates that every signer has already acted.
	ErrNoPendingSigner = errors.New("contracts: no pending signer")
)

// ContractID represents a validated contract identifier.
type ContractID string

// NewContractID validates raw input and returns a ContractID.
func NewContractID(rawInput string) (ContractID, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidContractID)
	}
	if len(trimmed) > maxIdentifierLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidContractID, maxIdentifierLength)
	}
	return ContractID(trimmed), nil
}

// String returns the underlying string identifier.
func (id ContractID) String() string {
	return string(id)
}

// SignerID identifies a party within one contract.
type SignerID string

// String returns the underlying string identifier.
func (id SignerID) String() string {
	return string(id)
}

// Status enumerates contract lifecycle states.
type Status string

const (
	// StatusDraft marks the editing buffer; contracts are never stored in this state.
	StatusDraft Status = "draft"
	// StatusPending means at least one signer has not acted yet.
	StatusPending Status = "pending"
	// StatusCompleted means every signer has signed.
	StatusCompleted Status = "completed"
	// StatusArchived means at least one signer rejected the contract.
	StatusArchived Status = "archived"
)

// Terminal reports whether no further signer transitions are accepted.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusArchived
}

// Role enumerates the parts a signer can play on a contract.
type Role string

const (
	RoleSender  Role = "sender"
	RoleSigner  Role = "signer"
	RoleWitness Role = "witness"
)

// ParseRole normalizes raw input into a recipient role. The sender role is never accepted from input.
func ParseRole(raw string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleSigner, "":
		return RoleSigner, true
	case RoleWitness:
		return RoleWitness, true
	default:
		return "", false
	}
}

// SignerStatus enumerates the independent state of one signer.
type SignerStatus string

const (
	SignerPending  SignerStatus = "pending"
	SignerSigned   SignerStatus = "signed"
	SignerRejected SignerStatus = "rejected"
)

// ContentMode discriminates whether a contract carries body text or an attached document.
type ContentMode string

const (
	ContentText     ContentMode = "text"
	ContentDocument ContentMode = "pdf"
)

// ParseContentMode normalizes raw input into a ContentMode, defaulting to text.
func ParseContentMode(raw string) (ContentMode, bool) {
	switch ContentMode(strings.ToLower(strings.TrimSpace(raw))) {
	case ContentText, "":
		return ContentText, true
	case ContentDocument, "document":
		return ContentDocument, true
	default:
		return "", false
	}
}

// AttachedDocumentContent is the body stored for contracts whose content is an attached document.
const AttachedDocumentContent = "Attached PDF document"

// Participant is the identity of the acting user as resolved by the identity collaborator.
type Participant struct {
	ID    string
	Name  string
	Email string
}

// Signer is one party attached to a contract.
type Signer struct {
	ID        SignerID
	Name      string
	Email     string
	Role      Role
	Status    SignerStatus
	SignedAt  *time.Time
	Signature *signature.Artifact
}

// Contract is the document-plus-metadata unit routed through the signing workflow.
type Contract struct {
	ID          ContractID
	Title       string
	Location    string
	Mode        ContentMode
	Content     string
	DocumentRef string
	Hash        string
	CreatedAt   time.Time
	CreatedBy   string
	Signers     []Signer
	Fields      []fields.Field
}

// Status derives the lifecycle state from the signer states.
func (c Contract) Status() Status {
	return DeriveStatus(c.Signers)
}

// Recipients returns every signer email in signer order.
func (c Contract) Recipients() []string {
	recipients := make([]string, 0, len(c.Signers))
	for _, signer := range c.Signers {
		if signer.Email == "" {
			continue
		}
		recipients = append(recipients, signer.Email)
	}
	return recipients
}

// Sender returns the sender signer entry.
func (c Contract) Sender() (Signer, bool) {
	for _, signer := range c.Signers {
		if signer.Role == RoleSender {
			return signer, true
		}
	}
	return Signer{}, false
}

// FirstPending returns the first signer that has not acted yet.
func (c Contract) FirstPending() (Signer, bool) {
	for _, signer := range c.Signers {
		if signer.Status == SignerPending {
			return signer, true
		}
	}
	return Signer{}, false
}

// Clone returns a deep copy that shares no mutable state with the receiver.
func (c Contract) Clone() Contract {
	clone := c
	clone.Signers = make([]Signer, len(c.Signers))
	for index, signer := range c.Signers {
		copied := signer
		if signer.SignedAt != nil {
			signedAt := *signer.SignedAt
			copied.SignedAt = &signedAt
		}
		if signer.Signature != nil {
			artifact := *signer.Signature
			copied.Signature = &artifact
		}
		clone.Signers[index] = copied
	}
	if c.Fields != nil {
		clone.Fields = append([]fields.Field(nil), c.Fields...)
	}
	return clone
}
