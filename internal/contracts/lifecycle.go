package contracts

import (
	"fmt"
	"time"

	"github.com/MarcoPoloResearchLab/signroom/internal/signature"
)

// DeriveStatus computes the contract status from the signer states.
// Any rejection archives the contract; all signatures complete it; everything else is pending.
// An empty signer set is pending because a contract always carries a sender and a recipient.
func DeriveStatus(signers []Signer) Status {
	if len(signers) == 0 {
		return StatusPending
	}
	allSigned := true
	for _, signer := range signers {
		switch signer.Status {
		case SignerRejected:
			return StatusArchived
		case SignerSigned:
		default:
			allSigned = false
		}
	}
	if allSigned {
		return StatusCompleted
	}
	return StatusPending
}

// Transition records the effect of one signer-state change on the contract.
type Transition struct {
	SignerID SignerID
	Before   Status
	After    Status
}

// ReachedTerminal reports whether this change moved the contract into a terminal status.
func (t Transition) ReachedTerminal() bool {
	return !t.Before.Terminal() && t.After.Terminal()
}

// MarkSigned records a signature for a pending signer.
func (c *Contract) MarkSigned(signerID SignerID, artifact signature.Artifact, signedAt time.Time) (Transition, error) {
	index, err := c.actionableSigner(signerID)
	if err != nil {
		return Transition{}, err
	}
	before := c.Status()

	timestamp := signedAt.UTC()
	stored := artifact
	c.Signers[index].Status = SignerSigned
	c.Signers[index].SignedAt = &timestamp
	c.Signers[index].Signature = &stored

	return Transition{SignerID: signerID, Before: before, After: c.Status()}, nil
}

// MarkRejected records a rejection for a pending signer. Other pending signers keep their state;
// the contract becomes archived, which blocks any further action on them.
func (c *Contract) MarkRejected(signerID SignerID) (Transition, error) {
	index, err := c.actionableSigner(signerID)
	if err != nil {
		return Transition{}, err
	}
	before := c.Status()
	c.Signers[index].Status = SignerRejected
	return Transition{SignerID: signerID, Before: before, After: c.Status()}, nil
}

func (c *Contract) actionableSigner(signerID SignerID) (int, error) {
	index := -1
	for position, signer := range c.Signers {
		if signer.ID == signerID {
			index = position
			break
		}
	}
	if index < 0 {
		return -1, fmt.Errorf("%w: %s", ErrSignerNotFound, signerID)
	}
	if status := c.Status(); status.Terminal() {
		return -1, fmt.Errorf("%w: %s", ErrContractTerminal, status)
	}
	if current := c.Signers[index].Status; current != SignerPending {
		return -1, fmt.Errorf("%w: signer %s is %s", ErrInvalidTransition, signerID, current)
	}
	return index, nil
}
