package workflow

import (
	"context"
	"errors"

	"github.com/MarcoPoloResearchLab/signroom/internal/contracts"
	"github.com/MarcoPoloResearchLab/signroom/internal/fields"
	"github.com/MarcoPoloResearchLab/signroom/internal/signature"
)

var errRoomClosed = errors.New("workflow: signing room closed")

// Confirmer is the blocking yes/no gate in front of an irreversible action.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) bool

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) bool {
	return f(ctx, prompt)
}

// Confirmed answers every prompt with a fixed decision, for callers that collected the answer up front.
type Confirmed bool

func (c Confirmed) Confirm(context.Context, string) bool {
	return bool(c)
}

// SigningRoom is one signing session over a selected contract. It owns its pad exclusively.
type SigningRoom struct {
	service  *Service
	actor    contracts.Participant
	contract contracts.Contract
	pad      *signature.Pad
	closed   bool
}

// Open selects a contract for signing and starts a fresh capture session on a surface of the given size.
func (s *Service) Open(id contracts.ContractID, size signature.Size, actor contracts.Participant) (*SigningRoom, error) {
	contract, err := s.store.Get(id)
	if err != nil {
		return nil, newServiceError(opOpen, reasonNotFound, err)
	}
	pad, err := signature.NewPad(size)
	if err != nil {
		return nil, newServiceError(opOpen, reasonInvalidSurface, err)
	}
	return &SigningRoom{service: s, actor: actor, contract: contract, pad: pad}, nil
}

// Contract returns the contract as last loaded into the room.
func (r *SigningRoom) Contract() contracts.Contract {
	return r.contract.Clone()
}

// Pad exposes the capture surface for pointer input.
func (r *SigningRoom) Pad() *signature.Pad {
	return r.pad
}

// CanAct reports whether the selected contract still accepts signer actions.
func (r *SigningRoom) CanAct() bool {
	if r.closed || r.contract.Status().Terminal() {
		return false
	}
	_, ok := r.contract.FirstPending()
	return ok
}

// Fields resolves the contract's fields for the acting participant.
func (r *SigningRoom) Fields() ([]fields.Resolved, error) {
	return r.service.ResolveFields(r.contract, r.actor)
}

// Sign exports the pad and signs for the first pending signer. An empty pad is refused without touching the contract.
func (r *SigningRoom) Sign(ctx context.Context) (Outcome, error) {
	if r.closed {
		return Outcome{}, newServiceError(opSign, reasonTransitionRefused, errRoomClosed)
	}
	artifact, err := r.pad.Export()
	if err != nil {
		return Outcome{}, newServiceError(opSign, reasonEmptyExport, err)
	}
	outcome, err := r.service.Sign(ctx, r.contract.ID, artifact, r.actor)
	if err != nil {
		return Outcome{}, err
	}
	r.contract = outcome.Contract
	r.Close()
	return outcome, nil
}

// Reject archives the contract once the confirmer agrees.
func (r *SigningRoom) Reject(ctx context.Context, confirmer Confirmer) (Outcome, error) {
	if r.closed {
		return Outcome{}, newServiceError(opReject, reasonTransitionRefused, errRoomClosed)
	}
	outcome, err := r.service.Reject(ctx, r.contract.ID, confirmer, r.actor)
	if err != nil {
		return Outcome{}, err
	}
	r.contract = outcome.Contract
	r.Close()
	return outcome, nil
}

// Close ends the session and discards the stroke history.
func (r *SigningRoom) Close() {
	if r.closed {
		return
	}
	r.closed = true
	_ = r.pad.Reset(r.pad.Size())
}
