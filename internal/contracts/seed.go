package contracts

import (
	"time"

	"github.com/MarcoPoloResearchLab/signroom/internal/signature"
)

// DemoParticipant is the sender used by the demo data set.
var DemoParticipant = Participant{ID: "u1", Name: "Carlos Mendes", Email: "carlos@exemplo.com"}

// DemoContracts returns the demo collection, newest first: one pending document contract
// and one completed text contract.
func DemoContracts() []Contract {
	completedAt := time.Date(2023, 10, 16, 14, 30, 0, 0, time.UTC)
	completedSentAt := time.Date(2023, 10, 15, 10, 0, 0, 0, time.UTC)
	pendingSentAt := time.Date(2023, 10, 20, 9, 0, 0, 0, time.UTC)

	completedHash := "8f434346648f6b96df89dda901c5176b10a6d83961dd3c1ac88b59b2dc327aa4"
	pendingHash := "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

	return []Contract{
		{
			ID:          "c2",
			Title:       "Non-Disclosure Agreement (NDA)",
			Location:    "Rio de Janeiro, RJ",
			Mode:        ContentDocument,
			Content:     "The parties agree to keep confidential the information exchanged during...",
			DocumentRef: "#",
			Hash:        pendingHash,
			CreatedAt:   time.Date(2023, 10, 20, 0, 0, 0, 0, time.UTC),
			CreatedBy:   DemoParticipant.ID,
			Signers: []Signer{
				NewSenderSigner(DemoParticipant, pendingHash, pendingSentAt),
				{ID: "s3", Name: "Angel Investor", Email: "investidor@vc.com", Role: RoleSigner, Status: SignerPending},
			},
		},
		{
			ID:        "c1",
			Title:     "IT Services Agreement",
			Location:  "São Paulo, SP",
			Mode:      ContentText,
			Content:   "This contract sets out the agreement between the parties for software development...",
			Hash:      completedHash,
			CreatedAt: time.Date(2023, 10, 15, 0, 0, 0, 0, time.UTC),
			CreatedBy: DemoParticipant.ID,
			Signers: []Signer{
				NewSenderSigner(DemoParticipant, completedHash, completedSentAt),
				{
					ID:        "s2",
					Name:      "Tech Solutions Ltda",
					Email:     "contato@techsolutions.com",
					Role:      RoleSigner,
					Status:    SignerSigned,
					SignedAt:  &completedAt,
					Signature: pointerTo(signature.ImportedArtifact(completedHash + ":s2")),
				},
			},
		},
	}
}

// Seed prepends the demo collection to the store, oldest first, so the store lists newest first.
func Seed(store *Store) error {
	demo := DemoContracts()
	for index := len(demo) - 1; index >= 0; index-- {
		if err := store.Prepend(demo[index]); err != nil {
			return err
		}
	}
	return nil
}

// NewSenderSigner builds the sender's entry, which is signed by the act of sending.
func NewSenderSigner(sender Participant, contractHash string, sentAt time.Time) Signer {
	signedAt := sentAt.UTC()
	return Signer{
		ID:        SignerID(sender.ID),
		Name:      sender.Name,
		Email:     sender.Email,
		Role:      RoleSender,
		Status:    SignerSigned,
		SignedAt:  &signedAt,
		Signature: pointerTo(signature.ConsentArtifact(contractHash + ":" + sender.ID)),
	}
}

func pointerTo[T any](value T) *T {
	return &value
}
