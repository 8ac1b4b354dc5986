// Package workflow coordinates contract submission, the signing room, and notification triggers.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/signroom/internal/contracts"
	"github.com/MarcoPoloResearchLab/signroom/internal/drafting"
	"github.com/MarcoPoloResearchLab/signroom/internal/fields"
	"github.com/MarcoPoloResearchLab/signroom/internal/ids"
	"github.com/MarcoPoloResearchLab/signroom/internal/notify"
	"github.com/MarcoPoloResearchLab/signroom/internal/signature"
	"go.uber.org/zap"
)

const (
	// DefaultLocation is used when a draft leaves the signing location empty.
	DefaultLocation = "São Paulo, SP"

	recipientIDPrefix = "temp-"
)

// ServiceConfig describes the collaborators of the workflow service.
type ServiceConfig struct {
	Store           *contracts.Store
	Dispatcher      notify.Dispatcher
	Hub             *notify.Hub
	Generator       drafting.Generator
	Clock           func() time.Time
	IDProvider      ids.Provider
	Logger          *zap.Logger
	DefaultLocation string
}

// Service is the single mutation entry point for the contract collection.
type Service struct {
	store           *contracts.Store
	dispatcher      notify.Dispatcher
	hub             *notify.Hub
	generator       drafting.Generator
	clock           func() time.Time
	idProvider      ids.Provider
	logger          *zap.Logger
	defaultLocation string
}

// NewService validates the configuration and constructs the service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, newServiceError(opServiceNew, reasonMissingStore, errMissingStore)
	}
	dispatcher := cfg.Dispatcher
	if dispatcher == nil {
		dispatcher = notify.Discard{}
	}
	generator := cfg.Generator
	if generator == nil {
		generator = drafting.Static(drafting.FallbackUnavailable)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	idProvider := cfg.IDProvider
	if idProvider == nil {
		idProvider = ids.NewUUIDProvider()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	location := strings.TrimSpace(cfg.DefaultLocation)
	if location == "" {
		location = DefaultLocation
	}
	return &Service{
		store:           cfg.Store,
		dispatcher:      dispatcher,
		hub:             cfg.Hub,
		generator:       generator,
		clock:           clock,
		idProvider:      idProvider,
		logger:          logger,
		defaultLocation: location,
	}, nil
}

// List returns the contract collection, newest first.
func (s *Service) List() []contracts.Contract {
	return s.store.List()
}

// Stats summarizes the collection for the dashboard.
func (s *Service) Stats() contracts.Stats {
	return s.store.Stats()
}

// Get returns one contract.
func (s *Service) Get(id contracts.ContractID) (contracts.Contract, error) {
	contract, err := s.store.Get(id)
	if err != nil {
		return contracts.Contract{}, newServiceError(opOpen, reasonNotFound, err)
	}
	return contract, nil
}

// Submit validates the editor buffer and, on success, creates a pending contract sent by the participant.
// On validation failure nothing is created and the editor keeps its content.
func (s *Service) Submit(ctx context.Context, editor *Editor, sender contracts.Participant) (contracts.Contract, error) {
	if strings.TrimSpace(sender.ID) == "" {
		return contracts.Contract{}, newServiceError(opSubmit, reasonMissingParticipant, errMissingParticipant)
	}
	draft := editor.Draft()
	if validation := ValidateDraft(draft); !validation.Empty() {
		return contracts.Contract{}, newServiceError(opSubmit, reasonInvalidDraft, validation)
	}

	contract, err := s.buildContract(draft, sender)
	if err != nil {
		return contracts.Contract{}, err
	}
	if err := s.store.Prepend(contract); err != nil {
		s.logError(opSubmit, reasonStoreFailed, err, zap.String("contract_id", contract.ID.String()))
		return contracts.Contract{}, newServiceError(opSubmit, reasonStoreFailed, err)
	}

	invited := invitedEmails(contract)
	s.dispatcher.Dispatch(ctx, notify.Notification{
		ContractID:          contract.ID.String(),
		Kind:                notify.KindInitial,
		Subject:             notify.Subject(notify.KindInitial, contract.Title),
		Recipients:          invited,
		NotifyParticipantID: sender.ID,
	})
	s.publish(sender.ID, notify.NoticeSuccess, contract.ID, fmt.Sprintf("Contract sent to %s", strings.Join(invited, ", ")))
	editor.Clear()

	s.logger.Info("contract submitted",
		zap.String("contract_id", contract.ID.String()),
		zap.String("sender_id", sender.ID),
		zap.Int("signers", len(contract.Signers)),
	)
	return contract, nil
}

// ValidateDraft reports every field-level problem of a draft.
func ValidateDraft(draft Draft) *contracts.ValidationError {
	validation := &contracts.ValidationError{}
	if strings.TrimSpace(draft.Title) == "" {
		validation.Add(contracts.FieldTitle, "Title is required")
	}
	if !contracts.ValidEmail(strings.TrimSpace(draft.SignerEmail)) {
		validation.Add(contracts.FieldEmail, "Enter a valid email address")
	}
	for index, recipient := range draft.Recipients {
		key := fmt.Sprintf("recipients[%d]", index)
		if !contracts.ValidEmail(strings.TrimSpace(recipient.Email)) {
			validation.Add(key, "Enter a valid email address")
			continue
		}
		if recipient.Role != contracts.RoleSigner && recipient.Role != contracts.RoleWitness {
			validation.Add(key, "Role must be signer or witness")
		}
	}
	switch draft.Mode {
	case contracts.ContentDocument:
		if strings.TrimSpace(draft.DocumentRef) == "" {
			validation.Add(contracts.FieldContent, "Attach a PDF document")
		}
	default:
		if strings.TrimSpace(draft.Content) == "" {
			validation.Add(contracts.FieldContent, "Contract text is required")
		}
	}
	return validation
}

func (s *Service) buildContract(draft Draft, sender contracts.Participant) (contracts.Contract, error) {
	rawID, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opSubmit, reasonIDFailed, err)
		return contracts.Contract{}, newServiceError(opSubmit, reasonIDFailed, err)
	}
	contractID, err := contracts.NewContractID(rawID)
	if err != nil {
		return contracts.Contract{}, newServiceError(opSubmit, reasonIDFailed, err)
	}

	location := strings.TrimSpace(draft.Location)
	if location == "" {
		location = s.defaultLocation
	}
	createdAt := s.clock().UTC()
	contract := contracts.Contract{
		ID:        contractID,
		Title:     strings.TrimSpace(draft.Title),
		Location:  location,
		Mode:      draft.Mode,
		CreatedAt: createdAt,
		CreatedBy: sender.ID,
		Fields:    append([]fields.Field(nil), draft.Fields...),
	}
	if draft.Mode == contracts.ContentDocument {
		contract.Content = contracts.AttachedDocumentContent
		contract.DocumentRef = strings.TrimSpace(draft.DocumentRef)
	} else {
		contract.Mode = contracts.ContentText
		contract.Content = draft.Content
	}

	invitations := append([]RecipientDraft{{Email: draft.SignerEmail, Role: contracts.RoleSigner}}, draft.Recipients...)
	contract.Signers = make([]contracts.Signer, 0, len(invitations)+1)
	contract.Signers = append(contract.Signers, contracts.Signer{Email: sender.Email, Role: contracts.RoleSender})
	for _, invitation := range invitations {
		signerID, err := s.idProvider.NewID()
		if err != nil {
			s.logError(opSubmit, reasonIDFailed, err)
			return contracts.Contract{}, newServiceError(opSubmit, reasonIDFailed, err)
		}
		email := strings.TrimSpace(invitation.Email)
		contract.Signers = append(contract.Signers, contracts.Signer{
			ID:     contracts.SignerID(recipientIDPrefix + signerID),
			Name:   contracts.EmailLocalPart(email),
			Email:  email,
			Role:   invitation.Role,
			Status: contracts.SignerPending,
		})
	}

	hash, err := contracts.ComputeHash(contract)
	if err != nil {
		s.logError(opSubmit, reasonHashFailed, err)
		return contracts.Contract{}, newServiceError(opSubmit, reasonHashFailed, err)
	}
	contract.Hash = hash
	contract.Signers[0] = contracts.NewSenderSigner(sender, hash, createdAt)
	return contract, nil
}

// Outcome reports the result of one signer action.
type Outcome struct {
	Contract   contracts.Contract
	Transition contracts.Transition
}

// Sign records the artifact for the first pending signer. At most one terminal notification is sent per contract.
func (s *Service) Sign(ctx context.Context, id contracts.ContractID, artifact signature.Artifact, actor contracts.Participant) (Outcome, error) {
	if artifact.Kind == "" || artifact.DataURL == "" {
		return Outcome{}, newServiceError(opSign, reasonEmptyExport, signature.ErrEmptyExport)
	}
	signedAt := s.clock().UTC()
	outcome, err := s.act(id, func(contract *contracts.Contract, signerID contracts.SignerID) (contracts.Transition, error) {
		return contract.MarkSigned(signerID, artifact, signedAt)
	})
	if err != nil {
		return Outcome{}, s.actionError(opSign, id, err)
	}

	s.publish(actor.ID, notify.NoticeSuccess, id, "Signature recorded")
	if outcome.Transition.After == contracts.StatusCompleted {
		s.publish(outcome.Contract.CreatedBy, notify.NoticeSuccess, id, notify.Subject(notify.KindCompleted, outcome.Contract.Title))
	}
	s.dispatchTerminal(ctx, outcome, actor)
	return outcome, nil
}

// Reject archives the contract through the first pending signer once the confirmer agrees.
// Other pending signers stay pending.
func (s *Service) Reject(ctx context.Context, id contracts.ContractID, confirmer Confirmer, actor contracts.Participant) (Outcome, error) {
	contract, err := s.store.Get(id)
	if err != nil {
		return Outcome{}, s.actionError(opReject, id, err)
	}
	if contract.Status().Terminal() {
		return Outcome{}, s.actionError(opReject, id, fmt.Errorf("%w: %s", contracts.ErrContractTerminal, contract.Status()))
	}
	if confirmer == nil || !confirmer.Confirm(ctx, rejectionPrompt(contract)) {
		return Outcome{}, newServiceError(opReject, reasonNotConfirmed, ErrRejectionNotConfirmed)
	}
	outcome, err := s.act(id, func(contract *contracts.Contract, signerID contracts.SignerID) (contracts.Transition, error) {
		return contract.MarkRejected(signerID)
	})
	if err != nil {
		return Outcome{}, s.actionError(opReject, id, err)
	}

	s.publish(actor.ID, notify.NoticeWarning, id, "Contract rejected")
	if outcome.Contract.CreatedBy != actor.ID {
		s.publish(outcome.Contract.CreatedBy, notify.NoticeError, id, notify.Subject(notify.KindRejected, outcome.Contract.Title))
	}
	s.dispatchTerminal(ctx, outcome, actor)
	return outcome, nil
}

func rejectionPrompt(contract contracts.Contract) string {
	return fmt.Sprintf("Reject %q? This archives the contract for every party.", contract.Title)
}

type signerAction func(contract *contracts.Contract, signerID contracts.SignerID) (contracts.Transition, error)

func (s *Service) act(id contracts.ContractID, action signerAction) (Outcome, error) {
	var transition contracts.Transition
	updated, err := s.store.Update(id, func(contract *contracts.Contract) error {
		if contract.Status().Terminal() {
			return contracts.ErrContractTerminal
		}
		pending, ok := contract.FirstPending()
		if !ok {
			return contracts.ErrNoPendingSigner
		}
		var actionErr error
		transition, actionErr = action(contract, pending.ID)
		return actionErr
	})
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Contract: updated, Transition: transition}, nil
}

func (s *Service) dispatchTerminal(ctx context.Context, outcome Outcome, actor contracts.Participant) {
	if !outcome.Transition.ReachedTerminal() {
		return
	}
	kind := notify.KindCompleted
	if outcome.Transition.After == contracts.StatusArchived {
		kind = notify.KindRejected
	}
	s.dispatcher.Dispatch(ctx, notify.Notification{
		ContractID:          outcome.Contract.ID.String(),
		Kind:                kind,
		Subject:             notify.Subject(kind, outcome.Contract.Title),
		Recipients:          outcome.Contract.Recipients(),
		NotifyParticipantID: actor.ID,
	})
	s.logger.Info("contract reached terminal status",
		zap.String("contract_id", outcome.Contract.ID.String()),
		zap.String("status", string(outcome.Transition.After)),
	)
}

func (s *Service) actionError(operation string, id contracts.ContractID, err error) error {
	switch {
	case errors.Is(err, contracts.ErrContractNotFound):
		return newServiceError(operation, reasonNotFound, err)
	case errors.Is(err, contracts.ErrContractTerminal),
		errors.Is(err, contracts.ErrInvalidTransition),
		errors.Is(err, contracts.ErrNoPendingSigner),
		errors.Is(err, contracts.ErrSignerNotFound):
		s.logger.Info("signer action refused", zap.String("operation", operation), zap.String("contract_id", id.String()), zap.Error(err))
		return newServiceError(operation, reasonTransitionRefused, err)
	default:
		s.logError(operation, reasonStoreFailed, err, zap.String("contract_id", id.String()))
		return newServiceError(operation, reasonStoreFailed, err)
	}
}

// Generate asks the drafting collaborator for text and appends it to the editor content.
// The returned flag is false when the editor was cleared or switched to a document while the call was in flight.
func (s *Service) Generate(ctx context.Context, editor *Editor, topic string, kind drafting.Kind) (string, bool, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return "", false, newServiceError(opGenerate, reasonMissingTopic, ErrMissingTopic)
	}
	epoch, mode := editor.beginGeneration()
	if mode == contracts.ContentDocument {
		return "", false, newServiceError(opGenerate, reasonDocumentMode, ErrGenerationUnavailable)
	}
	text := s.generator.Generate(ctx, topic, kind)
	applied := editor.applyGeneration(epoch, text)
	if !applied {
		s.logger.Debug("discarded stale generation result", zap.String("kind", string(kind)))
	}
	return text, applied, nil
}

// GenerationResult is delivered by GenerateAsync.
type GenerationResult struct {
	Text    string
	Applied bool
	Err     error
}

// GenerateAsync runs Generate on its own goroutine so editing continues while the collaborator answers.
func (s *Service) GenerateAsync(ctx context.Context, editor *Editor, topic string, kind drafting.Kind) <-chan GenerationResult {
	results := make(chan GenerationResult, 1)
	go func() {
		defer close(results)
		text, applied, err := s.Generate(ctx, editor, topic, kind)
		results <- GenerationResult{Text: text, Applied: applied, Err: err}
	}()
	return results
}

// ResolveFields computes the display values of a contract's fields for the acting participant without changing the contract.
func (s *Service) ResolveFields(contract contracts.Contract, actor contracts.Participant) ([]fields.Resolved, error) {
	resolved, err := fields.ResolveAll(contract.Fields, fields.ResolveContext{
		Now:        s.clock(),
		SignerName: actor.Name,
		Completed:  contract.Status() == contracts.StatusCompleted,
	})
	if err != nil {
		s.logError(opResolve, reasonResolveFailed, err, zap.String("contract_id", contract.ID.String()))
		return nil, newServiceError(opResolve, reasonResolveFailed, err)
	}
	return resolved, nil
}

func (s *Service) publish(participantID string, level notify.NoticeLevel, contractID contracts.ContractID, message string) {
	if s.hub == nil {
		return
	}
	s.hub.Publish(notify.Notice{
		ParticipantID: participantID,
		Level:         level,
		Message:       message,
		ContractID:    contractID.String(),
		Timestamp:     s.clock().UTC(),
	})
}

func invitedEmails(contract contracts.Contract) []string {
	emails := make([]string, 0, len(contract.Signers))
	for _, signer := range contract.Signers {
		if signer.Role == contracts.RoleSender {
			continue
		}
		emails = append(emails, signer.Email)
	}
	return emails
}

func (s *Service) logError(operation, reason string, err error, extra ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, extra...)
	s.logger.Error("workflow service error", attrs...)
}
