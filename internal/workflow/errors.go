package workflow

import (
	"errors"
	"fmt"
)

var (
	// ErrRejectionNotConfirmed indicates that the confirmation gate before rejection was not passed.
	ErrRejectionNotConfirmed = errors.New("workflow: rejection not confirmed")
	// ErrGenerationUnavailable indicates a generation request while the draft content is an attached document.
	ErrGenerationUnavailable = errors.New("workflow: generation unavailable for attached documents")
	// ErrMissingTopic indicates a generation request without a topic.
	ErrMissingTopic = errors.New("workflow: generation topic is required")

	errMissingStore       = errors.New("contract store is required")
	errMissingParticipant = errors.New("acting participant is required")
)

// ServiceError carries a dotted code naming the failing operation and reason.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

func (e *ServiceError) Code() string {
	return e.code
}

const (
	opServiceNew = "workflow.service.new"
	opSubmit     = "workflow.submit"
	opOpen       = "workflow.open"
	opSign       = "workflow.sign"
	opReject     = "workflow.reject"
	opGenerate   = "workflow.generate"
	opResolve    = "workflow.resolve_fields"
)

const (
	reasonMissingStore       = "missing_store"
	reasonMissingParticipant = "missing_participant"
	reasonInvalidDraft       = "invalid_draft"
	reasonIDFailed           = "id_generation_failed"
	reasonHashFailed         = "hash_failed"
	reasonStoreFailed        = "store_failed"
	reasonNotFound           = "not_found"
	reasonTransitionRefused  = "transition_refused"
	reasonEmptyExport        = "empty_export"
	reasonNotConfirmed       = "not_confirmed"
	reasonDocumentMode       = "document_mode"
	reasonMissingTopic       = "missing_topic"
	reasonInvalidSurface     = "invalid_surface"
	reasonResolveFailed      = "resolve_failed"
)

func newServiceError(operation, reason string, cause error) error {
	return &ServiceError{code: fmt.Sprintf("%s.%s", operation, reason), err: cause}
}
