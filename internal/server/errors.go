package server

import (
	"errors"
	"net/http"

	"github.com/MarcoPoloResearchLab/signroom/internal/attachments"
	"github.com/MarcoPoloResearchLab/signroom/internal/contracts"
	"github.com/MarcoPoloResearchLab/signroom/internal/signature"
	"github.com/MarcoPoloResearchLab/signroom/internal/workflow"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type codedError interface {
	Code() string
}

func (h *httpHandler) respondError(c *gin.Context, err error) {
	status, body := h.classifyError(c, err)
	var coded codedError
	if errors.As(err, &coded) {
		body["code"] = coded.Code()
	}
	c.JSON(status, body)
}

func (h *httpHandler) classifyError(c *gin.Context, err error) (int, gin.H) {
	var validation *contracts.ValidationError
	switch {
	case errors.As(err, &validation):
		return http.StatusUnprocessableEntity, gin.H{"error": "invalid_draft", "errors": validation.Fields}
	case errors.Is(err, contracts.ErrContractNotFound), errors.Is(err, attachments.ErrNotFound):
		return http.StatusNotFound, gin.H{"error": "not_found"}
	case errors.Is(err, contracts.ErrContractTerminal),
		errors.Is(err, contracts.ErrInvalidTransition),
		errors.Is(err, contracts.ErrNoPendingSigner),
		errors.Is(err, contracts.ErrSignerNotFound):
		return http.StatusConflict, gin.H{"error": "transition_refused"}
	case errors.Is(err, signature.ErrEmptyExport):
		return http.StatusUnprocessableEntity, gin.H{"error": "signature_required"}
	case errors.Is(err, signature.ErrInvalidSurface):
		return http.StatusBadRequest, gin.H{"error": "invalid_surface"}
	case errors.Is(err, workflow.ErrRejectionNotConfirmed):
		return http.StatusPreconditionFailed, gin.H{"error": "confirmation_required"}
	case errors.Is(err, workflow.ErrGenerationUnavailable):
		return http.StatusConflict, gin.H{"error": "generation_unavailable"}
	case errors.Is(err, workflow.ErrMissingTopic):
		return http.StatusUnprocessableEntity, gin.H{"error": "invalid_request", "errors": gin.H{"topic": "Topic is required"}}
	case errors.Is(err, attachments.ErrUnsupportedMediaType):
		return http.StatusUnsupportedMediaType, gin.H{"error": "unsupported_media_type"}
	case errors.Is(err, attachments.ErrTooLarge):
		return http.StatusRequestEntityTooLarge, gin.H{"error": "document_too_large"}
	case errors.Is(err, attachments.ErrEmptyDocument):
		return http.StatusUnprocessableEntity, gin.H{"error": "empty_document"}
	default:
		h.logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		return http.StatusInternalServerError, gin.H{"error": "internal_error"}
	}
}
