package server

import (
	"errors"
	"io"
	"mime"
	"net/http"

	"github.com/MarcoPoloResearchLab/signroom/internal/attachments"
	"github.com/MarcoPoloResearchLab/signroom/internal/contracts"
	"github.com/MarcoPoloResearchLab/signroom/internal/drafting"
	"github.com/MarcoPoloResearchLab/signroom/internal/workflow"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const attachmentFormField = "file"

func (h *httpHandler) handleGenerateDraft(c *gin.Context) {
	var request generateRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	kind, err := drafting.ParseKind(request.Kind)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid_request", "errors": gin.H{"kind": "Kind must be clause or full"}})
		return
	}
	mode, ok := contracts.ParseContentMode(request.Mode)
	if !ok {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid_request", "errors": gin.H{"mode": "Mode must be text or pdf"}})
		return
	}

	editor := workflow.NewEditor(nil)
	editor.SetMode(mode)
	editor.SetContent(request.Content)

	text, applied, err := h.workflow.Generate(c.Request.Context(), editor, request.Topic, kind)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, generateResponsePayload{
		Text:    text,
		Content: editor.Draft().Content,
		Applied: applied,
	})
}

func (h *httpHandler) handleUploadAttachment(c *gin.Context) {
	header, err := c.FormFile(attachmentFormField)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	file, err := header.Open()
	if err != nil {
		h.logger.Error("failed to open uploaded document", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.attachments.MaxBytes()+1))
	if err != nil {
		h.logger.Error("failed to read uploaded document", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	attachment, err := h.attachments.Accept(header.Filename, data)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toAttachmentPayload(attachment))
}

func (h *httpHandler) handleGetAttachment(c *gin.Context) {
	attachment, data, err := h.attachments.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, attachments.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
			return
		}
		h.respondError(c, err)
		return
	}
	if disposition := mime.FormatMediaType("inline", map[string]string{"filename": attachment.Name}); disposition != "" {
		c.Header("Content-Disposition", disposition)
	}
	c.Data(http.StatusOK, attachment.MediaType, data)
}
