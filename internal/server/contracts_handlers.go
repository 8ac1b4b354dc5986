package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/MarcoPoloResearchLab/signroom/internal/contracts"
	"github.com/MarcoPoloResearchLab/signroom/internal/fields"
	"github.com/MarcoPoloResearchLab/signroom/internal/signature"
	"github.com/MarcoPoloResearchLab/signroom/internal/workflow"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	maxSignRequestBytes = 1 << 20
	maxSignStrokes      = 200
	maxSignPoints       = 20000
)

func (h *httpHandler) handleSubmitContract(c *gin.Context) {
	participant, ok := currentParticipant(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var request submitRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	editor, validation := h.buildEditor(request)
	if !validation.Empty() {
		for field, message := range workflow.ValidateDraft(editor.Draft()).Fields {
			if !validation.Has(field) {
				validation.Add(field, message)
			}
		}
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid_draft", "errors": validation.Fields})
		return
	}

	contract, err := h.workflow.Submit(c.Request.Context(), editor, participant)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toContractPayload(contract))
}

// buildEditor replays a submitted draft into an editor. Problems that the editor cannot
// represent (unknown mode, role, attachment or field placement) are reported up front.
func (h *httpHandler) buildEditor(request submitRequestPayload) (*workflow.Editor, *contracts.ValidationError) {
	validation := &contracts.ValidationError{}
	editor := workflow.NewEditor(nil)
	editor.SetTitle(request.Title)
	editor.SetLocation(request.Location)
	editor.SetSignerEmail(request.SignerEmail)

	mode, ok := contracts.ParseContentMode(request.Mode)
	if !ok {
		validation.Add("mode", "Mode must be text or pdf")
	}
	if mode == contracts.ContentDocument {
		attachmentID := strings.TrimSpace(request.AttachmentID)
		attachment, err := h.attachments.Lookup(attachmentID)
		switch {
		case attachmentID == "":
			editor.SetMode(contracts.ContentDocument)
		case err != nil:
			validation.Add(contracts.FieldContent, "Attach a PDF document")
		default:
			title := request.Title
			editor.AttachDocument(attachment)
			if strings.TrimSpace(title) != "" {
				editor.SetTitle(title)
			}
		}
	} else {
		editor.SetContent(request.Content)
	}

	for index, recipient := range request.Recipients {
		role, ok := contracts.ParseRole(recipient.Role)
		if !ok {
			validation.Add(fmt.Sprintf("recipients[%d]", index), "Role must be signer or witness")
			continue
		}
		editor.AddRecipient(recipient.Email, role)
	}

	for index, placement := range request.Placements {
		key := fmt.Sprintf("placements[%d]", index)
		fieldType, err := fields.ParseType(placement.Type)
		if err != nil {
			validation.Add(key, "Unknown field type")
			continue
		}
		if err := editor.ArmField(fieldType); err != nil {
			validation.Add(key, "Field placement unavailable")
			continue
		}
		pointer := fields.Point{X: placement.Pointer.X, Y: placement.Pointer.Y}
		surface := fields.Rect{
			Left:   placement.Surface.Left,
			Top:    placement.Surface.Top,
			Width:  placement.Surface.Width,
			Height: placement.Surface.Height,
		}
		if _, err := editor.PlaceField(pointer, surface); err != nil {
			validation.Add(key, "Placement surface must have a positive size")
		}
	}
	return editor, validation
}

func (h *httpHandler) handleListContracts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"contracts": toContractPayloads(h.workflow.List())})
}

func (h *httpHandler) handleContractStats(c *gin.Context) {
	stats := h.workflow.Stats()
	c.JSON(http.StatusOK, statsPayload{
		Total:     stats.Total,
		Completed: stats.Completed,
		Pending:   stats.Pending,
		Archived:  stats.Archived,
	})
}

func (h *httpHandler) handleGetContract(c *gin.Context) {
	id, ok := contractIDParam(c)
	if !ok {
		return
	}
	contract, err := h.workflow.Get(id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toContractPayload(contract))
}

// handleResolveFields returns field values for the caller. With width and height query
// parameters each field also carries its pixel position on a surface of that size.
func (h *httpHandler) handleResolveFields(c *gin.Context) {
	participant, ok := currentParticipant(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	id, ok := contractIDParam(c)
	if !ok {
		return
	}
	width, height, project, valid := surfaceQuery(c)
	if !valid {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_surface"})
		return
	}

	contract, err := h.workflow.Get(id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	resolved, err := h.workflow.ResolveFields(contract, participant)
	if err != nil {
		h.respondError(c, err)
		return
	}

	response := make([]resolvedFieldPayload, 0, len(resolved))
	for _, entry := range resolved {
		payload := resolvedFieldPayload{fieldPayload: toFieldPayload(entry.Field), Value: entry.Value.Text()}
		if project {
			position := entry.Field.Project(width, height)
			payload.Position = &pointPayload{X: position.X, Y: position.Y}
		}
		response = append(response, payload)
	}
	c.JSON(http.StatusOK, gin.H{"fields": response})
}

func (h *httpHandler) handleSignContract(c *gin.Context) {
	participant, ok := currentParticipant(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	id, ok := contractIDParam(c)
	if !ok {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSignRequestBytes)
	var request signRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "payload_too_large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if !request.withinLimits() {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "signature_too_complex"})
		return
	}

	room, err := h.workflow.Open(id, signature.Size{Width: request.Surface.Width, Height: request.Surface.Height}, participant)
	if err != nil {
		h.respondError(c, err)
		return
	}
	defer room.Close()

	strokes := make([]signature.Stroke, 0, len(request.Strokes))
	for _, points := range request.Strokes {
		stroke := make(signature.Stroke, 0, len(points))
		for _, point := range points {
			stroke = append(stroke, signature.Point{X: point.X, Y: point.Y})
		}
		strokes = append(strokes, stroke)
	}
	room.Pad().Replay(strokes)

	outcome, err := room.Sign(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOutcomePayload(outcome))
}

func (h *httpHandler) handleRejectContract(c *gin.Context) {
	participant, ok := currentParticipant(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	id, ok := contractIDParam(c)
	if !ok {
		return
	}
	var request rejectRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	outcome, err := h.workflow.Reject(c.Request.Context(), id, workflow.Confirmed(request.Confirm), participant)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.logger.Info("contract rejected over http",
		zap.String("contract_id", id.String()),
		zap.String("participant_id", participant.ID),
	)
	c.JSON(http.StatusOK, toOutcomePayload(outcome))
}

func toOutcomePayload(outcome workflow.Outcome) outcomePayload {
	return outcomePayload{
		Contract: toContractPayload(outcome.Contract),
		Before:   string(outcome.Transition.Before),
		After:    string(outcome.Transition.After),
	}
}

func contractIDParam(c *gin.Context) (contracts.ContractID, bool) {
	id, err := contracts.NewContractID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_contract_id"})
		return "", false
	}
	return id, true
}

func surfaceQuery(c *gin.Context) (float64, float64, bool, bool) {
	rawWidth, hasWidth := c.GetQuery("width")
	rawHeight, hasHeight := c.GetQuery("height")
	if !hasWidth && !hasHeight {
		return 0, 0, false, true
	}
	width, widthErr := strconv.ParseFloat(rawWidth, 64)
	height, heightErr := strconv.ParseFloat(rawHeight, 64)
	if widthErr != nil || heightErr != nil || !(width > 0) || !(height > 0) {
		return 0, 0, false, false
	}
	return width, height, true, true
}
