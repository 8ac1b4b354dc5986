package server

import (
	"time"

	"github.com/MarcoPoloResearchLab/signroom/internal/attachments"
	"github.com/MarcoPoloResearchLab/signroom/internal/contracts"
	"github.com/MarcoPoloResearchLab/signroom/internal/fields"
)

type pointPayload struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type rectPayload struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type placementPayload struct {
	Type    string       `json:"type"`
	Pointer pointPayload `json:"pointer"`
	Surface rectPayload  `json:"surface"`
}

type recipientPayload struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

type submitRequestPayload struct {
	Title        string             `json:"title"`
	Location     string             `json:"location"`
	Mode         string             `json:"mode"`
	Content      string             `json:"content"`
	AttachmentID string             `json:"attachment_id"`
	SignerEmail  string             `json:"signer_email"`
	Recipients   []recipientPayload `json:"recipients"`
	Placements   []placementPayload `json:"placements"`
}

type surfacePayload struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type signRequestPayload struct {
	Surface surfacePayload   `json:"surface"`
	Strokes [][]pointPayload `json:"strokes"`
}

func (p signRequestPayload) withinLimits() bool {
	if len(p.Strokes) > maxSignStrokes {
		return false
	}
	points := 0
	for _, stroke := range p.Strokes {
		points += len(stroke)
		if points > maxSignPoints {
			return false
		}
	}
	return true
}

type rejectRequestPayload struct {
	Confirm bool `json:"confirm"`
}

type generateRequestPayload struct {
	Topic   string `json:"topic"`
	Kind    string `json:"kind"`
	Mode    string `json:"mode"`
	Content string `json:"content"`
}

type generateResponsePayload struct {
	Text    string `json:"text"`
	Content string `json:"content"`
	Applied bool   `json:"applied"`
}

type attachmentPayload struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Title      string `json:"title"`
	MediaType  string `json:"media_type"`
	PreviewRef string `json:"preview_ref"`
	Size       int64  `json:"size"`
}

type artifactPayload struct {
	Kind    string `json:"kind"`
	DataURL string `json:"data_url,omitempty"`
	Hash    string `json:"signature_hash"`
	Width   int    `json:"width,omitempty"`
	Height  int    `json:"height,omitempty"`
}

type signerPayload struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Email     string           `json:"email"`
	Role      string           `json:"role"`
	Status    string           `json:"status"`
	SignedAt  *time.Time       `json:"signed_at,omitempty"`
	Signature *artifactPayload `json:"signature,omitempty"`
}

type fieldPayload struct {
	ID    string  `json:"id"`
	Type  string  `json:"type"`
	Label string  `json:"label"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

type contractPayload struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Location    string          `json:"location"`
	Mode        string          `json:"mode"`
	Content     string          `json:"content"`
	DocumentRef string          `json:"document_ref,omitempty"`
	Hash        string          `json:"hash"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	CreatedBy   string          `json:"created_by"`
	Signers     []signerPayload `json:"signers"`
	Fields      []fieldPayload  `json:"fields"`
}

type outcomePayload struct {
	Contract contractPayload `json:"contract"`
	Before   string          `json:"before"`
	After    string          `json:"after"`
}

type statsPayload struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Pending   int `json:"pending"`
	Archived  int `json:"archived"`
}

type resolvedFieldPayload struct {
	fieldPayload
	Value    string        `json:"value"`
	Position *pointPayload `json:"position,omitempty"`
}

func toContractPayload(contract contracts.Contract) contractPayload {
	payload := contractPayload{
		ID:          contract.ID.String(),
		Title:       contract.Title,
		Location:    contract.Location,
		Mode:        string(contract.Mode),
		Content:     contract.Content,
		DocumentRef: contract.DocumentRef,
		Hash:        contract.Hash,
		Status:      string(contract.Status()),
		CreatedAt:   contract.CreatedAt,
		CreatedBy:   contract.CreatedBy,
		Signers:     make([]signerPayload, 0, len(contract.Signers)),
		Fields:      make([]fieldPayload, 0, len(contract.Fields)),
	}
	for _, signer := range contract.Signers {
		entry := signerPayload{
			ID:       signer.ID.String(),
			Name:     signer.Name,
			Email:    signer.Email,
			Role:     string(signer.Role),
			Status:   string(signer.Status),
			SignedAt: signer.SignedAt,
		}
		if signer.Signature != nil {
			entry.Signature = &artifactPayload{
				Kind:    string(signer.Signature.Kind),
				DataURL: signer.Signature.DataURL,
				Hash:    signer.Signature.Hash,
				Width:   signer.Signature.Width,
				Height:  signer.Signature.Height,
			}
		}
		payload.Signers = append(payload.Signers, entry)
	}
	for _, field := range contract.Fields {
		payload.Fields = append(payload.Fields, toFieldPayload(field))
	}
	return payload
}

func toFieldPayload(field fields.Field) fieldPayload {
	return fieldPayload{
		ID:    field.ID,
		Type:  string(field.Type),
		Label: field.Label,
		X:     field.X,
		Y:     field.Y,
	}
}

func toContractPayloads(collection []contracts.Contract) []contractPayload {
	payloads := make([]contractPayload, 0, len(collection))
	for _, contract := range collection {
		payloads = append(payloads, toContractPayload(contract))
	}
	return payloads
}

func toAttachmentPayload(attachment attachments.Attachment) attachmentPayload {
	return attachmentPayload{
		ID:         attachment.ID,
		Name:       attachment.Name,
		Title:      attachment.Title,
		MediaType:  attachment.MediaType,
		PreviewRef: attachment.PreviewRef,
		Size:       attachment.Size,
	}
}
