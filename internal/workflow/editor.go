package workflow

import (
	"sync"

	"github.com/MarcoPoloResearchLab/signroom/internal/attachments"
	"github.com/MarcoPoloResearchLab/signroom/internal/contracts"
	"github.com/MarcoPoloResearchLab/signroom/internal/fields"
	"github.com/MarcoPoloResearchLab/signroom/internal/ids"
)

// RecipientDraft is an additional party listed on a draft.
type RecipientDraft struct {
	Email string
	Role  contracts.Role
}

// Draft is a point-in-time copy of the editing buffer.
type Draft struct {
	Title       string
	Location    string
	Mode        contracts.ContentMode
	Content     string
	DocumentRef string
	SignerEmail string
	Recipients  []RecipientDraft
	Fields      []fields.Field
}

// Editor is the unsubmitted editing buffer of one contract.
// Generation results may arrive on another goroutine, so every access is serialized.
type Editor struct {
	mu sync.Mutex

	title       string
	location    string
	mode        contracts.ContentMode
	content     string
	documentRef string
	signerEmail string
	recipients  []RecipientDraft
	placer      *fields.Placer
	epoch       uint64
}

// NewEditor returns an empty text-mode editor. A nil provider issues UUIDs for placed fields.
func NewEditor(idProvider ids.Provider) *Editor {
	return &Editor{
		mode:   contracts.ContentText,
		placer: fields.NewPlacer(idProvider),
	}
}

func (e *Editor) SetTitle(title string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.title = title
}

func (e *Editor) SetLocation(location string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.location = location
}

func (e *Editor) SetContent(content string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.content = content
}

func (e *Editor) SetSignerEmail(email string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.signerEmail = email
}

// SetMode switches between typed text and an attached document. Leaving document mode drops the attachment.
func (e *Editor) SetMode(mode contracts.ContentMode) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mode = mode
	if mode != contracts.ContentDocument {
		e.documentRef = ""
	}
}

// AddRecipient lists an additional party after the primary signer.
func (e *Editor) AddRecipient(email string, role contracts.Role) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.recipients = append(e.recipients, RecipientDraft{Email: email, Role: role})
}

// AttachDocument switches the draft to document mode, titles it after the file and drops placed fields.
func (e *Editor) AttachDocument(attachment attachments.Attachment) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mode = contracts.ContentDocument
	e.documentRef = attachment.PreviewRef
	if attachment.Title != "" {
		e.title = attachment.Title
	}
	_ = e.placer.ClearAll()
	e.placer.Disarm()
}

// ArmField enters placement mode for the given type.
func (e *Editor) ArmField(fieldType fields.Type) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.placer.Arm(fieldType)
}

// TogglePlacement flips placement mode.
func (e *Editor) TogglePlacement() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.placer.Toggle()
}

// Placing reports whether surface clicks currently place fields.
func (e *Editor) Placing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.placer.Placing()
}

// PlaceField places the armed field type at the pointer position.
func (e *Editor) PlaceField(pointer fields.Point, rect fields.Rect) (fields.Field, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.placer.Place(pointer, rect)
}

func (e *Editor) RemoveField(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.placer.Remove(id)
}

func (e *Editor) ClearFields() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.placer.ClearAll()
}

// Draft copies the current buffer.
func (e *Editor) Draft() Draft {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Draft{
		Title:       e.title,
		Location:    e.location,
		Mode:        e.mode,
		Content:     e.content,
		DocumentRef: e.documentRef,
		SignerEmail: e.signerEmail,
		Recipients:  append([]RecipientDraft(nil), e.recipients...),
		Fields:      e.placer.Fields(),
	}
}

// Clear wipes the buffer and invalidates in-flight generation results.
func (e *Editor) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.title = ""
	e.location = ""
	e.mode = contracts.ContentText
	e.content = ""
	e.documentRef = ""
	e.signerEmail = ""
	e.recipients = nil
	e.placer.Reset()
	e.epoch++
}

// beginGeneration returns the epoch a generation result must match to be applied.
func (e *Editor) beginGeneration() (uint64, contracts.ContentMode) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.epoch, e.mode
}

// applyGeneration appends text after a blank line if the buffer is still the one the request started from.
func (e *Editor) applyGeneration(epoch uint64, text string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if epoch != e.epoch || e.mode != contracts.ContentText {
		return false
	}
	if e.content == "" {
		e.content = text
	} else {
		e.content = e.content + "\n\n" + text
	}
	return true
}
