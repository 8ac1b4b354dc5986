// Package attachments accepts uploaded contract documents and serves their previews.
package attachments

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/MarcoPoloResearchLab/signroom/internal/ids"
	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
)

const (
	// DefaultMaxBytes bounds a single upload.
	DefaultMaxBytes int64 = 10 << 20
	mediaTypePDF          = "application/pdf"
	previewPrefix         = "/attachments/"
)

var (
	// ErrUnsupportedMediaType indicates an upload that is not a PDF document.
	ErrUnsupportedMediaType = errors.New("attachments: unsupported media type")
	// ErrTooLarge indicates an upload above the configured size limit.
	ErrTooLarge = errors.New("attachments: document too large")
	// ErrEmptyDocument indicates an upload without content.
	ErrEmptyDocument = errors.New("attachments: empty document")
	// ErrNotFound indicates an unknown attachment id.
	ErrNotFound = errors.New("attachments: not found")
)

// Attachment describes an accepted document.
type Attachment struct {
	ID         string
	Name       string
	Title      string
	MediaType  string
	PreviewRef string
	Size       int64
}

// Config describes the dependencies of the attachment service.
type Config struct {
	MaxBytes   int64
	IDProvider ids.Provider
	Logger     *zap.Logger
}

// Service keeps accepted documents in process memory.
type Service struct {
	maxBytes   int64
	idProvider ids.Provider
	logger     *zap.Logger

	mu        sync.RWMutex
	documents map[string]storedDocument
}

type storedDocument struct {
	attachment Attachment
	data       []byte
}

// NewService constructs an attachment service.
func NewService(cfg Config) *Service {
	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	idProvider := cfg.IDProvider
	if idProvider == nil {
		idProvider = ids.NewUUIDProvider()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		maxBytes:   maxBytes,
		idProvider: idProvider,
		logger:     logger,
		documents:  make(map[string]storedDocument),
	}
}

// MaxBytes reports the upload size limit.
func (s *Service) MaxBytes() int64 {
	return s.maxBytes
}

// Accept validates the document content and stores it under a fresh id.
// The media type is detected from the bytes; the file name extension is not trusted.
func (s *Service) Accept(filename string, data []byte) (Attachment, error) {
	if len(data) == 0 {
		return Attachment{}, ErrEmptyDocument
	}
	if int64(len(data)) > s.maxBytes {
		return Attachment{}, fmt.Errorf("%w: %d bytes exceeds %d", ErrTooLarge, len(data), s.maxBytes)
	}
	detected := mimetype.Detect(data)
	if !detected.Is(mediaTypePDF) {
		s.logger.Info("attachment refused", zap.String("filename", filename), zap.String("media_type", detected.String()))
		return Attachment{}, fmt.Errorf("%w: %s", ErrUnsupportedMediaType, detected.String())
	}

	id, err := s.idProvider.NewID()
	if err != nil {
		return Attachment{}, fmt.Errorf("attachments: generate id: %w", err)
	}
	name := filepath.Base(strings.TrimSpace(filename))
	if name == "." || name == string(filepath.Separator) {
		name = ""
	}
	attachment := Attachment{
		ID:         id,
		Name:       name,
		Title:      TitleFromFilename(name),
		MediaType:  mediaTypePDF,
		PreviewRef: previewPrefix + id,
		Size:       int64(len(data)),
	}

	s.mu.Lock()
	s.documents[id] = storedDocument{attachment: attachment, data: append([]byte(nil), data...)}
	s.mu.Unlock()

	s.logger.Info("attachment accepted", zap.String("attachment_id", id), zap.Int64("size", attachment.Size))
	return attachment, nil
}

// Get returns the attachment metadata and a copy of its bytes.
func (s *Service) Get(id string) (Attachment, []byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, ok := s.documents[strings.TrimSpace(id)]
	if !ok {
		return Attachment{}, nil, ErrNotFound
	}
	return stored.attachment, append([]byte(nil), stored.data...), nil
}

// Lookup returns the attachment metadata only.
func (s *Service) Lookup(id string) (Attachment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, ok := s.documents[strings.TrimSpace(id)]
	if !ok {
		return Attachment{}, ErrNotFound
	}
	return stored.attachment, nil
}

// TitleFromFilename strips a trailing .pdf extension, ignoring case.
func TitleFromFilename(filename string) string {
	name := strings.TrimSpace(filename)
	if strings.HasSuffix(strings.ToLower(name), ".pdf") {
		name = name[:len(name)-len(".pdf")]
	}
	return strings.TrimSpace(name)
}
