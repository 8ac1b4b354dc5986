package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/signroom/internal/ids"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const recipientSeparator = ","

var errMissingDatabase = errors.New("notify: database connection required")

// OutboxEntry records one simulated outbound email.
type OutboxEntry struct {
	ID             string    `gorm:"column:id;primaryKey;size:190;not null"`
	ContractID     string    `gorm:"column:contract_id;size:190;not null;index"`
	Kind           string    `gorm:"column:kind;size:32;not null"`
	Subject        string    `gorm:"column:subject;size:512;not null"`
	Recipients     string    `gorm:"column:recipients;type:text;not null"`
	DeliveredAtSec int64     `gorm:"column:delivered_at_s;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName exposes the table backing the outbox.
func (OutboxEntry) TableName() string {
	return "notification_outbox"
}

// RecipientList splits the stored recipient column.
func (e OutboxEntry) RecipientList() []string {
	if e.Recipients == "" {
		return nil
	}
	return strings.Split(e.Recipients, recipientSeparator)
}

// OutboxConfig describes the dependencies of the outbox sender.
type OutboxConfig struct {
	Database   *gorm.DB
	IDProvider ids.Provider
	Clock      func() time.Time
	Logger     *zap.Logger
}

// OutboxSender stands in for SMTP: it persists each message and logs it.
type OutboxSender struct {
	db         *gorm.DB
	idProvider ids.Provider
	clock      func() time.Time
	logger     *zap.Logger
}

var _ Sender = (*OutboxSender)(nil)

// NewOutboxSender constructs the sender.
func NewOutboxSender(cfg OutboxConfig) (*OutboxSender, error) {
	if cfg.Database == nil {
		return nil, errMissingDatabase
	}
	idProvider := cfg.IDProvider
	if idProvider == nil {
		idProvider = ids.NewUUIDProvider()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OutboxSender{db: cfg.Database, idProvider: idProvider, clock: clock, logger: logger}, nil
}

// Send stores the notification in the outbox.
func (s *OutboxSender) Send(ctx context.Context, notification Notification) error {
	if len(notification.Recipients) == 0 {
		return fmt.Errorf("notify: no recipients for contract %s", notification.ContractID)
	}
	id, err := s.idProvider.NewID()
	if err != nil {
		return fmt.Errorf("notify: generate id: %w", err)
	}
	entry := OutboxEntry{
		ID:             id,
		ContractID:     notification.ContractID,
		Kind:           string(notification.Kind),
		Subject:        notification.Subject,
		Recipients:     strings.Join(notification.Recipients, recipientSeparator),
		DeliveredAtSec: s.clock().UTC().Unix(),
	}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return fmt.Errorf("notify: persist outbox entry: %w", err)
	}
	s.logger.Info("notification dispatched",
		zap.String("contract_id", notification.ContractID),
		zap.String("kind", entry.Kind),
		zap.String("subject", entry.Subject),
		zap.Strings("recipients", notification.Recipients),
	)
	return nil
}

// List returns the outbox entries of a contract in delivery order.
func (s *OutboxSender) List(ctx context.Context, contractID string) ([]OutboxEntry, error) {
	var entries []OutboxEntry
	err := s.db.WithContext(ctx).
		Where("contract_id = ?", contractID).
		Order("delivered_at_s ASC").
		Order("id ASC").
		Find(&entries).
		Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
