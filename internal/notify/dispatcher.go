// Package notify simulates outbound contract notifications and streams transient notices to participants.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Kind identifies the workflow moment a notification reports.
type Kind string

const (
	KindInitial   Kind = "initial"
	KindCompleted Kind = "completed"
	KindRejected  Kind = "rejected"
)

// DefaultDelay approximates mail delivery latency.
const DefaultDelay = 1500 * time.Millisecond

var errMissingSender = errors.New("notify: sender required")

// Notification describes one outbound message to every listed recipient.
type Notification struct {
	ContractID string
	Kind       Kind
	Subject    string
	Recipients []string
	// NotifyParticipantID receives the delivery notice once the message is out.
	NotifyParticipantID string
}

// Subject renders the message subject for a contract title.
func Subject(kind Kind, title string) string {
	switch kind {
	case KindCompleted:
		return "All parties signed: " + title
	case KindRejected:
		return "Contract REJECTED: " + title
	default:
		return "Signature requested: " + title
	}
}

// Dispatcher hands notifications off for delivery. Dispatch never blocks on delivery and never reports its failures.
type Dispatcher interface {
	Dispatch(ctx context.Context, notification Notification)
}

// Sender performs the actual delivery of one notification.
type Sender interface {
	Send(ctx context.Context, notification Notification) error
}

// AsyncConfig configures an AsyncDispatcher.
type AsyncConfig struct {
	Sender Sender
	Hub    *Hub
	Delay  time.Duration
	Clock  func() time.Time
	Logger *zap.Logger
}

// AsyncDispatcher delivers each notification after a fixed delay on its own goroutine, without retry.
type AsyncDispatcher struct {
	sender Sender
	hub    *Hub
	delay  time.Duration
	clock  func() time.Time
	logger *zap.Logger

	pending sync.WaitGroup
}

// NewAsyncDispatcher validates the configuration and constructs the dispatcher.
func NewAsyncDispatcher(cfg AsyncConfig) (*AsyncDispatcher, error) {
	if cfg.Sender == nil {
		return nil, errMissingSender
	}
	delay := cfg.Delay
	if delay < 0 {
		delay = 0
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AsyncDispatcher{
		sender: cfg.Sender,
		hub:    cfg.Hub,
		delay:  delay,
		clock:  clock,
		logger: logger,
	}, nil
}

// Dispatch schedules delivery and returns immediately.
func (d *AsyncDispatcher) Dispatch(_ context.Context, notification Notification) {
	notification.Recipients = append([]string(nil), notification.Recipients...)
	d.pending.Add(1)
	time.AfterFunc(d.delay, func() {
		defer d.pending.Done()
		d.deliver(notification)
	})
}

// Wait blocks until every scheduled delivery has finished.
func (d *AsyncDispatcher) Wait() {
	d.pending.Wait()
}

func (d *AsyncDispatcher) deliver(notification Notification) {
	// Delivery outlives the request that triggered it.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := d.sender.Send(ctx, notification); err != nil {
		d.logger.Warn("notification delivery failed",
			zap.String("contract_id", notification.ContractID),
			zap.String("kind", string(notification.Kind)),
			zap.Error(err),
		)
		return
	}
	if d.hub == nil {
		return
	}
	d.hub.Publish(Notice{
		ParticipantID: notification.NotifyParticipantID,
		Level:         NoticeInfo,
		Message:       fmt.Sprintf("Notification email delivered to %s", strings.Join(notification.Recipients, ", ")),
		ContractID:    notification.ContractID,
		Timestamp:     d.clock().UTC(),
	})
}

// Discard drops every notification.
type Discard struct{}

func (Discard) Dispatch(context.Context, Notification) {}
