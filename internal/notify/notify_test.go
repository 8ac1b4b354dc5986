package notify

import (
	"context"
	"errors"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/MarcoPoloResearchLab/signroom/internal/ids"
	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func openOutbox(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "outbox.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&OutboxEntry{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

type recordingSender struct {
	mu   sync.Mutex
	sent []Notification
	err  error
}

func (s *recordingSender) Send(_ context.Context, notification Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, notification)
	return nil
}

func (s *recordingSender) snapshot() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Notification(nil), s.sent...)
}

func TestSubjectPerKind(t *testing.T) {
	cases := map[Kind]string{
		KindInitial:   "Signature requested: Lease",
		KindCompleted: "All parties signed: Lease",
		KindRejected:  "Contract REJECTED: Lease",
	}
	for kind, expected := range cases {
		if got := Subject(kind, "Lease"); got != expected {
			t.Fatalf("Subject(%s) = %q, want %q", kind, got, expected)
		}
	}
}

func TestOutboxSenderPersistsEntries(t *testing.T) {
	db := openOutbox(t)
	fixed := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	sender, err := NewOutboxSender(OutboxConfig{Database: db, IDProvider: ids.NewSequence("o1", "o2"), Clock: func() time.Time { return fixed }})
	if err != nil {
		t.Fatalf("new sender: %v", err)
	}

	ctx := context.Background()
	if err := sender.Send(ctx, Notification{ContractID: "c1", Kind: KindInitial, Subject: "Signature requested: Lease", Recipients: []string{"a@b.com"}}); err != nil {
		t.Fatalf("send initial: %v", err)
	}
	if err := sender.Send(ctx, Notification{ContractID: "c1", Kind: KindCompleted, Subject: "All parties signed: Lease", Recipients: []string{"owner@x.com", "a@b.com"}}); err != nil {
		t.Fatalf("send completed: %v", err)
	}
	if err := sender.Send(ctx, Notification{ContractID: "c1", Kind: KindRejected}); err == nil {
		t.Fatalf("expected refusal without recipients")
	}

	entries, err := sender.List(ctx, "c1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].ID != "o1" || entries[0].Kind != string(KindInitial) {
		t.Fatalf("unexpected first entry %#v", entries[0])
	}
	recipients := entries[1].RecipientList()
	if len(recipients) != 2 || recipients[0] != "owner@x.com" || recipients[1] != "a@b.com" {
		t.Fatalf("unexpected recipients %v", recipients)
	}
	if entries[1].DeliveredAtSec != fixed.Unix() {
		t.Fatalf("unexpected delivery time %d", entries[1].DeliveredAtSec)
	}
}

func TestAsyncDispatcherDeliversAndPublishesNotice(t *testing.T) {
	sender := &recordingSender{}
	hub := NewHub()
	dispatcher, err := NewAsyncDispatcher(AsyncConfig{Sender: sender, Hub: hub, Delay: time.Millisecond})
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stream, _ := hub.Subscribe(ctx, "u1")

	recipients := []string{"a@b.com"}
	dispatcher.Dispatch(ctx, Notification{ContractID: "c1", Kind: KindInitial, Subject: "s", Recipients: recipients, NotifyParticipantID: "u1"})
	recipients[0] = "mutated@b.com"
	dispatcher.Wait()

	sent := sender.snapshot()
	if len(sent) != 1 || sent[0].Recipients[0] != "a@b.com" {
		t.Fatalf("unexpected deliveries %#v", sent)
	}
	select {
	case notice := <-stream:
		if notice.Message != "Notification email delivered to a@b.com" || notice.ContractID != "c1" {
			t.Fatalf("unexpected notice %#v", notice)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected delivery notice")
	}
}

func TestAsyncDispatcherSwallowsSenderFailure(t *testing.T) {
	sender := &recordingSender{err: errors.New("smtp down")}
	hub := NewHub()
	dispatcher, err := NewAsyncDispatcher(AsyncConfig{Sender: sender, Hub: hub})
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stream, _ := hub.Subscribe(ctx, "u1")

	dispatcher.Dispatch(ctx, Notification{ContractID: "c1", Kind: KindRejected, Recipients: []string{"a@b.com"}, NotifyParticipantID: "u1"})
	dispatcher.Wait()

	select {
	case notice := <-stream:
		t.Fatalf("unexpected notice after failure: %#v", notice)
	default:
	}
}

func TestNewAsyncDispatcherRequiresSender(t *testing.T) {
	if _, err := NewAsyncDispatcher(AsyncConfig{}); err == nil {
		t.Fatalf("expected missing sender error")
	}
}

func TestHubRoutesNoticesPerParticipant(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	first, cleanup := hub.Subscribe(ctx, "u1")
	second, _ := hub.Subscribe(ctx, "u2")
	if hub.Subscribers("u1") != 1 || hub.Subscribers("u2") != 1 {
		t.Fatalf("expected one subscriber each")
	}

	hub.Publish(Notice{ParticipantID: "u1", Level: NoticeSuccess, Message: "Signature recorded"})
	select {
	case notice := <-first:
		if notice.Message != "Signature recorded" {
			t.Fatalf("unexpected notice %#v", notice)
		}
	default:
		t.Fatalf("expected notice for u1")
	}
	select {
	case notice := <-second:
		t.Fatalf("u2 received notice for u1: %#v", notice)
	default:
	}

	cleanup()
	cleanup()
	if _, open := <-first; open {
		t.Fatalf("expected stream to be closed after cleanup")
	}
	if hub.Subscribers("u1") != 0 {
		t.Fatalf("expected u1 subscriber removed")
	}

	cancel()
	deadline := time.Now().Add(time.Second)
	for hub.Subscribers("u2") != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if hub.Subscribers("u2") != 0 {
		t.Fatalf("expected context cancellation to release subscriber")
	}
}

func TestHubSubscribeWithoutParticipantIsClosed(t *testing.T) {
	hub := NewHub()
	stream, cleanup := hub.Subscribe(context.Background(), "")
	defer cleanup()
	if _, open := <-stream; open {
		t.Fatalf("expected closed stream")
	}
}

func TestHubCleanupReleasesWatcher(t *testing.T) {
	hub := NewHub()
	baseline := runtime.NumGoroutine()

	const subscriptions = 200
	for index := 0; index < subscriptions; index++ {
		_, cleanup := hub.Subscribe(context.Background(), "u1")
		cleanup()
		cleanup()
	}
	if hub.Subscribers("u1") != 0 {
		t.Fatalf("expected no subscribers after cleanup, got %d", hub.Subscribers("u1"))
	}

	deadline := time.Now().Add(2 * time.Second)
	for runtime.NumGoroutine() > baseline+subscriptions/10 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if running := runtime.NumGoroutine(); running > baseline+subscriptions/10 {
		t.Fatalf("expected subscription watchers to exit, %d goroutines still running (baseline %d)", running, baseline)
	}
}
