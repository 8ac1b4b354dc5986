package notify

import (
	"context"
	"sync"
	"time"
)

// NoticeLevel classifies a transient notice.
type NoticeLevel string

const (
	NoticeSuccess NoticeLevel = "success"
	NoticeInfo    NoticeLevel = "info"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

const defaultNoticeBuffer = 16

// Notice is a toast-style message addressed to one participant.
type Notice struct {
	ParticipantID string
	Level         NoticeLevel
	Message       string
	ContractID    string
	Timestamp     time.Time
}

// Hub fans notices out to the open streams of each participant.
// Slow subscribers lose notices instead of blocking publishers.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[int64]*hubSubscriber
	nextID      int64
	bufferSize  int
}

type hubSubscriber struct {
	id     int64
	stream chan Notice
}

// NewHub constructs an empty hub.
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string]map[int64]*hubSubscriber),
		bufferSize:  defaultNoticeBuffer,
	}
}

// Subscribe opens a notice stream for the participant. The stream is released when ctx ends or cleanup runs.
func (h *Hub) Subscribe(ctx context.Context, participantID string) (<-chan Notice, func()) {
	if participantID == "" {
		closed := make(chan Notice)
		close(closed)
		return closed, func() {}
	}
	subscriber := &hubSubscriber{stream: make(chan Notice, h.bufferSize)}

	h.mu.Lock()
	h.nextID++
	subscriber.id = h.nextID
	if _, ok := h.subscribers[participantID]; !ok {
		h.subscribers[participantID] = make(map[int64]*hubSubscriber)
	}
	h.subscribers[participantID][subscriber.id] = subscriber
	h.mu.Unlock()

	var once sync.Once
	done := make(chan struct{})
	cleanup := func() {
		once.Do(func() {
			h.unsubscribe(participantID, subscriber.id)
			close(done)
		})
	}
	go func() {
		select {
		case <-ctx.Done():
			cleanup()
		case <-done:
		}
	}()
	return subscriber.stream, cleanup
}

// Publish delivers the notice to every open stream of its participant.
func (h *Hub) Publish(notice Notice) {
	if notice.ParticipantID == "" || notice.Message == "" {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, subscriber := range h.subscribers[notice.ParticipantID] {
		select {
		case subscriber.stream <- notice:
		default:
		}
	}
}

// Subscribers reports the number of open streams for a participant.
func (h *Hub) Subscribers(participantID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[participantID])
}

func (h *Hub) unsubscribe(participantID string, subscriberID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subscribers := h.subscribers[participantID]
	if subscribers == nil {
		return
	}
	if subscriber, ok := subscribers[subscriberID]; ok {
		delete(subscribers, subscriberID)
		close(subscriber.stream)
	}
	if len(subscribers) == 0 {
		delete(h.subscribers, participantID)
	}
}
