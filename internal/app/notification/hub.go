// Package notification provides the hub broadcasting playout messages to subscribers.
package notification

import (
	"sync"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"
)

// DefaultBuffer is the channel buffer used when a non-positive size is given.
const DefaultBuffer = 64

// subscription represents a subscriber's subscription.
type subscription struct {
	id string
	ch chan Message
}

// Hub manages subscriptions and broadcasting.
type Hub struct {
	mu            sync.RWMutex
	subscriptions map[string]*subscription
	closed        bool
	sequenceNo    uint64
	sequenceNoMu  sync.Mutex
}

// NewHub creates a new notification hub.
func NewHub() *Hub {
	return &Hub{
		subscriptions: make(map[string]*subscription),
	}
}

// Subscribe adds a new subscription and returns its ID and message channel.
// The channel is closed on Unsubscribe or Close.
func (h *Hub) Subscribe(buffer int) (string, <-chan Message) {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	id := uuid.New().String()
	ch := make(chan Message, buffer)
	if h.closed {
		close(ch)
		return id, ch
	}
	h.subscriptions[id] = &subscription{
		id: id,
		ch: ch,
	}
	return id, ch
}

// Unsubscribe removes a subscription.
func (h *Hub) Unsubscribe(subscriptionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if sub, ok := h.subscriptions[subscriptionID]; ok {
		close(sub.ch)
		delete(h.subscriptions, subscriptionID)
	}
}

// nextSequenceNo returns the next sequence number and increments the counter.
func (h *Hub) nextSequenceNo() uint64 {
	h.sequenceNoMu.Lock()
	defer h.sequenceNoMu.Unlock()
	h.sequenceNo++
	return h.sequenceNo
}

// Broadcast sends a message to all subscribers and returns it with its sequence number.
// It never blocks: a subscriber whose buffer is full misses the message.
func (h *Hub) Broadcast(msg Message) Message {
	h.mu.RLock()
	defer h.mu.RUnlock()

	msg.SequenceNo = h.nextSequenceNo()
	for _, sub := range h.subscriptions {
		select {
		case sub.ch <- msg:
		default:
			zlog.Warn().Msgf("notification: subscriber %s is full, dropping %s seq=%d", sub.id, msg.Type, msg.SequenceNo)
		}
	}
	return msg
}

// SubscriberCount returns the number of active subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscriptions)
}

// Close closes every subscription. Later subscriptions are closed immediately.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, sub := range h.subscriptions {
		close(sub.ch)
		delete(h.subscriptions, id)
	}
	h.closed = true
}
