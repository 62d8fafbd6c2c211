package internal

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"webchat/internal/storage"
)

// MessageStore is the persistence surface the coordinator depends on. The
// concrete implementation lives in internal/storage; tests substitute fakes.
type MessageStore interface {
	AppendMessage(ctx context.Context, username, text string, file *storage.FileRef) (storage.Message, error)
	ListActiveMessages(ctx context.Context) ([]storage.Message, error)
	DeleteMessage(ctx context.Context, id string) (bool, error)
	DeleteAllMessages(ctx context.Context) error
}

// Broadcaster delivers an encoded event to every connected client.
type Broadcaster interface {
	Broadcast(payload []byte)
}

// Bound on each persistence call so a hung store stalls at most one event.
const persistTimeout = 5 * time.Second

var errInvalidMessage = errors.New("invalid message")

// Coordinator is the central authority for client-originated events. It owns
// the ordering invariant: persistence completes before any derived broadcast
// is emitted, so clients never see state the store did not accept.
type Coordinator struct {
	store   MessageStore
	hub     Broadcaster
	metrics *Metrics
}

func NewCoordinator(store MessageStore, hub Broadcaster, metrics *Metrics) *Coordinator {
	return &Coordinator{store: store, hub: hub, metrics: metrics}
}

// NewMessage persists and broadcasts a text message. Validation failures and
// persistence failures are logged and dropped; the sender gets no error event
// over the socket.
func (c *Coordinator) NewMessage(username, text string) {
	username = strings.TrimSpace(username)
	text = strings.TrimSpace(text)
	if username == "" || text == "" {
		log.Printf("dropping message with empty username or body")
		return
	}
	msg, err := c.appendMessage(username, text, nil)
	if err != nil {
		log.Printf("persist message: %v", err)
		return
	}
	c.broadcastMessage(msg)
}

// NewFileMessage persists and broadcasts a file message built from an already
// ingested upload. Unlike the socket path it returns the error, because the
// HTTP caller must answer the uploader with a failure status.
func (c *Coordinator) NewFileMessage(username, caption string, ref storage.FileRef) (storage.Message, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return storage.Message{}, fmt.Errorf("%w: username required", errInvalidMessage)
	}
	if ref.Path == "" {
		return storage.Message{}, fmt.Errorf("%w: file reference required", errInvalidMessage)
	}
	msg, err := c.appendMessage(username, strings.TrimSpace(caption), &ref)
	if err != nil {
		return storage.Message{}, err
	}
	c.broadcastMessage(msg)
	return msg, nil
}

// DeleteMessage validates the id, marks the message deleted, and broadcasts
// the deletion. Malformed ids never reach the store.
func (c *Coordinator) DeleteMessage(id string) {
	if _, err := uuid.Parse(id); err != nil {
		log.Printf("dropping delete for malformed id %q", id)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	deleted, err := c.store.DeleteMessage(ctx, id)
	if err != nil {
		log.Printf("delete message %s: %v", id, err)
		return
	}
	if !deleted {
		log.Printf("delete for unknown message %s", id)
		return
	}
	if c.metrics != nil {
		c.metrics.IncDeleted()
	}
	payload, err := encodeEvent(EventDeleted, id)
	if err != nil {
		log.Printf("encode %s event: %v", EventDeleted, err)
		return
	}
	c.hub.Broadcast(payload)
}

// ClearAll marks the entire log deleted and broadcasts the clear. Each call
// that persists emits exactly one broadcast, so repeated calls are safe.
func (c *Coordinator) ClearAll() error {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := c.store.DeleteAllMessages(ctx); err != nil {
		return fmt.Errorf("clear all messages: %w", err)
	}
	if c.metrics != nil {
		c.metrics.IncCleared()
	}
	payload, err := encodeEvent(EventAllDeleted, nil)
	if err != nil {
		return err
	}
	c.hub.Broadcast(payload)
	return nil
}

// InitSnapshot encodes the current non-deleted history as an init event for
// one freshly connected client.
func (c *Coordinator) InitSnapshot() ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	messages, err := c.store.ListActiveMessages(ctx)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	payloads := make([]messagePayload, 0, len(messages))
	for _, msg := range messages {
		payloads = append(payloads, toMessagePayload(msg))
	}
	return encodeEvent(EventInit, payloads)
}

func (c *Coordinator) appendMessage(username, text string, file *storage.FileRef) (storage.Message, error) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	return c.store.AppendMessage(ctx, username, text, file)
}

func (c *Coordinator) broadcastMessage(msg storage.Message) {
	payload, err := encodeEvent(EventMessage, toMessagePayload(msg))
	if err != nil {
		log.Printf("encode %s event: %v", EventMessage, err)
		return
	}
	if c.metrics != nil {
		c.metrics.IncMessage()
	}
	c.hub.Broadcast(payload)
}
