package internal

import (
	"encoding/json"
	"time"

	"webchat/internal/storage"
)

// Event names exchanged over the websocket.
const (
	EventInit       = "init"
	EventMessage    = "message"
	EventDelete     = "deleteMessage"
	EventDeleted    = "messageDeleted"
	EventClearAll   = "clearAllMessages"
	EventAllDeleted = "allMessagesDeleted"
)

// Event is the json envelope that both the client and server exchange during
// a chat session.
type Event struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// incomingMessage is the payload of a client-originated "message" event.
type incomingMessage struct {
	Username string `json:"username"`
	Message  string `json:"message"`
}

// fileRefPayload mirrors storage.FileRef on the wire.
type fileRefPayload struct {
	Filename string `json:"filename"`
	Path     string `json:"path"`
	Mimetype string `json:"mimetype"`
}

// messagePayload is the wire shape of one persisted message, used both in the
// init snapshot and in per-message broadcasts.
type messagePayload struct {
	ID        string          `json:"_id"`
	Username  string          `json:"username"`
	Text      string          `json:"text,omitempty"`
	File      *fileRefPayload `json:"file,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

func toMessagePayload(msg storage.Message) messagePayload {
	payload := messagePayload{
		ID:        msg.ID,
		Username:  msg.Username,
		Text:      msg.Text,
		CreatedAt: msg.CreatedAt,
	}
	if msg.File != nil {
		payload.File = &fileRefPayload{
			Filename: msg.File.Filename,
			Path:     msg.File.Path,
			Mimetype: msg.File.Mimetype,
		}
	}
	return payload
}

func encodeEvent(name string, data any) ([]byte, error) {
	event := Event{Event: name}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		event.Data = raw
	}
	return json.Marshal(event)
}
