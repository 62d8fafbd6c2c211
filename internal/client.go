package internal

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 8192
)

// Client wraps a single websocket connection and a buffered send queue. It
// holds no state beyond its socket identity; everything durable lives in the
// store.
type Client struct {
	hub         *Hub
	coordinator *Coordinator
	conn        *websocket.Conn
	send        chan []byte
}

func newClient(hub *Hub, coordinator *Coordinator, conn *websocket.Conn) *Client {
	return &Client{
		hub:         hub,
		coordinator: coordinator,
		conn:        conn,
		send:        make(chan []byte, 256),
	}
}

// readPump relays client events to the coordinator until the connection
// drops. Events are handled in arrival order, one at a time.
func (client *Client) readPump() {
	defer func() {
		client.hub.unregister <- client
		client.conn.Close()
	}()
	client.conn.SetReadLimit(maxMsgSize)
	_ = client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, payload, err := client.conn.ReadMessage()
		if err != nil {
			// read error ends the loop so the deferred cleanup can fire.
			break
		}
		client.dispatch(payload)
	}
}

func (client *Client) dispatch(payload []byte) {
	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		log.Printf("dropping malformed event: %v", err)
		return
	}
	switch event.Event {
	case EventMessage:
		var incoming incomingMessage
		if err := json.Unmarshal(event.Data, &incoming); err != nil {
			log.Printf("dropping malformed %s payload: %v", EventMessage, err)
			return
		}
		client.coordinator.NewMessage(incoming.Username, incoming.Message)
	case EventDelete:
		var id string
		if err := json.Unmarshal(event.Data, &id); err != nil {
			log.Printf("dropping malformed %s payload: %v", EventDelete, err)
			return
		}
		client.coordinator.DeleteMessage(id)
	case EventClearAll:
		if err := client.coordinator.ClearAll(); err != nil {
			log.Printf("clear all: %v", err)
		}
	default:
		log.Printf("ignoring unknown event %q", event.Event)
	}
}

func (client *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()
	for {
		select {
		case message, ok := <-client.send:
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
