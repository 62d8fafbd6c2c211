package internal

import "sync"

// Hub tracks every live connection and fans broadcasts out to all of them.
// There is a single shared log, so unlike a per-room setup the hub itself is
// the whole registry.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	mutex      sync.RWMutex
	metrics    *Metrics
}

// NewHub builds an empty hub ready to serve websocket requests.
func NewHub(metrics *Metrics) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 256),
		metrics:    metrics,
	}
}

// Size reports the number of currently connected clients.
func (hub *Hub) Size() int {
	hub.mutex.RLock()
	defer hub.mutex.RUnlock()
	return len(hub.clients)
}

// Broadcast queues a payload for delivery to every connected client.
// Delivery is best-effort, at most once; there is no acknowledgment.
func (hub *Hub) Broadcast(payload []byte) {
	hub.broadcast <- payload
}

// Run processes registration, deregistration, and broadcast fan-out. It should
// run in its own goroutine for the lifetime of the server.
func (hub *Hub) Run() {
	for {
		select {
		case client := <-hub.register:
			hub.mutex.Lock()
			hub.clients[client] = true
			hub.mutex.Unlock()
			if hub.metrics != nil {
				hub.metrics.IncConn()
			}
		case client := <-hub.unregister:
			hub.mutex.Lock()
			if _, exists := hub.clients[client]; exists {
				delete(hub.clients, client)
				close(client.send)
				if hub.metrics != nil {
					hub.metrics.DecConn()
				}
			}
			hub.mutex.Unlock()
		case payload := <-hub.broadcast:
			// Fan out to every connected client. If a client can't keep up we
			// close its send channel, which triggers cleanup in writePump.
			hub.mutex.Lock()
			for client := range hub.clients {
				select {
				case client.send <- payload:
				default:
					close(client.send)
					delete(hub.clients, client)
					if hub.metrics != nil {
						hub.metrics.DecConn()
					}
				}
			}
			hub.mutex.Unlock()
		}
	}
}
