package internal

import (
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"webchat/internal/storage"
)

const (
	uploadRateLimit  = 10
	uploadRateWindow = time.Minute
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// we allow all origins in development; in production you should tighten this if the server is exposed publicly.
		return true
	},
}

// Server wires the hub, coordinator, store, and file ingress behind the HTTP
// surface.
type Server struct {
	hub           *Hub
	coordinator   *Coordinator
	store         *storage.Store
	ingress       *FileIngress
	metrics       *Metrics
	uploadLimiter *RateLimiter
	publicDir     string
}

// NewServer assembles the full server and starts the hub loop.
func NewServer(store *storage.Store, uploadDir, publicDir string, maxFileSize int64) *Server {
	metrics := NewMetrics()
	hub := NewHub(metrics)
	go hub.Run()
	return &Server{
		hub:           hub,
		coordinator:   NewCoordinator(store, hub, metrics),
		store:         store,
		ingress:       NewFileIngress(uploadDir, maxFileSize),
		metrics:       metrics,
		uploadLimiter: NewRateLimiter(uploadRateLimit, uploadRateWindow),
		publicDir:     publicDir,
	}
}

// Routes returns the full HTTP surface: the websocket endpoint, the
// out-of-band upload/clear endpoints, and the static file servers.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.ServeWS)
	mux.HandleFunc("/upload", s.HandleUpload)
	mux.HandleFunc("/messages", s.HandleMessages)
	mux.HandleFunc("/healthz", s.HandleHealth)
	mux.Handle("/metrics", s.MetricsHandler())
	mux.Handle("/uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(s.ingress.Dir()))))
	if s.publicDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(s.publicDir)))
	}
	return mux
}

// MetricsHandler exposes the counters endpoint.
func (s *Server) MetricsHandler() http.Handler {
	return s.metrics
}

// ServeWS upgrades the request, registers the client with the hub, sends it
// the init snapshot, and starts its pumps.
func (s *Server) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("upgrade error: %v", err)
		return
	}
	client := newClient(s.hub, s.coordinator, conn)
	s.hub.register <- client

	// Snapshot after registering: a message persisted between registration
	// and the snapshot query reaches this client twice, once in the snapshot
	// and once as a broadcast, but never zero times.
	if snapshot, err := s.coordinator.InitSnapshot(); err != nil {
		log.Printf("init snapshot: %v", err)
	} else {
		client.send <- snapshot
	}

	go client.writePump()
	go client.readPump()
}

func (s *Server) clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
