// Package monitor serves the read-only observation surface: a health
// probe, the current light state, and a websocket push of state
// changes. It never writes to the decoder; all control stays on the
// protocol link.
package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/madsing98/coachlightd/internal/decoder"
)

// Server is an HTTP server publishing decoder state to observers.
type Server struct {
	addr       string
	deviceID   string
	httpServer *http.Server

	mu      sync.RWMutex
	snap    decoder.Snapshot
	seq     uint64
	started time.Time
	clients map[*websocket.Conn]bool

	updates chan decoder.Snapshot
}

// stateMessage is the JSON shape sent on /state and pushed over /ws.
// Group bytes go out as ints so they read as numbers, not base64.
type stateMessage struct {
	T           int64  `json:"t"`
	Seq         uint64 `json:"seq"`
	Selection   string `json:"selection"`
	Warm        uint8  `json:"warm"`
	Cool        uint8  `json:"cool"`
	TestMode    bool   `json:"test_mode"`
	ServiceMode bool   `json:"service_mode"`
	Groups      []int  `json:"groups"`
}

// NewServer creates a new monitor server. deviceID may be empty when
// the store backend has no identity.
func NewServer(host string, port int, deviceID string) *Server {
	return &Server{
		addr:     fmt.Sprintf("%s:%d", host, port),
		deviceID: deviceID,
		started:  time.Now(),
		clients:  map[*websocket.Conn]bool{},
		updates:  make(chan decoder.Snapshot, 16),
	}
}

// Publish hands a fresh snapshot to the server. It is called from the
// decoder goroutine and never blocks; when the monitor falls behind,
// intermediate snapshots are dropped.
func (s *Server) Publish(snap decoder.Snapshot) {
	select {
	case s.updates <- snap:
	default:
		log.Warn().Msg("Monitor update queue full, dropping snapshot")
	}
}

// Run starts the monitor server. It blocks until the context is
// cancelled.
func (s *Server) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/state", s.handleState)
	mux.HandleFunc("/ws", s.handleWS)

	s.httpServer = &http.Server{
		Addr:    s.addr,
		Handler: mux,
	}

	log.Info().Str("addr", s.addr).Msg("Starting monitor server")

	go s.consumeUpdates(ctx)

	// Handle graceful shutdown
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Monitor server shutdown error")
		}
	}()

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}

// consumeUpdates stores incoming snapshots and fans them out to the
// websocket clients.
func (s *Server) consumeUpdates(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case snap := <-s.updates:
			s.mu.Lock()
			s.snap = snap
			s.seq++
			s.mu.Unlock()
			s.broadcast()
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	resp := map[string]any{
		"status":   "ok",
		"uptime_s": time.Since(s.started).Seconds(),
		"updates":  s.seq,
	}
	if s.deviceID != "" {
		resp["device_id"] = s.deviceID
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	msg := s.message()
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(msg)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	up := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	// Push the current state right away so clients need no extra poll.
	// Registration and the hello write share the write lock: broadcast
	// writes registered conns under RLock, and gorilla conns allow only
	// one writer at a time.
	s.mu.Lock()
	b, _ := json.Marshal(s.message())
	werr := conn.WriteMessage(websocket.TextMessage, b)
	if werr == nil {
		s.clients[conn] = true
	}
	s.mu.Unlock()
	if werr != nil {
		conn.Close()
		return
	}

	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.clients, conn)
			s.mu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// message builds the wire form of the held snapshot. Callers hold mu.
func (s *Server) message() stateMessage {
	groups := make([]int, decoder.GroupCount)
	for i := range groups {
		groups[i] = int(s.snap.Groups.Group(uint8(i)))
	}
	return stateMessage{
		T:           time.Now().UnixNano(),
		Seq:         s.seq,
		Selection:   s.snap.Selection.String(),
		Warm:        s.snap.Warm,
		Cool:        s.snap.Cool,
		TestMode:    s.snap.TestMode,
		ServiceMode: s.snap.ServiceMode,
		Groups:      groups,
	}
}

func (s *Server) broadcast() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, _ := json.Marshal(s.message())
	for c := range s.clients {
		c.SetWriteDeadline(time.Now().Add(200 * time.Millisecond))
		if err := c.WriteMessage(websocket.TextMessage, b); err != nil {
			log.Debug().Err(err).Msg("write state")
		}
	}
}
