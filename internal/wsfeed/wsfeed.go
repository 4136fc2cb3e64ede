// Package wsfeed mirrors the event bus out over a websocket, adapted
// from the teacher's webserver.Manager (pkg/webserver/manager.go), which
// serves its own live-timing data the same way: a gorilla/mux router
// plus a gorilla/websocket upgrade endpoint, run in its own goroutine
// with a graceful HTTP shutdown.
package wsfeed

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"f1race/internal/eventbus"
	"f1race/internal/logging"
	"f1race/internal/racestate"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Frame is one JSON message written to every connected client: a log
// line, a standings-changed tick, a start light, the start release, or
// the final results, tagged by kind
// so a thin client can dispatch on it.
type Frame struct {
	Kind    string              `json:"kind"`
	Message string              `json:"message,omitempty"`
	Light   int                 `json:"light,omitempty"`
	Results []racestate.Result  `json:"results,omitempty"`
}

// Manager serves a single "/live" websocket endpoint that fans out
// every event published on bus to all connected clients.
type Manager struct {
	r    *mux.Router
	addr string
	log  logging.Sink

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

// NewManager builds a feed manager listening on addr.
func NewManager(addr string, log logging.Sink) *Manager {
	m := &Manager{
		r:       mux.NewRouter(),
		addr:    addr,
		log:     log,
		clients: make(map[*websocket.Conn]struct{}),
	}
	m.r.HandleFunc("/live", m.handleUpgrade)
	return m
}

func (m *Manager) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		m.log.Event(logging.Error, "wsfeed: upgrade failed: %s", err.Error())
		return
	}
	m.mu.Lock()
	m.clients[conn] = struct{}{}
	m.mu.Unlock()

	go func() {
		defer m.drop(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (m *Manager) drop(conn *websocket.Conn) {
	m.mu.Lock()
	delete(m.clients, conn)
	m.mu.Unlock()
	conn.Close()
}

func (m *Manager) broadcast(f Frame) {
	payload, err := json.Marshal(f)
	if err != nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for conn := range m.clients {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			go m.drop(conn)
		}
	}
}

// Pump subscribes to every topic on bus and mirrors it to connected
// clients until ctx is cancelled.
func (m *Manager) Pump(ctx context.Context, bus *eventbus.Bus[racestate.Result]) {
	logs := bus.SubscribeLog()
	lights := bus.SubscribeStartLight()
	released := bus.SubscribeStartReleased()
	standings := bus.SubscribeStandingsChanged()
	finished := bus.SubscribeRaceFinished()

	for {
		select {
		case <-ctx.Done():
			return
		case e := <-logs:
			m.broadcast(Frame{Kind: "log", Message: e.Message})
		case light := <-lights:
			m.broadcast(Frame{Kind: "start-light", Light: light})
		case <-released:
			m.broadcast(Frame{Kind: "start-released"})
		case <-standings:
			m.broadcast(Frame{Kind: "standings-changed"})
		case r := <-finished:
			m.broadcast(Frame{Kind: "race-finished", Results: r.Entries})
		}
	}
}

// Serve runs the HTTP server until ctx is cancelled, then shuts it down
// within a bounded grace period, the way the teacher's webserver.Serve
// does for SIGINT.
func (m *Manager) Serve(ctx context.Context) {
	srv := &http.Server{
		Addr:         m.addr,
		Handler:      m.r,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		m.log.Event(logging.Info, "wsfeed: listening on %s", m.addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			m.log.Event(logging.Error, "wsfeed: %s", err.Error())
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
}
