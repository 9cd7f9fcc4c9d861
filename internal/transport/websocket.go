// SPDX-License-Identifier: MIT
package transport

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	broadcastQueue = 256
	writeTimeout   = 2 * time.Second
)

// Route mounts an extra handler next to /ws, e.g. /metrics.
type Route struct {
	Pattern string
	Handler http.Handler
}

// WebSocketTransport broadcasts every message as JSON to all clients
// connected on /ws. Messages are dropped when the broadcast queue is full.
type WebSocketTransport struct {
	addr      string
	upgrader  websocket.Upgrader
	clients   map[*websocket.Conn]struct{}
	clientsMu sync.Mutex
	broadcast chan any
	done      chan struct{}
	closeOnce sync.Once
	mux       *http.ServeMux
	server    *http.Server

	droppedMu sync.Mutex
	dropped   uint64
}

// NewWebSocketTransport builds the transport and starts its broadcast loop.
// Call Start to begin accepting connections on addr.
func NewWebSocketTransport(addr string, routes ...Route) *WebSocketTransport {
	wst := &WebSocketTransport{
		addr: addr,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Observers are local dashboards.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients:   make(map[*websocket.Conn]struct{}),
		broadcast: make(chan any, broadcastQueue),
		done:      make(chan struct{}),
		mux:       http.NewServeMux(),
	}

	wst.mux.HandleFunc("/ws", wst.handleWebSocket)
	for _, r := range routes {
		if r.Handler != nil {
			wst.mux.Handle(r.Pattern, r.Handler)
		}
	}

	go wst.handleBroadcasts()
	return wst
}

// Handler exposes the mux so the transport can be served by an existing
// server or httptest.
func (wst *WebSocketTransport) Handler() http.Handler {
	return wst.mux
}

// Start binds addr and serves in the background. Bind errors are returned
// synchronously.
func (wst *WebSocketTransport) Start() error {
	ln, err := net.Listen("tcp", wst.addr)
	if err != nil {
		return fmt.Errorf("websocket listen on %s: %w", wst.addr, err)
	}
	wst.server = &http.Server{
		Handler:           wst.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Infof("websocket server listening on %s", ln.Addr())
		if err := wst.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("websocket server: %v", err)
		}
	}()
	return nil
}

func (wst *WebSocketTransport) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := wst.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warnf("upgrade: %v", err)
		return
	}

	wst.clientsMu.Lock()
	wst.clients[conn] = struct{}{}
	n := len(wst.clients)
	wst.clientsMu.Unlock()
	logger.Infof("client connected, total: %d", n)

	// Clients never send; a read error means they went away.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				wst.removeClient(conn)
				return
			}
		}
	}()
}

func (wst *WebSocketTransport) removeClient(conn *websocket.Conn) {
	wst.clientsMu.Lock()
	_, ok := wst.clients[conn]
	delete(wst.clients, conn)
	n := len(wst.clients)
	wst.clientsMu.Unlock()

	if ok {
		conn.Close()
		logger.Infof("client disconnected, total: %d", n)
	}
}

func (wst *WebSocketTransport) handleBroadcasts() {
	for {
		select {
		case <-wst.done:
			return
		case data := <-wst.broadcast:
			wst.clientsMu.Lock()
			for client := range wst.clients {
				_ = client.SetWriteDeadline(time.Now().Add(writeTimeout))
				if err := client.WriteJSON(data); err != nil {
					logger.Warnf("send to client: %v", err)
					client.Close()
					delete(wst.clients, client)
				}
			}
			wst.clientsMu.Unlock()
		}
	}
}

// Send queues data for broadcast without blocking.
func (wst *WebSocketTransport) Send(data any) error {
	select {
	case <-wst.done:
		return net.ErrClosed
	default:
	}

	select {
	case wst.broadcast <- data:
	default:
		wst.droppedMu.Lock()
		wst.dropped++
		wst.droppedMu.Unlock()
	}
	return nil
}

// Dropped returns how many messages were discarded on a full queue.
func (wst *WebSocketTransport) Dropped() uint64 {
	wst.droppedMu.Lock()
	defer wst.droppedMu.Unlock()
	return wst.dropped
}

// Clients returns the number of connected clients.
func (wst *WebSocketTransport) Clients() int {
	wst.clientsMu.Lock()
	defer wst.clientsMu.Unlock()
	return len(wst.clients)
}

// Close disconnects every client and stops the server.
func (wst *WebSocketTransport) Close() error {
	var err error
	wst.closeOnce.Do(func() {
		logger.Infof("closing websocket transport")
		close(wst.done)

		wst.clientsMu.Lock()
		for client := range wst.clients {
			client.Close()
		}
		wst.clients = make(map[*websocket.Conn]struct{})
		wst.clientsMu.Unlock()

		if wst.server != nil {
			err = wst.server.Close()
		}
	})
	return err
}

var _ Transport = (*WebSocketTransport)(nil)
