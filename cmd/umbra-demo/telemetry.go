package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gekko3d/umbra"
)

const writeWait = time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// telemetryHub fans JSON frames out to every connected websocket client.
// Clients only listen; anything they send is discarded.
type telemetryHub struct {
	logger umbra.Logger
	addr   net.Addr

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

func newTelemetryHub(logger umbra.Logger) *telemetryHub {
	return &telemetryHub{
		logger:  logger,
		clients: make(map[*websocket.Conn]struct{}),
	}
}

func (h *telemetryHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warnf("telemetry: upgrade: %v", err)
		return
	}

	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()
	h.logger.Debugf("telemetry: client %s connected", conn.RemoteAddr())

	go h.readLoop(conn)
}

func (h *telemetryHub) readLoop(conn *websocket.Conn) {
	defer h.drop(conn)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *telemetryHub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	_, ok := h.clients[conn]
	delete(h.clients, conn)
	h.mu.Unlock()
	if ok {
		conn.Close()
		h.logger.Debugf("telemetry: client %s disconnected", conn.RemoteAddr())
	}
}

func (h *telemetryHub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast sends v as one text frame to every client. Clients that fail
// to keep up are dropped.
func (h *telemetryHub) Broadcast(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		h.logger.Errorf("telemetry: encode frame: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.logger.Debugf("telemetry: write to %s: %v", conn.RemoteAddr(), err)
			delete(h.clients, conn)
			conn.Close()
		}
	}
}

func (h *telemetryHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"),
			time.Now().Add(writeWait))
		conn.Close()
		delete(h.clients, conn)
	}
}

// startTelemetry serves the hub on addr at /telemetry until stop is called
// or ctx is done. stop may be called more than once.
func startTelemetry(ctx context.Context, addr string, logger umbra.Logger) (*telemetryHub, func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, fmt.Errorf("telemetry listen %s: %w", addr, err)
	}

	hub := newTelemetryHub(logger)
	hub.addr = ln.Addr()
	mux := http.NewServeMux()
	mux.Handle("/telemetry", hub)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("telemetry: serve: %v", err)
		}
	}()

	var once sync.Once
	done := make(chan struct{})
	stop := func() {
		once.Do(func() {
			close(done)
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warnf("telemetry: shutdown: %v", err)
			}
		})
	}
	go func() {
		select {
		case <-ctx.Done():
			stop()
		case <-done:
		}
	}()

	logger.Infof("telemetry: streaming on ws://%s/telemetry", hub.addr)
	return hub, stop, nil
}
