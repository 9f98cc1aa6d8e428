// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"

	"github.com/Thermoquad/netbus/pkg/hwp"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Stream decoded frames over WebSocket",
	Long: `Decode the bus feed and republish every frame as a CBOR-encoded
binary WebSocket message on /stream.

Clients receive the same FrameRecord encoding the --record flag writes,
so a remote netbus can replay the stream and home automation bridges
can subscribe without touching the wire. HTTP Basic auth applies when
serve.username/serve.password are set in the configuration file.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config, :8777)")
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// streamHub fans decoded frame records out to the connected clients.
type streamHub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

func newStreamHub() *streamHub {
	return &streamHub{clients: make(map[*websocket.Conn]struct{})}
}

func (h *streamHub) add(conn *websocket.Conn) {
	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()
}

func (h *streamHub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
	conn.Close()
}

// broadcast sends one encoded record to every client, dropping clients
// whose connection fails.
func (h *streamHub) broadcast(data []byte) {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for c := range h.clients {
		conns = append(conns, c)
	}
	h.mu.Unlock()
	for _, c := range conns {
		if err := c.WriteMessage(websocket.BinaryMessage, data); err != nil {
			h.remove(c)
		}
	}
}

func (h *streamHub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// basicAuth wraps a handler with HTTP Basic auth when credentials are
// configured.
func basicAuth(next http.HandlerFunc) http.HandlerFunc {
	username := cfg.Serve.Username
	password := cfg.Serve.Password
	if username == "" {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok ||
			subtle.ConstantTimeCompare([]byte(user), []byte(username)) != 1 ||
			subtle.ConstantTimeCompare([]byte(pass), []byte(password)) != 1 {
			w.Header().Set("WWW-Authenticate", `Basic realm="netbus"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	addr := serveAddr
	if addr == "" {
		addr = cfg.Serve.Addr
	}

	hub := newStreamHub()
	bus := newEngine(hwp.BusConfig{
		OnFrame: func(f hwp.Frame, changed bool) {
			data, err := hwp.MarshalRecord(hwp.NewFrameRecord(f, changed))
			if err != nil {
				log.Printf("record encode error: %v", err)
				return
			}
			hub.broadcast(data)
		},
	})
	defer bus.Close()

	conn, info, pump, err := runFeed(ctx, bus)
	if err != nil {
		return err
	}
	if conn != nil {
		defer conn.Close()
	}
	go func() {
		if err := pump(); err != nil {
			log.Printf("feed error: %v", err)
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/stream", basicAuth(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("upgrade error: %v", err)
			return
		}
		hub.add(ws)
		log.Printf("client connected (%d total)", hub.count())
		// Drain (and discard) client messages to notice disconnects.
		go func() {
			for {
				if _, _, err := ws.ReadMessage(); err != nil {
					hub.remove(ws)
					log.Printf("client disconnected (%d total)", hub.count())
					return
				}
			}
		}()
	}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "ok %s clients=%d\n", bus.Poll(), hub.count())
	})

	server := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		server.Close()
	}()

	log.Printf("Netbus serve: feed %s, listening on %s", info, addr)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
