// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"strconv"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gorilla/websocket"

	"github.com/relabs-tech/pushup_tracker/internal/config"
	"github.com/relabs-tech/pushup_tracker/internal/events"
	"github.com/relabs-tech/pushup_tracker/internal/history"
)

//go:embed static
var staticFiles embed.FS

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // dashboard is served on the local network
	},
}

// Kinds of dashboard messages.
const (
	KindStatus    = "status"
	KindInference = "inference"
	KindRep       = "rep"
)

// Envelope wraps one tracker message for the dashboard.
type Envelope struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// Hub fans tracker messages out to websocket clients. New clients first
// receive the latest status and inference.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
	latest  map[string]Envelope
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*websocket.Conn]struct{}),
		latest:  make(map[string]Envelope),
	}
}

// Latest returns the last message of a kind.
func (h *Hub) Latest(kind string) (Envelope, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	e, ok := h.latest[kind]
	return e, ok
}

// Broadcast sends payload to every client. Invalid JSON is dropped.
func (h *Hub) Broadcast(kind string, payload []byte) {
	if !json.Valid(payload) {
		log.Printf("web: dropping invalid %s payload", kind)
		return
	}
	env := Envelope{Kind: kind, Payload: append(json.RawMessage(nil), payload...)}

	h.mu.Lock()
	defer h.mu.Unlock()
	if kind != KindRep {
		h.latest[kind] = env
	}
	for c := range h.clients {
		if err := c.WriteJSON(env); err != nil {
			log.Printf("web: websocket write error: %v", err)
			c.Close()
			delete(h.clients, c)
		}
	}
}

// ServeWS upgrades the request and registers the client.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("web: websocket upgrade error: %v", err)
		return
	}

	h.mu.Lock()
	for _, kind := range []string{KindStatus, KindInference} {
		if env, ok := h.latest[kind]; ok {
			if err := conn.WriteJSON(env); err != nil {
				h.mu.Unlock()
				conn.Close()
				return
			}
		}
	}
	h.clients[conn] = struct{}{}
	h.mu.Unlock()

	// Reads only detect the close; clients send nothing.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("web: websocket error: %v", err)
				}
				h.mu.Lock()
				delete(h.clients, conn)
				h.mu.Unlock()
				conn.Close()
				return
			}
		}
	}()
}

// ServeLatest writes the latest message of kind as JSON.
func (h *Hub) ServeLatest(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		env, ok := h.Latest(kind)
		if !ok {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(env.Payload)
	}
}

// serveHistory lists recent workout sessions.
func serveHistory(store *history.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 20
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				http.Error(w, "invalid limit", http.StatusBadRequest)
				return
			}
			limit = n
		}
		sums, err := store.Summaries(r.Context(), limit)
		if err != nil {
			log.Printf("web: history: %v", err)
			http.Error(w, "history unavailable", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(sums); err != nil {
			log.Printf("json encode error: %v", err)
		}
	}
}

// NewWebMux builds the dashboard routes. store may be nil.
func NewWebMux(h *Hub, store *history.Store) (*http.ServeMux, error) {
	root, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.ServeWS)
	mux.HandleFunc("/api/status", h.ServeLatest(KindStatus))
	mux.HandleFunc("/api/inference", h.ServeLatest(KindInference))
	if store != nil {
		mux.HandleFunc("/api/history", serveHistory(store))
	}
	mux.Handle("/", http.FileServer(http.FS(root)))
	return mux, nil
}

// RunWeb serves the live dashboard, relaying tracker MQTT messages.
func RunWeb() error {
	cfg := config.Get()
	hub := NewHub()

	client, err := events.Connect(cfg.MQTTBroker, cfg.MQTTClientIDWeb)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	for kind, topic := range map[string]string{
		KindStatus:    cfg.TopicStatus,
		KindInference: cfg.TopicInference,
		KindRep:       cfg.TopicReps,
	} {
		kind := kind
		token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
			hub.Broadcast(kind, msg.Payload())
		})
		token.Wait()
		if token.Error() != nil {
			return token.Error()
		}
		log.Printf("web: subscribed to MQTT topic %s", topic)
	}

	var store *history.Store
	if cfg.HistoryDB != "" {
		store, err = history.Open(cfg.HistoryDB)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	mux, err := NewWebMux(hub, store)
	if err != nil {
		return err
	}
	addr := fmt.Sprintf(":%d", cfg.WebServerPort)
	log.Printf("web server listening on %s", addr)
	return http.ListenAndServe(addr, mux)
}
