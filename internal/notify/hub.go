// Package notify pushes console feedback (toasts and the loading indicator)
// to the browser tabs of one console session over a websocket.
package notify

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gofiber/websocket/v2"
	"github.com/yourorg/catalogconsole/internal/console"
)

// LocalsKey is the websocket Locals key holding the console-session id.
const LocalsKey = "console_sid"

// Conn is the part of a websocket connection the hub writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Message is the JSON frame sent to the browser.
type Message struct {
	Type   string         `json:"type"`
	Toast  *console.Toast `json:"toast,omitempty"`
	Active *bool          `json:"active,omitempty"`
}

type subscription struct {
	room string
	conn Conn
}

type envelope struct {
	room string
	data []byte
}

// Hub fans messages out to the connections of each room. A room is one
// console-session id.
type Hub struct {
	rooms      map[string]map[Conn]bool
	broadcast  chan envelope
	register   chan subscription
	unregister chan subscription
	done       chan struct{}
	stopOnce   sync.Once

	mu    sync.RWMutex
	count int
}

func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[Conn]bool),
		broadcast:  make(chan envelope, 256),
		register:   make(chan subscription),
		unregister: make(chan subscription),
		done:       make(chan struct{}),
	}
}

// Run processes registrations and broadcasts until Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case sub := <-h.register:
			conns, ok := h.rooms[sub.room]
			if !ok {
				conns = make(map[Conn]bool)
				h.rooms[sub.room] = conns
			}
			conns[sub.conn] = true
			h.setCount(1)
			log.Printf("🔌 Consola conectada. Total clientes: %d", h.Count())

		case sub := <-h.unregister:
			if h.remove(sub.room, sub.conn) {
				log.Printf("🔌 Consola desconectada. Total clientes: %d", h.Count())
			}

		case env := <-h.broadcast:
			for conn := range h.rooms[env.room] {
				if err := conn.WriteMessage(websocket.TextMessage, env.data); err != nil {
					log.Printf("Error enviando mensaje a la consola: %v", err)
					h.remove(env.room, conn)
				}
			}

		case <-h.done:
			for room, conns := range h.rooms {
				for conn := range conns {
					h.remove(room, conn)
				}
			}
			return
		}
	}
}

// Stop ends Run and closes every connection.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// Subscribe adds conn to room. It blocks until the hub has registered it.
func (h *Hub) Subscribe(room string, conn Conn) {
	select {
	case h.register <- subscription{room: room, conn: conn}:
	case <-h.done:
	}
}

// Unsubscribe removes conn from room and closes it.
func (h *Hub) Unsubscribe(room string, conn Conn) {
	select {
	case h.unregister <- subscription{room: room, conn: conn}:
	case <-h.done:
	}
}

// Send queues msg for every connection in room. Messages are dropped when
// the queue is full.
func (h *Hub) Send(room string, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Error al serializar mensaje para la consola: %v", err)
		return
	}
	select {
	case h.broadcast <- envelope{room: room, data: data}:
	default:
		// Canal lleno, saltar mensaje
	}
}

// For returns a console.Notifier that publishes to room.
func (h *Hub) For(room string) console.Notifier {
	return roomNotifier{hub: h, room: room}
}

// Handler serves one websocket connection. The console-session id must be
// in conn.Locals(LocalsKey).
func (h *Hub) Handler(conn *websocket.Conn) {
	room, _ := conn.Locals(LocalsKey).(string)
	if room == "" {
		conn.Close()
		return
	}
	h.Subscribe(room, conn)
	defer h.Unsubscribe(room, conn)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// remove must only be called from Run.
func (h *Hub) remove(room string, conn Conn) bool {
	conns, ok := h.rooms[room]
	if !ok || !conns[conn] {
		return false
	}
	delete(conns, conn)
	if len(conns) == 0 {
		delete(h.rooms, room)
	}
	conn.Close()
	h.setCount(-1)
	return true
}

func (h *Hub) setCount(delta int) {
	h.mu.Lock()
	h.count += delta
	h.mu.Unlock()
}

type roomNotifier struct {
	hub  *Hub
	room string
}

func (n roomNotifier) Toast(t console.Toast) {
	n.hub.Send(n.room, Message{Type: "toast", Toast: &t})
}

func (n roomNotifier) Loading(active bool) {
	n.hub.Send(n.room, Message{Type: "loading", Active: &active})
}
