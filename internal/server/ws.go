package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/mukha/internal/app"
)

const writeWait = time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// RecognitionsHandler broadcasts the faces found in each analyzed frame via WebSocket.
type RecognitionsHandler struct {
	clients map[*websocket.Conn]bool
	mu      sync.Mutex
}

type recognitionsMessage struct {
	Faces     []app.Recognition `json:"faces"`
	Timestamp int64             `json:"timestamp"`
}

// NewRecognitionsHandler creates a new RecognitionsHandler with no clients.
func NewRecognitionsHandler() *RecognitionsHandler {
	return &RecognitionsHandler{
		clients: make(map[*websocket.Conn]bool),
	}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *RecognitionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("server: websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	defer h.remove(conn)

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (h *RecognitionsHandler) remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, conn)
}

// Clients returns the number of connected clients.
func (h *RecognitionsHandler) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast sends recs to every connected client. Clients that cannot keep
// up are dropped.
func (h *RecognitionsHandler) Broadcast(recs []app.Recognition) {
	if recs == nil {
		recs = []app.Recognition{}
	}

	msg, err := json.Marshal(recognitionsMessage{
		Faces:     recs,
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		log.Printf("server: failed to encode recognitions: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.clients {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			conn.Close()
			delete(h.clients, conn)
		}
	}
}

// Close disconnects every client.
func (h *RecognitionsHandler) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.clients {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(writeWait))
		conn.Close()
		delete(h.clients, conn)
	}
}
