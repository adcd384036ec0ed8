package services

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/CrowderSoup/vieira-boards/database"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Clients only send pings; anything larger is a misbehaving peer.
	maxMessageSize = 64 * 1024
)

// Message types pushed to clients.
const (
	MessageBoard = "board"
	MessagePing  = "ping"
	MessagePong  = "pong"
)

// Client is one connected browser tab.
type Client struct {
	Hub   *Hub
	Conn  *websocket.Conn
	Send  chan []byte
	Email string
}

// WebSocketMessage is the envelope of every frame.
type WebSocketMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// ReadPump reads from the connection until it closes. The server owns the
// board state, so the only message acted on is ping.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		var wsMessage WebSocketMessage
		if err := json.Unmarshal(message, &wsMessage); err != nil {
			log.Printf("Error unmarshalling WebSocket message: %v", err)
			continue
		}
		if wsMessage.Type != MessagePing {
			log.Printf("Ignoring %q message from %s", wsMessage.Type, c.Email)
			continue
		}

		pong, err := json.Marshal(WebSocketMessage{
			Type: MessagePong,
			Data: map[string]string{"timestamp": time.Now().Format(time.RFC3339)},
		})
		if err == nil {
			c.Hub.sendTo(c, pong)
		}
	}
}

// WritePump pumps messages from the hub to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// One frame per message: board snapshots are complete JSON documents.
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Hub fans board snapshots out to every connected client.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	direct     chan directMessage
	count      chan chan int
	done       chan struct{}
}

// directMessage goes to one client only. Send channels are closed by the
// hub loop, so nothing else writes to them.
type directMessage struct {
	client  *Client
	message []byte
}

func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		direct:     make(chan directMessage),
		count:      make(chan chan int),
		clients:    make(map[*Client]bool),
		done:       make(chan struct{}),
	}
}

// Register adds a client. After Run has returned the client is closed
// straight away.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.Send)
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) sendTo(client *Client, message []byte) {
	select {
	case h.direct <- directMessage{client: client, message: message}:
	case <-h.done:
	}
}

// ClientCount returns the number of registered clients.
func (h *Hub) ClientCount() int {
	reply := make(chan int, 1)
	select {
	case h.count <- reply:
		return <-reply
	case <-h.done:
		return 0
	}
}

// BroadcastBoard queues a board snapshot for every client. It is used as a
// board.Store listener and therefore never waits on the hub loop: when the
// queue is full the snapshot is dropped, and the next one supersedes it.
func (h *Hub) BroadcastBoard(b *database.BoardData) {
	msg, err := json.Marshal(WebSocketMessage{Type: MessageBoard, Data: b})
	if err != nil {
		log.Printf("Error marshalling WebSocket message: %v", err)
		return
	}
	select {
	case h.broadcast <- msg:
	default:
		log.Printf("Broadcast queue full, dropping snapshot of board %s", b.ID)
	}
}

// Run starts the hub's main loop. It returns when ctx is done, closing
// every client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			for client := range h.clients {
				close(client.Send)
				delete(h.clients, client)
			}
			return
		case client := <-h.register:
			h.clients[client] = true
			log.Printf("Client connected: %s", client.Email)
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
				log.Printf("Client disconnected: %s", client.Email)
			}
		case d := <-h.direct:
			if h.clients[d.client] {
				select {
				case d.client.Send <- d.message:
				default:
				}
			}
		case reply := <-h.count:
			reply <- len(h.clients)
		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.Send <- message:
				default:
					// Client's send buffer is full, assume disconnected
					log.Printf("Client send buffer full, removing client: %s", client.Email)
					close(client.Send)
					delete(h.clients, client)
				}
			}
		}
	}
}
