package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"quiz-orchestrator/internal/app"
)

const (
	sendBuffer     = 64
	writeWait      = 10 * time.Second
	maxMessageSize = 1 << 20
)

// Dispatcher is the part of app.Router the websocket edge talks to.
type Dispatcher interface {
	Connect(conn app.Conn)
	Dispatch(connID, eventType string, payload json.RawMessage)
	Disconnect(connID string)
}

type WSHandler struct {
	router   Dispatcher
	upgrader websocket.Upgrader
	log      *slog.Logger
}

func NewWSHandler(router Dispatcher, log *slog.Logger) *WSHandler {
	if log == nil {
		log = slog.Default()
	}
	return &WSHandler{
		router: router,
		log:    log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// client is one websocket connection. The router writes through Send; only
// writePump touches the socket for writing.
type client struct {
	id   string
	conn *websocket.Conn
	send chan app.Message
	done chan struct{}
}

func (c *client) ID() string { return c.id }

func (c *client) Send(msg app.Message) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *client) writePump() {
	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

// ServeWS upgrades HTTP requests to websockets and feeds every frame to the router.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws: upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxMessageSize)

	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan app.Message, sendBuffer),
		done: make(chan struct{}),
	}
	h.router.Connect(c)
	h.log.Info("ws: client connected", "conn", c.id, "remote", r.RemoteAddr)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		c.writePump()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		var inbound inboundMessage
		if err := json.Unmarshal(data, &inbound); err != nil || inbound.Type == "" {
			c.Send(app.Message{Type: app.OutError, Payload: "malformed message"})
			continue
		}
		h.router.Dispatch(c.id, inbound.Type, inbound.Payload)
	}

	h.router.Disconnect(c.id)
	close(c.done)
	<-writerDone
	h.log.Info("ws: client disconnected", "conn", c.id)
}
