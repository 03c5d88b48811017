package websocket

import (
	"encoding/json"
	"time"

	"github.com/gofiber/websocket/v2"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
	sendBuffer     = 256
)

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	Hub *Hub

	// The websocket connection.
	Conn *websocket.Conn

	// Topic this connection listens to
	Topic string

	// Buffered channel of outbound messages.
	Send chan []byte

	// OnMessage receives inbound frames. Nil ignores them.
	OnMessage func(c *Client, data []byte)

	registered chan struct{}
}

func NewClient(hub *Hub, conn *websocket.Conn, topic string, onMessage func(*Client, []byte)) *Client {
	return &Client{
		Hub:        hub,
		Conn:       conn,
		Topic:      topic,
		Send:       make(chan []byte, sendBuffer),
		OnMessage:  onMessage,
		registered: make(chan struct{}),
	}
}

// Reply sends v to this connection only.
func (c *Client) Reply(v interface{}) bool {
	data, err := json.Marshal(v)
	if err != nil {
		c.Hub.logger.Error("Client", "Failed to encode reply", map[string]interface{}{"topic": c.Topic, "error": err.Error()})
		return false
	}
	return c.Hub.reply(c, data)
}

// readPump pumps messages from the websocket connection to OnMessage.
func (c *Client) readPump() {
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
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.Warn("Client", "Unexpected close", map[string]interface{}{"topic": c.Topic, "error": err.Error()})
			}
			return
		}
		if c.OnMessage != nil {
			c.OnMessage(c, data)
		}
	}
}

// writePump pumps messages from the hub to the websocket connection. Each
// frame is written on its own so clients can parse them one by one.
func (c *Client) writePump() {
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
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
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
