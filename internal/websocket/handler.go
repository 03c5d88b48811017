package websocket

import (
	"github.com/gofiber/websocket/v2"
)

// Hooks connect a socket to the domain. Every field is optional.
type Hooks struct {
	// OnOpen runs once the client receives topic frames.
	OnOpen    func(c *Client)
	OnMessage func(c *Client, data []byte)
	// OnClose runs after the peer went away.
	OnClose func(c *Client)
}

// ServeWs registers conn on topic and blocks until the peer goes away.
func ServeWs(hub *Hub, conn *websocket.Conn, topic string, hooks Hooks) {
	client := NewClient(hub, conn, topic, hooks.OnMessage)
	hub.Register(client)

	go client.writePump()
	if hooks.OnOpen != nil {
		hooks.OnOpen(client)
	}
	client.readPump() // Run readPump in current goroutine (handler)
	if hooks.OnClose != nil {
		hooks.OnClose(client)
	}
}
