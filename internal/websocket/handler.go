package websocket

import (
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// ServeWs wires one websocket connection into the hub.
func ServeWs(hub *Hub, c *websocket.Conn) {
	client := &Client{Hub: hub, Conn: c, ID: uuid.New(), Send: make(chan []byte, 256)}
	client.Hub.register <- client

	// writePump gets its own goroutine; readPump keeps the handler alive
	// until the peer disconnects.
	go client.writePump()
	client.readPump()
}
