// Copyright (c) 2024 The Glintchain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package rpc

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	clientSendBuf  = 64
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// client is one subscriber's websocket connection, pumped by its own pair
// of goroutines so a slow reader can never block the hub's broadcast loop.
type client struct {
	hub  *hub
	conn *websocket.Conn
	send chan Notification
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case n, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(n); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump only drains the connection so control frames (pong, close) get
// handled; subscribers don't send the server anything meaningful.
func (c *client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// hub fans Notifications out to every connected status-stream subscriber.
type hub struct {
	clients    map[*client]bool
	broadcast  chan Notification
	register   chan *client
	unregister chan *client
	quit       chan struct{}
}

func newHub() *hub {
	return &hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan Notification, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		quit:       make(chan struct{}),
	}
}

func (h *hub) run() {
	for {
		select {
		case c := <-h.register:
			h.clients[c] = true

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}

		case n := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- n:
				default:
					// Subscriber can't keep up; drop it rather than
					// let one slow reader back up every notification.
					delete(h.clients, c)
					close(c.send)
				}
			}

		case <-h.quit:
			for c := range h.clients {
				close(c.send)
			}
			return
		}
	}
}

func (h *hub) stop() {
	close(h.quit)
}

func (h *hub) notify(n Notification) {
	select {
	case h.broadcast <- n:
	case <-h.quit:
	}
}

// serveWS upgrades r into a status-stream subscriber.
func (h *hub) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debugf("websocket upgrade failed: %v", err)
		return
	}

	c := &client{hub: h, conn: conn, send: make(chan Notification, clientSendBuf)}
	h.register <- c

	go c.writePump()
	go c.readPump()
}
