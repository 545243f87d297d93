package events

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	sendQueue  = 32
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// Conn is one browser connection with its outbound queue.
type Conn struct {
	id     uuid.UUID
	ws     *websocket.Conn
	send   chan []byte
	done   chan struct{}
	closer sync.Once
}

func NewConn(id uuid.UUID, ws *websocket.Conn) *Conn {
	return &Conn{
		id:   id,
		ws:   ws,
		send: make(chan []byte, sendQueue),
		done: make(chan struct{}),
	}
}

func (c *Conn) enqueue(msg []byte) bool {
	select {
	case <-c.done:
		return true
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *Conn) writeLoop() error {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return nil
		case msg := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return fmt.Errorf("write failed: %w", err)
			}
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(writeWait)); err != nil {
				return fmt.Errorf("ping failed: %w", err)
			}
		}
	}
}

// readLoop drains client frames so control messages are processed. It
// returns when the connection fails or is closed.
func (c *Conn) readLoop() error {
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			return fmt.Errorf("read failed: %w", err)
		}
	}
}

func (c *Conn) Close() error {
	var err error
	c.closer.Do(func() {
		close(c.done)
		err = c.ws.Close()
	})
	return err
}
