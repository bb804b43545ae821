package ws

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var (
	ErrQueueFull  = errors.New("outbound queue full")
	ErrConnClosed = errors.New("connection closed")
)

type wsConn struct {
	conn *websocket.Conn
	id   string

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once

	writeWait time.Duration
	pingEvery time.Duration
}

func newWsConn(c *websocket.Conn, id string, cfg Config) *wsConn {
	return &wsConn{
		conn:      c,
		id:        id,
		send:      make(chan []byte, cfg.SendBuffer),
		done:      make(chan struct{}),
		writeWait: cfg.WriteTimeout,
		pingEvery: cfg.PingInterval,
	}
}

func (c *wsConn) ID() string { return c.id }

// Enqueue не блокируется: либо кадр в очереди, либо ошибка.
func (c *wsConn) Enqueue(data []byte) error {
	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}

	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return ErrConnClosed
	default:
		return ErrQueueFull
	}
}

// Close безопасен для повторного и параллельного вызова.
func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.conn.Close()
	})
	return err
}

// closeWith отправляет close-кадр с кодом и закрывает соединение.
func (c *wsConn) closeWith(code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	if err := c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(c.writeWait)); err != nil {
		slog.Debug("ws write close failed", "conn", c.id, "err", err)
	}
	_ = c.Close()
}

func (c *wsConn) writeLoop() {
	ticker := time.NewTicker(c.pingEvery)
	defer ticker.Stop()

	for {
		select {
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				slog.Debug("ws write failed", "conn", c.id, "err", err)
				_ = c.Close()
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.writeWait)); err != nil {
				slog.Debug("ws ping failed", "conn", c.id, "err", err)
				_ = c.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}
