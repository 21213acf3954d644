package ws

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vovakirdan/duelsync/internal/game"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 256 * 1024
)

// Envelope is the wire frame in both directions: an event name and a
// payload.
type Envelope struct {
	T string          `json:"t"`
	M json.RawMessage `json:"m,omitempty"`
}

// Client is one websocket connection for one uid. It implements push.Sender;
// outbound frames queue on a buffered channel and drop when the peer cannot
// keep up, never blocking a broadcast.
type Client struct {
	id     string
	uid    string
	server *Server
	conn   *websocket.Conn
	send   chan []byte
}

// Send implements push.Sender.
func (c *Client) Send(_ string, event string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("ws: marshal %s: %w", event, err)
	}
	frame, err := json.Marshal(Envelope{T: event, M: body})
	if err != nil {
		return fmt.Errorf("ws: marshal envelope: %w", err)
	}
	select {
	case c.send <- frame:
		return nil
	default:
		return fmt.Errorf("ws: send buffer full for %s", c.uid)
	}
}

func (c *Client) readPump() {
	defer func() {
		c.server.disconnect(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.server.logger.Debug("read error", "uid", c.uid, "conn", c.id, "error", err)
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			c.server.logger.Warn("bad frame", "uid", c.uid, "conn", c.id, "error", err)
			continue
		}
		c.server.route(c, env)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
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

// inbound payload shapes

type sessionRef struct {
	SessionID string `json:"session_id"`
}

type createReq struct {
	GameID   string `json:"game_id"`
	Deck     string `json:"deck,omitempty"`
	Side     string `json:"side,omitempty"`
	Password string `json:"password,omitempty"`
}

type joinReq struct {
	SessionID string `json:"session_id"`
	Deck      string `json:"deck,omitempty"`
	Side      string `json:"side,omitempty"`
}

type actionReq struct {
	SessionID string         `json:"session_id"`
	Command   string         `json:"command"`
	Args      map[string]any `json:"args,omitempty"`
}

type watchReq struct {
	SessionID   string `json:"session_id"`
	Password    string `json:"password,omitempty"`
	Perspective string `json:"perspective,omitempty"`
}

type sayReq struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type typingReq struct {
	SessionID string `json:"session_id"`
	Typing    bool   `json:"typing"`
}

func parsePerspective(name string) game.Side {
	return game.ParseSide(name)
}
