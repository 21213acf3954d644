// Package ws adapts the synchronization core to websocket clients: it
// decodes inbound JSON envelopes into service calls and registers each
// connection as a push channel for outbound events. Wire semantics beyond
// the envelope, and authentication, live outside this module; the uid comes
// from the query string.
package ws

import (
	"encoding/json"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/vovakirdan/duelsync/internal/match"
	"github.com/vovakirdan/duelsync/internal/push"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Server accepts websocket connections and bridges them to the match
// service.
type Server struct {
	svc        *match.Service
	dispatcher *push.Dispatcher
	logger     *log.Logger
	sendBuffer int
}

// NewServer creates the transport adapter. sendBuffer is the per-connection
// outbound queue length.
func NewServer(svc *match.Service, dispatcher *push.Dispatcher, logger *log.Logger, sendBuffer int) *Server {
	if sendBuffer < 1 {
		sendBuffer = 256
	}
	return &Server{
		svc:        svc,
		dispatcher: dispatcher,
		logger:     logger,
		sendBuffer: sendBuffer,
	}
}

// ServeHTTP upgrades the connection and starts the pumps.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	uid := r.URL.Query().Get("uid")
	if uid == "" {
		http.Error(w, "missing uid", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrade failed", "error", err)
		return
	}

	client := &Client{
		id:     uuid.NewString(),
		uid:    uid,
		server: s,
		conn:   conn,
		send:   make(chan []byte, s.sendBuffer),
	}
	s.dispatcher.Register(uid, client)
	s.logger.Info("connected", "uid", uid, "conn", client.id)

	go client.writePump()
	go client.readPump()
}

// disconnect runs when a connection's read pump exits. The uid leaves its
// sessions only if this connection still owns the push slot: a stale pump
// dying after the uid reconnected must not undo the reconnect.
func (s *Server) disconnect(c *Client) {
	if !s.dispatcher.Unregister(c.uid, c) {
		s.logger.Debug("stale connection closed", "uid", c.uid, "conn", c.id)
		return
	}
	s.svc.ConnectionClosed(c.uid)
	s.logger.Info("disconnected", "uid", c.uid, "conn", c.id)
}

// route dispatches one inbound envelope.
func (s *Server) route(c *Client, env Envelope) {
	switch env.T {
	case "create":
		var req createReq
		if !s.decode(c, env, &req) {
			return
		}
		sid, err := s.svc.Create(c.uid, req.GameID, req.Deck, req.Password, parsePerspective(req.Side))
		if err != nil {
			c.Send(c.uid, "create", map[string]any{"code": match.CodeNotFound, "error": err.Error()})
			return
		}
		c.Send(c.uid, "create", map[string]any{"code": match.CodeOK, "session_id": sid})

	case "join":
		var req joinReq
		if !s.decode(c, env, &req) {
			return
		}
		sid := req.SessionID
		s.svc.Join(c.uid, sid, req.Deck, parsePerspective(req.Side), func(code int) {
			c.Send(c.uid, "join", map[string]any{"code": code, "session_id": sid})
		})

	case "start":
		var req sessionRef
		if s.decode(c, env, &req) {
			s.svc.Start(c.uid, req.SessionID)
		}

	case "leave":
		var req sessionRef
		if s.decode(c, env, &req) {
			s.svc.Leave(c.uid, req.SessionID)
		}

	case "rejoin":
		var req sessionRef
		if s.decode(c, env, &req) {
			s.svc.Rejoin(c.uid, req.SessionID)
		}

	case "concede":
		var req sessionRef
		if s.decode(c, env, &req) {
			s.svc.Concede(c.uid, req.SessionID)
		}

	case "action":
		var req actionReq
		if s.decode(c, env, &req) {
			s.svc.Action(c.uid, req.SessionID, req.Command, req.Args)
		}

	case "resync":
		var req sessionRef
		if s.decode(c, env, &req) {
			s.svc.Resync(c.uid, req.SessionID)
		}

	case "watch":
		var req watchReq
		if !s.decode(c, env, &req) {
			return
		}
		sid := req.SessionID
		s.svc.Watch(c.uid, sid, req.Password, parsePerspective(req.Perspective), func(code int) {
			c.Send(c.uid, "watch", map[string]any{"code": code, "session_id": sid})
		})

	case "mute-spectators":
		var req sessionRef
		if s.decode(c, env, &req) {
			s.svc.MuteSpectators(c.uid, req.SessionID)
		}

	case "say":
		var req sayReq
		if s.decode(c, env, &req) {
			s.svc.Say(c.uid, req.SessionID, req.Message)
		}

	case "typing":
		var req typingReq
		if s.decode(c, env, &req) {
			s.svc.Typing(c.uid, req.SessionID, req.Typing)
		}

	default:
		s.logger.Warn("unknown event", "uid", c.uid, "event", env.T)
	}
}

func (s *Server) decode(c *Client, env Envelope, dst any) bool {
	if err := json.Unmarshal(env.M, dst); err != nil {
		s.logger.Warn("bad payload", "uid", c.uid, "event", env.T, "error", err)
		return false
	}
	return true
}
