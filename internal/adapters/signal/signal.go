package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/dkeye/studyroom/internal/app"
	"github.com/dkeye/studyroom/internal/config"
	"github.com/dkeye/studyroom/internal/core"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
)

// handlerFunc handles one inbound message kind. Handlers are registered in
// the dispatch table and stay free of transport concerns beyond conn.
type handlerFunc func(ctx context.Context, sid core.ConnID, conn core.SignalConnection, data []byte)

type SignalWSController struct {
	Presence *app.Presence
	Relay    *app.Relay
	Rooms    core.RoomFactory
	Store    app.RoomStore

	cfg      *config.Config
	limiter  *JoinRateLimiter
	handlers map[string]handlerFunc
}

func NewSignalWSController(cfg *config.Config, presence *app.Presence, relay *app.Relay, rooms core.RoomFactory, store app.RoomStore) *SignalWSController {
	ctl := &SignalWSController{
		Presence: presence,
		Relay:    relay,
		Rooms:    rooms,
		Store:    store,
		cfg:      cfg,
		limiter:  NewJoinRateLimiter(10, time.Minute),
	}
	ctl.handlers = map[string]handlerFunc{
		"join-room":        ctl.handleJoinRoom,
		"leave-room":       ctl.handleLeaveRoom,
		"call-user":        ctl.handleCallUser,
		"answer-call":      ctl.handleAnswerCall,
		"send-message":     ctl.handleSendMessage,
		"send-changes":     ctl.handleSendChanges,
		"whiteboard-draw":  ctl.handleWhiteboardDraw,
		"whiteboard-clear": ctl.handleWhiteboardClear,
		"toggle-media":     ctl.handleToggleMedia,
		"ping":             ctl.handlePing,
	}
	return ctl
}

type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrConnClosed
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal upgrades the request and binds a fresh connection ID for the
// lifetime of the socket. The client learns its ID from the first frame.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	conn := &WsSignalConn{
		conn: ws,
		send: make(chan core.Frame, 32),
	}

	sess := core.NewMemberSession("", conn)
	ctx, cancel := context.WithCancel(ctx)
	sid := ctl.Presence.Registry.Bind(sess, cancel)
	log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("new WS connection")

	ctl.sendJSON(conn, struct {
		Type         string      `json:"type"`
		ConnectionID core.ConnID `json:"connectionId"`
	}{
		Type:         "connected",
		ConnectionID: sid,
	})

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, sid, conn)
}
