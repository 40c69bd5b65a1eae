package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"chatrelaygo/internal/relay"
	"chatrelaygo/internal/services/chat"
	"chatrelaygo/internal/services/identity"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10 // must be < pongWait
	maxMessageSize = 4096
)

var errConnGone = errors.New("connection gone")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true }, // dev-only
}

// ConnContext carries per-connection state into event handlers.
type ConnContext struct {
	ConnID   string
	Username string
	Server   *WsServer
}

type WsServer struct {
	engine      *relay.Engine
	identitySvc identity.IIdentityService
	router      *Router
	conns       sync.Map // connID -> *clientConn
}

// NewWsServer builds the relay engine on top of this server's transport.
// rdc enables multi-instance fan-out and may be nil.
func NewWsServer(identitySvc identity.IIdentityService, chatSvc chat.IChatService, rdc *redis.Client) *WsServer {
	srv := &WsServer{
		identitySvc: identitySvc,
		router:      NewRouter(),
	}
	srv.engine = relay.NewEngine(chatSvc, srv, rdc)
	srv.registerHandlers() // ← all WS endpoints configured here
	return srv
}

// ---------------------------------------------------------------------------
//  Public: Gin entry-point
// ---------------------------------------------------------------------------

func (s *WsServer) Handle(ginCtx *gin.Context) {
	token := ginCtx.Query("token")
	if token == "" {
		ginCtx.JSON(http.StatusBadRequest, gin.H{"error": "token is required"})
		return
	}
	username, err := s.identitySvc.VerifyToken(token)
	if err != nil {
		ginCtx.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	rawConn, err := upgrader.Upgrade(ginCtx.Writer, ginCtx.Request, nil)
	if err != nil {
		zap.L().Warn("ws.upgrade", zap.Error(err))
		return
	}
	rawConn.SetReadLimit(maxMessageSize)

	// ─────────────────── Client connected ────────────────────────
	connID := uuid.NewString()
	wsConn := &clientConn{rawConn: rawConn}
	s.conns.Store(connID, wsConn)

	if err := s.engine.Connect(connID, username); err != nil {
		zap.L().Error("ws.connect", zap.String("conn", connID), zap.Error(err))
		s.conns.Delete(connID)
		rawConn.Close()
		return
	}

	go s.reader(connID, username, wsConn)
	go s.pinger(wsConn)
}

// Deliver implements relay.Deliverer: wrap the payload in the public envelope
// and write it to the connection, if it is still with us.
func (s *WsServer) Deliver(connID, event string, payload []byte) error {
	v, ok := s.conns.Load(connID)
	if !ok {
		return errConnGone
	}
	return v.(*clientConn).writeJSON(Envelope{Event: event, Body: payload})
}

// ---------------------------------------------------------------------------
//  Private helpers
// ---------------------------------------------------------------------------

func (s *WsServer) registerHandlers() {
	// 🔹 chat/join ------------------------------------------------------------
	Register(
		s.router,
		"chat/join",
		func(ctx context.Context, cc *ConnContext, req JoinRequest) (AckBody, error) {
			return AckBody{}, s.engine.Join(cc.ConnID, req.Room)
		},
	)

	// 🔹 chat/send ------------------------------------------------------------
	Register(
		s.router,
		"chat/send",
		func(ctx context.Context, cc *ConnContext, req SendRequest) (AckBody, error) {
			return AckBody{}, s.engine.Send(ctx, cc.ConnID, req.Content)
		},
	)
}

func (s *WsServer) reader(connID, username string, conn *clientConn) {
	defer func() {
		s.engine.Disconnect(connID)
		s.conns.Delete(connID)
		conn.rawConn.Close()
	}()

	_ = conn.rawConn.SetReadDeadline(time.Now().Add(pongWait))
	conn.rawConn.SetPongHandler(func(string) error {
		return conn.rawConn.SetReadDeadline(time.Now().Add(pongWait))
	})

	cc := &ConnContext{ConnID: connID, Username: username, Server: s}

	for {
		_, data, err := conn.rawConn.ReadMessage()
		if err != nil {
			return // client closed or errored
		}
		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			_ = conn.writeJSON(Envelope{Event: "error"})
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 1900*time.Millisecond)
		res, err := s.router.dispatch(ctx, cc, env)
		cancel()

		// ---- error -> {"event":"error", "body":{...}} ---------------
		if err != nil {
			_ = conn.writeJSON(map[string]any{
				"event": "error",
				"body":  ErrorBody{Error: err.Error()},
			})
			continue
		}

		// ---- success -> {"event":"<evt>-ack", "body":{...}} --------
		reply := map[string]any{"event": env.Event + "-ack"}
		if res != nil {
			reply["body"] = res
		}
		_ = conn.writeJSON(reply)
	}
}

func (s *WsServer) pinger(conn *clientConn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for range ticker.C {
		if err := conn.ping(); err != nil {
			conn.rawConn.Close()
			return
		}
	}
}
