package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"chatrelaygo/internal/services/chat"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// MessageEvent is the server push carrying one chat message.
const MessageEvent = "chat/message"

// Deliverer pushes one event to one connection's transport. Implemented by
// the websocket server.
type Deliverer interface {
	Deliver(connID, event string, payload []byte) error
}

// Engine accepts inbound messages, persists them, then fans them out to the
// current members of the target room. Persistence always happens before any
// delivery, so a broadcast message is always a committed one.
type Engine struct {
	reg        *Registry
	dir        *Directory
	store      chat.IChatService
	sink       Deliverer
	subMgr     *subscriptionManager // nil when running without Redis
	instanceID string
}

// NewEngine wires the registry, directory and store together. rdc enables
// cross-instance fan-out over Redis pub/sub and may be nil.
func NewEngine(store chat.IChatService, sink Deliverer, rdc *redis.Client) *Engine {
	e := &Engine{
		reg:        NewRegistry(),
		dir:        NewDirectory(),
		store:      store,
		sink:       sink,
		instanceID: uuid.NewString(),
	}
	if rdc != nil {
		e.subMgr = newSubscriptionManager(rdc, e)
	}
	return e
}

// Connect registers a freshly authenticated connection.
func (e *Engine) Connect(connID, identity string) error {
	return e.reg.Register(connID, identity)
}

// Join moves the connection into roomID, evicting it from its previous room.
// Room membership is exclusive. Joins are silent: nothing is persisted or
// broadcast for them.
func (e *Engine) Join(connID, roomID string) error {
	prev, err := e.reg.SetRoom(connID, roomID)
	if err != nil {
		return err
	}
	if prev == roomID {
		return nil // re-entrant join
	}
	if prev != "" {
		e.dir.Leave(prev, connID)
		if e.subMgr != nil {
			e.subMgr.Unsubscribe(prev)
		}
	}
	e.dir.Join(roomID, connID)
	if e.subMgr != nil {
		e.subMgr.Subscribe(roomID)
	}
	return nil
}

// Disconnect removes the connection and its room membership. Idempotent.
func (e *Engine) Disconnect(connID string) {
	conn, ok := e.reg.Remove(connID)
	if !ok {
		return
	}
	if conn.Room != "" {
		e.dir.Leave(conn.Room, connID)
		if e.subMgr != nil {
			e.subMgr.Unsubscribe(conn.Room)
		}
	}
}

// Send persists content as a message in the sender's current room, then
// delivers it to a snapshot of the room taken after the append (sender
// included). Per-recipient delivery failures are counted, never propagated.
//
// Ordering: one connection's sends are serialised by its reader loop, so its
// messages are delivered in append order. Across concurrent senders the store
// assigns the total order (ids), but their fan-outs are not coordinated, so
// two racing messages may reach recipients in either order; history reads
// always return id order.
func (e *Engine) Send(ctx context.Context, connID, content string) error {
	conn, err := e.reg.Lookup(connID)
	if err != nil {
		return err
	}
	if conn.Room == "" {
		return ErrNotJoined
	}

	msg := &chat.Message{
		Room:    conn.Room,
		Sender:  conn.Identity,
		Content: content,
		SentAt:  time.Now().UTC(),
	}
	if _, err := e.store.Append(ctx, msg); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}

	e.fanout(conn.Room, msg)
	e.publish(ctx, conn.Room, msg)
	return nil
}

// fanout delivers msg to every member of the snapshot. No directory lock is
// held during the writes.
func (e *Engine) fanout(roomID string, msg *chat.Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		zap.L().Error("relay.marshal", zap.Error(err))
		return
	}

	var failed int
	for _, connID := range e.dir.Snapshot(roomID) {
		if err := e.sink.Deliver(connID, MessageEvent, payload); err != nil {
			failed++
		}
	}
	if failed > 0 {
		zap.L().Warn("relay.deliver_failed",
			zap.String("room", roomID), zap.Int("count", failed))
	}
}
