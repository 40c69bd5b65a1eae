package relay

import (
	"context"
	"encoding/json"

	"chatrelaygo/internal/services/chat"

	"go.uber.org/zap"
)

// wireMessage is the payload exchanged between instances over Redis. Origin
// lets a node drop its own publishes so local members are not served twice.
type wireMessage struct {
	Origin string `json:"origin"`
	chat.Message
}

// channel format: "room:<roomID>:events"
func roomChannel(roomID string) string { return "room:" + roomID + ":events" }

// publish pushes the already-persisted message to the room's Redis channel so
// other instances can fan it out to their local members. Best-effort: the
// send has already succeeded locally.
func (e *Engine) publish(ctx context.Context, roomID string, msg *chat.Message) {
	if e.subMgr == nil {
		return
	}
	payload, err := json.Marshal(wireMessage{Origin: e.instanceID, Message: *msg})
	if err != nil {
		zap.L().Error("relay.wire_marshal", zap.Error(err))
		return
	}
	if err := e.subMgr.rdb.Publish(ctx, roomChannel(roomID), payload).Err(); err != nil {
		zap.L().Warn("relay.publish", zap.String("room", roomID), zap.Error(err))
	}
}

// handleRemotePayload fans a message from another instance out to the local
// members of the room. The message was persisted by its origin, so it is
// delivered but never re-appended.
func (e *Engine) handleRemotePayload(roomID string, payload []byte) {
	var wm wireMessage
	if err := json.Unmarshal(payload, &wm); err != nil {
		zap.L().Warn("relay.wire_unmarshal", zap.Error(err))
		return
	}
	if wm.Origin == e.instanceID {
		return
	}
	e.fanout(roomID, &wm.Message)
}
