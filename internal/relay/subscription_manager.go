package relay

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"
)

// subscriptionManager guarantees that the process holds exactly one Redis
// subscription per "room:<id>:events" channel, no matter how many local
// connections are in the same room. The subscription is torn down when the
// last local member leaves.
type subscriptionManager struct {
	rdb    *redis.Client
	engine *Engine
	mu     sync.Mutex
	subs   map[string]*subEntry // roomID -> subscription data
}

type subEntry struct {
	refCnt int
	cancel context.CancelFunc
}

func newSubscriptionManager(rdb *redis.Client, engine *Engine) *subscriptionManager {
	return &subscriptionManager{
		rdb:    rdb,
		engine: engine,
		subs:   make(map[string]*subEntry),
	}
}

// Subscribe ensures the process is subscribed to the room's channel;
// subsequent calls for the same room only bump the ref-counter.
func (sm *subscriptionManager) Subscribe(roomID string) {
	sm.mu.Lock()
	if e, ok := sm.subs[roomID]; ok {
		e.refCnt++
		sm.mu.Unlock()
		return
	}

	// First local member: create the Redis SUB and its relay loop.
	ctx, cancel := context.WithCancel(context.Background())
	ps := sm.rdb.Subscribe(ctx, roomChannel(roomID))

	sm.subs[roomID] = &subEntry{refCnt: 1, cancel: cancel}
	sm.mu.Unlock()

	go func() {
		defer ps.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ps.Channel():
				if !ok { // Redis connection closed
					return
				}
				sm.engine.handleRemotePayload(roomID, []byte(m.Payload))
			}
		}
	}()
}

// Unsubscribe decrements the ref-counter and tears the Redis SUB down when
// the last local member leaves the room.
func (sm *subscriptionManager) Unsubscribe(roomID string) {
	sm.mu.Lock()
	e, ok := sm.subs[roomID]
	if !ok {
		sm.mu.Unlock()
		return
	}
	e.refCnt--
	if e.refCnt > 0 {
		sm.mu.Unlock()
		return
	}
	delete(sm.subs, roomID)
	sm.mu.Unlock()

	// Outside the lock: stop the relay goroutine.
	e.cancel()
}
