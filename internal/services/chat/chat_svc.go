package chat

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Message is one persisted chat message. Immutable once appended; ID is the
// bigserial insertion sequence and breaks sent_at ties in history queries.
type Message struct {
	ID      int64     `json:"id"`
	Room    string    `json:"room"`
	Sender  string    `json:"sender"`
	Content string    `json:"content"`
	SentAt  time.Time `json:"sent_at" example:"2025-07-27T16:05:05Z"`
}

const (
	// DefaultHistoryLimit matches the original backend's history window.
	DefaultHistoryLimit = 50
	// MaxHistoryLimit bounds memory and I/O regardless of caller input.
	MaxHistoryLimit = 200

	redisRecentKeyPrefix = "room:"
	redisRecentKeySuffix = ":recent"
	redisRecentTTL       = 24 * time.Hour
)

var ErrStorageUnavailable = errors.New("message store unavailable")

type IChatService interface {
	Append(ctx context.Context, msg *Message) (int64, error)
	RecentByRoom(ctx context.Context, roomID string, limit int) ([]Message, error)
}

type chatService struct {
	db  *sql.DB
	rdc *redis.Client
}

// NewChatService returns a store backed by Postgres, with an optional capped
// Redis list per room caching the most recent window. rdc may be nil.
func NewChatService(db *sql.DB, rdc *redis.Client) IChatService {
	return &chatService{db: db, rdc: rdc}
}

// Append persists the message and assigns its ID. Postgres is the source of
// truth; the Redis recent-window cache is written best-effort afterwards.
func (svc *chatService) Append(ctx context.Context, msg *Message) (int64, error) {
	const q = `INSERT INTO messages (room, sender, content, sent_at)
	                VALUES ($1, $2, $3, $4)
	             RETURNING id`

	err := svc.db.QueryRowContext(ctx, q,
		msg.Room, msg.Sender, msg.Content, msg.SentAt,
	).Scan(&msg.ID)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	svc.cacheAppend(ctx, msg)
	return msg.ID, nil
}

// RecentByRoom returns up to limit most recent messages in ascending
// sent_at/id order (oldest of the window first): take N by recency
// descending, then reverse. UIs that append incrementally rely on this
// replay order.
func (svc *chatService) RecentByRoom(ctx context.Context, roomID string, limit int) ([]Message, error) {
	limit = clampLimit(limit)

	if msgs, ok := svc.cacheRecent(ctx, roomID, limit); ok {
		return msgs, nil
	}

	const q = `SELECT id, room, sender, content, sent_at
	             FROM messages
	            WHERE room = $1
	            ORDER BY sent_at DESC, id DESC
	            LIMIT $2`

	rows, err := svc.db.QueryContext(ctx, q, roomID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	defer rows.Close()

	newestFirst := make([]Message, 0, limit)
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.Room, &m.Sender, &m.Content, &m.SentAt); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
		}
		newestFirst = append(newestFirst, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	// Reverse to ascending.
	out := make([]Message, len(newestFirst))
	for i, m := range newestFirst {
		out[len(out)-1-i] = m
	}
	return out, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		return MaxHistoryLimit
	}
	return limit
}

func recentKey(roomID string) string {
	return redisRecentKeyPrefix + roomID + redisRecentKeySuffix
}

func (svc *chatService) cacheAppend(ctx context.Context, msg *Message) {
	if svc.rdc == nil {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	key := recentKey(msg.Room)
	pipe := svc.rdc.Pipeline()
	pipe.RPush(ctx, key, data)
	pipe.LTrim(ctx, key, -int64(MaxHistoryLimit), -1)
	pipe.Expire(ctx, key, redisRecentTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		zap.L().Debug("chat.cache_append", zap.Error(err))
	}
}

// cacheRecent serves history from the Redis list only when the cached window
// fully covers the requested limit; a short list cannot distinguish "few
// messages in the room" from "cache freshly expired", so anything partial
// falls through to Postgres. List order is RPush completion order, which can
// invert under concurrent appends, so the window is re-sorted by (sent_at, id)
// to keep the same total order Postgres serves.
func (svc *chatService) cacheRecent(ctx context.Context, roomID string, limit int) ([]Message, bool) {
	if svc.rdc == nil {
		return nil, false
	}
	vals, err := svc.rdc.LRange(ctx, recentKey(roomID), -int64(limit), -1).Result()
	if err != nil || len(vals) < limit {
		return nil, false
	}
	out := make([]Message, 0, len(vals))
	for _, v := range vals {
		var m Message
		if err := json.Unmarshal([]byte(v), &m); err != nil {
			return nil, false
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SentAt.Equal(out[j].SentAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].SentAt.Before(out[j].SentAt)
	})
	return out, true
}
