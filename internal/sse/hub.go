// Package sse fans board events out to connected clients. Events are
// appended to a capped redis list per group so a reconnecting client can
// replay what it missed via Last-Event-ID.
package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	EventTaskCreated   = "task_created"
	EventTaskUpdated   = "task_updated"
	EventTaskDeleted   = "task_deleted"
	EventMembersChange = "members_changed"
)

// streamCap bounds the replay window per group.
const streamCap = 512

const streamTTL = 24 * time.Hour

type Event struct {
	ID   int64       `json:"id"`
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type subscriber struct {
	ch chan Event
}

// streamClient is the slice of redis the hub needs; *redis.Client
// satisfies it.
type streamClient interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	LTrim(ctx context.Context, key string, start, stop int64) *redis.StatusCmd
	Expire(ctx context.Context, key string, ttl time.Duration) *redis.BoolCmd
	LRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd
}

type Hub struct {
	mu          sync.RWMutex
	subscribers map[uint][]*subscriber // groupID -> subscribers
	rdb         streamClient
}

func NewHub(rdb streamClient) *Hub {
	return &Hub{
		subscribers: make(map[uint][]*subscriber),
		rdb:         rdb,
	}
}

func streamKey(groupID uint) string {
	return fmt.Sprintf("board:stream:%d", groupID)
}

func seqKey(groupID uint) string {
	return fmt.Sprintf("board:seq:%d", groupID)
}

func (h *Hub) Subscribe(groupID uint) (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub := &subscriber{ch: make(chan Event, 256)}
	h.subscribers[groupID] = append(h.subscribers[groupID], sub)

	unsub := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		subs := h.subscribers[groupID]
		for i, s := range subs {
			if s == sub {
				h.subscribers[groupID] = append(subs[:i], subs[i+1:]...)
				close(sub.ch)
				break
			}
		}
		if len(h.subscribers[groupID]) == 0 {
			delete(h.subscribers, groupID)
		}
	}
	return sub.ch, unsub
}

// Broadcast appends the event to the group stream and delivers it to
// in-process subscribers. Slow subscribers are skipped, not blocked on.
func (h *Hub) Broadcast(groupID uint, event Event) error {
	ctx := context.Background()

	// ids come from a per-group counter, not the list offset, so they
	// stay monotonic after the list is trimmed. The id is marshalled
	// into the persisted payload; ReplayFrom reads it back out.
	seq, err := h.rdb.Incr(ctx, seqKey(groupID)).Result()
	if err != nil {
		return fmt.Errorf("next event id: %w", err)
	}
	event.ID = seq

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	key := streamKey(groupID)
	if err := h.rdb.RPush(ctx, key, string(data)).Err(); err != nil {
		return fmt.Errorf("persist event: %w", err)
	}
	h.rdb.LTrim(ctx, key, -streamCap, -1)
	h.rdb.Expire(ctx, key, streamTTL)
	h.rdb.Expire(ctx, seqKey(groupID), streamTTL)

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subscribers[groupID] {
		select {
		case sub.ch <- event:
		default:
			// drop if full
		}
	}
	return nil
}

// ReplayFrom returns the persisted events with ids greater than fromID.
// Events trimmed out of the window are gone for good.
func (h *Hub) ReplayFrom(groupID uint, fromID int64) ([]Event, error) {
	ctx := context.Background()
	items, err := h.rdb.LRange(ctx, streamKey(groupID), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	events := make([]Event, 0, len(items))
	for _, item := range items {
		var ev Event
		if err := json.Unmarshal([]byte(item), &ev); err != nil {
			continue
		}
		if ev.ID > fromID {
			events = append(events, ev)
		}
	}
	return events, nil
}

func ParseLastEventID(header string) int64 {
	if header == "" {
		return 0
	}
	id, _ := strconv.ParseInt(header, 10, 64)
	return id
}
