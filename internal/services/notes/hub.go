package notes

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"noteflow/internal/logger"

	"github.com/oklog/ulid/v2"
)

// Subscriber represents a connection that can receive note events
type Subscriber struct {
	UserID string
	Ch     chan NoteEvent
	Done   chan struct{}
}

// ConnInfo holds connection metadata
type ConnInfo struct {
	ID          ulid.ULID
	ConnectedAt time.Time
	Subscriber  *Subscriber
}

type userSubs struct {
	mu sync.RWMutex
	m  map[ulid.ULID]ConnInfo
}

// Hub fans note events out to the live connections of every user who can
// see the note.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]*userSubs
	connIndex   map[ulid.ULID]string
	bufferSize  int
	dropped     uint64
}

// NewHub creates a new event hub with configurable buffer size
func NewHub(bufferSize int) *Hub {
	return &Hub{
		subscribers: make(map[string]*userSubs),
		connIndex:   make(map[ulid.ULID]string),
		bufferSize:  bufferSize,
	}
}

// Subscribe registers a connection for userID. The returned func unsubscribes.
func (h *Hub) Subscribe(connULID ulid.ULID, userID string) (*Subscriber, func()) {
	log := logger.L()
	if log.Enabled(context.Background(), slog.LevelDebug) {
		log.Debug("subscribing connection", "conn_id", connULID.String(), "user_id", userID)
	}

	sub := &Subscriber{
		UserID: userID,
		Ch:     make(chan NoteEvent, h.bufferSize),
		Done:   make(chan struct{}),
	}

	h.mu.Lock()
	bucket, ok := h.subscribers[userID]
	if !ok {
		bucket = &userSubs{m: make(map[ulid.ULID]ConnInfo)}
		h.subscribers[userID] = bucket
	}
	h.connIndex[connULID] = userID
	bucket.mu.Lock()
	bucket.m[connULID] = ConnInfo{ID: connULID, ConnectedAt: time.Now(), Subscriber: sub}
	bucket.mu.Unlock()
	h.mu.Unlock()

	return sub, func() { h.Unsubscribe(connULID) }
}

// Unsubscribe removes a connection and closes its channels. Unknown ids are
// ignored, so calling it twice is safe.
func (h *Hub) Unsubscribe(connULID ulid.ULID) {
	log := logger.L()
	if log.Enabled(context.Background(), slog.LevelDebug) {
		log.Debug("unsubscribing connection", "conn_id", connULID.String())
	}

	h.mu.Lock()
	uid, ok := h.connIndex[connULID]
	if !ok {
		h.mu.Unlock()
		return
	}
	delete(h.connIndex, connULID)

	bucket := h.subscribers[uid]
	if bucket == nil {
		h.mu.Unlock()
		return
	}

	bucket.mu.Lock()
	info, exists := bucket.m[connULID]
	delete(bucket.m, connULID)
	if len(bucket.m) == 0 {
		delete(h.subscribers, uid)
	}
	bucket.mu.Unlock()
	h.mu.Unlock()

	if exists {
		close(info.Subscriber.Done)
		close(info.Subscriber.Ch)
	}
}

// Broadcast delivers ev to every connection of the event audience. When the
// event carries no explicit audience the note's owner and grantees are used.
func (h *Hub) Broadcast(_ context.Context, ev NoteEvent) {
	if ev.Note == nil {
		return
	}

	audience := ev.Audience
	if audience == nil {
		audience = ev.Note.Audience()
	}

	log := logger.L()
	if log.Enabled(context.Background(), slog.LevelDebug) {
		log.Debug("broadcasting event", "note_id", ev.Note.ID, "event_type", ev.Type, "audience", len(audience))
	}

	seen := make(map[string]struct{}, len(audience))
	for _, uid := range audience {
		if _, dup := seen[uid]; dup || uid == "" {
			continue
		}
		seen[uid] = struct{}{}
		h.deliver(uid, ev, log)
	}
}

func (h *Hub) deliver(uid string, ev NoteEvent, log *slog.Logger) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	bucket := h.subscribers[uid]
	if bucket == nil {
		return
	}

	bucket.mu.RLock()
	defer bucket.mu.RUnlock()
	for _, info := range bucket.m {
		sendOrDrop(info.Subscriber.Ch, ev, func() {
			atomic.AddUint64(&h.dropped, 1)
			log.Warn("outbox full, dropping event", "conn_id", info.ID.String(), "user_id", uid, "event_type", ev.Type)
		})
	}
}

// sendOrDrop is the only place that can decide to drop an event.
func sendOrDrop(ch chan NoteEvent, ev NoteEvent, onDrop func()) {
	select {
	case ch <- ev:
	default:
		onDrop()
	}
}

// Stats returns the live connection count and the number of dropped events.
func (h *Hub) Stats() (subscribers int, dropped uint64) {
	h.mu.RLock()
	for _, b := range h.subscribers {
		b.mu.RLock()
		subscribers += len(b.m)
		b.mu.RUnlock()
	}
	h.mu.RUnlock()
	return subscribers, atomic.LoadUint64(&h.dropped)
}
