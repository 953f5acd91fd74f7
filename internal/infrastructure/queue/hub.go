package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"strconv"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/finportal/portal/internal/core/domain"
	"github.com/finportal/portal/internal/pkg/metrics"
)

const (
	defaultWorkers = 8
	channelBuffer  = 256

	// SessionChannel is the Redis pub/sub channel carrying session events
	// between instances.
	SessionChannel = "portal:session-events"
)

// envelope is a session event addressed to one visitor.
type envelope struct {
	VisitorID string              `json:"visitor_id"`
	Event     domain.SessionEvent `json:"event"`
}

// Hub fans session events out to the listeners registered for a visitor.
// Events are routed to a fixed set of workers by hashing the visitor id, so
// the events of one visitor are delivered in publish order.
//
// With a Redis client, Publish goes through SessionChannel and every instance
// delivers to its own listeners. Without one, delivery is local.
type Hub struct {
	workers []chan envelope
	rdb     *redis.Client
	log     zerolog.Logger

	mu        sync.RWMutex
	listeners map[string]map[uint64]func(domain.SessionEvent)
	nextID    uint64
}

// NewHub creates a Hub with numWorkers sharded workers. rdb may be nil.
// If numWorkers <= 0, defaultWorkers is used.
func NewHub(numWorkers int, rdb *redis.Client, log zerolog.Logger) *Hub {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	h := &Hub{
		workers:   make([]chan envelope, numWorkers),
		rdb:       rdb,
		log:       log,
		listeners: make(map[string]map[uint64]func(domain.SessionEvent)),
	}
	for i := range h.workers {
		h.workers[i] = make(chan envelope, channelBuffer)
	}
	return h
}

// Start launches the workers and, with Redis, the channel subscription. All
// goroutines stop when ctx is cancelled.
func (h *Hub) Start(ctx context.Context) {
	for i, ch := range h.workers {
		go h.runWorker(ctx, i, ch)
	}
	if h.rdb != nil {
		sub := h.rdb.Subscribe(ctx, SessionChannel)
		go h.relay(ctx, sub)
	}
}

// Publish sends ev to every listener of visitorID.
func (h *Hub) Publish(ctx context.Context, visitorID string, ev domain.SessionEvent) error {
	env := envelope{VisitorID: visitorID, Event: ev}
	if h.rdb == nil {
		return h.enqueue(ctx, env)
	}

	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode session event: %w", err)
	}
	if err := h.rdb.Publish(ctx, SessionChannel, payload).Err(); err != nil {
		return fmt.Errorf("publish session event: %w", err)
	}
	return nil
}

// Subscribe registers fn for the events of visitorID. The returned function
// unregisters it.
func (h *Hub) Subscribe(visitorID string, fn func(domain.SessionEvent)) (unsubscribe func()) {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	set, ok := h.listeners[visitorID]
	if !ok {
		set = make(map[uint64]func(domain.SessionEvent))
		h.listeners[visitorID] = set
	}
	set[id] = fn
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if set, ok := h.listeners[visitorID]; ok {
				delete(set, id)
				if len(set) == 0 {
					delete(h.listeners, visitorID)
				}
			}
		})
	}
}

// Listeners returns the number of listeners registered for visitorID.
func (h *Hub) Listeners(visitorID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.listeners[visitorID])
}

func (h *Hub) enqueue(ctx context.Context, env envelope) error {
	select {
	case h.workers[h.shardIndex(env.VisitorID)] <- env:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// shardIndex maps a visitor id deterministically to a worker index.
func (h *Hub) shardIndex(visitorID string) int {
	f := fnv.New32a()
	_, _ = f.Write([]byte(visitorID))
	return int(f.Sum32() % uint32(len(h.workers)))
}

func (h *Hub) relay(ctx context.Context, sub *redis.PubSub) {
	defer sub.Close()

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				h.log.Error().Err(err).Msg("discarding malformed session event")
				continue
			}
			if err := h.enqueue(ctx, env); err != nil {
				return
			}
		}
	}
}

func (h *Hub) runWorker(ctx context.Context, id int, ch <-chan envelope) {
	depth := metrics.SessionEventsQueueDepth.WithLabelValues(strconv.Itoa(id))
	for {
		select {
		case <-ctx.Done():
			return
		case env, ok := <-ch:
			if !ok {
				return
			}
			depth.Set(float64(len(ch)))
			h.deliver(env)
		}
	}
}

func (h *Hub) deliver(env envelope) {
	h.mu.RLock()
	fns := make([]func(domain.SessionEvent), 0, len(h.listeners[env.VisitorID]))
	for _, fn := range h.listeners[env.VisitorID] {
		fns = append(fns, fn)
	}
	h.mu.RUnlock()

	metrics.SessionEventsTotal.WithLabelValues(string(env.Event.Type)).Inc()
	for _, fn := range fns {
		fn(env.Event)
	}
	h.log.Debug().
		Str("visitor_id", env.VisitorID).
		Str("event", string(env.Event.Type)).
		Int("listeners", len(fns)).
		Msg("session event delivered")
}
