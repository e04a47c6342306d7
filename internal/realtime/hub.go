// Package realtime pushes entry status changes to the visitor's browser
// over Redis Pub/Sub. Each submitted entry owns one channel keyed by its
// public uuid; the client that submitted the intake subscribes to it and
// renders the terminal screen (approved/denied/exited) without polling.
package realtime

import (
    "context"
    "encoding/json"
    "log"
    "time"

    "github.com/redis/go-redis/v9"
)

// StatusEvent is one status change pushed to a waiting client.
type StatusEvent struct {
    Status string    `json:"status"`           // APPROVED, DENIED or EXITED
    Reason string    `json:"reason,omitempty"` // human-readable, for denials/checkouts
    At     time.Time `json:"at"`
}

// Hub publishes and subscribes status events. A Hub with a nil Redis
// client is valid and inert: Publish is a no-op and Subscribe reports
// unavailability so callers can fall back to polling.
type Hub struct {
    rdb *redis.Client
}

// NewHub returns a Hub over the given Redis client, which may be nil
// when Redis is not configured.
func NewHub(rdb *redis.Client) *Hub { return &Hub{rdb: rdb} }

// Available reports whether realtime push is operational.
func (h *Hub) Available() bool { return h != nil && h.rdb != nil }

func channelFor(entryUUID string) string { return "entry:" + entryUUID + ":status" }

// Publish pushes a status event to whichever client is waiting on the
// entry's channel. Delivery is best-effort: a decision must never fail
// because the push did, so errors are logged and swallowed.
func (h *Hub) Publish(ctx context.Context, entryUUID string, ev StatusEvent) {
    if !h.Available() {
        return
    }
    body, err := json.Marshal(ev)
    if err != nil {
        log.Printf("realtime: marshal event for %s: %v", entryUUID, err)
        return
    }
    if err := h.rdb.Publish(ctx, channelFor(entryUUID), body).Err(); err != nil {
        log.Printf("realtime: publish to %s: %v", entryUUID, err)
    }
}

// Subscription is a cancellable handle on one entry's status channel.
// The consumer owns it as a scoped resource: Close must be called when
// the owning view (the HTTP stream) ends, or the channel leaks.
type Subscription struct {
    pubsub *redis.PubSub
    events chan StatusEvent
    done   chan struct{}
}

// Subscribe opens a subscription for the entry. It returns false when
// the hub is inert (no Redis) and the caller should poll instead.
func (h *Hub) Subscribe(ctx context.Context, entryUUID string) (*Subscription, bool) {
    if !h.Available() {
        return nil, false
    }
    ps := h.rdb.Subscribe(ctx, channelFor(entryUUID))
    sub := &Subscription{
        pubsub: ps,
        events: make(chan StatusEvent, 8),
        done:   make(chan struct{}),
    }
    go sub.pump(ps.Channel())
    return sub, true
}

func (s *Subscription) pump(in <-chan *redis.Message) {
    defer close(s.events)
    for msg := range in {
        var ev StatusEvent
        if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
            log.Printf("realtime: drop malformed event on %s: %v", msg.Channel, err)
            continue
        }
        select {
        case s.events <- ev:
        case <-s.done:
            return
        }
    }
}

// Events yields status changes until the subscription is closed. The
// channel is closed when the underlying Redis subscription ends.
func (s *Subscription) Events() <-chan StatusEvent { return s.events }

// Close releases the channel subscription. Safe to call once per
// subscription; the teardown path of the HTTP stream is its only caller.
func (s *Subscription) Close() error {
    close(s.done)
    return s.pubsub.Close()
}
