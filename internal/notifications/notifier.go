// Package notifications delivers realtime events to websocket clients. The
// Notifier publishes into Redis channels so every API instance relays events
// to its own connections; the Hub holds the per-user rooms.
package notifications

import (
	"context"
	"log"
	"runtime/debug"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/gustavohdab/rettiwt-backend/internal/observability"
)

const broadcastChannel = "events:broadcast"

const userChannelPrefix = "events:user:"

// UserChannel derives the Redis channel name for a user's room.
func UserChannel(userID uint) string {
	return userChannelPrefix + strconv.FormatUint(uint64(userID), 10)
}

// Notifier publishes realtime events into Redis channels.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a Notifier using the provided Redis client. A nil
// client turns every publish into a no-op.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// Connected reports whether the notifier has a Redis client to publish
// through.
func (n *Notifier) Connected() bool {
	return n.rdb != nil
}

// PublishUser sends an event to a single user's room.
func (n *Notifier) PublishUser(ctx context.Context, userID uint, event string, payload any) error {
	if n.rdb == nil {
		return nil
	}
	msg, err := MarshalEvent(event, payload)
	if err != nil {
		return err
	}
	observability.WebSocketEventsTotal.WithLabelValues(event).Inc()
	return n.rdb.Publish(ctx, UserChannel(userID), msg).Err()
}

// PublishBroadcast sends an event to every connected client.
func (n *Notifier) PublishBroadcast(ctx context.Context, event string, payload any) error {
	if n.rdb == nil {
		return nil
	}
	msg, err := MarshalEvent(event, payload)
	if err != nil {
		return err
	}
	observability.WebSocketEventsTotal.WithLabelValues(event).Inc()
	return n.rdb.Publish(ctx, broadcastChannel, msg).Err()
}

// StartPatternSubscriber subscribes to the per-user and broadcast channels
// and calls onMessage for each incoming event until ctx is canceled.
// onMessage receives the channel name and the marshaled envelope.
func (n *Notifier) StartPatternSubscriber(
	ctx context.Context, onMessage func(channel, payload string),
) error {
	if n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, userChannelPrefix+"*", broadcastChannel)
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							log.Printf("PANIC in event subscriber: %v\n%s", r, debug.Stack())
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}
