package notifications

import "context"

// Gateway routes realtime pushes. With Redis connected it publishes through
// the Notifier so every API instance relays to its own connections; without
// Redis it delivers straight into the local Hub, keeping single-instance
// deployments fully functional.
type Gateway struct {
	notifier *Notifier
	hub      *Hub
}

// NewGateway creates a Gateway over the notifier and hub.
func NewGateway(notifier *Notifier, hub *Hub) *Gateway {
	return &Gateway{notifier: notifier, hub: hub}
}

// PublishUser delivers an event to a single user's room.
func (g *Gateway) PublishUser(ctx context.Context, userID uint, event string, payload any) error {
	if g.notifier != nil && g.notifier.Connected() {
		return g.notifier.PublishUser(ctx, userID, event, payload)
	}
	msg, err := MarshalEvent(event, payload)
	if err != nil {
		return err
	}
	g.hub.Broadcast(userID, msg)
	return nil
}

// PublishBroadcast delivers an event to every connected client.
func (g *Gateway) PublishBroadcast(ctx context.Context, event string, payload any) error {
	if g.notifier != nil && g.notifier.Connected() {
		return g.notifier.PublishBroadcast(ctx, event, payload)
	}
	msg, err := MarshalEvent(event, payload)
	if err != nil {
		return err
	}
	g.hub.BroadcastAll(msg)
	return nil
}
