package notifications

import (
	"encoding/json"
	"fmt"

	"github.com/gustavohdab/rettiwt-backend/internal/models"
)

// Realtime event types pushed to connected clients.
const (
	EventTweetNew        = "tweet:new"
	EventUserFollow      = "user:follow"
	EventUserUnfollow    = "user:unfollow"
	EventNotificationNew = "notification:new"
	EventTrendsUpdate    = "trends:update"
)

// Envelope is the wire form of every realtime event.
type Envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// FollowChange is the payload of user:follow and user:unfollow events.
type FollowChange struct {
	FollowerID  uint `json:"followerId"`
	FollowingID uint `json:"followingId"`
}

// TrendsPayload is the payload of trends:update events.
type TrendsPayload struct {
	TrendingHashtags []models.TrendingHashtag `json:"trendingHashtags"`
}

// MarshalEvent encodes an event envelope for the realtime channel.
func MarshalEvent(event string, payload any) (string, error) {
	b, err := json.Marshal(Envelope{Type: event, Payload: payload})
	if err != nil {
		return "", fmt.Errorf("marshal %s event: %w", event, err)
	}
	return string(b), nil
}
