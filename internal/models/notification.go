package models

import "time"

// NotificationType identifies what kind of interaction produced a notification.
type NotificationType string

// Notification types.
const (
	NotificationLike    NotificationType = "like"
	NotificationReply   NotificationType = "reply"
	NotificationFollow  NotificationType = "follow"
	NotificationMention NotificationType = "mention"
	NotificationRetweet NotificationType = "retweet"
	NotificationQuote   NotificationType = "quote"
)

// SnippetMaxLen caps the stored content preview, counted in runes.
const SnippetMaxLen = 100

// Notification is a persisted inbox entry for a single recipient. Each
// interaction produces exactly one notification per recipient; failures to
// deliver one recipient's entry never affect the others.
type Notification struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	RecipientID uint             `gorm:"not null;index" json:"recipient_id"`
	SenderID    *uint            `json:"sender_id,omitempty"`
	Sender      *User            `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	Type        NotificationType `gorm:"size:10;not null" json:"type"`
	TweetID     *uint            `json:"tweet_id,omitempty"`
	Tweet       *Tweet           `gorm:"foreignKey:TweetID" json:"tweet,omitempty"`
	Snippet     string           `gorm:"size:420" json:"snippet,omitempty"`
	Read        bool             `gorm:"not null;default:false;index" json:"read"`
	CreatedAt   time.Time        `json:"created_at"`
}

// NewSnippet truncates content for storage in a notification. The result
// never exceeds SnippetMaxLen runes, ellipsis included.
func NewSnippet(content string) string {
	runes := []rune(content)
	if len(runes) <= SnippetMaxLen {
		return content
	}
	return string(runes[:SnippetMaxLen-1]) + "…"
}
