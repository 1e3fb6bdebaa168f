package models

import (
	"encoding/json"
	"time"
)

// Content length bounds, counted in runes.
const (
	ContentMinLen = 1
	ContentMaxLen = 280
)

// Media type values for TweetMedia.Type.
const (
	MediaTypeImage = "image"
	MediaTypeVideo = "video"
	MediaTypeGIF   = "gif"
)

// EngagementCount holds the denormalized per-tweet counters. Each counter is
// updated in the same transaction as the relation row it summarizes and must
// always equal the cardinality of that relation set.
type EngagementCount struct {
	Likes    int `gorm:"column:likes_count;not null;default:0" json:"likes"`
	Retweets int `gorm:"column:retweets_count;not null;default:0" json:"retweets"`
	Replies  int `gorm:"column:replies_count;not null;default:0" json:"replies"`
	Quotes   int `gorm:"column:quotes_count;not null;default:0" json:"quotes"`
}

// Tweet is a post. Replies and quotes are tweets with InReplyToID or
// QuotedTweetID set; a deleted tweet keeps its row with IsDeleted=true so
// reply threads stay navigable.
type Tweet struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Content     string `gorm:"type:text;not null" json:"content"`
	AuthorID    uint   `gorm:"not null;index" json:"author_id"`
	Author      *User  `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	InReplyToID *uint  `gorm:"index" json:"in_reply_to_id,omitempty"`
	InReplyTo   *Tweet `gorm:"foreignKey:InReplyToID" json:"in_reply_to,omitempty"`
	QuotedTweet *Tweet `gorm:"foreignKey:QuotedTweetID" json:"quoted_tweet,omitempty"`
	// QuotedTweetID references the tweet this one quotes, if any
	QuotedTweetID *uint `gorm:"index" json:"quoted_tweet_id,omitempty"`
	IsDeleted     bool  `gorm:"not null;default:false;index" json:"is_deleted"`
	IsPublic      bool  `gorm:"not null;default:true" json:"is_public"`
	Impressions   int64 `gorm:"not null;default:0" json:"impressions"`

	EngagementCount EngagementCount `gorm:"embedded" json:"engagement_count"`

	Hashtags []TweetHashtag `gorm:"foreignKey:TweetID" json:"hashtags"`
	Mentions []TweetMention `gorm:"foreignKey:TweetID" json:"mentions"`
	Media    []TweetMedia   `gorm:"foreignKey:TweetID" json:"media,omitempty"`

	// viewer-relative fields, computed per request and never persisted
	Liked      bool `gorm:"->" json:"liked"`
	Retweeted  bool `gorm:"->" json:"retweeted"`
	Bookmarked bool `gorm:"->" json:"bookmarked"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TweetHashtag is one extracted hashtag occurrence. Tag is stored lowercased
// without the leading '#'; Position preserves first-occurrence order.
type TweetHashtag struct {
	TweetID  uint   `gorm:"primaryKey;autoIncrement:false" json:"tweet_id"`
	Tag      string `gorm:"primaryKey;size:100;index" json:"tag"`
	Position int    `gorm:"not null;default:0" json:"position"`
}

// TableName specifies the table name for GORM
func (TweetHashtag) TableName() string {
	return "tweet_hashtags"
}

// MarshalJSON renders the hashtag as its bare tag string so a tweet's
// hashtags field serializes as ["golang", "opensource"].
func (h TweetHashtag) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.Tag)
}

// TweetMention is a resolved @mention inside a tweet's content. Unresolvable
// mention tokens are dropped at parse time and never reach this table.
type TweetMention struct {
	TweetID uint `gorm:"primaryKey;autoIncrement:false" json:"tweet_id"`
	UserID  uint `gorm:"primaryKey;autoIncrement:false;index" json:"user_id"`

	User *User `gorm:"foreignKey:UserID" json:"-"`
}

// TableName specifies the table name for GORM
func (TweetMention) TableName() string {
	return "tweet_mentions"
}

// MarshalJSON renders the mention as the mentioned user's id.
func (m TweetMention) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.UserID)
}

// TweetMedia is one attachment on a tweet, ordered by Position.
type TweetMedia struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	TweetID  uint   `gorm:"not null;index" json:"tweet_id"`
	Position int    `gorm:"not null;default:0" json:"position"`
	Type     string `gorm:"size:10;not null" json:"type"`
	URL      string `gorm:"not null" json:"url"`
	AltText  string `gorm:"size:420" json:"alt_text,omitempty"`
}

// TableName specifies the table name for GORM
func (TweetMedia) TableName() string {
	return "tweet_media"
}

// TweetLike records one user liking one tweet.
type TweetLike struct {
	UserID    uint      `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	TweetID   uint      `gorm:"primaryKey;autoIncrement:false" json:"tweet_id"`
	CreatedAt time.Time `json:"created_at"`

	User  User  `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Tweet Tweet `gorm:"foreignKey:TweetID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for GORM
func (TweetLike) TableName() string {
	return "tweet_likes"
}

// TweetRetweet records one user retweeting one tweet.
type TweetRetweet struct {
	UserID    uint      `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	TweetID   uint      `gorm:"primaryKey;autoIncrement:false" json:"tweet_id"`
	CreatedAt time.Time `json:"created_at"`

	User  User  `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Tweet Tweet `gorm:"foreignKey:TweetID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for GORM
func (TweetRetweet) TableName() string {
	return "tweet_retweets"
}
