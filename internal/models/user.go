// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// Role values for User.Role.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents an account in the application.
//
// FollowersCount and FollowingCount are denormalized counters maintained in the
// same transaction as the follows rows they summarize; they must always equal
// the cardinality of the corresponding edge set.
type User struct {
	ID             uint   `gorm:"primaryKey" json:"id"`
	Username       string `gorm:"uniqueIndex;size:20;not null" json:"username"`
	Email          string `gorm:"uniqueIndex;size:254;not null" json:"email"`
	Password       string `gorm:"not null" json:"-"`
	Name           string `gorm:"size:50" json:"name"`
	Bio            string `gorm:"size:160" json:"bio"`
	Location       string `gorm:"size:30" json:"location"`
	Website        string `gorm:"size:100" json:"website"`
	AvatarURL      string `json:"avatar_url"`
	HeaderURL      string `json:"header_url"`
	Role           string `gorm:"size:10;not null;default:'user'" json:"role"`
	IsActive       bool   `gorm:"not null;default:true" json:"is_active"`
	FollowersCount int    `gorm:"not null;default:0" json:"followers_count"`
	FollowingCount int    `gorm:"not null;default:0" json:"following_count"`
	// FollowedByViewer is not persisted; computed at query time for the requesting user
	FollowedByViewer bool      `gorm:"->" json:"followed_by_viewer"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Summary returns the public profile fields pushed alongside realtime events.
func (u *User) Summary() map[string]interface{} {
	return map[string]interface{}{
		"id":         u.ID,
		"username":   u.Username,
		"name":       u.Name,
		"avatar_url": u.AvatarURL,
	}
}

// Follow is a directed follow edge: Follower follows Followee.
//
// A single row carries both directions of the relationship, so
// "A in B.followers" and "B in A.following" are reads of the same row and can
// never disagree.
type Follow struct {
	FollowerID uint      `gorm:"primaryKey;autoIncrement:false" json:"follower_id"`
	FolloweeID uint      `gorm:"primaryKey;autoIncrement:false" json:"followee_id"`
	CreatedAt  time.Time `json:"created_at"`

	Follower User `gorm:"foreignKey:FollowerID;constraint:OnDelete:CASCADE" json:"-"`
	Followee User `gorm:"foreignKey:FolloweeID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for GORM
func (Follow) TableName() string {
	return "follows"
}

// Bookmark marks a tweet saved by a user. Bookmarks live on the user side of
// the model and never mutate the tweet row.
type Bookmark struct {
	UserID    uint      `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	TweetID   uint      `gorm:"primaryKey;autoIncrement:false" json:"tweet_id"`
	CreatedAt time.Time `json:"created_at"`

	User  User  `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Tweet Tweet `gorm:"foreignKey:TweetID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for GORM
func (Bookmark) TableName() string {
	return "bookmarks"
}
