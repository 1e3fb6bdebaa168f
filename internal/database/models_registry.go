package database

import "github.com/gustavohdab/rettiwt-backend/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Follow{},
		&models.Bookmark{},
		&models.Tweet{},
		&models.TweetHashtag{},
		&models.TweetMention{},
		&models.TweetMedia{},
		&models.TweetLike{},
		&models.TweetRetweet{},
		&models.Notification{},
	}
}
