// Package seed provides helpers to create demo data for the application
// database. These helpers are intended for development and testing only.
package seed

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/gustavohdab/rettiwt-backend/internal/models"
)

// Factory builds domain entities and persists them to the database.
type Factory struct {
	db   *gorm.DB
	opts Options
	rng  *rand.Rand
}

// NewFactory creates a Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	gofakeit.Seed(time.Now().UnixNano())
	return &Factory{
		db:   db,
		opts: opts,
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())), // #nosec G404: seeding only
	}
}

// CreateUser constructs and persists a sample user. Optional override
// functions may modify the generated user before saving.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	user := &models.User{
		Username:  seedUsername(),
		Email:     gofakeit.Email(),
		Name:      gofakeit.Name(),
		Bio:       gofakeit.Sentence(8),
		Location:  gofakeit.City(),
		AvatarURL: fmt.Sprintf("https://i.pravatar.cc/150?u=%s", gofakeit.UUID()),
		Role:      models.RoleUser,
		IsActive:  true,
	}

	if f.opts.SkipBcrypt {
		user.Password = "password123"
	} else {
		hashed, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
		user.Password = string(hashed)
	}

	for _, override := range overrides {
		override(user)
	}

	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// BuildTweet constructs a tweet without persisting it, so callers can batch
// inserts. The content may carry hashtags from the trending pool and mentions
// of other seeded users; the derived rows are attached to match.
func (f *Factory) BuildTweet(author *models.User, users []*models.User, overrides ...func(*models.Tweet)) *models.Tweet {
	var sb strings.Builder
	sb.WriteString(gofakeit.Sentence(f.rng.Intn(12) + 4))

	tweet := &models.Tweet{
		AuthorID: author.ID,
		IsPublic: true,
	}

	// Roughly a third of tweets carry hashtags.
	if f.rng.Intn(3) == 0 {
		n := f.rng.Intn(2) + 1
		seen := map[string]bool{}
		for i := 0; i < n; i++ {
			tag := hashtagPool[f.rng.Intn(len(hashtagPool))]
			if seen[tag] {
				continue
			}
			seen[tag] = true
			sb.WriteString(" #" + tag)
			tweet.Hashtags = append(tweet.Hashtags, models.TweetHashtag{
				Tag:      tag,
				Position: len(tweet.Hashtags),
			})
		}
	}

	// An occasional mention of another seeded user.
	if len(users) > 1 && f.rng.Intn(5) == 0 {
		other := users[f.rng.Intn(len(users))]
		if other.ID != author.ID {
			sb.WriteString(" @" + other.Username)
			tweet.Mentions = append(tweet.Mentions, models.TweetMention{UserID: other.ID})
		}
	}

	tweet.Content = truncateRunes(sb.String(), models.ContentMaxLen)

	// Spread creation over the recent past so timelines look lived-in.
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 30
	}
	tweet.CreatedAt = time.Now().
		Add(-time.Duration(f.rng.Intn(maxDays)) * 24 * time.Hour).
		Add(-time.Duration(f.rng.Intn(24*60)) * time.Minute)

	for _, override := range overrides {
		override(tweet)
	}
	return tweet
}

// CreateTweetsBatch persists multiple tweets in a single insert.
func (f *Factory) CreateTweetsBatch(tweets []*models.Tweet) error {
	if len(tweets) == 0 {
		return nil
	}
	return f.db.Create(&tweets).Error
}

// CreateFollow persists a follow edge. Counters are reconciled afterwards by
// SyncCounters, not per edge.
func (f *Factory) CreateFollow(follower, followee *models.User) error {
	return f.db.Create(&models.Follow{
		FollowerID: follower.ID,
		FolloweeID: followee.ID,
	}).Error
}

// CreateLike persists a like row.
func (f *Factory) CreateLike(user *models.User, tweet *models.Tweet) error {
	return f.db.Create(&models.TweetLike{UserID: user.ID, TweetID: tweet.ID}).Error
}

// CreateRetweet persists a retweet row.
func (f *Factory) CreateRetweet(user *models.User, tweet *models.Tweet) error {
	return f.db.Create(&models.TweetRetweet{UserID: user.ID, TweetID: tweet.ID}).Error
}

// CreateBookmark persists a bookmark row.
func (f *Factory) CreateBookmark(user *models.User, tweet *models.Tweet) error {
	return f.db.Create(&models.Bookmark{UserID: user.ID, TweetID: tweet.ID}).Error
}

// CreateNotification persists a notification row.
func (f *Factory) CreateNotification(nType models.NotificationType, sender *models.User, recipientID uint, tweet *models.Tweet) error {
	n := &models.Notification{
		RecipientID: recipientID,
		Type:        nType,
	}
	if sender != nil {
		senderID := sender.ID
		n.SenderID = &senderID
	}
	if tweet != nil {
		tweetID := tweet.ID
		n.TweetID = &tweetID
		n.Snippet = models.NewSnippet(tweet.Content)
	}
	return f.db.Create(n).Error
}

// hashtagPool keeps seeded hashtags overlapping so trends have something to
// rank.
var hashtagPool = []string{
	"golang", "opensource", "webdev", "devops", "coffee", "music",
	"gamedev", "startup", "design", "photography", "travel", "books",
}

// seedUsername generates a username that passes the registration rules:
// letters, digits and underscores, 3 to 20 characters.
func seedUsername() string {
	base := strings.ToLower(gofakeit.Username())
	cleaned := make([]rune, 0, len(base))
	for _, r := range base {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			cleaned = append(cleaned, r)
		}
	}
	name := string(cleaned)
	if len(name) > 14 {
		name = name[:14]
	}
	if len(name) < 3 {
		name = "user"
	}
	return fmt.Sprintf("%s%d", name, gofakeit.Number(100, 9999))
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
