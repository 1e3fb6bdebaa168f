package seed

import (
	"fmt"
	"log"

	"gorm.io/gorm"

	"github.com/gustavohdab/rettiwt-backend/internal/models"
)

// Options configure the seeder.
type Options struct {
	NumUsers  int
	NumTweets int
	Clean     bool
	// MaxDays spreads generated timestamps over the recent past.
	MaxDays int
	// SkipBcrypt stores plaintext passwords for faster local seeding. The
	// accounts cannot log in; use only when auth is not being exercised.
	SkipBcrypt bool
}

// Seed populates the database with demo users, a follow graph, tweets with
// hashtags and mentions, engagement, and notifications. Denormalized counters
// are reconciled at the end so every invariant holds on a seeded database.
func Seed(db *gorm.DB, opts Options) error {
	log.Printf("seeding database with %d users and %d tweets", opts.NumUsers, opts.NumTweets)

	if opts.Clean {
		if err := clearData(db); err != nil {
			return fmt.Errorf("failed to clear existing data: %w", err)
		}
	}

	f := NewFactory(db, opts)

	users, err := createUsers(f, opts.NumUsers)
	if err != nil {
		return fmt.Errorf("failed to create users: %w", err)
	}
	log.Printf("created %d users", len(users))

	follows, err := createFollowGraph(f, users)
	if err != nil {
		return fmt.Errorf("failed to create follow graph: %w", err)
	}
	log.Printf("created %d follow edges", follows)

	tweets, err := createTweets(f, users, opts.NumTweets)
	if err != nil {
		return fmt.Errorf("failed to create tweets: %w", err)
	}
	log.Printf("created %d tweets", len(tweets))

	if err := createEngagement(f, users, tweets); err != nil {
		return fmt.Errorf("failed to create engagement: %w", err)
	}

	if err := SyncCounters(db); err != nil {
		return fmt.Errorf("failed to sync counters: %w", err)
	}

	log.Println("seeding complete")
	return nil
}

func createUsers(f *Factory, n int) ([]*models.User, error) {
	if n <= 0 {
		n = 20
	}
	users := make([]*models.User, 0, n)
	for i := 0; i < n; i++ {
		user, err := f.CreateUser()
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

// createFollowGraph gives each user a handful of follows, skewed so early
// users collect more followers and the suggestion ranking has a shape.
func createFollowGraph(f *Factory, users []*models.User) (int, error) {
	edges := 0
	for i, follower := range users {
		n := f.rng.Intn(6) + 2
		seen := map[uint]bool{follower.ID: true}
		for j := 0; j < n; j++ {
			// Bias toward low indexes.
			idx := f.rng.Intn(i + 1)
			if f.rng.Intn(2) == 0 {
				idx = f.rng.Intn(len(users))
			}
			followee := users[idx]
			if seen[followee.ID] {
				continue
			}
			seen[followee.ID] = true
			if err := f.CreateFollow(follower, followee); err != nil {
				return edges, err
			}
			edges++
		}
	}
	return edges, nil
}

func createTweets(f *Factory, users []*models.User, n int) ([]*models.Tweet, error) {
	if n <= 0 {
		n = 200
	}

	tweets := make([]*models.Tweet, 0, n)
	batch := make([]*models.Tweet, 0, 100)
	for i := 0; i < n; i++ {
		author := users[f.rng.Intn(len(users))]
		tweet := f.BuildTweet(author, users)

		// Some tweets reply to or quote an earlier one.
		if len(tweets) > 0 {
			switch f.rng.Intn(10) {
			case 0, 1:
				parent := tweets[f.rng.Intn(len(tweets))]
				tweet.InReplyToID = &parent.ID
			case 2:
				quoted := tweets[f.rng.Intn(len(tweets))]
				tweet.QuotedTweetID = &quoted.ID
			}
		}

		batch = append(batch, tweet)
		if len(batch) == cap(batch) {
			if err := f.CreateTweetsBatch(batch); err != nil {
				return nil, err
			}
			tweets = append(tweets, batch...)
			batch = batch[:0]
		}
	}
	if err := f.CreateTweetsBatch(batch); err != nil {
		return nil, err
	}
	tweets = append(tweets, batch...)
	return tweets, nil
}

// createEngagement adds likes, retweets, bookmarks, and the notification rows
// a live system would have produced for them.
func createEngagement(f *Factory, users []*models.User, tweets []*models.Tweet) error {
	for _, user := range users {
		likes := f.rng.Intn(10) + 1
		liked := map[uint]bool{}
		for i := 0; i < likes; i++ {
			tweet := tweets[f.rng.Intn(len(tweets))]
			if liked[tweet.ID] || tweet.AuthorID == user.ID {
				continue
			}
			liked[tweet.ID] = true
			if err := f.CreateLike(user, tweet); err != nil {
				return err
			}
			if err := f.CreateNotification(models.NotificationLike, user, tweet.AuthorID, tweet); err != nil {
				return err
			}
		}

		retweeted := map[uint]bool{}
		for i := 0; i < f.rng.Intn(4); i++ {
			tweet := tweets[f.rng.Intn(len(tweets))]
			if retweeted[tweet.ID] || tweet.AuthorID == user.ID {
				continue
			}
			retweeted[tweet.ID] = true
			if err := f.CreateRetweet(user, tweet); err != nil {
				return err
			}
			if err := f.CreateNotification(models.NotificationRetweet, user, tweet.AuthorID, tweet); err != nil {
				return err
			}
		}

		bookmarked := map[uint]bool{}
		for i := 0; i < f.rng.Intn(3); i++ {
			tweet := tweets[f.rng.Intn(len(tweets))]
			if bookmarked[tweet.ID] {
				continue
			}
			bookmarked[tweet.ID] = true
			if err := f.CreateBookmark(user, tweet); err != nil {
				return err
			}
		}
	}
	return nil
}

// SyncCounters reconciles every denormalized counter with the relation set it
// summarizes. Seeding writes relation rows directly, so this pass restores
// the invariant the transactional write paths maintain in production.
func SyncCounters(db *gorm.DB) error {
	stmts := []string{
		`UPDATE users SET followers_count = (SELECT COUNT(*) FROM follows WHERE follows.followee_id = users.id)`,
		`UPDATE users SET following_count = (SELECT COUNT(*) FROM follows WHERE follows.follower_id = users.id)`,
		`UPDATE tweets SET likes_count = (SELECT COUNT(*) FROM tweet_likes WHERE tweet_likes.tweet_id = tweets.id)`,
		`UPDATE tweets SET retweets_count = (SELECT COUNT(*) FROM tweet_retweets WHERE tweet_retweets.tweet_id = tweets.id)`,
		`UPDATE tweets SET replies_count = (SELECT COUNT(*) FROM tweets AS replies WHERE replies.in_reply_to_id = tweets.id AND replies.is_deleted = FALSE)`,
		`UPDATE tweets SET quotes_count = (SELECT COUNT(*) FROM tweets AS quotes WHERE quotes.quoted_tweet_id = tweets.id AND quotes.is_deleted = FALSE)`,
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

// clearData removes seeded rows in dependency order.
func clearData(db *gorm.DB) error {
	tables := []string{
		"notifications",
		"bookmarks",
		"tweet_retweets",
		"tweet_likes",
		"tweet_media",
		"tweet_mentions",
		"tweet_hashtags",
		"tweets",
		"follows",
		"users",
	}
	for _, table := range tables {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return err
		}
	}
	return nil
}
