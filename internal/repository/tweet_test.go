package repository

import (
	"context"
	"regexp"
	"testing"

	"github.com/gustavohdab/rettiwt-backend/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestTweetRepository_Like(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewTweetRepository(db)
	ctx := context.Background()

	t.Run("Success Bumps Counter In Same Transaction", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO tweet_likes (user_id, tweet_id, created_at)`)).
			WithArgs(1, 42).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE tweets SET likes_count = likes_count + 1 WHERE id = $1`)).
			WithArgs(42).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		assert.NoError(t, repo.Like(ctx, 1, 42))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Double Like Is AlreadyDone Without Counter Change", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO tweet_likes (user_id, tweet_id, created_at)`)).
			WithArgs(1, 42).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := repo.Like(ctx, 1, 42)
		require.Error(t, err)
		assert.Equal(t, models.CodeAlreadyDone, appErrCode(t, err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTweetRepository_Unlike(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewTweetRepository(db)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM tweet_likes WHERE user_id = $1 AND tweet_id = $2`)).
			WithArgs(1, 42).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE tweets SET likes_count = likes_count - 1 WHERE id = $1 AND likes_count > 0`)).
			WithArgs(42).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		assert.NoError(t, repo.Unlike(ctx, 1, 42))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Never Liked Is NotDone", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM tweet_likes WHERE user_id = $1 AND tweet_id = $2`)).
			WithArgs(1, 42).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := repo.Unlike(ctx, 1, 42)
		require.Error(t, err)
		assert.Equal(t, models.CodeNotDone, appErrCode(t, err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTweetRepository_Retweet(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewTweetRepository(db)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO tweet_retweets (user_id, tweet_id, created_at)`)).
		WithArgs(3, 42).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE tweets SET retweets_count = retweets_count + 1 WHERE id = $1`)).
		WithArgs(42).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	assert.NoError(t, repo.Retweet(ctx, 3, 42))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTweetRepository_Bookmark(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewTweetRepository(db)
	ctx := context.Background()

	t.Run("Bookmark Touches No Tweet Counter", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO bookmarks (user_id, tweet_id, created_at)`)).
			WithArgs(1, 42).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		assert.NoError(t, repo.AddBookmark(ctx, 1, 42))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Remove Missing Bookmark Is NotDone", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM bookmarks WHERE user_id = $1 AND tweet_id = $2`)).
			WithArgs(1, 42).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := repo.RemoveBookmark(ctx, 1, 42)
		require.Error(t, err)
		assert.Equal(t, models.CodeNotDone, appErrCode(t, err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTweetRepository_Create_BumpsParentCounters(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewTweetRepository(db)
	ctx := context.Background()

	t.Run("Reply Increments Parent Replies Count", func(t *testing.T) {
		parentID := uint(7)
		tweet := &models.Tweet{Content: "a reply", AuthorID: 1, InReplyToID: &parentID}

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "tweets"`)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(100))
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE tweets SET replies_count = replies_count + 1 WHERE id = $1`)).
			WithArgs(parentID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, repo.Create(ctx, tweet))
		assert.Equal(t, uint(100), tweet.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Quote Increments Quoted Quotes Count", func(t *testing.T) {
		quotedID := uint(9)
		tweet := &models.Tweet{Content: "quoting this", AuthorID: 1, QuotedTweetID: &quotedID}

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "tweets"`)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(101))
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE tweets SET quotes_count = quotes_count + 1 WHERE id = $1`)).
			WithArgs(quotedID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, repo.Create(ctx, tweet))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Top Level Tweet Touches Nothing Else", func(t *testing.T) {
		tweet := &models.Tweet{Content: "hello", AuthorID: 1}

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "tweets"`)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(102))
		mock.ExpectCommit()

		require.NoError(t, repo.Create(ctx, tweet))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTweetRepository_Delete(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewTweetRepository(db)
	ctx := context.Background()

	t.Run("Soft Delete", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE tweets SET is_deleted = TRUE, updated_at = CURRENT_TIMESTAMP WHERE id = $1 AND is_deleted = FALSE`)).
			WithArgs(42).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.Delete(ctx, 42))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Already Deleted Is NotFound", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE tweets SET is_deleted = TRUE`)).
			WithArgs(42).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Delete(ctx, 42)
		require.Error(t, err)
		assert.Equal(t, models.CodeNotFound, appErrCode(t, err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTweetRepository_GetByID_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewTweetRepository(db)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM "tweets" WHERE tweets.id = `)).
		WillReturnError(gorm.ErrRecordNotFound)

	tweet, err := repo.GetByID(ctx, 42, 1)
	require.Error(t, err)
	assert.Nil(t, tweet)
	assert.Equal(t, models.CodeNotFound, appErrCode(t, err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTweetRepository_IncrementImpressions(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewTweetRepository(db)
	ctx := context.Background()

	t.Run("Empty Input Issues No Query", func(t *testing.T) {
		assert.NoError(t, repo.IncrementImpressions(ctx, nil))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Bulk Update", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE tweets SET impressions = impressions + 1 WHERE id IN ($1,$2,$3)`)).
			WithArgs(1, 2, 3).
			WillReturnResult(sqlmock.NewResult(0, 3))

		assert.NoError(t, repo.IncrementImpressions(ctx, []uint{1, 2, 3}))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTweetRepository_Timeline_FiltersReplies(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewTweetRepository(db)
	ctx := context.Background()

	mock.ExpectQuery(`tweets\.author_id IN \(SELECT followee_id FROM follows WHERE follower_id = \$\d\).*in_reply_to_id IS NULL`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "content", "author_id"}))

	tweets, err := repo.Timeline(ctx, 1, false, 20, 0)
	require.NoError(t, err)
	assert.Empty(t, tweets)
	assert.NoError(t, mock.ExpectationsWereMet())
}
