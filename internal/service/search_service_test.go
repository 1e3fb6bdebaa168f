package service

import (
	"context"
	"testing"

	"github.com/gustavohdab/rettiwt-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSearchService(tweets *tweetRepoStub, users *userRepoStub, trends *trendRepoStub) *SearchService {
	return NewSearchService(tweets, users, trends)
}

func TestSearchAllReturnsPreviewsAndCounts(t *testing.T) {
	tweets := &tweetRepoStub{
		searchFn: func(_ context.Context, query string, _ uint, limit, offset int) ([]*models.Tweet, error) {
			assert.Equal(t, "go", query)
			assert.Equal(t, previewLimit, limit)
			assert.Equal(t, 0, offset)
			return []*models.Tweet{{ID: 1}}, nil
		},
		countSearchFn: func(context.Context, string) (int64, error) { return 12, nil },
	}
	users := &userRepoStub{
		searchFn: func(_ context.Context, _ string, _ uint, limit, _ int) ([]models.User, error) {
			assert.Equal(t, previewLimit, limit)
			return []models.User{{ID: 2}}, nil
		},
		countSearchFn: func(context.Context, string) (int64, error) { return 3, nil },
	}
	trends := &trendRepoStub{
		searchHashtagsFn: func(_ context.Context, query string, _, _ int) ([]models.TrendingHashtag, error) {
			assert.Equal(t, "go", query)
			return []models.TrendingHashtag{{Tag: "go"}}, nil
		},
		countHashtagsFn: func(context.Context, string) (int64, error) { return 1, nil },
	}
	svc := newSearchService(tweets, users, trends)

	results, err := svc.Search(context.Background(), "go", SearchTypeAll, 0, 20, 0)
	require.NoError(t, err)
	assert.Len(t, results.Tweets, 1)
	assert.Len(t, results.Users, 1)
	assert.Len(t, results.Hashtags, 1)
	assert.EqualValues(t, 12, results.Counts[SearchTypeTweets])
	assert.EqualValues(t, 3, results.Counts[SearchTypeUsers])
	assert.EqualValues(t, 1, results.Counts[SearchTypeHashtags])
}

func TestSearchSingleCategoryPaginates(t *testing.T) {
	tweets := &tweetRepoStub{
		searchFn: func(_ context.Context, _ string, viewerID uint, limit, offset int) ([]*models.Tweet, error) {
			assert.Equal(t, uint(7), viewerID)
			assert.Equal(t, 10, limit)
			assert.Equal(t, 30, offset)
			return []*models.Tweet{{ID: 5}}, nil
		},
	}
	svc := newSearchService(tweets, &userRepoStub{}, &trendRepoStub{})

	results, err := svc.Search(context.Background(), "go", SearchTypeTweets, 7, 10, 30)
	require.NoError(t, err)
	assert.Len(t, results.Tweets, 1)
	assert.Nil(t, results.Users)
	assert.Nil(t, results.Counts)
}

func TestSearchHashtagsStripsLeadingHash(t *testing.T) {
	trends := &trendRepoStub{
		searchHashtagsFn: func(_ context.Context, query string, _, _ int) ([]models.TrendingHashtag, error) {
			assert.Equal(t, "golang", query)
			return nil, nil
		},
	}
	svc := newSearchService(&tweetRepoStub{}, &userRepoStub{}, trends)

	_, err := svc.Search(context.Background(), "#golang", SearchTypeHashtags, 0, 20, 0)
	assert.NoError(t, err)
}

func TestSearchBlankQuery(t *testing.T) {
	svc := newSearchService(&tweetRepoStub{}, &userRepoStub{}, &trendRepoStub{})

	results, err := svc.Search(context.Background(), "   ", SearchTypeAll, 0, 20, 0)
	require.NoError(t, err)
	assert.Empty(t, results.Tweets)
	assert.Empty(t, results.Users)
	assert.Empty(t, results.Hashtags)
}

func TestSearchUnknownType(t *testing.T) {
	svc := newSearchService(&tweetRepoStub{}, &userRepoStub{}, &trendRepoStub{})

	_, err := svc.Search(context.Background(), "go", "bogus", 0, 20, 0)
	assertAppErrorCode(t, err, models.CodeValidation)
}
