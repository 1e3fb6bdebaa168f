package service

import (
	"context"
	"strings"

	"github.com/gustavohdab/rettiwt-backend/internal/models"
	"github.com/gustavohdab/rettiwt-backend/internal/repository"
)

// Search result categories.
const (
	SearchTypeAll      = "all"
	SearchTypeTweets   = "tweets"
	SearchTypeUsers    = "users"
	SearchTypeHashtags = "hashtags"
)

// previewLimit is how many results each category gets in a combined search.
const previewLimit = 5

// SearchResults is the combined response for all search types. Only the
// requested categories are populated.
type SearchResults struct {
	Query    string                   `json:"query"`
	Tweets   []*models.Tweet          `json:"tweets,omitempty"`
	Users    []models.User            `json:"users,omitempty"`
	Hashtags []models.TrendingHashtag `json:"hashtags,omitempty"`
	Counts   map[string]int64         `json:"counts,omitempty"`
}

// SearchService runs substring search across tweets, users, and hashtags.
type SearchService struct {
	tweets repository.TweetRepository
	users  repository.UserRepository
	trends repository.TrendRepository
}

// NewSearchService creates a SearchService.
func NewSearchService(
	tweets repository.TweetRepository,
	users repository.UserRepository,
	trends repository.TrendRepository,
) *SearchService {
	return &SearchService{tweets: tweets, users: users, trends: trends}
}

// Search runs a query against the requested category. Type "all" returns a
// short preview of each category plus total counts; a single category returns
// one paginated list. An unknown type is a validation error; a blank query
// returns empty results.
func (s *SearchService) Search(ctx context.Context, query, searchType string, viewerID uint, limit, offset int) (*SearchResults, error) {
	query = strings.TrimSpace(query)
	results := &SearchResults{Query: query}
	if query == "" {
		return results, nil
	}

	switch searchType {
	case SearchTypeAll, "":
		return s.searchAll(ctx, query, viewerID)
	case SearchTypeTweets:
		tweets, err := s.tweets.Search(ctx, query, viewerID, limit, offset)
		if err != nil {
			return nil, err
		}
		results.Tweets = tweets
	case SearchTypeUsers:
		users, err := s.users.Search(ctx, query, viewerID, limit, offset)
		if err != nil {
			return nil, err
		}
		results.Users = users
	case SearchTypeHashtags:
		hashtags, err := s.trends.SearchHashtags(ctx, strings.TrimPrefix(query, "#"), limit, offset)
		if err != nil {
			return nil, err
		}
		results.Hashtags = hashtags
	default:
		return nil, models.NewFieldValidationError("type", "type must be one of all, tweets, users, hashtags")
	}

	return results, nil
}

func (s *SearchService) searchAll(ctx context.Context, query string, viewerID uint) (*SearchResults, error) {
	results := &SearchResults{Query: query, Counts: make(map[string]int64)}
	tagQuery := strings.TrimPrefix(query, "#")

	tweets, err := s.tweets.Search(ctx, query, viewerID, previewLimit, 0)
	if err != nil {
		return nil, err
	}
	results.Tweets = tweets
	if results.Counts[SearchTypeTweets], err = s.tweets.CountSearch(ctx, query); err != nil {
		return nil, err
	}

	users, err := s.users.Search(ctx, query, viewerID, previewLimit, 0)
	if err != nil {
		return nil, err
	}
	results.Users = users
	if results.Counts[SearchTypeUsers], err = s.users.CountSearch(ctx, query); err != nil {
		return nil, err
	}

	hashtags, err := s.trends.SearchHashtags(ctx, tagQuery, previewLimit, 0)
	if err != nil {
		return nil, err
	}
	results.Hashtags = hashtags
	if results.Counts[SearchTypeHashtags], err = s.trends.CountHashtags(ctx, tagQuery); err != nil {
		return nil, err
	}

	return results, nil
}
