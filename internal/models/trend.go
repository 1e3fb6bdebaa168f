package models

// TrendingHashtag is one row of the trending aggregate: occurrence count and
// summed engagement over the trailing window.
type TrendingHashtag struct {
	Tag             string `json:"tag"`
	Count           int64  `json:"count"`
	EngagementScore int64  `json:"engagement_score"`
}
