// Package content implements the dataset pipelines: news, matches, team
// rankings and the current tournament. Each pipeline consults the TTL cache,
// then walks an ordered chain of acquisition strategies until one yields
// records, and persists non-placeholder results back to the cache.
package content

// ArticleType tags how a news article was presented on the source page.
type ArticleType string

const (
	ArticleStandard ArticleType = "standard"
	ArticleFeatured ArticleType = "featured"
)

// NewsArticle is one normalized news item. FromCache is set on the cache
// read path only; fresh records leave it false, so omitempty keeps the
// marker out of the persisted cache entry while it still shows up in
// serialized output.
type NewsArticle struct {
	Title     string      `json:"title"`
	URL       string      `json:"url"`
	TimeLabel string      `json:"time_label"`
	ImageURL  string      `json:"image_url,omitempty"`
	Type      ArticleType `json:"type"`
	FromCache bool        `json:"from_cache,omitempty"`
}

// Match is one upcoming or live match.
type Match struct {
	Team1     string `json:"team1"`
	Team2     string `json:"team2"`
	TimeLabel string `json:"time_label"`
	Meta      string `json:"meta"`
	DetailURL string `json:"detail_url"`
}

// TeamRanking is one row of the world ranking.
type TeamRanking struct {
	Rank   int    `json:"rank"`
	Name   string `json:"name"`
	Points string `json:"points"`
}
