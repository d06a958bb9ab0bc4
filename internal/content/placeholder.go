package content

import (
	"encoding/json"
	"fmt"
)

// placeholderNews is the guaranteed-success terminal of the news chain. The
// fixed titles make total-failure output recognizable to callers without an
// error channel.
func placeholderNews(baseURL string) []NewsArticle {
	return []NewsArticle{
		{
			Title:     "News is temporarily unavailable",
			URL:       baseURL + "/news",
			TimeLabel: "just now",
			Type:      ArticleStandard,
		},
		{
			Title:     "Check back shortly for the latest Counter-Strike headlines",
			URL:       baseURL,
			TimeLabel: "just now",
			Type:      ArticleStandard,
		},
	}
}

func placeholderMatches() []Match {
	return []Match{
		{
			Team1:     "TBD",
			Team2:     "TBD",
			TimeLabel: "schedule unavailable",
			Meta:      "match data temporarily unavailable",
		},
	}
}

func placeholderRankings() []TeamRanking {
	return []TeamRanking{
		{Rank: 1, Name: "Rankings temporarily unavailable", Points: "N/A"},
	}
}

// thirdPartyMatch is the shape third-party match APIs return.
type thirdPartyMatch struct {
	Team1     string `json:"team1"`
	Team2     string `json:"team2"`
	Time      string `json:"time"`
	Meta      string `json:"meta"`
	DetailURL string `json:"detail_url"`
}

func parseThirdPartyMatches(body []byte) ([]Match, error) {
	var items []thirdPartyMatch
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("parse third-party matches: %w", err)
	}
	var matches []Match
	for _, item := range items {
		if item.Team1 == "" || item.Team2 == "" {
			continue
		}
		matches = append(matches, Match{
			Team1:     item.Team1,
			Team2:     item.Team2,
			TimeLabel: item.Time,
			Meta:      item.Meta,
			DetailURL: item.DetailURL,
		})
	}
	return matches, nil
}

// thirdPartyRanking is the shape third-party ranking APIs return.
type thirdPartyRanking struct {
	Rank   int    `json:"rank"`
	Name   string `json:"name"`
	Points string `json:"points"`
}

func parseThirdPartyRankings(body []byte) ([]TeamRanking, error) {
	var items []thirdPartyRanking
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("parse third-party rankings: %w", err)
	}
	var rankings []TeamRanking
	for _, item := range items {
		if item.Name == "" {
			continue
		}
		points := item.Points
		if points == "" {
			points = "N/A"
		}
		rankings = append(rankings, TeamRanking{Rank: item.Rank, Name: item.Name, Points: points})
	}
	return rankings, nil
}

// parseThirdPartyTournament reads an event API response of the shape
// {"name": "..."}.
func parseThirdPartyTournament(body []byte) (string, error) {
	var payload struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("parse third-party tournament: %w", err)
	}
	return payload.Name, nil
}
