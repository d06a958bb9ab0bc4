package content

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/antchfx/htmlquery"
)

// parseMatchesPage extracts upcoming matches from the matches page.
func parseMatchesPage(body []byte, baseURL string) ([]Match, error) {
	doc, err := htmlquery.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse matches page: %w", err)
	}

	var matches []Match
	for _, node := range htmlquery.Find(doc, "//div[contains(@class,'upcomingMatch')]") {
		teams := htmlquery.Find(node, ".//div[contains(@class,'matchTeamName')]")
		if len(teams) < 2 {
			continue
		}
		m := Match{
			Team1: strings.TrimSpace(htmlquery.InnerText(teams[0])),
			Team2: strings.TrimSpace(htmlquery.InnerText(teams[1])),
		}
		if m.Team1 == "" || m.Team2 == "" {
			continue
		}
		if t := htmlquery.FindOne(node, ".//div[contains(@class,'matchTime')]"); t != nil {
			m.TimeLabel = strings.TrimSpace(htmlquery.InnerText(t))
		}
		if meta := htmlquery.FindOne(node, ".//div[contains(@class,'matchMeta')]"); meta != nil {
			m.Meta = strings.TrimSpace(htmlquery.InnerText(meta))
		}
		if link := htmlquery.FindOne(node, ".//a[contains(@class,'match')]"); link != nil {
			m.DetailURL = resolveURL(baseURL, htmlquery.SelectAttr(link, "href"))
		}
		matches = append(matches, m)
	}
	return matches, nil
}

// parseRankingsPage extracts the world ranking table.
func parseRankingsPage(body []byte) ([]TeamRanking, error) {
	doc, err := htmlquery.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse rankings page: %w", err)
	}

	var rankings []TeamRanking
	for _, node := range htmlquery.Find(doc, "//div[contains(@class,'ranked-team')]") {
		nameNode := htmlquery.FindOne(node, ".//span[contains(@class,'name')]")
		if nameNode == nil {
			continue
		}
		r := TeamRanking{
			Name:   strings.TrimSpace(htmlquery.InnerText(nameNode)),
			Points: "N/A",
		}
		if r.Name == "" {
			continue
		}
		if pos := htmlquery.FindOne(node, ".//span[contains(@class,'position')]"); pos != nil {
			raw := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(htmlquery.InnerText(pos)), "#"))
			if n, err := strconv.Atoi(raw); err == nil {
				r.Rank = n
			}
		}
		if r.Rank == 0 {
			r.Rank = len(rankings) + 1
		}
		if pts := htmlquery.FindOne(node, ".//span[contains(@class,'points')]"); pts != nil {
			if raw := strings.TrimSpace(htmlquery.InnerText(pts)); raw != "" {
				r.Points = strings.Trim(raw, "()")
			}
		}
		rankings = append(rankings, r)
	}
	return rankings, nil
}
