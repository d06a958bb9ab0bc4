package content

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"
)

// parseNewsFeed converts an RSS/Atom document into news articles.
func parseNewsFeed(body []byte) ([]NewsArticle, error) {
	feed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse news feed: %w", err)
	}

	var articles []NewsArticle
	for _, item := range feed.Items {
		title := strings.TrimSpace(item.Title)
		if title == "" || item.Link == "" {
			continue
		}
		a := NewsArticle{
			Title:     title,
			URL:       item.Link,
			TimeLabel: item.Published,
			Type:      ArticleStandard,
		}
		if item.Image != nil {
			a.ImageURL = item.Image.URL
		}
		articles = append(articles, a)
	}
	return articles, nil
}

// newsSitemap mirrors the Google news sitemap schema, reduced to the fields
// the pipeline needs.
type newsSitemap struct {
	XMLName xml.Name `xml:"urlset"`
	URLs    []struct {
		Loc  string `xml:"loc"`
		News struct {
			Title           string `xml:"title"`
			PublicationDate string `xml:"publication_date"`
		} `xml:"news"`
	} `xml:"url"`
}

// parseNewsSitemap converts a news sitemap into articles. Entries without a
// news title fall back to the last URL path segment.
func parseNewsSitemap(body []byte) ([]NewsArticle, error) {
	var sm newsSitemap
	if err := xml.Unmarshal(body, &sm); err != nil {
		return nil, fmt.Errorf("parse news sitemap: %w", err)
	}

	var articles []NewsArticle
	for _, u := range sm.URLs {
		if u.Loc == "" {
			continue
		}
		title := strings.TrimSpace(u.News.Title)
		if title == "" {
			title = titleFromSlug(u.Loc)
		}
		if title == "" {
			continue
		}
		articles = append(articles, NewsArticle{
			Title:     title,
			URL:       u.Loc,
			TimeLabel: u.News.PublicationDate,
			Type:      ArticleStandard,
		})
	}
	return articles, nil
}

// titleFromSlug recovers a readable title from a URL slug.
func titleFromSlug(loc string) string {
	seg := loc
	if i := strings.LastIndex(seg, "/"); i >= 0 {
		seg = seg[i+1:]
	}
	seg = strings.ReplaceAll(seg, "-", " ")
	return strings.TrimSpace(seg)
}

// thirdPartyArticle is the shape third-party news APIs return.
type thirdPartyArticle struct {
	Title    string `json:"title"`
	URL      string `json:"url"`
	Time     string `json:"time"`
	ImageURL string `json:"image_url"`
}

// parseThirdPartyNews converts a third-party JSON payload into articles.
func parseThirdPartyNews(body []byte) ([]NewsArticle, error) {
	var items []thirdPartyArticle
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("parse third-party news: %w", err)
	}

	var articles []NewsArticle
	for _, item := range items {
		if item.Title == "" || item.URL == "" {
			continue
		}
		articles = append(articles, NewsArticle{
			Title:     item.Title,
			URL:       item.URL,
			TimeLabel: item.Time,
			ImageURL:  item.ImageURL,
			Type:      ArticleStandard,
		})
	}
	return articles, nil
}
