package content

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// parseNewsPage extracts articles from the news index page. Featured items
// sit in the top spotlight block; the remainder are standard newslines.
func parseNewsPage(body []byte, baseURL string) ([]NewsArticle, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse news page: %w", err)
	}

	var articles []NewsArticle

	doc.Find("a.featured-newsline").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		title := strings.TrimSpace(sel.Find(".featured-newstext").Text())
		if title == "" {
			title = strings.TrimSpace(sel.Text())
		}
		if title == "" || href == "" {
			return
		}
		img, _ := sel.Find("img").Attr("src")
		articles = append(articles, NewsArticle{
			Title:     title,
			URL:       resolveURL(baseURL, href),
			TimeLabel: strings.TrimSpace(sel.Find(".newsrecent").Text()),
			ImageURL:  resolveURL(baseURL, img),
			Type:      ArticleFeatured,
		})
	})

	doc.Find("a.newsline").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		title := strings.TrimSpace(sel.Find(".newstext").Text())
		if title == "" || href == "" {
			return
		}
		articles = append(articles, NewsArticle{
			Title:     title,
			URL:       resolveURL(baseURL, href),
			TimeLabel: strings.TrimSpace(sel.Find(".newsrecent").Text()),
			Type:      ArticleStandard,
		})
	})

	return articles, nil
}

// resolveURL makes href absolute against base. Already-absolute and empty
// inputs pass through.
func resolveURL(base, href string) string {
	if href == "" {
		return ""
	}
	hu, err := url.Parse(href)
	if err != nil {
		return href
	}
	if hu.IsAbs() {
		return href
	}
	bu, err := url.Parse(base)
	if err != nil {
		return href
	}
	return bu.ResolveReference(hu).String()
}
