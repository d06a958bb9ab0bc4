package fingerprint

// Family identifies the browser engine a profile imitates. Header extensions
// and TLS descriptors are chosen per family so the three signals stay
// coherent; a Chrome-like hello with a Firefox User-Agent is a reliable
// automation tell.
type Family string

const (
	FamilyChromium Family = "chromium"
	FamilyFirefox  Family = "firefox"
	FamilySafari   Family = "safari"
	FamilyCrawler  Family = "crawler"
)

// ContentKind classifies what a request is after. Crawler profiles declare
// which kinds they are plausible for; the rate limiter shapes delays by kind.
type ContentKind string

const (
	KindPage    ContentKind = "page"
	KindAPI     ContentKind = "api"
	KindFeed    ContentKind = "feed"
	KindSitemap ContentKind = "sitemap"
	KindXML     ContentKind = "xml"
)

// IsMachineReadable reports whether requests of this kind are expected to
// come from software rather than a person at a browser.
func (k ContentKind) IsMachineReadable() bool {
	switch k {
	case KindFeed, KindSitemap, KindAPI, KindXML:
		return true
	default:
		return false
	}
}

// ClientHints is the Sec-Ch-Ua header triplet sent by Chromium-family
// browsers.
type ClientHints struct {
	UA       string
	Mobile   string
	Platform string
}

// FetchMetadata is the Sec-Fetch-* header set.
type FetchMetadata struct {
	Dest string
	Mode string
	Site string
	User string
}

// Profile is one immutable identity template: the full header surface of a
// browser or crawler plus its selection weight. Loaded once at startup from
// the static catalog below.
type Profile struct {
	Name           string
	Family         Family
	UserAgent      string
	Accept         string
	AcceptLanguage string
	ClientHints    *ClientHints
	FetchMetadata  *FetchMetadata
	Mobile         bool
	Weight         float64

	// Affinity lists the content kinds a crawler profile is plausible for.
	// Empty for browser profiles.
	Affinity []ContentKind
}

// HasAffinity reports whether the profile declares affinity for kind.
func (p Profile) HasAffinity(kind ContentKind) bool {
	for _, k := range p.Affinity {
		if k == kind {
			return true
		}
	}
	return false
}

const defaultAccept = "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8,application/signed-exchange;v=b3;q=0.7"

var browserProfiles = []Profile{
	{
		Name:           "chrome-win",
		Family:         FamilyChromium,
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
		Accept:         defaultAccept,
		AcceptLanguage: "en-US,en;q=0.9",
		ClientHints: &ClientHints{
			UA:       `"Google Chrome";v="131", "Chromium";v="131", "Not_A Brand";v="24"`,
			Mobile:   "?0",
			Platform: `"Windows"`,
		},
		Weight: 3,
	},
	{
		Name:           "chrome-mac",
		Family:         FamilyChromium,
		UserAgent:      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
		Accept:         defaultAccept,
		AcceptLanguage: "en-US,en;q=0.9",
		ClientHints: &ClientHints{
			UA:       `"Google Chrome";v="131", "Chromium";v="131", "Not_A Brand";v="24"`,
			Mobile:   "?0",
			Platform: `"macOS"`,
		},
		Weight: 2,
	},
	{
		Name:           "firefox-win",
		Family:         FamilyFirefox,
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:133.0) Gecko/20100101 Firefox/133.0",
		Accept:         "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
		AcceptLanguage: "en-US,en;q=0.5",
		FetchMetadata: &FetchMetadata{
			Dest: "document",
			Mode: "navigate",
			Site: "none",
			User: "?1",
		},
		Weight: 2,
	},
	{
		Name:           "safari-mac",
		Family:         FamilySafari,
		UserAgent:      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/18.2 Safari/605.1.15",
		Accept:         "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		AcceptLanguage: "en-US,en;q=0.9",
		Weight:         1,
	},
	{
		Name:           "chrome-android",
		Family:         FamilyChromium,
		UserAgent:      "Mozilla/5.0 (Linux; Android 14; Pixel 8 Pro) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Mobile Safari/537.36",
		Accept:         defaultAccept,
		AcceptLanguage: "en-US,en;q=0.9",
		ClientHints: &ClientHints{
			UA:       `"Google Chrome";v="131", "Chromium";v="131", "Not_A Brand";v="24"`,
			Mobile:   "?1",
			Platform: `"Android"`,
		},
		Mobile: true,
		Weight: 1,
	},
	{
		Name:           "safari-ios",
		Family:         FamilySafari,
		UserAgent:      "Mozilla/5.0 (iPhone; CPU iPhone OS 18_2 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/18.2 Mobile/15E148 Safari/604.1",
		Accept:         "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		AcceptLanguage: "en-US,en;q=0.9",
		Mobile:         true,
		Weight:         1,
	},
}

var crawlerProfiles = []Profile{
	{
		Name:           "feedreader",
		Family:         FamilyCrawler,
		UserAgent:      "Feedbin feed-id:1842 - 12 subscribers",
		Accept:         "application/rss+xml, application/atom+xml, application/xml;q=0.9, text/xml;q=0.8",
		AcceptLanguage: "en-US,en;q=0.9",
		Affinity:       []ContentKind{KindFeed, KindXML},
	},
	{
		Name:           "rss-aggregator",
		Family:         FamilyCrawler,
		UserAgent:      "Mozilla/5.0 (compatible; inoreader.com; 8 subscribers)",
		Accept:         "application/rss+xml, application/rdf+xml;q=0.8, application/atom+xml;q=0.6, */*;q=0.1",
		AcceptLanguage: "en-US,en;q=0.9",
		Affinity:       []ContentKind{KindFeed},
	},
	{
		Name:           "sitemap-bot",
		Family:         FamilyCrawler,
		UserAgent:      "Mozilla/5.0 (compatible; SeznamBot/4.0; +https://o-seznam.cz/napoveda/vyhledavani/en/seznambot-crawler/)",
		Accept:         "application/xml, text/xml;q=0.9, */*;q=0.8",
		AcceptLanguage: "en",
		Affinity:       []ContentKind{KindSitemap, KindXML},
	},
	{
		Name:           "generic-bot",
		Family:         FamilyCrawler,
		UserAgent:      "Mozilla/5.0 (compatible; CSNewsBot/1.0)",
		Accept:         "*/*",
		AcceptLanguage: "en",
		Affinity:       []ContentKind{KindFeed, KindSitemap, KindAPI, KindXML},
	},
}

// referrerPool is where a fresh identity claims to have come from.
var referrerPool = []string{
	"https://www.google.com/",
	"https://www.google.com/search?q=cs2+news",
	"https://www.bing.com/",
	"https://duckduckgo.com/",
	"https://www.reddit.com/r/GlobalOffensive/",
	"https://twitter.com/",
	"https://news.ycombinator.com/",
}
