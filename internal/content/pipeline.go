package content

import (
	"context"
	"fmt"
	"time"

	"github.com/will-iamxu/CSNews/internal/cache"
	"github.com/will-iamxu/CSNews/internal/config"
	"github.com/will-iamxu/CSNews/internal/fetch"
	"github.com/will-iamxu/CSNews/internal/fingerprint"
	"go.uber.org/zap"
)

// Cache keys, one per dataset.
const (
	keyNews       = "news"
	keyMatches    = "matches"
	keyRankings   = "rankings"
	keyTournament = "tournament"
)

// Fetcher issues one retrieval. Satisfied by *fetch.Orchestrator; tests
// substitute canned responders.
type Fetcher interface {
	Fetch(ctx context.Context, req fetch.Request) (*fetch.Result, error)
}

// strategy is one acquisition attempt: fetch and normalize, returning no
// records when the source yields nothing usable.
type strategy[T any] struct {
	name  string
	fetch func(ctx context.Context) ([]T, error)
}

// runChain walks the strategies in order and stops at the first that yields
// at least one record. Failures escalate to the next strategy, never up.
func runChain[T any](ctx context.Context, log *zap.Logger, stats *Stats, dataset string, chain []strategy[T]) ([]T, string) {
	for _, s := range chain {
		key := dataset + "/" + s.name
		stats.recordAttempt(key)
		records, err := s.fetch(ctx)
		if err != nil {
			stats.recordFailure(key)
			log.Warn("Strategy failed",
				zap.String("dataset", dataset),
				zap.String("strategy", s.name),
				zap.Error(err))
			continue
		}
		if len(records) == 0 {
			stats.recordFailure(key)
			log.Warn("Strategy yielded no records",
				zap.String("dataset", dataset),
				zap.String("strategy", s.name))
			continue
		}
		stats.recordSuccess(key)
		log.Info("Strategy succeeded",
			zap.String("dataset", dataset),
			zap.String("strategy", s.name),
			zap.Int("records", len(records)))
		return records, s.name
	}
	return nil, ""
}

// Pipeline resolves the four datasets through cache, strategy chains and
// placeholder fallbacks. Every operation returns usable records; total
// failure degrades to recognizable placeholder content, never an error.
type Pipeline struct {
	sources config.SourcesConfig
	ttl     config.CacheConfig
	events  config.EventsConfig
	fetcher Fetcher
	cache   *cache.Store
	stats   *Stats
	log     *zap.Logger
	now     func() time.Time
}

// New assembles a pipeline.
func New(sources config.SourcesConfig, ttl config.CacheConfig, events config.EventsConfig, fetcher Fetcher, store *cache.Store, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		sources: sources,
		ttl:     ttl,
		events:  events,
		fetcher: fetcher,
		cache:   store,
		stats:   newStats(),
		log:     logger.Named("pipeline"),
		now:     time.Now,
	}
}

// SetClock overrides the pipeline clock. Test hook.
func (p *Pipeline) SetClock(now func() time.Time) { p.now = now }

// Stats exposes the pipeline outcome counters.
func (p *Pipeline) Stats() *Stats { return p.stats }

func ttlHours(hours float64) time.Duration {
	return time.Duration(hours * float64(time.Hour))
}

func (p *Pipeline) fetchBody(ctx context.Context, url string, kind fingerprint.ContentKind) ([]byte, error) {
	res, err := p.fetcher.Fetch(ctx, fetch.Request{URL: url, Kind: kind})
	if err != nil {
		return nil, err
	}
	return res.Body, nil
}

// News returns the current news set: cached articles (tagged FromCache) when
// fresh, else the first strategy chain result, else the fixed placeholder.
func (p *Pipeline) News(ctx context.Context) []NewsArticle {
	var cached []NewsArticle
	if p.cache.Get(keyNews, ttlHours(p.ttl.NewsTTLHours), &cached) && len(cached) > 0 {
		for i := range cached {
			cached[i].FromCache = true
		}
		p.stats.recordCacheHit(keyNews)
		p.log.Debug("News served from cache", zap.Int("records", len(cached)))
		return cached
	}

	chain := []strategy[NewsArticle]{
		{name: "direct", fetch: p.newsDirect},
	}
	if p.sources.FeedURL != "" {
		chain = append(chain, strategy[NewsArticle]{name: "feed", fetch: p.newsFeed})
	}
	if p.sources.SitemapURL != "" {
		chain = append(chain, strategy[NewsArticle]{name: "sitemap", fetch: p.newsSitemap})
	}
	if p.sources.ThirdPartyURL != "" {
		chain = append(chain, strategy[NewsArticle]{name: "third-party", fetch: p.newsThirdParty})
	}

	records, strategyName := runChain(ctx, p.log, p.stats, keyNews, chain)
	if records == nil {
		p.stats.recordPlaceholder(keyNews)
		p.log.Error("All news strategies failed, serving placeholder")
		return placeholderNews(p.sources.BaseURL)
	}

	if _, err := p.cache.Put(keyNews, records); err != nil {
		p.log.Warn("News cache write failed", zap.Error(err))
	}
	p.log.Info("News refreshed", zap.String("strategy", strategyName), zap.Int("records", len(records)))
	return records
}

func (p *Pipeline) newsDirect(ctx context.Context) ([]NewsArticle, error) {
	body, err := p.fetchBody(ctx, p.sources.BaseURL+p.sources.NewsPath, fingerprint.KindPage)
	if err != nil {
		return nil, err
	}
	return parseNewsPage(body, p.sources.BaseURL)
}

func (p *Pipeline) newsFeed(ctx context.Context) ([]NewsArticle, error) {
	body, err := p.fetchBody(ctx, p.sources.FeedURL, fingerprint.KindFeed)
	if err != nil {
		return nil, err
	}
	return parseNewsFeed(body)
}

func (p *Pipeline) newsSitemap(ctx context.Context) ([]NewsArticle, error) {
	body, err := p.fetchBody(ctx, p.sources.SitemapURL, fingerprint.KindSitemap)
	if err != nil {
		return nil, err
	}
	return parseNewsSitemap(body)
}

func (p *Pipeline) newsThirdParty(ctx context.Context) ([]NewsArticle, error) {
	body, err := p.fetchBody(ctx, p.sources.ThirdPartyURL+"/news", fingerprint.KindAPI)
	if err != nil {
		return nil, err
	}
	return parseThirdPartyNews(body)
}

// Matches returns upcoming matches, from cache, scrape, third-party, or the
// placeholder.
func (p *Pipeline) Matches(ctx context.Context) []Match {
	var cached []Match
	if p.cache.Get(keyMatches, ttlHours(p.ttl.MatchesTTLHours), &cached) && len(cached) > 0 {
		p.stats.recordCacheHit(keyMatches)
		return cached
	}

	chain := []strategy[Match]{
		{name: "direct", fetch: p.matchesDirect},
	}
	if p.sources.ThirdPartyURL != "" {
		chain = append(chain, strategy[Match]{name: "third-party", fetch: p.matchesThirdParty})
	}

	records, _ := runChain(ctx, p.log, p.stats, keyMatches, chain)
	if records == nil {
		p.stats.recordPlaceholder(keyMatches)
		p.log.Error("All match strategies failed, serving placeholder")
		return placeholderMatches()
	}

	if _, err := p.cache.Put(keyMatches, records); err != nil {
		p.log.Warn("Matches cache write failed", zap.Error(err))
	}
	return records
}

func (p *Pipeline) matchesDirect(ctx context.Context) ([]Match, error) {
	body, err := p.fetchBody(ctx, p.sources.BaseURL+p.sources.MatchesPath, fingerprint.KindPage)
	if err != nil {
		return nil, err
	}
	return parseMatchesPage(body, p.sources.BaseURL)
}

func (p *Pipeline) matchesThirdParty(ctx context.Context) ([]Match, error) {
	body, err := p.fetchBody(ctx, p.sources.ThirdPartyURL+"/matches", fingerprint.KindAPI)
	if err != nil {
		return nil, err
	}
	return parseThirdPartyMatches(body)
}

// Rankings returns the world ranking, from cache, scrape, third-party, or
// the placeholder.
func (p *Pipeline) Rankings(ctx context.Context) []TeamRanking {
	var cached []TeamRanking
	if p.cache.Get(keyRankings, ttlHours(p.ttl.RankingsTTLHours), &cached) && len(cached) > 0 {
		p.stats.recordCacheHit(keyRankings)
		return cached
	}

	chain := []strategy[TeamRanking]{
		{name: "direct", fetch: p.rankingsDirect},
	}
	if p.sources.ThirdPartyURL != "" {
		chain = append(chain, strategy[TeamRanking]{name: "third-party", fetch: p.rankingsThirdParty})
	}

	records, _ := runChain(ctx, p.log, p.stats, keyRankings, chain)
	if records == nil {
		p.stats.recordPlaceholder(keyRankings)
		p.log.Error("All ranking strategies failed, serving placeholder")
		return placeholderRankings()
	}

	if _, err := p.cache.Put(keyRankings, records); err != nil {
		p.log.Warn("Rankings cache write failed", zap.Error(err))
	}
	return records
}

func (p *Pipeline) rankingsDirect(ctx context.Context) ([]TeamRanking, error) {
	body, err := p.fetchBody(ctx, p.sources.BaseURL+p.sources.RankingsPath, fingerprint.KindPage)
	if err != nil {
		return nil, err
	}
	return parseRankingsPage(body)
}

func (p *Pipeline) rankingsThirdParty(ctx context.Context) ([]TeamRanking, error) {
	body, err := p.fetchBody(ctx, p.sources.ThirdPartyURL+"/rankings", fingerprint.KindAPI)
	if err != nil {
		return nil, err
	}
	return parseThirdPartyRankings(body)
}

// CurrentTournament resolves the tournament in progress. Resolution order:
// cache, the configured calendar table, the third-party events API, and as
// a last resort a date-derived synthetic name. The synthetic name is never
// cached so a later successful lookup replaces it promptly.
func (p *Pipeline) CurrentTournament(ctx context.Context) string {
	var cached string
	if p.cache.Get(keyTournament, ttlHours(p.ttl.TournamentTTLHours), &cached) && cached != "" {
		p.stats.recordCacheHit(keyTournament)
		return cached
	}

	now := p.now()
	if name := p.calendarLookup(now); name != "" {
		p.persistTournament(name)
		return name
	}

	if p.sources.ThirdPartyURL != "" {
		if name, err := p.tournamentThirdParty(ctx); err != nil {
			p.log.Warn("Third-party tournament lookup failed", zap.Error(err))
		} else if name != "" {
			p.persistTournament(name)
			return name
		}
	}

	name := synthesizeTournament(now)
	p.stats.recordPlaceholder(keyTournament)
	p.log.Warn("Tournament resolution exhausted, synthesizing name", zap.String("name", name))
	return name
}

// calendarLookup finds a configured event covering the given month.
func (p *Pipeline) calendarLookup(now time.Time) string {
	for _, ev := range p.events.Calendar {
		if ev.Year == now.Year() && time.Month(ev.Month) == now.Month() {
			return ev.Name
		}
	}
	return ""
}

func (p *Pipeline) tournamentThirdParty(ctx context.Context) (string, error) {
	body, err := p.fetchBody(ctx, p.sources.ThirdPartyURL+"/events/current", fingerprint.KindAPI)
	if err != nil {
		return "", err
	}
	return parseThirdPartyTournament(body)
}

func (p *Pipeline) persistTournament(name string) {
	if _, err := p.cache.Put(keyTournament, name); err != nil {
		p.log.Warn("Tournament cache write failed", zap.Error(err))
	}
}

// synthesizeTournament fabricates a plausible generic name from the date.
func synthesizeTournament(now time.Time) string {
	return fmt.Sprintf("CS Pro Circuit %s %d", now.Month().String(), now.Year())
}
