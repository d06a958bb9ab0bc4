package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/spf13/cobra"
	"github.com/will-iamxu/CSNews/internal/cache"
	"github.com/will-iamxu/CSNews/internal/config"
	"github.com/will-iamxu/CSNews/internal/content"
	"github.com/will-iamxu/CSNews/internal/fetch"
	"github.com/will-iamxu/CSNews/internal/fingerprint"
	"github.com/will-iamxu/CSNews/internal/observability"
	"github.com/will-iamxu/CSNews/internal/proxy"
	"github.com/will-iamxu/CSNews/internal/ratelimit"
	"github.com/will-iamxu/CSNews/internal/session"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type fetchOutput struct {
	News       []content.NewsArticle `json:"news,omitempty"`
	Matches    []content.Match       `json:"matches,omitempty"`
	Rankings   []content.TeamRanking `json:"rankings,omitempty"`
	Tournament string                `json:"tournament,omitempty"`
}

func newFetchCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:       "fetch [news|matches|rankings|tournament|all]",
		Short:     "Fetch one dataset, or all of them",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"news", "matches", "rankings", "tournament", "all"},
		RunE: func(cmd *cobra.Command, args []string) error {
			pipeline, err := buildPipeline()
			if err != nil {
				return err
			}
			err = runFetch(cmd.Context(), pipeline, args[0], asJSON)
			observability.GetLogger().Debug("Pipeline outcome counters",
				zap.Any("stats", pipeline.Stats().Snapshot()))
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "emit JSON instead of text")
	return cmd
}

// buildPipeline wires the full stack from the loaded configuration.
func buildPipeline() (*content.Pipeline, error) {
	cfg := config.Get()
	logger := observability.GetLogger()

	catalog := fingerprint.New(nil)

	proxies, err := proxy.NewPool(cfg.Proxy)
	if err != nil {
		return nil, fmt.Errorf("building proxy pool: %w", err)
	}

	registry := session.NewRegistry(cfg.Sessions, cfg.Proxy, catalog, proxies, logger)
	limiter := ratelimit.New(cfg.Limiter, catalog, logger)
	orchestrator := fetch.New(cfg.Network, limiter, registry, catalog, logger)

	store, err := cache.New(cfg.Cache.Dir, logger)
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}

	return content.New(cfg.Sources, cfg.Cache, cfg.Events, orchestrator, store, logger), nil
}

func runFetch(ctx context.Context, pipeline *content.Pipeline, dataset string, asJSON bool) error {
	var out fetchOutput

	switch dataset {
	case "news":
		out.News = pipeline.News(ctx)
	case "matches":
		out.Matches = pipeline.Matches(ctx)
	case "rankings":
		out.Rankings = pipeline.Rankings(ctx)
	case "tournament":
		out.Tournament = pipeline.CurrentTournament(ctx)
	case "all":
		// The datasets share the limiter, so fan-out stays politely capped.
		var mu sync.Mutex
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			news := pipeline.News(gctx)
			mu.Lock()
			out.News = news
			mu.Unlock()
			return nil
		})
		g.Go(func() error {
			matches := pipeline.Matches(gctx)
			mu.Lock()
			out.Matches = matches
			mu.Unlock()
			return nil
		})
		g.Go(func() error {
			rankings := pipeline.Rankings(gctx)
			mu.Lock()
			out.Rankings = rankings
			mu.Unlock()
			return nil
		})
		g.Go(func() error {
			name := pipeline.CurrentTournament(gctx)
			mu.Lock()
			out.Tournament = name
			mu.Unlock()
			return nil
		})
		if err := g.Wait(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown dataset %q", dataset)
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	printText(out)
	return nil
}

func printText(out fetchOutput) {
	if len(out.News) > 0 {
		fmt.Println("News:")
		for _, a := range out.News {
			marker := ""
			if a.Type == content.ArticleFeatured {
				marker = " [featured]"
			}
			if a.FromCache {
				marker += " (cached)"
			}
			fmt.Printf("  - %s%s\n    %s\n", a.Title, marker, a.URL)
		}
	}
	if len(out.Matches) > 0 {
		fmt.Println("Matches:")
		for _, m := range out.Matches {
			fmt.Printf("  - %s vs %s at %s (%s)\n", m.Team1, m.Team2, m.TimeLabel, m.Meta)
		}
	}
	if len(out.Rankings) > 0 {
		fmt.Println("Rankings:")
		for _, r := range out.Rankings {
			fmt.Printf("  %2d. %s (%s)\n", r.Rank, r.Name, r.Points)
		}
	}
	if out.Tournament != "" {
		fmt.Printf("Current tournament: %s\n", out.Tournament)
	}
}
