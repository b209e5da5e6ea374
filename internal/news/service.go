package news

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bilgisen/nytrelay/internal/config"
	"github.com/bilgisen/nytrelay/internal/logger"
	"github.com/bilgisen/nytrelay/internal/metrics"
	"github.com/bilgisen/nytrelay/internal/models"
	"github.com/bilgisen/nytrelay/internal/nyt"
	"golang.org/x/sync/errgroup"
)

// ErrNoResults is returned when no category produced a usable story.
var ErrNoResults = errors.New("no valid stories found")

// Fetcher is the part of the NYT client the service depends on.
type Fetcher interface {
	FetchTopStories(ctx context.Context, category string) ([]byte, error)
	FetchArticleSearch(ctx context.Context, q, beginDate, endDate string) ([]byte, error)
}

type Service struct {
	fetcher     Fetcher
	categories  []string
	sitePrefix  string
	perCategory int
	concurrency int
}

func NewService(fetcher Fetcher, cfg *config.Config) *Service {
	perCategory := cfg.StoriesPerCategory
	if perCategory < 1 {
		perCategory = 2
	}
	concurrency := cfg.FetchConcurrency
	if concurrency < 1 {
		concurrency = 1
	}

	return &Service{
		fetcher:     fetcher,
		categories:  append([]string(nil), cfg.Categories...),
		sitePrefix:  cfg.NYTSitePrefix,
		perCategory: perCategory,
		concurrency: concurrency,
	}
}

// CombinedTopStories collects the first stories of every configured category,
// in configuration order. Invalid-category and rate-limit failures abort the
// whole aggregation; other per-category failures only drop that category.
func (s *Service) CombinedTopStories(ctx context.Context) ([]models.TopStory, error) {
	log := logger.Get()
	start := time.Now()

	perCategory := make([][]models.TopStory, len(s.categories))
	aborts := make([]error, len(s.categories))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, category := range s.categories {
		i, category := i, category
		g.Go(func() error {
			// A previous category already aborted the aggregation.
			if gctx.Err() != nil {
				return nil
			}

			body, err := s.fetcher.FetchTopStories(gctx, category)
			if err != nil {
				if abortsAggregation(err) {
					log.Error().
						Err(err).
						Str("category", category).
						Msg("Aborting top stories aggregation")
					aborts[i] = fmt.Errorf("fetch top stories for %q: %w", category, err)
					return aborts[i]
				}
				log.Warn().
					Err(err).
					Str("category", category).
					Msg("Skipping category after upstream failure")
				return nil
			}

			stories, err := s.filterTopStories(body)
			if err != nil {
				log.Warn().
					Err(err).
					Str("category", category).
					Msg("Skipping category with unreadable response")
				return nil
			}

			perCategory[i] = stories
			return nil
		})
	}

	// Report the earliest aborting category, not the first to fail in time.
	if err := g.Wait(); err != nil {
		for _, abort := range aborts {
			if abort != nil {
				return nil, abort
			}
		}
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var results []models.TopStory
	for i, stories := range perCategory {
		if len(stories) > 0 {
			metrics.StoriesServed.WithLabelValues(s.categories[i]).Add(float64(len(stories)))
		}
		results = append(results, stories...)
	}

	if len(results) == 0 {
		log.Warn().
			Strs("categories", s.categories).
			Msg("No valid stories found")
		return nil, ErrNoResults
	}

	log.Info().
		Int("total_results", len(results)).
		Dur("duration", time.Since(start)).
		Msg("Collected top stories")

	return results, nil
}

func abortsAggregation(err error) bool {
	kind, ok := nyt.KindOf(err)
	return ok && (kind == nyt.KindInvalidCategory || kind == nyt.KindRateLimited)
}

// filterTopStories keeps site articles with every field set, up to the per
// category limit, in upstream order.
func (s *Service) filterTopStories(body []byte) ([]models.TopStory, error) {
	var resp models.TopStoriesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode top stories: %w", err)
	}

	stories := make([]models.TopStory, 0, s.perCategory)
	for _, raw := range resp.Results {
		if len(stories) == s.perCategory {
			break
		}

		var item models.TopStoryItem
		if err := json.Unmarshal(raw, &item); err != nil {
			continue
		}
		if !strings.HasPrefix(item.URL, s.sitePrefix) || !item.Complete() {
			continue
		}
		stories = append(stories, item.ToTopStory())
	}
	return stories, nil
}

// SearchArticles runs one upstream search and maps complete documents to
// results. Client failures are returned; a body that cannot be read is
// logged and yields an empty list.
func (s *Service) SearchArticles(ctx context.Context, q, beginDate, endDate string) ([]models.ArticleSearchResult, error) {
	body, err := s.fetcher.FetchArticleSearch(ctx, q, beginDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("article search: %w", err)
	}

	results := make([]models.ArticleSearchResult, 0)

	var resp models.ArticleSearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		logger.Get().Error().
			Err(err).
			Str("q", q).
			Str("begin_date", beginDate).
			Str("end_date", endDate).
			Msg("Error during article search")
		return results, nil
	}

	for _, raw := range resp.Response.Docs {
		var doc models.SearchDoc
		if err := json.Unmarshal(raw, &doc); err != nil {
			continue
		}
		if result, ok := doc.Result(); ok {
			results = append(results, result)
		}
	}

	return results, nil
}
