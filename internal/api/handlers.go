package api

import (
	"context"
	"errors"
	"time"

	"github.com/bilgisen/nytrelay/internal/logger"
	"github.com/bilgisen/nytrelay/internal/middleware"
	"github.com/bilgisen/nytrelay/internal/models"
	"github.com/bilgisen/nytrelay/internal/news"
	"github.com/bilgisen/nytrelay/internal/nyt"
	"github.com/gofiber/fiber/v2"
)

const (
	dateLayout = "20060102"

	msgDateFormat      = "Dates must be in YYYYMMDD format and valid calendar dates."
	msgDateOrder       = "begin_date must be earlier than end_date."
	msgNoStories       = "No valid stories found."
	msgTopStoriesError = "Unexpected error occurred while fetching top stories."
	msgSearchError     = "Unexpected error occurred during article search."
)

// NewsService is what the handlers need from the news package.
type NewsService interface {
	CombinedTopStories(ctx context.Context) ([]models.TopStory, error)
	SearchArticles(ctx context.Context, q, beginDate, endDate string) ([]models.ArticleSearchResult, error)
}

// ArticleSearchQuery holds the query parameters of GET /nytimes/articlesearch
type ArticleSearchQuery struct {
	Q         string `query:"q"`
	BeginDate string `query:"begin_date" validate:"omitempty,len=8,number,datetime=20060102"`
	EndDate   string `query:"end_date" validate:"omitempty,len=8,number,datetime=20060102"`
}

type Handlers struct {
	news    NewsService
	version string
}

func NewHandlers(svc NewsService, version string) *Handlers {
	return &Handlers{
		news:    svc,
		version: version,
	}
}

// HealthCheck handles the /health endpoint
func (h *Handlers) HealthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"version": h.version,
		"time":    time.Now().Format(time.RFC3339),
	})
}

// GetTopStories handles GET /nytimes/topstories
func (h *Handlers) GetTopStories(c *fiber.Ctx) error {
	stories, err := h.news.CombinedTopStories(c.UserContext())
	if err != nil {
		if errors.Is(err, news.ErrNoResults) {
			return fiber.NewError(fiber.StatusInternalServerError, msgNoStories)
		}
		if fe, ok := upstreamError(err); ok {
			return fe
		}
		logger.Get().Error().Err(err).Msg("Unexpected error during top stories aggregation")
		return fiber.NewError(fiber.StatusInternalServerError, msgTopStoriesError)
	}

	return c.JSON(stories)
}

// SearchArticles handles GET /nytimes/articlesearch. The query has already
// passed ValidateQuery, so both dates are empty or valid YYYYMMDD strings.
func (h *Handlers) SearchArticles(c *fiber.Ctx) error {
	params := middleware.Query[ArticleSearchQuery](c)
	if params == nil {
		params = &ArticleSearchQuery{}
	}

	if params.BeginDate != "" && params.EndDate != "" {
		begin, beginErr := time.Parse(dateLayout, params.BeginDate)
		end, endErr := time.Parse(dateLayout, params.EndDate)
		if beginErr != nil || endErr != nil {
			return fiber.NewError(fiber.StatusUnprocessableEntity, msgDateFormat)
		}
		if !begin.Before(end) {
			return fiber.NewError(fiber.StatusUnprocessableEntity, msgDateOrder)
		}
	}

	results, err := h.news.SearchArticles(c.UserContext(), params.Q, params.BeginDate, params.EndDate)
	if err != nil {
		if fe, ok := upstreamError(err); ok {
			return fe
		}
		logger.Get().Error().
			Err(err).
			Str("q", params.Q).
			Msgf("Unexpected error during article search: %v", err)
		return fiber.NewError(fiber.StatusInternalServerError, msgSearchError)
	}

	return c.JSON(results)
}

// invalidDateParams answers a search query whose dates fail validation.
func invalidDateParams(c *fiber.Ctx, err error) error {
	logger.Get().Debug().Err(err).Str("query", string(c.Request().URI().QueryString())).Msg("Rejected search query")
	return fiber.NewError(fiber.StatusUnprocessableEntity, msgDateFormat)
}

// upstreamError maps client error kinds that callers should see verbatim.
func upstreamError(err error) (*fiber.Error, bool) {
	var nytErr *nyt.Error
	if !errors.As(err, &nytErr) {
		return nil, false
	}

	switch nytErr.Kind {
	case nyt.KindInvalidCategory:
		return fiber.NewError(fiber.StatusBadRequest, nytErr.Detail), true
	case nyt.KindRateLimited:
		return fiber.NewError(fiber.StatusServiceUnavailable, nytErr.Detail), true
	default:
		return nil, false
	}
}
