package rawg

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"connectlist/contentservice/internal/domain"
	"connectlist/contentservice/internal/providers/common"
)

const (
	defaultBaseURL  = "https://api.rawg.io/api"
	defaultPageSize = 20
	providerName    = "rawg"
)

type Config struct {
	APIKey    string
	BaseURL   string
	PageSize  int
	UserAgent string
	Client    *http.Client
	Cache     common.ResponseCache
}

type Provider struct {
	apiKey   string
	baseURL  string
	pageSize int
	fetcher  *common.Fetcher
}

type gamesResponse struct {
	Count   int       `json:"count"`
	Results []rawGame `json:"results"`
}

type rawGame struct {
	ID              int     `json:"id"`
	Slug            string  `json:"slug"`
	Name            string  `json:"name"`
	Released        string  `json:"released"`
	BackgroundImage string  `json:"background_image"`
	Rating          float64 `json:"rating"`
	Metacritic      int     `json:"metacritic"`
	Genres          []struct {
		Name string `json:"name"`
	} `json:"genres"`
	Platforms []struct {
		Platform struct {
			Name string `json:"name"`
		} `json:"platform"`
	} `json:"platforms"`
}

func NewProvider(cfg Config) *Provider {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 || pageSize > 40 {
		pageSize = defaultPageSize
	}
	return &Provider{
		apiKey:   strings.TrimSpace(cfg.APIKey),
		baseURL:  strings.TrimRight(baseURL, "/"),
		pageSize: pageSize,
		fetcher: common.NewFetcher(common.FetcherConfig{
			Provider:      providerName,
			UserAgent:     cfg.UserAgent,
			Client:        cfg.Client,
			Cache:         cfg.Cache,
			RatePerSecond: 5,
			Burst:         5,
		}),
	}
}

func (p *Provider) Name() string {
	return providerName
}

func (p *Provider) Category() domain.Category {
	return domain.CategoryGame
}

func (p *Provider) Enabled() bool {
	return p.apiKey != ""
}

func (p *Provider) Search(ctx context.Context, query string, page int) (domain.Page, error) {
	return p.games(ctx, url.Values{
		"search":         {strings.TrimSpace(query)},
		"search_precise": {"true"},
		"page":           {strconv.Itoa(max(page, 1))},
	})
}

func (p *Provider) Discover(ctx context.Context, page int) (domain.Page, error) {
	return p.games(ctx, url.Values{
		"ordering": {"-added"},
		"page":     {strconv.Itoa(max(page, 1))},
	})
}

func (p *Provider) games(ctx context.Context, params url.Values) (domain.Page, error) {
	if !p.Enabled() {
		return domain.Page{}, domain.NewProviderError(providerName, domain.CategoryGame, domain.ErrProviderDisabled)
	}
	params.Set("page_size", strconv.Itoa(p.pageSize))

	var response gamesResponse
	if err := p.fetcher.GetJSON(ctx, domain.CategoryGame, p.baseURL+"/games", params, url.Values{"key": {p.apiKey}}, &response); err != nil {
		return domain.Page{}, err
	}

	items := make([]domain.ContentItem, 0, len(response.Results))
	for _, raw := range response.Results {
		if item, ok := toItem(raw); ok {
			items = append(items, item)
		}
	}
	total := response.Count
	if total < len(items) {
		total = len(items)
	}
	return domain.Page{Results: items, TotalResults: total}, nil
}

func toItem(raw rawGame) (domain.ContentItem, bool) {
	name := strings.TrimSpace(raw.Name)
	if raw.ID <= 0 || name == "" {
		return domain.ContentItem{}, false
	}

	genres := make([]string, 0, len(raw.Genres))
	for _, genre := range raw.Genres {
		if value := strings.TrimSpace(genre.Name); value != "" {
			genres = append(genres, value)
		}
	}
	platforms := make([]string, 0, len(raw.Platforms))
	for _, entry := range raw.Platforms {
		if value := strings.TrimSpace(entry.Platform.Name); value != "" {
			platforms = append(platforms, value)
		}
	}

	extra := map[string]any{
		"rawg_id": raw.ID,
		"slug":    raw.Slug,
	}
	if len(genres) > 0 {
		extra["genres"] = genres
	}
	if len(platforms) > 0 {
		extra["platforms"] = platforms
	}
	if raw.Released != "" {
		extra["released"] = raw.Released
	}
	if raw.Rating > 0 {
		extra["rating"] = raw.Rating
	}
	if raw.Metacritic > 0 {
		extra["metacritic"] = raw.Metacritic
	}

	return domain.NewContentItem(domain.CategoryGame, providerName, strconv.Itoa(raw.ID), name,
		describe(raw.Released, genres, platforms), common.HTTPSImage(raw.BackgroundImage), extra), true
}

// RAWG list results carry no synopsis, so one is assembled from metadata.
func describe(released string, genres, platforms []string) string {
	parts := make([]string, 0, 3)
	if year := common.YearFromDate(released); year > 0 {
		parts = append(parts, fmt.Sprintf("Released %d", year))
	}
	if len(genres) > 0 {
		parts = append(parts, strings.Join(genres, ", "))
	}
	if len(platforms) > 0 {
		shown := platforms
		if len(shown) > 4 {
			shown = shown[:4]
		}
		parts = append(parts, strings.Join(shown, ", "))
	}
	return strings.Join(parts, " · ")
}
