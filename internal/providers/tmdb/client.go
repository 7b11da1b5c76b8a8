package tmdb

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"connectlist/contentservice/internal/domain"
	"connectlist/contentservice/internal/providers/common"
)

const (
	defaultBaseURL  = "https://api.themoviedb.org/3"
	imageBaseURL    = "https://image.tmdb.org/t/p/w500"
	defaultLanguage = "en-US"
	providerName    = "tmdb"
)

// Client is shared by the movie, tv and person adapters.
type Client struct {
	apiKey   string
	baseURL  string
	language string
	fetcher  *common.Fetcher
}

type Config struct {
	APIKey    string
	BaseURL   string
	Language  string
	UserAgent string
	Client    *http.Client
	Cache     common.ResponseCache
}

type listResponse struct {
	Page         int         `json:"page"`
	Results      []rawResult `json:"results"`
	TotalResults int         `json:"total_results"`
	TotalPages   int         `json:"total_pages"`
}

type rawResult struct {
	ID                 int        `json:"id"`
	Title              string     `json:"title,omitempty"`
	Name               string     `json:"name,omitempty"`
	OriginalTitle      string     `json:"original_title,omitempty"`
	OriginalName       string     `json:"original_name,omitempty"`
	Overview           string     `json:"overview,omitempty"`
	PosterPath         string     `json:"poster_path,omitempty"`
	ProfilePath        string     `json:"profile_path,omitempty"`
	ReleaseDate        string     `json:"release_date,omitempty"`
	FirstAirDate       string     `json:"first_air_date,omitempty"`
	GenreIDs           []int      `json:"genre_ids,omitempty"`
	VoteAverage        float64    `json:"vote_average,omitempty"`
	OriginalLanguage   string     `json:"original_language,omitempty"`
	KnownForDepartment string     `json:"known_for_department,omitempty"`
	KnownFor           []knownFor `json:"known_for,omitempty"`
}

type knownFor struct {
	Title string `json:"title,omitempty"`
	Name  string `json:"name,omitempty"`
}

func NewClient(cfg Config) *Client {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	language := strings.TrimSpace(cfg.Language)
	if language == "" {
		language = defaultLanguage
	}
	return &Client{
		apiKey:   strings.TrimSpace(cfg.APIKey),
		baseURL:  strings.TrimRight(baseURL, "/"),
		language: language,
		fetcher: common.NewFetcher(common.FetcherConfig{
			Provider:      providerName,
			UserAgent:     cfg.UserAgent,
			Client:        cfg.Client,
			Cache:         cfg.Cache,
			RatePerSecond: 20,
			Burst:         20,
		}),
	}
}

func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

func (c *Client) search(ctx context.Context, category domain.Category, query string, page int) (listResponse, error) {
	return c.list(ctx, category, "/search/"+kindPath(category), url.Values{
		"query":         {strings.TrimSpace(query)},
		"page":          {strconv.Itoa(clampPage(page))},
		"include_adult": {"false"},
	})
}

func (c *Client) popular(ctx context.Context, category domain.Category, page int) (listResponse, error) {
	return c.list(ctx, category, "/"+kindPath(category)+"/popular", url.Values{
		"page": {strconv.Itoa(clampPage(page))},
	})
}

func (c *Client) list(ctx context.Context, category domain.Category, path string, params url.Values) (listResponse, error) {
	if !c.Enabled() {
		return listResponse{}, domain.NewProviderError(providerName, category, domain.ErrProviderDisabled)
	}
	params.Set("language", c.language)
	var response listResponse
	err := c.fetcher.GetJSON(ctx, category, c.baseURL+path, params, url.Values{"api_key": {c.apiKey}}, &response)
	if err != nil {
		return listResponse{}, err
	}
	return response, nil
}

func kindPath(category domain.Category) string {
	switch category {
	case domain.CategoryTV:
		return "tv"
	case domain.CategoryPerson:
		return "person"
	default:
		return "movie"
	}
}

// TMDB rejects pages above 500.
func clampPage(page int) int {
	if page < 1 {
		return 1
	}
	if page > 500 {
		return 500
	}
	return page
}

func imageURL(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	return imageBaseURL + path
}
