package youtube

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"connectlist/contentservice/internal/domain"
	"connectlist/contentservice/internal/providers/common"
)

const (
	defaultBaseURL    = "https://www.googleapis.com/youtube/v3"
	defaultMaxResults = 20
	descriptionLimit  = 500
	providerName      = "youtube"
	maxPageTokens     = 512
)

// Trending has no numeric paging, so each discover page reads another region's chart.
var discoverRegions = []string{"US", "GB", "CA", "AU", "IN", "DE", "FR", "JP", "BR", "KR"}

type Config struct {
	APIKey     string
	BaseURL    string
	MaxResults int
	UserAgent  string
	Client     *http.Client
	Cache      common.ResponseCache
}

type Provider struct {
	apiKey     string
	baseURL    string
	maxResults int
	fetcher    *common.Fetcher

	mu         sync.Mutex
	pageTokens map[string]string
}

type thumbnail struct {
	URL string `json:"url"`
}

type snippet struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	ChannelID    string `json:"channelId"`
	ChannelTitle string `json:"channelTitle"`
	PublishedAt  string `json:"publishedAt"`
	Thumbnails   struct {
		Maxres  thumbnail `json:"maxres"`
		High    thumbnail `json:"high"`
		Medium  thumbnail `json:"medium"`
		Default thumbnail `json:"default"`
	} `json:"thumbnails"`
}

type searchResponse struct {
	NextPageToken string `json:"nextPageToken"`
	PageInfo      struct {
		TotalResults int `json:"totalResults"`
	} `json:"pageInfo"`
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet snippet `json:"snippet"`
	} `json:"items"`
}

type videosResponse struct {
	PageInfo struct {
		TotalResults int `json:"totalResults"`
	} `json:"pageInfo"`
	Items []struct {
		ID             string  `json:"id"`
		Snippet        snippet `json:"snippet"`
		ContentDetails struct {
			Duration string `json:"duration"`
		} `json:"contentDetails"`
		Statistics struct {
			ViewCount string `json:"viewCount"`
			LikeCount string `json:"likeCount"`
		} `json:"statistics"`
	} `json:"items"`
}

func NewProvider(cfg Config) *Provider {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	maxResults := cfg.MaxResults
	if maxResults <= 0 || maxResults > 50 {
		maxResults = defaultMaxResults
	}
	return &Provider{
		apiKey:     strings.TrimSpace(cfg.APIKey),
		baseURL:    strings.TrimRight(baseURL, "/"),
		maxResults: maxResults,
		fetcher: common.NewFetcher(common.FetcherConfig{
			Provider:      providerName,
			UserAgent:     cfg.UserAgent,
			Client:        cfg.Client,
			Cache:         cfg.Cache,
			RatePerSecond: 5,
			Burst:         3,
		}),
		pageTokens: make(map[string]string),
	}
}

func (p *Provider) Name() string {
	return providerName
}

func (p *Provider) Category() domain.Category {
	return domain.CategoryVideo
}

func (p *Provider) Enabled() bool {
	return p.apiKey != ""
}

// Search looks a pasted video link up directly and runs a keyword search otherwise.
func (p *Provider) Search(ctx context.Context, query string, page int) (domain.Page, error) {
	if id, ok := ExtractVideoID(query); ok {
		return p.videos(ctx, url.Values{"id": {id}})
	}
	return p.search(ctx, strings.TrimSpace(query), page)
}

// Resolve is Search for the first page; it backs the "paste a link" flow.
func (p *Provider) Resolve(ctx context.Context, input string) (domain.Page, error) {
	return p.Search(ctx, input, 1)
}

func (p *Provider) Discover(ctx context.Context, page int) (domain.Page, error) {
	page = max(page, 1)
	return p.videos(ctx, url.Values{
		"chart":      {"mostPopular"},
		"regionCode": {discoverRegions[(page-1)%len(discoverRegions)]},
		"maxResults": {strconv.Itoa(p.maxResults)},
	})
}

func (p *Provider) search(ctx context.Context, query string, page int) (domain.Page, error) {
	if !p.Enabled() {
		return domain.Page{}, domain.NewProviderError(providerName, domain.CategoryVideo, domain.ErrProviderDisabled)
	}
	params := url.Values{
		"part":       {"snippet"},
		"type":       {"video"},
		"q":          {query},
		"maxResults": {strconv.Itoa(p.maxResults)},
	}
	// Pages beyond the first need the token handed out with the previous page.
	// Without one the first page is served.
	if page > 1 {
		if token, ok := p.pageToken(query, page); ok {
			params.Set("pageToken", token)
		}
	}

	var response searchResponse
	if err := p.fetcher.GetJSON(ctx, domain.CategoryVideo, p.baseURL+"/search", params, p.secrets(), &response); err != nil {
		return domain.Page{}, err
	}
	if response.NextPageToken != "" {
		p.rememberPageToken(query, max(page, 1)+1, response.NextPageToken)
	}

	items := make([]domain.ContentItem, 0, len(response.Items))
	for _, raw := range response.Items {
		if item, ok := toItem(raw.ID.VideoID, raw.Snippet, nil); ok {
			items = append(items, item)
		}
	}
	return domain.Page{Results: items, TotalResults: max(response.PageInfo.TotalResults, len(items))}, nil
}

func (p *Provider) videos(ctx context.Context, params url.Values) (domain.Page, error) {
	if !p.Enabled() {
		return domain.Page{}, domain.NewProviderError(providerName, domain.CategoryVideo, domain.ErrProviderDisabled)
	}
	params.Set("part", "snippet,contentDetails,statistics")

	var response videosResponse
	if err := p.fetcher.GetJSON(ctx, domain.CategoryVideo, p.baseURL+"/videos", params, p.secrets(), &response); err != nil {
		return domain.Page{}, err
	}

	items := make([]domain.ContentItem, 0, len(response.Items))
	for _, raw := range response.Items {
		extra := map[string]any{}
		if raw.ContentDetails.Duration != "" {
			extra["duration"] = raw.ContentDetails.Duration
		}
		if views, err := strconv.ParseInt(raw.Statistics.ViewCount, 10, 64); err == nil {
			extra["view_count"] = views
		}
		if likes, err := strconv.ParseInt(raw.Statistics.LikeCount, 10, 64); err == nil {
			extra["like_count"] = likes
		}
		if item, ok := toItem(raw.ID, raw.Snippet, extra); ok {
			items = append(items, item)
		}
	}
	return domain.Page{Results: items, TotalResults: max(response.PageInfo.TotalResults, len(items))}, nil
}

func (p *Provider) secrets() url.Values {
	return url.Values{"key": {p.apiKey}}
}

func (p *Provider) pageToken(query string, page int) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	token, ok := p.pageTokens[tokenKey(query, page)]
	return token, ok
}

func (p *Provider) rememberPageToken(query string, page int, token string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.pageTokens) >= maxPageTokens {
		clear(p.pageTokens)
	}
	p.pageTokens[tokenKey(query, page)] = token
}

func tokenKey(query string, page int) string {
	return strings.ToLower(query) + "\x00" + strconv.Itoa(page)
}

func toItem(id string, s snippet, extra map[string]any) (domain.ContentItem, bool) {
	id = strings.TrimSpace(id)
	title := common.CleanHTMLText(s.Title)
	if id == "" || title == "" {
		return domain.ContentItem{}, false
	}
	if extra == nil {
		extra = map[string]any{}
	}
	extra["video_id"] = id
	extra["url"] = "https://www.youtube.com/watch?v=" + id
	if s.ChannelTitle != "" {
		extra["channel_title"] = s.ChannelTitle
	}
	if s.ChannelID != "" {
		extra["channel_id"] = s.ChannelID
	}
	if s.PublishedAt != "" {
		extra["published_at"] = s.PublishedAt
	}

	image := common.FirstNonEmpty(s.Thumbnails.Maxres.URL, s.Thumbnails.High.URL, s.Thumbnails.Medium.URL, s.Thumbnails.Default.URL)
	description := common.Truncate(common.CleanHTMLText(s.Description), descriptionLimit)
	return domain.NewContentItem(domain.CategoryVideo, providerName, id, title, description, common.HTTPSImage(image), extra), true
}
