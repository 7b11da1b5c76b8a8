package googlebooks

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
	defaultBaseURL    = "https://www.googleapis.com/books/v1"
	defaultMaxResults = 20
	descriptionLimit  = 500
	providerName      = "googlebooks"
)

// Discover has no "popular" listing upstream; it rotates through broad subjects.
var discoverSubjects = []string{
	"subject:fiction",
	"subject:fantasy",
	"subject:history",
	"subject:science",
	"subject:biography",
	"subject:mystery",
	"subject:philosophy",
	"subject:poetry",
	"subject:romance",
	"subject:travel",
}

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
}

type volumesResponse struct {
	TotalItems int         `json:"totalItems"`
	Items      []rawVolume `json:"items"`
}

type rawVolume struct {
	ID         string `json:"id"`
	VolumeInfo struct {
		Title               string   `json:"title"`
		Subtitle            string   `json:"subtitle"`
		Authors             []string `json:"authors"`
		Publisher           string   `json:"publisher"`
		PublishedDate       string   `json:"publishedDate"`
		Description         string   `json:"description"`
		PageCount           int      `json:"pageCount"`
		Categories          []string `json:"categories"`
		Language            string   `json:"language"`
		InfoLink            string   `json:"infoLink"`
		IndustryIdentifiers []struct {
			Type       string `json:"type"`
			Identifier string `json:"identifier"`
		} `json:"industryIdentifiers"`
		ImageLinks struct {
			SmallThumbnail string `json:"smallThumbnail"`
			Thumbnail      string `json:"thumbnail"`
		} `json:"imageLinks"`
	} `json:"volumeInfo"`
}

func NewProvider(cfg Config) *Provider {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	maxResults := cfg.MaxResults
	if maxResults <= 0 || maxResults > 40 {
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
			RatePerSecond: 10,
			Burst:         5,
		}),
	}
}

func (p *Provider) Name() string {
	return providerName
}

func (p *Provider) Category() domain.Category {
	return domain.CategoryBook
}

// Enabled is always true: the volumes endpoint accepts anonymous requests
// with a lower quota.
func (p *Provider) Enabled() bool {
	return true
}

func (p *Provider) Search(ctx context.Context, query string, page int) (domain.Page, error) {
	return p.volumes(ctx, strings.TrimSpace(query), page)
}

func (p *Provider) Discover(ctx context.Context, page int) (domain.Page, error) {
	page = max(page, 1)
	subject := discoverSubjects[(page-1)%len(discoverSubjects)]
	return p.volumes(ctx, subject, 1+(page-1)/len(discoverSubjects))
}

func (p *Provider) volumes(ctx context.Context, query string, page int) (domain.Page, error) {
	params := url.Values{
		"q":          {query},
		"startIndex": {strconv.Itoa((max(page, 1) - 1) * p.maxResults)},
		"maxResults": {strconv.Itoa(p.maxResults)},
		"printType":  {"books"},
	}
	var secrets url.Values
	if p.apiKey != "" {
		secrets = url.Values{"key": {p.apiKey}}
	}

	var response volumesResponse
	if err := p.fetcher.GetJSON(ctx, domain.CategoryBook, p.baseURL+"/volumes", params, secrets, &response); err != nil {
		return domain.Page{}, err
	}

	items := make([]domain.ContentItem, 0, len(response.Items))
	seen := make(map[string]struct{}, len(response.Items))
	for _, raw := range response.Items {
		item, ok := toItem(raw)
		if !ok {
			continue
		}
		if _, dup := seen[item.ID]; dup {
			continue
		}
		seen[item.ID] = struct{}{}
		items = append(items, item)
	}
	total := response.TotalItems
	if total < len(items) {
		total = len(items)
	}
	return domain.Page{Results: items, TotalResults: total}, nil
}

func toItem(raw rawVolume) (domain.ContentItem, bool) {
	info := raw.VolumeInfo
	id := strings.TrimSpace(raw.ID)
	title := strings.TrimSpace(info.Title)
	if id == "" || title == "" {
		return domain.ContentItem{}, false
	}
	if subtitle := strings.TrimSpace(info.Subtitle); subtitle != "" {
		title += ": " + subtitle
	}

	extra := map[string]any{
		"google_books_id": id,
	}
	if len(info.Authors) > 0 {
		extra["authors"] = append([]string(nil), info.Authors...)
	}
	if len(info.Categories) > 0 {
		extra["categories"] = append([]string(nil), info.Categories...)
	}
	if info.Publisher != "" {
		extra["publisher"] = info.Publisher
	}
	if info.PublishedDate != "" {
		extra["published_date"] = info.PublishedDate
	}
	if year := common.YearFromDate(info.PublishedDate); year > 0 {
		extra["year"] = year
	}
	if info.PageCount > 0 {
		extra["page_count"] = info.PageCount
	}
	if info.Language != "" {
		extra["language"] = info.Language
	}
	if info.InfoLink != "" {
		extra["info_link"] = info.InfoLink
	}
	for _, identifier := range info.IndustryIdentifiers {
		switch identifier.Type {
		case "ISBN_13":
			extra["isbn13"] = identifier.Identifier
		case "ISBN_10":
			extra["isbn10"] = identifier.Identifier
		}
	}

	description := common.Truncate(common.CleanHTMLText(info.Description), descriptionLimit)
	image := common.HTTPSImage(common.FirstNonEmpty(info.ImageLinks.Thumbnail, info.ImageLinks.SmallThumbnail))
	return domain.NewContentItem(domain.CategoryBook, providerName, id, title, description, image, extra), true
}
