package geocode

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/semaphore"

	"connectlist/contentservice/internal/domain"
	"connectlist/contentservice/internal/providers/common"
)

const (
	defaultBaseURL        = "https://nominatim.openstreetmap.org"
	defaultLimit          = 20
	minBaseResults        = 5
	maxConcurrentWidening = 2
	providerName          = "nominatim"
)

// Suffixes appended to the query when the base lookup is too sparse.
var wideningSuffixes = []string{"shop", "restaurant", "cafe", "hotel", "museum"}

var discoverTerms = []string{
	"museum", "park", "castle", "cathedral", "botanical garden",
	"national park", "lighthouse", "old town", "beach", "waterfall",
}

type Config struct {
	BaseURL string
	Email   string
	Limit   int
	// RatePerSecond defaults to the public instance's one request per second.
	RatePerSecond float64
	UserAgent     string
	Client        *http.Client
	Cache         common.ResponseCache
}

type Provider struct {
	baseURL string
	email   string
	limit   int
	fetcher *common.Fetcher
}

type rawPlace struct {
	PlaceID     int64   `json:"place_id"`
	OSMType     string  `json:"osm_type"`
	OSMID       int64   `json:"osm_id"`
	Lat         string  `json:"lat"`
	Lon         string  `json:"lon"`
	Name        string  `json:"name"`
	DisplayName string  `json:"display_name"`
	Category    string  `json:"category"`
	Type        string  `json:"type"`
	Importance  float64 `json:"importance"`
	Address     struct {
		City    string `json:"city"`
		Town    string `json:"town"`
		Village string `json:"village"`
		Country string `json:"country"`
	} `json:"address"`
}

func NewProvider(cfg Config) *Provider {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	ratePerSecond := cfg.RatePerSecond
	if ratePerSecond <= 0 {
		ratePerSecond = 1
	}
	limit := cfg.Limit
	if limit <= 0 || limit > 50 {
		limit = defaultLimit
	}
	return &Provider{
		baseURL: strings.TrimRight(baseURL, "/"),
		email:   strings.TrimSpace(cfg.Email),
		limit:   limit,
		fetcher: common.NewFetcher(common.FetcherConfig{
			Provider:      providerName,
			UserAgent:     cfg.UserAgent,
			Client:        cfg.Client,
			Cache:         cfg.Cache,
			RatePerSecond: ratePerSecond,
			Burst:         2,
		}),
	}
}

func (p *Provider) Name() string {
	return providerName
}

func (p *Provider) Category() domain.Category {
	return domain.CategoryPlace
}

func (p *Provider) Enabled() bool {
	return true
}

// Search geocodes the query. When fewer than five places come back it widens
// the lookup with category suffixes and merges the extra places, dropping
// coordinates already seen. Widening failures are ignored once the base
// lookup succeeded. The geocoder has no paging, so pages past the first are empty.
func (p *Provider) Search(ctx context.Context, query string, page int) (domain.Page, error) {
	if page > 1 {
		return domain.EmptyPage(), nil
	}
	query = strings.TrimSpace(query)
	base, err := p.lookup(ctx, query)
	if err != nil {
		return domain.Page{}, err
	}

	merged := newPlaceSet()
	merged.add(base)
	if len(base) < minBaseResults {
		for _, extra := range p.widen(ctx, query) {
			merged.add(extra)
		}
	}
	return merged.page(), nil
}

func (p *Provider) Discover(ctx context.Context, page int) (domain.Page, error) {
	page = max(page, 1)
	places, err := p.lookup(ctx, discoverTerms[(page-1)%len(discoverTerms)])
	if err != nil {
		return domain.Page{}, err
	}
	set := newPlaceSet()
	set.add(places)
	return set.page(), nil
}

func (p *Provider) widen(ctx context.Context, query string) [][]rawPlace {
	results := make([][]rawPlace, len(wideningSuffixes))
	sem := semaphore.NewWeighted(maxConcurrentWidening)
	var wg sync.WaitGroup
	for i, suffix := range wideningSuffixes {
		wg.Add(1)
		go func(index int, term string) {
			defer wg.Done()
			if err := sem.Acquire(ctx, 1); err != nil {
				return
			}
			defer sem.Release(1)

			places, err := p.lookup(ctx, term)
			if err != nil {
				return
			}
			results[index] = places
		}(i, query+" "+suffix)
	}
	wg.Wait()
	return results
}

func (p *Provider) lookup(ctx context.Context, query string) ([]rawPlace, error) {
	params := url.Values{
		"q":              {query},
		"format":         {"jsonv2"},
		"addressdetails": {"1"},
		"limit":          {strconv.Itoa(p.limit)},
	}
	if p.email != "" {
		params.Set("email", p.email)
	}
	var places []rawPlace
	if err := p.fetcher.GetJSON(ctx, domain.CategoryPlace, p.baseURL+"/search", params, nil, &places); err != nil {
		return nil, err
	}
	return places, nil
}

type placeSet struct {
	items []domain.ContentItem
	seen  map[string]struct{}
}

func newPlaceSet() *placeSet {
	return &placeSet{items: []domain.ContentItem{}, seen: make(map[string]struct{})}
}

func (s *placeSet) add(places []rawPlace) {
	for _, raw := range places {
		key, ok := coordinateKey(raw.Lat, raw.Lon)
		if !ok {
			continue
		}
		if _, dup := s.seen[key]; dup {
			continue
		}
		item, ok := toItem(raw)
		if !ok {
			continue
		}
		s.seen[key] = struct{}{}
		s.items = append(s.items, item)
	}
}

func (s *placeSet) page() domain.Page {
	return domain.Page{Results: s.items, TotalResults: len(s.items)}
}

// coordinateKey rounds to ~1m so the same place returned by two queries collides.
func coordinateKey(lat, lon string) (string, bool) {
	latValue, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil {
		return "", false
	}
	lonValue, err := strconv.ParseFloat(strings.TrimSpace(lon), 64)
	if err != nil {
		return "", false
	}
	return strconv.FormatFloat(latValue, 'f', 5, 64) + "," + strconv.FormatFloat(lonValue, 'f', 5, 64), true
}

func toItem(raw rawPlace) (domain.ContentItem, bool) {
	display := strings.TrimSpace(raw.DisplayName)
	title := strings.TrimSpace(raw.Name)
	if title == "" {
		title, _, _ = strings.Cut(display, ",")
		title = strings.TrimSpace(title)
	}
	if title == "" {
		return domain.ContentItem{}, false
	}

	id := strconv.FormatInt(raw.PlaceID, 10)
	if raw.OSMType != "" && raw.OSMID > 0 {
		id = raw.OSMType[:1] + strconv.FormatInt(raw.OSMID, 10)
	}

	lat, _ := strconv.ParseFloat(raw.Lat, 64)
	lon, _ := strconv.ParseFloat(raw.Lon, 64)
	extra := map[string]any{
		"lat":          lat,
		"lon":          lon,
		"display_name": display,
	}
	if raw.Category != "" {
		extra["place_category"] = raw.Category
	}
	if raw.Type != "" {
		extra["place_type"] = raw.Type
	}
	if city := common.FirstNonEmpty(raw.Address.City, raw.Address.Town, raw.Address.Village); city != "" {
		extra["city"] = city
	}
	if raw.Address.Country != "" {
		extra["country"] = raw.Address.Country
	}
	if raw.Importance > 0 {
		extra["importance"] = raw.Importance
	}

	return domain.NewContentItem(domain.CategoryPlace, providerName, id, title, display, "", extra), true
}
