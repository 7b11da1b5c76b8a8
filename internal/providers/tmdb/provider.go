package tmdb

import (
	"context"
	"strconv"
	"strings"

	"connectlist/contentservice/internal/domain"
	"connectlist/contentservice/internal/providers/common"
)

// Provider adapts one TMDB media kind (movie, tv or person) to a category.
type Provider struct {
	client   *Client
	category domain.Category
}

func NewProvider(client *Client, category domain.Category) *Provider {
	switch category {
	case domain.CategoryMovie, domain.CategoryTV, domain.CategoryPerson:
	default:
		category = domain.CategoryMovie
	}
	return &Provider{client: client, category: category}
}

func (p *Provider) Name() string {
	return providerName + "-" + kindPath(p.category)
}

func (p *Provider) Category() domain.Category {
	return p.category
}

func (p *Provider) Enabled() bool {
	return p.client != nil && p.client.Enabled()
}

func (p *Provider) Search(ctx context.Context, query string, page int) (domain.Page, error) {
	response, err := p.client.search(ctx, p.category, query, page)
	if err != nil {
		return domain.Page{}, err
	}
	return p.toPage(response), nil
}

func (p *Provider) Discover(ctx context.Context, page int) (domain.Page, error) {
	response, err := p.client.popular(ctx, p.category, page)
	if err != nil {
		return domain.Page{}, err
	}
	return p.toPage(response), nil
}

func (p *Provider) toPage(response listResponse) domain.Page {
	items := make([]domain.ContentItem, 0, len(response.Results))
	for _, raw := range response.Results {
		item, ok := p.toItem(raw)
		if !ok {
			continue
		}
		items = append(items, item)
	}
	total := response.TotalResults
	if total < len(items) {
		total = len(items)
	}
	return domain.Page{Results: items, TotalResults: total}
}

func (p *Provider) toItem(raw rawResult) (domain.ContentItem, bool) {
	if raw.ID <= 0 {
		return domain.ContentItem{}, false
	}
	id := strconv.Itoa(raw.ID)
	extra := map[string]any{
		"tmdb_id":    raw.ID,
		"media_type": kindPath(p.category),
	}

	switch p.category {
	case domain.CategoryPerson:
		title := strings.TrimSpace(raw.Name)
		if title == "" {
			return domain.ContentItem{}, false
		}
		credits := make([]string, 0, len(raw.KnownFor))
		for _, work := range raw.KnownFor {
			if name := common.FirstNonEmpty(work.Title, work.Name); name != "" {
				credits = append(credits, name)
			}
		}
		description := ""
		if raw.KnownForDepartment != "" {
			description = raw.KnownForDepartment
			if len(credits) > 0 {
				description += " · Known for " + strings.Join(credits, ", ")
			}
		} else if len(credits) > 0 {
			description = "Known for " + strings.Join(credits, ", ")
		}
		extra["department"] = raw.KnownForDepartment
		if len(credits) > 0 {
			extra["known_for"] = credits
		}
		return domain.NewContentItem(p.category, providerName, id, title, description, imageURL(raw.ProfilePath), extra), true
	default:
		title := common.FirstNonEmpty(raw.Title, raw.Name, raw.OriginalTitle, raw.OriginalName)
		if title == "" {
			return domain.ContentItem{}, false
		}
		date := common.FirstNonEmpty(raw.ReleaseDate, raw.FirstAirDate)
		if year := common.YearFromDate(date); year > 0 {
			extra["year"] = year
		}
		if date != "" {
			extra["release_date"] = date
		}
		if len(raw.GenreIDs) > 0 {
			extra["genre_ids"] = append([]int(nil), raw.GenreIDs...)
		}
		if raw.VoteAverage > 0 {
			extra["vote_average"] = raw.VoteAverage
		}
		if raw.OriginalLanguage != "" {
			extra["original_language"] = raw.OriginalLanguage
		}
		return domain.NewContentItem(p.category, providerName, id, title, common.Truncate(raw.Overview, 500), imageURL(raw.PosterPath), extra), true
	}
}
