package domain

import "strings"

const PlaceholderDescription = "No description available."

// Keys always present in ContentItem.ExternalData.
const (
	ExternalCategory   = "category"
	ExternalProvider   = "provider"
	ExternalProviderID = "provider_id"
)

type ContentItem struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	ImageURL     string         `json:"imageUrl"`
	Category     Category       `json:"category"`
	ExternalData map[string]any `json:"externalData"`
}

// NewContentItem builds a normalized item. Empty description and image are
// replaced with placeholders, and the category/provider tags are always
// written into ExternalData. The extra map is copied, never retained.
func NewContentItem(category Category, provider, id, title, description, imageURL string, extra map[string]any) ContentItem {
	id = strings.TrimSpace(id)
	description = strings.TrimSpace(description)
	if description == "" {
		description = PlaceholderDescription
	}
	imageURL = strings.TrimSpace(imageURL)
	if imageURL == "" {
		imageURL = category.PlaceholderImage()
	}

	data := make(map[string]any, len(extra)+3)
	for key, value := range extra {
		if value == nil {
			continue
		}
		data[key] = value
	}
	data[ExternalCategory] = string(category)
	data[ExternalProvider] = provider
	data[ExternalProviderID] = id

	return ContentItem{
		ID:           id,
		Title:        strings.TrimSpace(title),
		Description:  description,
		ImageURL:     imageURL,
		Category:     category,
		ExternalData: data,
	}
}

// Key identifies an item across providers; ids alone are only unique per category.
func (i ContentItem) Key() string {
	return string(i.Category) + ":" + i.ID
}

func (i ContentItem) Clone() ContentItem {
	cloned := i
	if i.ExternalData != nil {
		cloned.ExternalData = make(map[string]any, len(i.ExternalData))
		for key, value := range i.ExternalData {
			cloned.ExternalData[key] = cloneValue(value)
		}
	}
	return cloned
}

func cloneValue(value any) any {
	switch typed := value.(type) {
	case []string:
		return append([]string(nil), typed...)
	case []int:
		return append([]int(nil), typed...)
	case []float64:
		return append([]float64(nil), typed...)
	case []any:
		out := make([]any, len(typed))
		for i, v := range typed {
			out[i] = cloneValue(v)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(typed))
		for k, v := range typed {
			out[k] = cloneValue(v)
		}
		return out
	default:
		return value
	}
}

func CloneItems(items []ContentItem) []ContentItem {
	if items == nil {
		return nil
	}
	out := make([]ContentItem, len(items))
	for i, item := range items {
		out[i] = item.Clone()
	}
	return out
}

// Page is one provider response: the normalized results plus the total the
// provider reported, which is not necessarily len(Results).
type Page struct {
	Results      []ContentItem `json:"results"`
	TotalResults int           `json:"totalResults"`
}

func (p Page) Clone() Page {
	return Page{Results: CloneItems(p.Results), TotalResults: p.TotalResults}
}

func EmptyPage() Page {
	return Page{Results: []ContentItem{}}
}
