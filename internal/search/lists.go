package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"connectlist/contentservice/internal/domain"
)

var ErrInvalidListItem = errors.New("invalid list item")

// ListItemStore persists picked content into user lists.
type ListItemStore interface {
	CategoryIDByName(ctx context.Context, name string) (string, error)
	AddListItem(ctx context.Context, item domain.ListItem) (domain.ListItem, error)
}

// ListService turns a ContentItem picked from search or discover into a
// list item row.
type ListService struct {
	store ListItemStore
	now   func() time.Time
}

func NewListService(store ListItemStore) *ListService {
	return &ListService{store: store, now: time.Now}
}

func (s *ListService) AddContentItem(ctx context.Context, listID string, item domain.ContentItem) (domain.ListItem, error) {
	listID = strings.TrimSpace(listID)
	if listID == "" {
		return domain.ListItem{}, fmt.Errorf("%w: list id is required", ErrInvalidListItem)
	}
	if strings.TrimSpace(item.ID) == "" || strings.TrimSpace(item.Title) == "" {
		return domain.ListItem{}, fmt.Errorf("%w: item id and title are required", ErrInvalidListItem)
	}
	if !item.Category.Known() {
		return domain.ListItem{}, fmt.Errorf("%w: unknown category %q", ErrInvalidListItem, item.Category)
	}

	categoryID, err := s.store.CategoryIDByName(ctx, string(item.Category))
	if err != nil {
		return domain.ListItem{}, fmt.Errorf("resolve category %q: %w", item.Category, err)
	}

	normalized := domain.NewContentItem(item.Category, providerOf(item), item.ID, item.Title, item.Description, item.ImageURL, item.ExternalData)
	row := domain.ListItem{
		ID:           uuid.NewString(),
		ListID:       listID,
		CategoryID:   categoryID,
		ExternalID:   normalized.ID,
		Title:        normalized.Title,
		Description:  normalized.Description,
		ImageURL:     normalized.ImageURL,
		ExternalData: normalized.ExternalData,
		CreatedAt:    s.now().UTC(),
	}
	saved, err := s.store.AddListItem(ctx, row)
	if err != nil {
		return domain.ListItem{}, fmt.Errorf("add list item: %w", err)
	}
	return saved, nil
}

func providerOf(item domain.ContentItem) string {
	if provider, ok := item.ExternalData[domain.ExternalProvider].(string); ok && provider != "" {
		return provider
	}
	return "unknown"
}
