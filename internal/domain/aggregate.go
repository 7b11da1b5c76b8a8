package domain

import "time"

// SearchTab names one tab of the aggregated search screen.
type SearchTab string

const (
	TabUsers  SearchTab = "users"
	TabLists  SearchTab = "lists"
	TabMovies SearchTab = "movies"
	TabSeries SearchTab = "series"
	TabPeople SearchTab = "people"
	TabGames  SearchTab = "games"
	TabBooks  SearchTab = "books"
	TabVideos SearchTab = "videos"
	TabPlaces SearchTab = "places"
)

func TabForCategory(category Category) (SearchTab, bool) {
	switch category {
	case CategoryMovie:
		return TabMovies, true
	case CategoryTV:
		return TabSeries, true
	case CategoryPerson:
		return TabPeople, true
	case CategoryGame:
		return TabGames, true
	case CategoryBook:
		return TabBooks, true
	case CategoryVideo:
		return TabVideos, true
	case CategoryPlace:
		return TabPlaces, true
	default:
		return "", false
	}
}

type UserResult struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	FullName  string `json:"fullName,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

type ListResult struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	OwnerID     string    `json:"ownerId,omitempty"`
	CategoryID  string    `json:"categoryId,omitempty"`
	ItemCount   int       `json:"itemCount"`
	CreatedAt   time.Time `json:"createdAt"`
}

// AggregatedResult is the tabbed response of a single query fanned out to
// every provider plus the backend user/list search. A tab whose branch
// failed is present and empty; its name is listed in Failed.
type AggregatedResult struct {
	Query     string                      `json:"query"`
	Users     []UserResult                `json:"users"`
	Lists     []ListResult                `json:"lists"`
	Content   map[SearchTab][]ContentItem `json:"content"`
	Failed    []SearchTab                 `json:"failed,omitempty"`
	ElapsedMS int64                       `json:"elapsedMs"`
}

// ListItem is a ContentItem persisted into a user's list.
type ListItem struct {
	ID           string         `json:"id"`
	ListID       string         `json:"listId"`
	CategoryID   string         `json:"categoryId"`
	ExternalID   string         `json:"externalId"`
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	ImageURL     string         `json:"imageUrl"`
	ExternalData map[string]any `json:"externalData"`
	CreatedAt    time.Time      `json:"createdAt"`
}

type CategoryInfo struct {
	Name  Category `json:"name"`
	Label string   `json:"label"`
	Live  bool     `json:"live"`
}

type ProviderInfo struct {
	Name     string   `json:"name"`
	Category Category `json:"category"`
	Enabled  bool     `json:"enabled"`
}

type ProviderDiagnostics struct {
	Name                string     `json:"name"`
	Category            Category   `json:"category"`
	Enabled             bool       `json:"enabled"`
	ConsecutiveFailures int        `json:"consecutiveFailures"`
	BlockedUntil        *time.Time `json:"blockedUntil,omitempty"`
	LastError           string     `json:"lastError,omitempty"`
	LastSuccessAt       *time.Time `json:"lastSuccessAt,omitempty"`
	LastFailureAt       *time.Time `json:"lastFailureAt,omitempty"`
	LastLatencyMS       int64      `json:"lastLatencyMs,omitempty"`
	LastTimeout         bool       `json:"lastTimeout,omitempty"`
	TotalRequests       int64      `json:"totalRequests,omitempty"`
	TotalFailures       int64      `json:"totalFailures,omitempty"`
	TimeoutCount        int64      `json:"timeoutCount,omitempty"`
	FallbackCount       int64      `json:"fallbackCount,omitempty"`
}
