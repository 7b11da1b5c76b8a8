package domain

import (
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"
)

type Category string

const (
	CategoryMovie  Category = "movie"
	CategoryTV     Category = "tv"
	CategoryPerson Category = "person"
	CategoryGame   Category = "game"
	CategoryBook   Category = "book"
	CategoryVideo  Category = "video"
	CategoryPlace  Category = "place"
	CategoryMusic  Category = "music"
	CategoryPoetry Category = "poetry"
)

// Categories lists every content type the app knows about, in display order.
var Categories = []Category{
	CategoryMovie,
	CategoryTV,
	CategoryPerson,
	CategoryGame,
	CategoryBook,
	CategoryVideo,
	CategoryPlace,
	CategoryMusic,
	CategoryPoetry,
}

var categoryAliases = map[string]Category{
	"movies":  CategoryMovie,
	"film":    CategoryMovie,
	"films":   CategoryMovie,
	"series":  CategoryTV,
	"show":    CategoryTV,
	"shows":   CategoryTV,
	"people":  CategoryPerson,
	"persons": CategoryPerson,
	"games":   CategoryGame,
	"books":   CategoryBook,
	"videos":  CategoryVideo,
	"places":  CategoryPlace,
	"poems":   CategoryPoetry,
	"poem":    CategoryPoetry,
}

// ParseCategory normalizes a raw category name. Unknown names are returned
// as-is (lowercased) so callers can still route them to the mock generator.
func ParseCategory(raw string) Category {
	value := strings.ToLower(strings.TrimSpace(raw))
	if alias, ok := categoryAliases[value]; ok {
		return alias
	}
	return Category(value)
}

func (c Category) Known() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

func (c Category) Label() string {
	switch c {
	case CategoryMovie:
		return "Movie"
	case CategoryTV:
		return "TV Series"
	case CategoryPerson:
		return "Person"
	case CategoryGame:
		return "Game"
	case CategoryBook:
		return "Book"
	case CategoryVideo:
		return "Video"
	case CategoryPlace:
		return "Place"
	case CategoryMusic:
		return "Music"
	case CategoryPoetry:
		return "Poetry"
	default:
		if c == "" {
			return "Item"
		}
		first, size := utf8.DecodeRuneInString(string(c))
		return string(unicode.ToUpper(first)) + string(c[size:])
	}
}

// PlaceholderImage returns the image used when a provider has none.
func (c Category) PlaceholderImage() string {
	return "https://placehold.co/300x450/png?text=" + url.QueryEscape(c.Label())
}
