package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	UserAgent       string
	ProviderTimeout time.Duration

	TMDBAPIKey         string
	TMDBBaseURL        string
	TMDBLanguage       string
	RAWGAPIKey         string
	RAWGBaseURL        string
	GoogleBooksAPIKey  string
	GoogleBooksBaseURL string
	YouTubeAPIKey      string
	YouTubeBaseURL     string
	GeocoderBaseURL    string
	GeocoderEmail      string

	RedisURL         string
	ProviderCacheTTL time.Duration
	MongoURI         string
	MongoDatabase    string

	SessionIdleTTL         time.Duration
	AggregateIncludePlaces bool
	RateLimitRPS           float64
	RateLimitBurst         int
	MaxSessions            int
	TrustedProxies         []string

	OTELEndpoint    string
	OTELSampleRatio float64
}

func LoadConfig() Config {
	return Config{
		HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
		LogLevel:        strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:       strings.ToLower(getEnv("LOG_FORMAT", "text")),
		UserAgent:       getEnv("USER_AGENT", "connectlist-content/1.0"),
		ProviderTimeout: time.Duration(getEnvInt("PROVIDER_TIMEOUT_SECONDS", 12)) * time.Second,

		TMDBAPIKey:         strings.TrimSpace(os.Getenv("TMDB_API_KEY")),
		TMDBBaseURL:        getEnv("TMDB_BASE_URL", "https://api.themoviedb.org/3"),
		TMDBLanguage:       getEnv("TMDB_LANGUAGE", "en-US"),
		RAWGAPIKey:         strings.TrimSpace(os.Getenv("RAWG_API_KEY")),
		RAWGBaseURL:        getEnv("RAWG_BASE_URL", "https://api.rawg.io/api"),
		GoogleBooksAPIKey:  strings.TrimSpace(os.Getenv("GOOGLE_BOOKS_API_KEY")),
		GoogleBooksBaseURL: getEnv("GOOGLE_BOOKS_BASE_URL", "https://www.googleapis.com/books/v1"),
		YouTubeAPIKey:      strings.TrimSpace(os.Getenv("YOUTUBE_API_KEY")),
		YouTubeBaseURL:     getEnv("YOUTUBE_BASE_URL", "https://www.googleapis.com/youtube/v3"),
		GeocoderBaseURL:    getEnv("GEOCODER_BASE_URL", "https://nominatim.openstreetmap.org"),
		GeocoderEmail:      strings.TrimSpace(os.Getenv("GEOCODER_EMAIL")),

		RedisURL:         getEnv("REDIS_URL", ""),
		ProviderCacheTTL: time.Duration(getEnvInt("PROVIDER_CACHE_TTL_MINUTES", 30)) * time.Minute,
		MongoURI:         getEnv("MONGO_URI", ""),
		MongoDatabase:    getEnv("MONGO_DB", "connectlist"),

		SessionIdleTTL:         time.Duration(getEnvInt("SESSION_IDLE_TTL_MINUTES", 30)) * time.Minute,
		AggregateIncludePlaces: getEnvBool("AGGREGATE_INCLUDE_PLACES", false),
		RateLimitRPS:           getEnvFloat("RATE_LIMIT_RPS", 20),
		RateLimitBurst:         getEnvInt("RATE_LIMIT_BURST", 40),
		MaxSessions:            getEnvInt("MAX_SESSIONS", 10000),
		TrustedProxies:         getEnvList("TRUSTED_PROXIES"),

		OTELEndpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTELSampleRatio: getEnvFloat("OTEL_TRACES_SAMPLE_RATIO", 1),
	}
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getEnvInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(raw, 64)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

// getEnvList splits a comma-separated value, dropping empty entries.
func getEnvList(key string) []string {
	var items []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func getEnvBool(key string, fallback bool) bool {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
