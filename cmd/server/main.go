package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/mongo/otelmongo"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	apihttp "connectlist/contentservice/internal/api/http"
	"connectlist/contentservice/internal/app"
	mongorepo "connectlist/contentservice/internal/backend/mongo"
	"connectlist/contentservice/internal/domain"
	"connectlist/contentservice/internal/metrics"
	"connectlist/contentservice/internal/providers/common"
	"connectlist/contentservice/internal/providers/geocode"
	"connectlist/contentservice/internal/providers/googlebooks"
	"connectlist/contentservice/internal/providers/rawg"
	"connectlist/contentservice/internal/providers/tmdb"
	"connectlist/contentservice/internal/providers/youtube"
	"connectlist/contentservice/internal/search"
	"connectlist/contentservice/internal/telemetry"
)

const serviceName = "content-service"

func main() {
	cfg := app.LoadConfig()
	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	metrics.Register(prometheus.DefaultRegisterer)

	shutdownTracer, err := telemetry.Init(context.Background(), telemetry.Config{
		ServiceName: serviceName,
		Endpoint:    cfg.OTELEndpoint,
		SampleRatio: cfg.OTELSampleRatio,
	})
	if err != nil {
		logger.Warn("otel init failed", slog.String("error", err.Error()))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	logger.Info("configuration loaded",
		slog.String("service", serviceName),
		slog.String("httpAddr", cfg.HTTPAddr),
		slog.String("logLevel", cfg.LogLevel),
		slog.String("logFormat", cfg.LogFormat),
		slog.Duration("providerTimeout", cfg.ProviderTimeout),
		slog.Duration("sessionIdleTTL", cfg.SessionIdleTTL),
		slog.Bool("hasTMDBKey", cfg.TMDBAPIKey != ""),
		slog.Bool("hasRAWGKey", cfg.RAWGAPIKey != ""),
		slog.Bool("hasGoogleBooksKey", cfg.GoogleBooksAPIKey != ""),
		slog.Bool("hasYouTubeKey", cfg.YouTubeAPIKey != ""),
		slog.Bool("hasRedis", strings.TrimSpace(cfg.RedisURL) != ""),
		slog.Bool("hasMongo", strings.TrimSpace(cfg.MongoURI) != ""),
		slog.Bool("aggregatePlaces", cfg.AggregateIncludePlaces),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpClient := &http.Client{Timeout: cfg.ProviderTimeout, Transport: otelhttp.NewTransport(http.DefaultTransport)}
	responseCache := buildResponseCache(rootCtx, cfg, logger)

	tmdbClient := tmdb.NewClient(tmdb.Config{
		APIKey:    cfg.TMDBAPIKey,
		BaseURL:   cfg.TMDBBaseURL,
		Language:  cfg.TMDBLanguage,
		UserAgent: cfg.UserAgent,
		Client:    httpClient,
		Cache:     responseCache,
	})
	registry := search.NewRegistry(
		tmdb.NewProvider(tmdbClient, domain.CategoryMovie),
		tmdb.NewProvider(tmdbClient, domain.CategoryTV),
		tmdb.NewProvider(tmdbClient, domain.CategoryPerson),
		rawg.NewProvider(rawg.Config{
			APIKey:    cfg.RAWGAPIKey,
			BaseURL:   cfg.RAWGBaseURL,
			UserAgent: cfg.UserAgent,
			Client:    httpClient,
			Cache:     responseCache,
		}),
		googlebooks.NewProvider(googlebooks.Config{
			APIKey:    cfg.GoogleBooksAPIKey,
			BaseURL:   cfg.GoogleBooksBaseURL,
			UserAgent: cfg.UserAgent,
			Client:    httpClient,
			Cache:     responseCache,
		}),
		youtube.NewProvider(youtube.Config{
			APIKey:    cfg.YouTubeAPIKey,
			BaseURL:   cfg.YouTubeBaseURL,
			UserAgent: cfg.UserAgent,
			Client:    httpClient,
			Cache:     responseCache,
		}),
		geocode.NewProvider(geocode.Config{
			BaseURL:   cfg.GeocoderBaseURL,
			Email:     cfg.GeocoderEmail,
			UserAgent: cfg.UserAgent,
			Client:    httpClient,
			Cache:     responseCache,
		}),
	)
	for _, info := range registry.Providers() {
		logger.Info("provider registered",
			slog.String("provider", info.Name),
			slog.String("category", string(info.Category)),
			slog.Bool("enabled", info.Enabled),
		)
	}

	dispatcher := search.NewDispatcher(registry,
		search.WithProviderTimeout(cfg.ProviderTimeout),
		search.WithLogger(logger),
	)

	aggregatorOpts := []search.AggregatorOption{
		search.WithPlaces(cfg.AggregateIncludePlaces),
		search.WithAggregatorLogger(logger),
	}
	serverOpts := []apihttp.ServerOption{
		apihttp.WithLogger(logger),
		apihttp.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
	}
	if proxies, err := apihttp.ParseTrustedProxies(cfg.TrustedProxies); err != nil {
		logger.Warn("invalid TRUSTED_PROXIES, forwarding headers ignored", slog.String("error", err.Error()))
	} else if len(proxies) > 0 {
		serverOpts = append(serverOpts, apihttp.WithTrustedProxies(proxies))
	}
	mongoClient, repo := connectBackend(rootCtx, cfg, logger)
	if repo != nil {
		aggregatorOpts = append(aggregatorOpts, search.WithDirectory(repo))
		serverOpts = append(serverOpts, apihttp.WithListItems(search.NewListService(repo)))
	}
	aggregator := search.NewAggregator(dispatcher, aggregatorOpts...)

	sessions := search.NewSessionManager(dispatcher, aggregator,
		search.WithIdleTTL(cfg.SessionIdleTTL),
		search.WithMaxSessions(cfg.MaxSessions),
		search.WithSessionLogger(logger),
	)
	go sessions.Run(rootCtx)

	handler := apihttp.NewServer(sessions, dispatcher, aggregator, serverOpts...).Handler()
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.ProviderTimeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	logger.Info("content service started",
		slog.String("addr", cfg.HTTPAddr),
		slog.Duration("timeout", cfg.ProviderTimeout),
	)

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", slog.String("error", err.Error()))
	}
	if mongoClient != nil {
		if err := mongoClient.Disconnect(shutdownCtx); err != nil {
			logger.Warn("mongo disconnect failed", slog.String("error", err.Error()))
		}
	}
	logger.Info("content service stopped")
}

func newLogger(levelRaw, formatRaw string) *slog.Logger {
	level := parseLogLevel(levelRaw)
	handlerOpts := &slog.HandlerOptions{Level: level}
	format := strings.ToLower(strings.TrimSpace(formatRaw))
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, handlerOpts))
}

func parseLogLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// buildResponseCache returns nil (no upstream response caching) when Redis
// is not configured or unreachable.
func buildResponseCache(ctx context.Context, cfg app.Config, logger *slog.Logger) common.ResponseCache {
	redisURL := strings.TrimSpace(cfg.RedisURL)
	if redisURL == "" || cfg.ProviderCacheTTL <= 0 {
		return nil
	}
	redisOpts, err := redis.ParseURL(redisURL)
	if err != nil {
		logger.Warn("invalid redis url, provider cache disabled", slog.String("error", err.Error()))
		return nil
	}
	client := redis.NewClient(redisOpts)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis not reachable, provider cache disabled", slog.String("error", err.Error()))
		_ = client.Close()
		return nil
	}
	logger.Info("redis connected", slog.String("addr", redisOpts.Addr), slog.Duration("ttl", cfg.ProviderCacheTTL))
	return common.NewRedisResponseCache(client, cfg.ProviderCacheTTL)
}

// connectBackend opens the list store. Without it aggregated search still
// serves content tabs and list-item writes answer 503.
func connectBackend(ctx context.Context, cfg app.Config, logger *slog.Logger) (*mongo.Client, *mongorepo.Repository) {
	uri := strings.TrimSpace(cfg.MongoURI)
	if uri == "" {
		logger.Info("mongo uri not configured, user and list search disabled")
		return nil, nil
	}
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongorepo.Connect(connectCtx, uri, options.Client().SetMonitor(otelmongo.NewMonitor()))
	if err != nil {
		logger.Warn("mongo connect failed", slog.String("error", err.Error()))
		return nil, nil
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		logger.Warn("mongo ping failed", slog.String("error", err.Error()))
		_ = client.Disconnect(context.Background())
		return nil, nil
	}

	repo := mongorepo.NewRepository(client, cfg.MongoDatabase)
	if err := repo.EnsureIndexes(connectCtx); err != nil {
		logger.Warn("mongo ensure indexes failed", slog.String("error", err.Error()))
	}
	if err := repo.SeedCategories(connectCtx); err != nil {
		logger.Warn("category seed failed", slog.String("error", err.Error()))
	}
	logger.Info("mongo connected", slog.String("database", cfg.MongoDatabase))
	return client, repo
}
