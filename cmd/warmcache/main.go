package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"time"

	"socialfeed/config"
	"socialfeed/logger"
	"socialfeed/services"

	"go.uber.org/zap"
)

// warmcache один раз выкачивает апстрим, собирает ленты и кладет их в кеш
func main() {
	var configPath string
	var timeout time.Duration
	flag.StringVar(&configPath, "config", "config.yaml", "Path to the configuration file")
	flag.DurationVar(&timeout, "timeout", 2*time.Minute, "Overall deadline for the warmup")
	flag.Parse()

	if err := config.LoadConfig(configPath); err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	cfg := config.AppConfig
	if err := logger.Init(cfg.Logs.Level); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()
	defer services.CloseRedis()

	kv, err := services.NewKVStoreFromConfig(cfg)
	if err != nil {
		logger.Log.Fatal("Failed to init cache storage", zap.Error(err))
	}

	source := services.NewHTTPSource(cfg.Upstream.BaseURL, cfg.Upstream.RequestTimeout)
	source.MaxBodyBytes = cfg.Upstream.MaxBodyBytes
	fetcher := services.NewFetcher(source, cfg.Upstream.PageSize, cfg.Upstream.MaxPages)
	cache := services.NewCacheStore(kv, cfg.Cache.KeyPrefix, cfg.Cache.TTL, nil)
	opts := services.FeedOptions{WindowSize: cfg.Feed.WindowSize}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	feeds := []services.Refresher{
		services.NewPostFeed(fetcher, cache, opts),
		services.NewProfileFeed(fetcher, cache, opts),
	}
	failed := false
	for _, feed := range feeds {
		err := feed.Refresh(ctx)
		switch {
		case err == nil:
			logger.Log.Info("feed cached", zap.String("feed", feed.Name()))
		case errors.Is(err, services.ErrCacheWrite):
			logger.Log.Error("feed fetched but not cached", zap.String("feed", feed.Name()), zap.Error(err))
			failed = true
		default:
			logger.Log.Error("feed warmup failed", zap.String("feed", feed.Name()), zap.Error(err))
			failed = true
		}
	}
	if failed {
		logger.Log.Fatal("warmup finished with errors")
	}
}
