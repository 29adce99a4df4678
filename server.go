package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"socialfeed/api/handlers"
	"socialfeed/api/middleware"
	"socialfeed/api/routes"
	"socialfeed/config"
	"socialfeed/logger"
	"socialfeed/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "Path to the configuration file")
	flag.Parse()

	err := config.LoadConfig(configPath)
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}
	cfg := config.AppConfig

	if err := logger.Init(cfg.Logs.Level); err != nil {
		panic("Failed to init logger: " + err.Error())
	}
	defer logger.Sync()
	logger.Log.Info("Starting server...",
		zap.String("upstream", cfg.Upstream.BaseURL),
		zap.String("cache_backend", cfg.Cache.Backend),
		zap.Duration("cache_ttl", cfg.Cache.TTL))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Redis нужен очереди; если его нет, перестроение лент идет синхронно
	if err := services.InitRedis(cfg.Redis); err != nil {
		logger.Log.Warn("Redis is not available", zap.Error(err))
	}
	defer services.CloseRedis()

	kv, err := services.NewKVStoreFromConfig(cfg)
	if err != nil {
		panic("Failed to init cache storage: " + err.Error())
	}

	ws := services.NewWSConnManager()
	notifications := services.NewNotificationService(kv, nil)
	var publisher services.EventPublisher = &services.DirectPublisher{WS: ws, Notifications: notifications}

	if cfg.RabbitMQ.URL != "" {
		rabbit, err := services.NewRabbitPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange)
		if err != nil {
			logger.Log.Warn("RabbitMQ is not available, delivering feed events directly", zap.Error(err))
		} else {
			defer rabbit.Close()
			if err := rabbit.StartFeedEventConsumer(ctx, cfg.RabbitMQ.Queue, ws, notifications); err != nil {
				logger.Log.Warn("Failed to start feed event consumer", zap.Error(err))
			} else {
				publisher = &services.FallbackPublisher{Primary: rabbit, Fallback: publisher}
			}
		}
	}

	source := services.NewHTTPSource(cfg.Upstream.BaseURL, cfg.Upstream.RequestTimeout)
	source.MaxBodyBytes = cfg.Upstream.MaxBodyBytes
	fetcher := services.NewFetcher(source, cfg.Upstream.PageSize, cfg.Upstream.MaxPages)
	cache := services.NewCacheStore(kv, cfg.Cache.KeyPrefix, cfg.Cache.TTL, nil)
	opts := services.FeedOptions{WindowSize: cfg.Feed.WindowSize, Publisher: publisher}

	posts := services.NewPostFeed(fetcher, cache, opts)
	defer posts.Close()
	profiles := services.NewProfileFeed(fetcher, cache, opts)
	defer profiles.Close()

	h := &handlers.Handlers{
		Posts:         posts,
		Profiles:      profiles,
		Users:         source,
		Notifications: notifications,
		WS:            ws,
	}
	if services.RedisClient != nil {
		h.Queue = services.NewQueueService(services.RedisClient, posts, profiles)
		h.Queue.StartWorkers(ctx)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(cors.Default())
	router.Use(middleware.PrometheusMiddleware("socialfeed"))

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	routes.PublicApi(router, h)
	routes.AdminApi(router, h)

	addr := fmt.Sprintf("%s:%d", cfg.Backend.Host, cfg.Backend.Port)
	srv := &http.Server{Addr: addr, Handler: router}
	go func() {
		<-ctx.Done()
		logger.Log.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Log.Info("Listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		panic(err)
	}
}
