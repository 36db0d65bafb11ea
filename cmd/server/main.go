// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"housing-radar/internal/analyze"
	"housing-radar/internal/api"
	"housing-radar/internal/common/config"
	"housing-radar/internal/common/database"
	commonhttp "housing-radar/internal/common/http"
	"housing-radar/internal/common/logger"
	"housing-radar/internal/common/observability"
	"housing-radar/internal/geocode"
	"housing-radar/internal/ingest"
	"housing-radar/internal/market"
	"housing-radar/internal/notify"
	"housing-radar/internal/scheduler"
	"housing-radar/internal/scrape"
	"housing-radar/internal/search"
	"housing-radar/internal/store"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

// pipeline wires the collector and analyzer into the scheduler's cycle.
type pipeline struct {
	collector *ingest.Collector
	analyzer  *analyze.Analyzer
}

func (p *pipeline) Collect(ctx context.Context) error {
	p.collector.Run(ctx)
	return nil
}

func (p *pipeline) Analyze(ctx context.Context) error {
	_, err := p.analyzer.Run(ctx)
	return err
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting housing-radar...")

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	shutdownTracer, err := observability.InitTracer(cfg.App.Name, cfg.Observability.JaegerEndpoint)
	if err != nil {
		zapLog.Warn("tracer initialization failed", zap.Error(err))
	} else {
		defer shutdownTracer()
	}

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	var redisClient *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redisClient, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redisClient.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redisClient.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init Elasticsearch with retry ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return esClient.Ping()
	}, 15, 2*time.Second, zapLog, "Elasticsearch connection")

	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	zapLog.Info("Elasticsearch connected successfully")

	// --- Storage layer ---
	st := store.New(pg.DB, log)
	if err := st.EnsureSchema(ctx); err != nil {
		zapLog.Fatal("schema bootstrap failed", zap.Error(err))
	}

	// --- External providers ---
	scraperHTTP := commonhttp.NewClientWithUserAgent(config.GetDuration(cfg.Scrapers.Timeout), cfg.Scrapers.UserAgent)
	apiHTTP := commonhttp.NewClient(config.GetDuration(cfg.APIs.SeoulData.Timeout))

	marketClient := market.NewClient(cfg.APIs.SeoulData, apiHTTP, redisClient.Client, log)
	geocoder := geocode.NewClient(cfg.APIs.Kakao, apiHTTP, redisClient.Client, log,
		geocode.WithFailureLogger(st),
		geocode.WithMinRequestGap(200*time.Millisecond),
	)
	searchService := search.NewService(esClient.Client, cfg.Database.Elasticsearch.Index, log)

	var scrapers []scrape.Scraper
	if cfg.Scrapers.SH.Enabled {
		scrapers = append(scrapers, scrape.NewSHScraper(cfg.Scrapers, scraperHTTP, log))
	}
	if cfg.Scrapers.LH.Enabled {
		scrapers = append(scrapers, scrape.NewLHScraper(cfg.Scrapers, scraperHTTP, log))
	}

	// --- Alert channel ---
	var notifier analyze.Notifier
	if cfg.Notifications.AWS.SES.Enabled || cfg.Notifications.AWS.SNS.Enabled {
		svc, err := notify.NewService(ctx, cfg.Notifications, log)
		if err != nil {
			zapLog.Fatal("failed to create notification service", zap.Error(err))
		}
		notifier = svc
	}

	// --- Pipeline jobs ---
	collector := ingest.NewCollector(scrapers, st, geocoder, searchService, log, obs)
	analyzer := analyze.New(st, marketClient, notifier, cfg.Notifications.ScoreThreshold, log, obs)

	sched := scheduler.New(
		&pipeline{collector: collector, analyzer: analyzer},
		time.Duration(cfg.Scheduler.IntervalHours)*time.Hour,
		log,
	)
	if cfg.Scheduler.Enabled {
		sched.Start(ctx)
		defer sched.Stop()
		zapLog.Info("Scheduler started", zap.Int("intervalHours", cfg.Scheduler.IntervalHours))
	}

	// --- HTTP API ---
	checks := map[string]api.HealthCheck{
		"postgres":      func(ctx context.Context) error { return pg.Ping(ctx) },
		"redis":         func(ctx context.Context) error { return redisClient.Ping(ctx) },
		"elasticsearch": func(ctx context.Context) error { return esClient.Ping() },
	}
	apiServer := api.NewServer(st, searchService, sched, checks, cfg.App.Name, log)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      apiServer.Handler(),
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.Int("port", cfg.Server.Port))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("HTTP server shutdown failed", zap.Error(err))
	}

	zapLog.Info("housing-radar stopped gracefully")
}
