package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/iyhunko/price-tracker/internal/cache"
	"github.com/iyhunko/price-tracker/internal/config"
	httpAPI "github.com/iyhunko/price-tracker/internal/http"
	"github.com/iyhunko/price-tracker/internal/http/controller"
	"github.com/iyhunko/price-tracker/internal/logger"
	"github.com/iyhunko/price-tracker/internal/metrics"
	"github.com/iyhunko/price-tracker/internal/repository/sql"
	"github.com/iyhunko/price-tracker/internal/scraper"
	"github.com/iyhunko/price-tracker/internal/service"
	sqspkg "github.com/iyhunko/price-tracker/internal/sqs"
)

const shutdownTimeout = 15 * time.Second

func main() {
	conf, err := config.LoadFromEnv()
	handleErr("loading config", err)
	logger.InitJSONLogger(conf.DebugMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := sql.StartDB(ctx, conf.Database)
	handleErr("starting database", err)
	defer db.Close()

	locker, charts := coordination(ctx, conf)

	sc, err := scraper.New(conf.Scraper)
	handleErr("creating scraper", err)

	productRepository := sql.NewProductRepository(db)
	historyRepository := sql.NewPriceHistoryRepository(db)
	userRepository := sql.NewUserRepository(db)
	eventRepository := sql.NewEventRepository(db)
	transactionalRepository := sql.NewTransactionalRepository(db)

	checker := service.NewPriceChecker(productRepository, userRepository, transactionalRepository,
		sc, locker, conf.Scraper.DownloadDelay, conf.SMTP.AlertRecipient)
	productService := service.NewProductService(productRepository, historyRepository, transactionalRepository,
		sc, checker, charts)
	userService := service.NewUserService(userRepository)

	scheduler := service.NewScheduler(checker, historyRepository, conf.Scheduler)
	handleErr("starting scheduler", scheduler.Start(ctx))

	sqsClient, err := sqspkg.NewClient(ctx, conf.AWS)
	handleErr("creating SQS client", err)
	outboxWorker := service.NewOutboxWorker(eventRepository, sqspkg.NewPublisher(sqsClient, conf.AWS.SQSQueueURL), conf.Scheduler.OutboxInterval)
	go outboxWorker.Start(ctx)

	metrics.StartMetricsServer(ctx, conf)

	if !conf.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := httpAPI.InitRouter(conf, gin.New(),
		controller.New(db),
		controller.NewProductController(productService),
		controller.NewUserController(userService),
	)
	httpServer := &http.Server{
		Addr:              ":" + conf.HTTPServer.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("HTTP server starting", slog.String("port", conf.HTTPServer.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			handleErr("listening to HTTP requests", err)
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown failed", slog.Any("err", err))
	}
	scheduler.Stop()
	outboxWorker.Stop()
}

// coordination picks Redis-backed check locks and chart cache when REDIS_URL is set,
// and process-local ones otherwise.
func coordination(ctx context.Context, conf *config.Config) (cache.Locker, cache.ChartCache) {
	if conf.Redis.URL == "" {
		slog.Info("REDIS_URL not set, using in-process locks and chart cache")
		return cache.NewLocalLocker(), cache.NewMemoryChartCache(cache.DefaultChartTTL)
	}
	client, err := cache.ConnectRedis(ctx, conf.Redis)
	handleErr("connecting to Redis", err)
	return cache.NewRedisLocker(client, "price-check:", cache.DefaultLockTTL), cache.NewRedisChartCache(client, cache.DefaultChartTTL)
}

func handleErr(msg string, err error) {
	if err != nil {
		slog.Error("fatal error", slog.String("while", msg), slog.Any("err", err))
		os.Exit(1)
	}
}
