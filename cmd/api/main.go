package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"loanapi/docs"
	"loanapi/internal/cache"
	"loanapi/internal/config"
	"loanapi/internal/database"
	"loanapi/internal/database/migration"
	"loanapi/internal/events"
	handlers "loanapi/internal/http/handler"
	"loanapi/internal/http/middleware"
	"loanapi/internal/logger"
	"loanapi/internal/otel"
	"loanapi/internal/repository/postgres"
	"loanapi/internal/service"
	"loanapi/internal/storage"
)

const shutdownTimeout = 15 * time.Second

// @title Loan Application API
// @version 1.0
// @description Accepts loan applications with supporting documents.
// @BasePath /
func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		os.Stderr.WriteString("failed to build logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("Service stopped", zap.Error(err))
	}
}

func run(cfg *config.AppConfig, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, logger.Component(log, "otel"))
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn("Tracer shutdown failed", zap.Error(err))
		}
	}()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := migration.EnsureMigrated(ctx, db, logger.Component(log, "migration"), cfg.Database.Host); err != nil {
		return err
	}

	objStore, err := storage.NewMinIO(ctx, cfg.MinIO)
	if err != nil {
		return err
	}

	redisClient := cache.NewRedisClient(cfg.Redis)
	defer redisClient.Close()
	statusCache := cache.NewRedisStatusCache(redisClient)

	publisher, err := events.NewKafkaPublisher(cfg.Kafka)
	if err != nil {
		return err
	}
	defer publisher.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	promMiddleware, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		return err
	}
	metrics, err := service.NewMetrics(reg)
	if err != nil {
		return err
	}

	repo := postgres.NewApplicationPostgres(db)
	submissions := service.NewSubmissionService(storage.NewStager(objStore), repo, publisher, service.Options{
		Limits: service.Limits{
			MaxFiles:     cfg.Upload.MaxFiles,
			MaxFileBytes: cfg.Upload.MaxFileBytes,
			AllowedTypes: cfg.Upload.AllowedTypes,
		},
		StageConcurrency:  cfg.Upload.StageConcurrency,
		CompensateTimeout: cfg.Upload.CompensateTimeout,
		Logger:            logger.Component(log, "submission"),
		Metrics:           metrics,
	})
	statuses := service.NewStatusService(repo, statusCache, cfg.Redis.StatusTTL, logger.Component(log, "status"))

	app := fiber.New(fiber.Config{
		AppName:      "application-service",
		BodyLimit:    cfg.Upload.BodyLimit(),
		ErrorHandler: handlers.ErrorHandler(log),
	})

	app.Use(otelfiber.Middleware())
	app.Use(middleware.CorrelationID())
	app.Use(middleware.Logger(logger.Component(log, "http")))
	app.Use(promMiddleware.Handler())
	app.Use(middleware.Recover(log))

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	handlers.RegisterRoutes(app, log, submissions, statuses,
		handlers.ReadinessCheck{Name: "postgres", Check: db.PingContext},
		handlers.ReadinessCheck{Name: "redis", Check: statusCache.Ping},
		handlers.ReadinessCheck{Name: "minio", Check: objStore.Ping},
	)

	// Swagger UI with dynamic host and scheme
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	listenErr := make(chan error, 1)
	go func() {
		log.Info("Server listening", zap.String("port", cfg.Port))
		listenErr <- app.Listen(":" + cfg.Port)
	}()

	select {
	case err := <-listenErr:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	// In-flight submissions finish their protocol, including compensation.
	return app.ShutdownWithTimeout(shutdownTimeout)
}
