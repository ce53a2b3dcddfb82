package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"arpublish/docs"
	"arpublish/internal/config"
	handlers "arpublish/internal/http/handler"
	"arpublish/internal/http/middleware"
	"arpublish/internal/idgen"
	"arpublish/internal/logger"
	apptrace "arpublish/internal/otel"
	"arpublish/internal/qr"
	"arpublish/internal/service"
)

// @title AR Publish API
// @version 1.0
// @BasePath /
func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logg, err := logger.New(cfg.LogLevel, cfg.Location())
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logg.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := apptrace.Init(ctx, logg)
	if err != nil {
		logg.Fatal("failed to initialize tracing", zap.Error(err))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Metadata store and blob buckets, selected by DB_DRIVER and STORAGE_DRIVER
	repo, pinger, closeRepo, err := openRepository(ctx, cfg, logg)
	if err != nil {
		logg.Fatal("failed to open metadata store", zap.Error(err))
	}
	defer closeRepo()

	repo, err = withResolveCache(repo, cfg.Cache, reg)
	if err != nil {
		logg.Fatal("failed to build resolve cache", zap.Error(err))
	}

	uploader, err := openUploader(ctx, cfg)
	if err != nil {
		logg.Fatal("failed to initialize object storage", zap.Error(err))
	}

	encoder, err := qr.NewEncoder(cfg.QR.Level, cfg.QR.Size)
	if err != nil {
		logg.Fatal("invalid QR settings", zap.Error(err))
	}

	pipelineMetrics, err := service.NewPipelineMetrics(reg)
	if err != nil {
		logg.Fatal("failed to register pipeline metrics", zap.Error(err))
	}
	promMiddleware, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		logg.Fatal("failed to register http metrics", zap.Error(err))
	}

	arSvc := service.NewArService(
		idgen.New(),
		uploader,
		encoder,
		repo,
		cfg.FrontendURL,
		service.Limits{
			PhotoMaxBytes:     cfg.Upload.PhotoMaxBytes,
			VideoMaxBytes:     cfg.Upload.VideoMaxBytes,
			TitleMaxLen:       cfg.Upload.TitleMaxLen,
			DescriptionMaxLen: cfg.Upload.DescriptionMaxLen,
		},
		service.WithLogger(logg),
		service.WithMetrics(pipelineMetrics),
	)

	app := fiber.New(fiber.Config{
		ErrorHandler:          handlers.ErrorHandler(),
		BodyLimit:             cfg.BodyLimit(),
		DisableStartupMessage: true,
	})

	// Register global middleware
	app.Use(recover.New())
	app.Use(otelfiber.Middleware())
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger(logg))
	app.Use(middleware.CORS(cfg.CORSOrigins))
	app.Use(promMiddleware.Handler())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	handlers.RegisterRoutes(app, pinger, arSvc, logg)

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

	go func() {
		<-ctx.Done()
		logg.Info("shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logg.Error("server shutdown", zap.Error(err))
		}
	}()

	addr := ":" + cfg.Port
	logg.Info("server starting",
		zap.String("addr", addr),
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("storage_driver", cfg.MinIO.Driver),
		zap.String("frontend_url", cfg.FrontendURL),
	)
	if err := app.Listen(addr); err != nil {
		logg.Error("failed to start server", zap.Error(err))
	}

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdownTracing(flushCtx); err != nil {
		logg.Warn("tracing shutdown", zap.Error(err))
	}
}
