package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"alfredoptarigan/cv-ranker/internal/config"
	"alfredoptarigan/cv-ranker/internal/handlers"
	"alfredoptarigan/cv-ranker/internal/logger"
	"alfredoptarigan/cv-ranker/internal/services"
)

// maxUploadFiles bounds the request body to this many maximum-size PDFs.
const maxUploadFiles = 20

func main() {
	configFile := flag.String("config", "", "optional config file (yaml, json or toml)")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	zl, err := logger.New(cfg.Log.JSON, cfg.Log.Debug || cfg.IsDevelopment())
	if err != nil {
		log.Fatalf("❌ Failed to create logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()
	zl.Info("config loaded", zap.String("env", cfg.Server.Env))

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Initialize services
	pipeline, err := services.NewPipeline(context.Background(), cfg, reg, zl)
	if err != nil {
		zl.Fatal("failed to initialize ranking pipeline", zap.Error(err))
	}
	zl.Info("services initialized",
		zap.String("summary_model", cfg.Gemini.SummaryModel),
		zap.String("embedding_model", cfg.Gemini.EmbeddingModel),
		zap.Int("worker_concurrency", cfg.Worker.Concurrency),
	)

	// Initialize Handlers
	rankHandler := handlers.NewRankHandler(pipeline.Uploads, pipeline.Ranker, cfg.Ranking, zl.Named("http"))
	exportHandler := handlers.NewExportHandler(zl.Named("http"))

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "CV Ranker API",
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 10 * time.Minute,
		BodyLimit:    int(cfg.Storage.MaxFileSize) * maxUploadFiles,
		ErrorHandler: handlers.ErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	// Routes
	api := app.Group("/api/v1")

	// Health check
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now(),
		})
	})

	api.Post("/rank", rankHandler.HandleRank)
	api.Post("/export", exportHandler.HandleExport)

	// Root route
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "CV Ranker API",
			"version": "1.0.0",
			"endpoints": []string{
				"POST /api/v1/rank",
				"POST /api/v1/export?format=csv|json|html",
				"GET /api/v1/health",
				"GET /metrics",
			},
		})
	})

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		zl.Info("🛑 shutting down server")
		if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
			zl.Error("server forced to shutdown", zap.Error(err))
		}
	}()

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	zl.Info("🚀 server starting", zap.String("addr", addr))

	if err := app.Listen(addr); err != nil {
		zl.Fatal("failed to start server", zap.Error(err))
	}
}
