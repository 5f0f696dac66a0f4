package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"

	"github.com/codebuildervaibhav/lecture-grader/internal/cleanup"
	"github.com/codebuildervaibhav/lecture-grader/internal/config"
	"github.com/codebuildervaibhav/lecture-grader/internal/handlers"
	"github.com/codebuildervaibhav/lecture-grader/internal/logging"
	"github.com/codebuildervaibhav/lecture-grader/internal/registry"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	logBuffer := logging.NewLogBuffer(1000)
	log := logging.New(cfg.Logging.Level, cfg.Logging.Format, os.Stdout)
	log.AddHook(logBuffer)

	for _, verr := range cfg.Validate() {
		log.WithField("field", verr.Field).Warn(verr.Message)
	}

	for _, dir := range []string{cfg.Storage.TempDir, cfg.Storage.VideoDir} {
		if err := cleanup.EnsureDir(dir); err != nil {
			log.Fatalf("Failed to create directory %s: %v", dir, err)
		}
	}

	log.Info("Initializing components...")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	reg, err := registry.Build(ctx, cfg, log)
	cancel()
	if err != nil {
		log.Fatalf("Failed to initialize components: %v", err)
	}
	defer func() {
		if err := reg.Close(); err != nil {
			log.WithError(err).Warn("Failed to release components")
		}
	}()

	cleanupScheduler := cleanup.NewScheduler(
		cfg.Storage.TempDir,
		time.Duration(cfg.Cleanup.IntervalMinutes)*time.Minute,
		time.Duration(cfg.Cleanup.MaxAgeHours)*time.Hour,
		log.WithField("component", "cleanup"),
	)
	cleanupScheduler.Start()
	defer cleanupScheduler.Stop()

	app := fiber.New(fiber.Config{
		BodyLimit:    cfg.Limits.MaxFileSizeMB * 1024 * 1024,
		ErrorHandler: handlers.ErrorHandler(log),
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{Output: log.Writer()}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	setupRoutes(app, cfg, reg, logBuffer, log)

	addr := cfg.Addr()
	log.WithFields(logrus.Fields{
		"addr":          addr,
		"object_store":  reg.ObjectStore.Backend(),
		"vector_index":  cfg.VectorIndex.Backend,
		"embedding":     cfg.Embedding.Backend,
		"llm_provider":  cfg.LLM.Provider,
		"whisper_model": cfg.Whisper.Model,
	}).Info("Server starting")

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		log.Info("Shutting down gracefully...")
		if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
			log.WithError(err).Warn("Shutdown did not complete cleanly")
		}
	}()

	if err := app.Listen(addr); err != nil {
		log.Errorf("Server failed: %v", err)
	}
}

func setupRoutes(app *fiber.App, cfg *config.Config, reg *registry.Registry, logBuffer *logging.LogBuffer, log logrus.FieldLogger) {
	uploadHandler := handlers.NewUploadHandler(reg.ObjectStore, reg.Metadata, cfg.Limits.MaxFileSizeMB, log.WithField("handler", "upload"))
	lectureHandler := handlers.NewLectureHandler(reg.Retrieval, reg.Importer, log.WithField("handler", "lecture"))
	llmHandler := handlers.NewLLMHandler(reg.Retrieval, reg.Grader, log.WithField("handler", "llm"))
	videoHandler := handlers.NewVideoHandler(reg.Videos, reg.Metadata, cfg.Limits.MaxFileSizeMB, log.WithField("handler", "video"))
	gradingHandler := handlers.NewGradingHandler(reg.Videos, reg.Grader, reg.Metadata, log.WithField("handler", "grading"))

	app.Get("/", handlers.Hello)
	app.Get("/health", handlers.Health(reg.Degraded))
	app.Get("/logs", handlers.Logs(logBuffer))

	app.Post("/upload/", uploadHandler.Handle)
	app.Post("/insert_lecture/", lectureHandler.Insert)
	app.Post("/insert_lecture/url", lectureHandler.InsertURL)
	app.Post("/retrieve/", lectureHandler.Retrieve)

	app.Get("/videos", videoHandler.List)
	app.Get("/runs", gradingHandler.Runs)

	llm := app.Group("/llm")
	llm.Post("/evaluate/", llmHandler.Evaluate)
	llm.Post("/score/", llmHandler.Score)
	llm.Post("/upload-video/", videoHandler.Upload)
	llm.Get("/ws/upload-video", handlers.RequireUpgrade, websocket.New(videoHandler.Stream))
	llm.Post("/download-csv/", gradingHandler.DownloadCSV)
}
