package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	log "github.com/sirupsen/logrus"

	"github.com/Ommsharravana/meeting-transcriber-sub000/internal/audio"
	"github.com/Ommsharravana/meeting-transcriber-sub000/internal/cleanup"
	"github.com/Ommsharravana/meeting-transcriber-sub000/internal/config"
	"github.com/Ommsharravana/meeting-transcriber-sub000/internal/handlers"
	"github.com/Ommsharravana/meeting-transcriber-sub000/internal/media"
	"github.com/Ommsharravana/meeting-transcriber-sub000/internal/pipeline"
	"github.com/Ommsharravana/meeting-transcriber-sub000/internal/queue"
	"github.com/Ommsharravana/meeting-transcriber-sub000/internal/storage"
	"github.com/Ommsharravana/meeting-transcriber-sub000/internal/transcribe"
	"github.com/Ommsharravana/meeting-transcriber-sub000/internal/types"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := cleanup.EnsureTempDirExists(cfg.Storage.TempDir); err != nil {
		log.Fatalf("failed to create temp directory: %v", err)
	}
	if err := os.MkdirAll(cfg.Storage.OutputDir, 0755); err != nil {
		log.Fatalf("failed to create output directory: %v", err)
	}

	// Keep recent log lines in memory for the /logs endpoint.
	logBuf := &logBuffer{lines: make([]string, 0, 1000)}
	log.SetOutput(io.MultiWriter(os.Stdout, logBuf))
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	log.Info("initializing components")

	creds := transcribe.StaticCredentials{
		types.ProviderOpenAI:     cfg.Providers.OpenAI.APIKey,
		types.ProviderElevenLabs: cfg.Providers.ElevenLabs.APIKey,
	}
	registry := transcribe.NewRegistry(creds, cfg.Providers.OpenAI.BaseURL, cfg.Providers.ElevenLabs.BaseURL)

	decoder := audio.BeepDecoder{}
	prober := audio.NewProber(cfg.ProbeTimeout(), int64(cfg.Pipeline.BytesPerSecond), decoder)
	chunker := audio.NewChunker(decoder)

	// The orchestrator degrades to a server-side chunking endpoint when the
	// in-process decoder cannot handle a container. Typically this points at
	// this server's own /chunk route on another instance.
	var fallback pipeline.FallbackSplitter
	if remote := media.NewRemoteChunker(cfg.Pipeline.RemoteChunkURL); remote != nil {
		fallback = remote
	}

	reconciler := pipeline.NewReconciler(registry, cfg.Pipeline.QualityModel, cfg.Pipeline.DiarizeModel)
	orchestrator := pipeline.NewOrchestrator(pipeline.Config{
		MaxDirectSeconds:   cfg.MaxDirectSeconds(),
		ChunkSeconds:       float64(cfg.Pipeline.ChunkSeconds),
		SizeThresholdBytes: cfg.FallbackThresholdBytes(),
	}, registry, prober, chunker, fallback, reconciler)

	localStore := storage.NewLocal(cfg.Storage.OutputDir)

	db, err := storage.NewMetadataDB(cfg.Storage.Database)
	if err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}
	defer db.Close()

	// Drive archiving is optional: missing credentials means local-only.
	var archiver queue.Archiver
	if _, err := os.Stat(cfg.GoogleDrive.CredentialsFile); err == nil {
		driveClient, err := storage.NewDriveClient(context.Background(),
			cfg.GoogleDrive.CredentialsFile, cfg.GoogleDrive.TokenFile, cfg.GoogleDrive.FolderName)
		if err != nil {
			log.WithError(err).Warn("google drive unavailable, saving locally only")
		} else {
			archiver = driveClient
			log.Info("google drive archiving enabled")
		}
	} else {
		log.Info("google drive credentials not found, saving locally only")
	}

	workerPool := queue.NewWorkerPool(cfg.Workers.Count, orchestrator, localStore, db, archiver)
	workerPool.Start()

	cleanupScheduler := cleanup.NewScheduler(cfg.Storage.TempDir,
		time.Duration(cfg.Cleanup.IntervalMinutes)*time.Minute,
		time.Duration(cfg.Cleanup.MaxAgeHours)*time.Hour)
	cleanupScheduler.Start()
	defer cleanupScheduler.Stop()

	ffmpeg, err := media.NewFFmpeg(cfg.Storage.TempDir)
	if err != nil {
		log.WithError(err).Warn("ffmpeg not found, /chunk endpoint disabled")
		ffmpeg = nil
	}

	app := fiber.New(fiber.Config{
		BodyLimit: cfg.Server.MaxUploadMB * 1024 * 1024,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))

	transcribeHandler := handlers.NewTranscribeHandler(workerPool, cfg.Server.MaxUploadMB)
	jobsHandler := handlers.NewJobsHandler(workerPool, db)
	chunkHandler := handlers.NewChunkHandler(ffmpeg, cfg.Pipeline.ChunkSeconds, cfg.Server.MaxUploadMB)
	streamHandler := handlers.NewStreamHandler(cfg.Providers.ElevenLabs.RealtimeURL,
		cfg.Providers.ElevenLabs.APIKey, cfg.Realtime.SampleRate)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy", "version": "1.0.0"})
	})

	app.Post("/transcribe", transcribeHandler.Handle)
	app.Get("/jobs/:id", jobsHandler.Status)
	app.Get("/jobs/:id/transcript", jobsHandler.Transcript)
	app.Get("/transcripts", jobsHandler.List)
	app.Post("/chunk", chunkHandler.Handle)
	app.Get("/ws/realtime", websocket.New(streamHandler.Handle))

	app.Get("/logs", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"logs": logBuf.Lines()})
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.WithField("addr", addr).Info("server starting")

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint
		log.Info("shutting down gracefully")
		_ = app.Shutdown()
	}()

	if err := app.Listen(addr); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}

// logBuffer retains the last 1000 log lines.
type logBuffer struct {
	mu    sync.Mutex
	lines []string
}

func (lb *logBuffer) Write(p []byte) (int, error) {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	lb.lines = append(lb.lines, string(p))
	if len(lb.lines) > 1000 {
		lb.lines = lb.lines[len(lb.lines)-1000:]
	}
	return len(p), nil
}

func (lb *logBuffer) Lines() []string {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	out := make([]string, len(lb.lines))
	copy(out, lb.lines)
	return out
}
