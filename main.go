package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/subs2srs/backend/internal/anki"
	"github.com/subs2srs/backend/internal/api"
	"github.com/subs2srs/backend/internal/auth"
	"github.com/subs2srs/backend/internal/cards"
	"github.com/subs2srs/backend/internal/config"
	"github.com/subs2srs/backend/internal/db"
	"github.com/subs2srs/backend/internal/ffmpeg"
	"github.com/subs2srs/backend/internal/job"
	"github.com/subs2srs/backend/internal/segment"
	"github.com/subs2srs/backend/internal/transcribe"
	"github.com/subs2srs/backend/internal/ytdlp"
)

func main() {
	cfg := config.Load()

	// Ensure data directories exist
	os.MkdirAll(cfg.DataPath, 0755)
	os.MkdirAll(cfg.WorkPath, 0755)

	// Initialize database
	database, err := db.NewSQLite(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	// Ensure admin user exists
	if err := database.EnsureAdmin(cfg.AdminUsername, cfg.AdminPassword); err != nil {
		log.Fatalf("Failed to create admin user: %v", err)
	}
	log.Printf("Admin user ensured: %s", cfg.AdminUsername)

	if cfg.AssemblyAIKey == "" {
		log.Println("WARNING: ASSEMBLYAI_API_KEY not set, transcription will fail")
	}

	// Initialize JWT service
	jwtService := auth.NewJWTService(cfg.JWTSecret)

	// Job registry and pipeline
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry := job.NewRegistry(cfg.WorkPath)
	registry.StartJanitor(ctx, time.Hour, cfg.JobMaxAge)

	pipeline := job.NewPipeline(job.Deps{
		Fetcher:     ytdlp.NewClient(""),
		Audio:       ffmpeg.Extractor{},
		Transcriber: transcribe.NewAssemblyAIClient(cfg.AssemblyAIKey, cfg.AssemblyAIBaseURL),
		Packager:    anki.Packager{},
		ClipSource:  func(audioPath string) cards.AudioSource { return ffmpeg.NewClipper(audioPath) },
		FrameSource: func(mediaPath string) cards.ImageSource { return ffmpeg.NewFrameGrabber(mediaPath) },
		StillSource: func(imagePath string) cards.ImageSource { return ffmpeg.NewStillImage(imagePath) },
		Cache:       database,
	}, job.Config{
		Segmenter:       segment.DefaultJapanese(),
		DefaultLanguage: cfg.Language,
		PollInterval:    cfg.PollInterval,
		PollTimeout:     cfg.TranscribeTimeout,
	})

	// Create router
	router := api.NewRouter(database, jwtService, cfg, registry, pipeline)

	// Start server
	addr := fmt.Sprintf(":%d", cfg.Port)
	log.Printf("Starting server on %s", addr)
	log.Printf("Work path: %s", cfg.WorkPath)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Println("Shutting down...")
		cancel()
		os.Exit(0)
	}()

	if err := http.ListenAndServe(addr, router); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
