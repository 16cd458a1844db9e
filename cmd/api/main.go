package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bitvale/narrator/internal/api"
	"github.com/bitvale/narrator/internal/config"
	"github.com/bitvale/narrator/internal/db"
	"github.com/bitvale/narrator/internal/library"
	"github.com/bitvale/narrator/internal/queue"
	"github.com/bitvale/narrator/internal/services"
	"github.com/bitvale/narrator/internal/worker"
)

func main() {
	log.Println("Starting Narrator API...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Connect to database
	database, err := db.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()
	log.Println("Connected to database")

	// Connect to Redis queue
	q, err := queue.New(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to connect to queue: %v", err)
	}
	defer q.Close()
	log.Println("Connected to Redis queue")

	// Initialize the file library
	lib, err := library.New(cfg.DataDir, cfg.SpeakerDir)
	if err != nil {
		log.Fatalf("Failed to initialize library: %v", err)
	}
	log.Printf("Library initialized (data: %s, speakers: %s)", cfg.DataDir, cfg.SpeakerDir)

	// Initialize upstream services
	llmSvc := services.NewOllamaService(cfg.OllamaURL, cfg.OllamaDefaultModel)
	ttsSvc := services.NewXTTSService(cfg.TTSURL)
	sdSvc := services.NewSDService(cfg.SDURL, services.SDDefaults{
		Steps:          cfg.SDDefaultSteps,
		Sampler:        cfg.SDDefaultSampler,
		Width:          cfg.SDDefaultWidth,
		Height:         cfg.SDDefaultHeight,
		CFGScale:       cfg.SDDefaultCFGScale,
		NegativePrompt: cfg.SDDefaultNegative,
		VAE:            cfg.SDDefaultVAE,
	})

	// Upstream availability is informational at startup; requests fail
	// individually if a service goes away later.
	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 10*time.Second)
	if err := llmSvc.Ping(startupCtx); err != nil {
		log.Printf("WARNING: %v", err)
	}
	if err := ttsSvc.Ping(startupCtx); err != nil {
		log.Printf("WARNING: %v", err)
	}
	if err := sdSvc.Ping(startupCtx); err != nil {
		log.Printf("WARNING: %v (images will be skipped while unreachable)", err)
	}
	cancelStartup()

	// Create API handler
	handler := api.NewHandler(database, q, lib, llmSvc, ttsSvc, sdSvc, cfg.OllamaDefaultModel)
	router := api.NewRouter(handler, api.RouterConfig{
		BackendAPIKey:      cfg.BackendAPIKey,
		CorsAllowedOrigins: cfg.CorsAllowedOrigins,
	})

	if cfg.BackendAPIKey != "" {
		log.Println("API key authentication enabled")
	} else {
		log.Println("WARNING: No BACKEND_API_KEY set — API is unprotected (dev mode)")
	}

	server := &http.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: router,
	}

	// Watch the data directory so external file changes show up in listings
	watchCtx, watchCancel := context.WithCancel(context.Background())
	go func() {
		if err := lib.Watch(watchCtx); err != nil {
			log.Printf("Library watcher stopped: %v", err)
		}
	}()

	// Start worker if enabled
	var workerCancel context.CancelFunc
	if cfg.WorkerEnabled {
		log.Println("Worker enabled, starting background processing...")

		w := worker.New(database, q, lib, llmSvc, ttsSvc, sdSvc, cfg.DefaultLanguage)

		var workerCtx context.Context
		workerCtx, workerCancel = context.WithCancel(context.Background())
		go w.Start(workerCtx, cfg.MaxConcurrentJobs)
	}

	// Start server in goroutine
	go func() {
		log.Printf("API server listening on :%s", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	if workerCancel != nil {
		workerCancel()
	}
	watchCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
