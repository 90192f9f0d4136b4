/**
 * Plan Review Worker - Main Entry Point
 *
 * Go worker for automated municipal plan review.
 *
 * Architecture:
 * - Asynq consumer for the Redis-backed review:submit queue
 * - MuPDF rasterization + Tesseract block extraction for text grounding
 * - OpenAI chat completions for reviewer dispatch (text and vision modes)
 * - PostgreSQL persistence for review comments, Redis for raw response audit
 */

package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/planroom/review-worker/internal/agent"
	"github.com/planroom/review-worker/internal/config"
	"github.com/planroom/review-worker/internal/ocr"
	"github.com/planroom/review-worker/internal/pipeline"
	"github.com/planroom/review-worker/internal/queue"
	"github.com/planroom/review-worker/internal/raster"
	"github.com/planroom/review-worker/internal/registry"
	"github.com/planroom/review-worker/internal/storage"
)

const queueName = "planreview:submissions"

func main() {
	// Load environment variables
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: .env not found, using system environment variables")
	}

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Plan Review Worker starting...")
	log.Printf("Configuration loaded: Redis=%s, Workers=%d, Model=%s",
		cfg.RedisURL, cfg.WorkerConcurrency, cfg.OpenAIModel)

	// Initialize storage manager (PostgreSQL + Redis)
	log.Printf("Connecting to storage (PostgreSQL + Redis)...")
	storageManager, err := storage.NewManager(cfg.DatabaseURL, cfg.RedisURL, cfg.RawResponseTTL)
	if err != nil {
		log.Fatalf("Failed to initialize storage manager: %v", err)
	}
	defer storageManager.Close()
	log.Printf("Storage manager initialized (PostgreSQL + Redis)")

	// Load reviewer registry
	reviewers, err := registry.LoadFromFile(cfg.ReviewersPath)
	if err != nil {
		log.Fatalf("Failed to load reviewer registry from %s: %v", cfg.ReviewersPath, err)
	}
	log.Printf("Reviewer registry loaded: %d reviewers from %s",
		len(reviewers.List()), cfg.ReviewersPath)

	// Initialize the OpenAI reviewer client
	reviewer, err := agent.NewOpenAIReviewer(agent.OpenAISettings{
		APIKey:  cfg.OpenAIAPIKey,
		Model:   cfg.OpenAIModel,
		BaseURL: cfg.OpenAIBaseURL,
	})
	if err != nil {
		log.Fatalf("Failed to initialize OpenAI reviewer: %v", err)
	}

	// Assemble the submission pipeline
	scanner := ocr.NewTesseractScanner(strings.Split(cfg.OCRLanguages, ",")...)
	submitPipeline, err := pipeline.New(pipeline.Config{
		Registry:      reviewers,
		Agent:         reviewer,
		Renderer:      raster.NewRenderer(float64(cfg.OCRDPI)),
		Extractor:     ocr.NewBlockExtractor(scanner, cfg.OCRMinConfidence),
		SubmitTimeout: cfg.SubmitTimeout,
		VisionScale:   cfg.VisionScale,
	})
	if err != nil {
		log.Fatalf("Failed to initialize submission pipeline: %v", err)
	}
	log.Printf("Submission pipeline initialized (dpi=%d, minConfidence=%d, visionScale=%g)",
		cfg.OCRDPI, cfg.OCRMinConfidence, cfg.VisionScale)

	// Initialize queue consumer
	log.Printf("Connecting to Redis queue...")
	queueConsumer, err := queue.NewConsumer(&queue.ConsumerConfig{
		RedisURL:    cfg.RedisURL,
		QueueName:   queueName,
		Concurrency: cfg.WorkerConcurrency,
		Submitter:   submitPipeline,
		Persister:   storageManager,
		MaxPDFSize:  cfg.MaxPDFSize,
	})
	if err != nil {
		log.Fatalf("Failed to initialize queue consumer: %v", err)
	}
	log.Printf("Queue consumer initialized with concurrency=%d", cfg.WorkerConcurrency)

	// Start queue consumer
	if err := queueConsumer.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start queue consumer: %v", err)
	}

	// Print startup summary
	log.Printf("===========================================")
	log.Printf("Plan Review Worker is READY")
	log.Printf("===========================================")
	log.Printf("Queue: %s", queueName)
	log.Printf("Workers: %d", cfg.WorkerConcurrency)
	log.Printf("Reviewers: %d registered", len(reviewers.List()))
	log.Printf("Submit timeout: %v", cfg.SubmitTimeout)
	log.Printf("===========================================")
	log.Printf("Waiting for submissions...")

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigChan
	log.Printf("Received signal %v, initiating graceful shutdown...", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := queueConsumer.Stop(shutdownCtx); err != nil {
		log.Printf("Error stopping queue consumer: %v", err)
	}

	storageManager.Close()
	log.Printf("Shutdown complete")
}

// healthCheck verifies the backing stores are reachable
func healthCheck(store *storage.Manager) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := store.Ping(ctx); err != nil {
		return fmt.Errorf("storage health check failed: %w", err)
	}

	return nil
}
